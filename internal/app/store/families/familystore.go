// internal/app/store/families/familystore.go
package familystore

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/system/indexes"
	"github.com/dalemusser/recipehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("family group not found")
	// ErrVersionConflict means the group changed after it was loaded.
	ErrVersionConflict = errors.New("family group was modified concurrently")
	// ErrDuplicateInviteCode is returned when the invite code is already taken.
	ErrDuplicateInviteCode = errors.New("invite code already in use")
	// ErrAdminHasGroup is returned when the creator already administers a group.
	ErrAdminHasGroup = errors.New("user already administers a family group")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("family_groups")}
}

// Create inserts a new group at version 0. Duplicate-key failures are
// reported by which unique index fired.
func (s *Store) Create(ctx context.Context, g models.FamilyGroup) (models.FamilyGroup, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	g.Version = 0

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.FamilyGroup{}, dupError(err)
		}
		return models.FamilyGroup{}, err
	}
	return g, nil
}

func dupError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexes.FamilyAdminUnique):
		return ErrAdminHasGroup
	case strings.Contains(msg, indexes.FamilyInviteCodeUnique):
		return ErrDuplicateInviteCode
	}
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.FamilyGroup, error) {
	var g models.FamilyGroup
	if err := s.c.FindOne(ctx, filter).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.FamilyGroup{}, ErrNotFound
		}
		return models.FamilyGroup{}, err
	}
	return g, nil
}

func (s *Store) exists(ctx context.Context, filter bson.M) (bool, error) {
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// GetByID loads a group with its full roster.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.FamilyGroup, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByInviteCode looks up a group by its exact (upper-case) code.
func (s *Store) GetByInviteCode(ctx context.Context, code string) (models.FamilyGroup, error) {
	return s.findOne(ctx, bson.M{"invite_code": code})
}

// InviteCodeExists reports whether any group holds code.
func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, bson.M{"invite_code": code})
}

// ExistsForAdmin reports whether userID created a group.
func (s *Store) ExistsForAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, bson.M{"admin_id": userID})
}

// ListForMember returns the groups where userID is an active member,
// ordered by name.
func (s *Store) ListForMember(ctx context.Context, userID primitive.ObjectID) ([]models.FamilyGroup, error) {
	filter := bson.M{"members": bson.M{"$elemMatch": bson.M{
		"user_id": userID,
		"status":  models.MemberActive,
	}}}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.FamilyGroup{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the mutable fields of g if the stored version still equals
// g.Version, then bumps the version. On success g.Version is advanced.
// A stale g yields ErrVersionConflict; a vanished group yields ErrNotFound.
func (s *Store) Save(ctx context.Context, g *models.FamilyGroup) error {
	g.NameCI = text.Fold(g.Name)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": g.ID, "version": g.Version},
		bson.M{
			"$set": bson.M{
				"name":        g.Name,
				"name_ci":     g.NameCI,
				"description": g.Description,
				"members":     g.Members,
				"settings":    g.Settings,
				"updated_at":  g.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		found, err := s.exists(ctx, bson.M{"_id": g.ID})
		if err != nil {
			return err
		}
		if found {
			return ErrVersionConflict
		}
		return ErrNotFound
	}
	g.Version++
	return nil
}
