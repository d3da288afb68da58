// internal/app/store/recipes/recipestore.go
package recipestore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("recipe not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("recipes")}
}

// ListFilter narrows a visible-recipes listing. Query matches anywhere in
// the folded title; Tag must already be normalized.
type ListFilter struct {
	Query string
	Tag   string
	Limit int64
}

func (s *Store) Create(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.TitleCI = text.Fold(r.Title)
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Recipe{}, err
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Recipe, error) {
	var r models.Recipe
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Recipe{}, ErrNotFound
		}
		return models.Recipe{}, err
	}
	return r, nil
}

// ListVisible returns recipes owned by ownerID or shared into any of
// familyIDs, most recently updated first.
func (s *Store) ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID, f ListFilter) ([]models.Recipe, error) {
	scope := bson.A{bson.M{"owner_id": ownerID}}
	if len(familyIDs) > 0 {
		scope = append(scope, bson.M{"family_id": bson.M{"$in": familyIDs}})
	}
	filter := bson.M{"$or": scope}
	if f.Query != "" {
		filter["title_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Query))}
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Recipe{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of r. Owner and creation time are
// never changed.
func (s *Store) Update(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	r.TitleCI = text.Fold(r.Title)
	r.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"title":        r.Title,
		"title_ci":     r.TitleCI,
		"description":  r.Description,
		"ingredients":  r.Ingredients,
		"instructions": r.Instructions,
		"tags":         r.Tags,
		"prep_minutes": r.PrepMinutes,
		"cook_minutes": r.CookMinutes,
		"servings":     r.Servings,
		"updated_at":   r.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if r.FamilyID != nil {
		set["family_id"] = *r.FamilyID
	} else {
		update["$unset"] = bson.M{"family_id": ""}
	}

	res, err := s.c.UpdateByID(ctx, r.ID, update)
	if err != nil {
		return models.Recipe{}, err
	}
	if res.MatchedCount == 0 {
		return models.Recipe{}, ErrNotFound
	}
	return r, nil
}

// Delete removes a recipe by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
