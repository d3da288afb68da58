// internal/app/store/shoppinglists/shoppingliststore.go
package shoppingliststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("shopping list not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("shopping_lists")}
}

func (s *Store) Create(ctx context.Context, l models.ShoppingList) (models.ShoppingList, error) {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	if l.Items == nil {
		l.Items = []models.ShoppingItem{}
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.ShoppingList{}, err
	}
	return l, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ShoppingList, error) {
	var l models.ShoppingList
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ShoppingList{}, ErrNotFound
		}
		return models.ShoppingList{}, err
	}
	return l, nil
}

// ListVisible returns the owner's lists plus lists shared into familyIDs,
// most recently updated first.
func (s *Store) ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID) ([]models.ShoppingList, error) {
	scope := bson.A{bson.M{"owner_id": ownerID}}
	if len(familyIDs) > 0 {
		scope = append(scope, bson.M{"family_id": bson.M{"$in": familyIDs}})
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, bson.M{"$or": scope}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ShoppingList{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the name, family and items of l.
func (s *Store) Save(ctx context.Context, l *models.ShoppingList) error {
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now().UTC()
	}
	set := bson.M{
		"name":       l.Name,
		"items":      l.Items,
		"updated_at": l.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if l.FamilyID != nil {
		set["family_id"] = *l.FamilyID
	} else {
		update["$unset"] = bson.M{"family_id": ""}
	}

	res, err := s.c.UpdateByID(ctx, l.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a list by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
