// internal/app/store/pantry/pantrystore.go
package pantrystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("pantry item not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pantry_items")}
}

// ListFilter narrows a pantry listing.
type ListFilter struct {
	// LowStock keeps items at or below a positive threshold.
	LowStock bool
	// ExpiresBy keeps items with an expiry on or before this instant.
	ExpiresBy *time.Time
	// Limit caps the result; zero returns every match.
	Limit int64
}

func (s *Store) Create(ctx context.Context, p models.PantryItem) (models.PantryItem, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.PantryItem{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PantryItem, error) {
	var p models.PantryItem
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PantryItem{}, ErrNotFound
		}
		return models.PantryItem{}, err
	}
	return p, nil
}

// ListVisible returns the owner's items plus items shared into familyIDs,
// ordered by name.
func (s *Store) ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID, f ListFilter) ([]models.PantryItem, error) {
	scope := bson.A{bson.M{"owner_id": ownerID}}
	if len(familyIDs) > 0 {
		scope = append(scope, bson.M{"family_id": bson.M{"$in": familyIDs}})
	}
	filter := bson.M{"$or": scope}
	if f.LowStock {
		filter["$expr"] = bson.M{"$and": bson.A{
			bson.M{"$gt": bson.A{"$low_stock_threshold", 0}},
			bson.M{"$lte": bson.A{"$quantity", "$low_stock_threshold"}},
		}}
	}
	if f.ExpiresBy != nil {
		filter["expires_at"] = bson.M{"$lte": *f.ExpiresBy}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PantryItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of p.
func (s *Store) Update(ctx context.Context, p models.PantryItem) (models.PantryItem, error) {
	p.NameCI = text.Fold(p.Name)
	p.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":                p.Name,
		"name_ci":             p.NameCI,
		"category":            p.Category,
		"quantity":            p.Quantity,
		"unit":                p.Unit,
		"low_stock_threshold": p.LowStockThreshold,
		"updated_at":          p.UpdatedAt,
	}
	unset := bson.M{}
	if p.FamilyID != nil {
		set["family_id"] = *p.FamilyID
	} else {
		unset["family_id"] = ""
	}
	if p.ExpiresAt != nil {
		set["expires_at"] = *p.ExpiresAt
	} else {
		unset["expires_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateByID(ctx, p.ID, update)
	if err != nil {
		return models.PantryItem{}, err
	}
	if res.MatchedCount == 0 {
		return models.PantryItem{}, ErrNotFound
	}
	return p, nil
}

// Delete removes an item by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
