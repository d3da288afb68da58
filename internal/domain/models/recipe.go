// internal/domain/models/recipe.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `bson:"name" json:"name"`
	Quantity float64 `bson:"quantity" json:"quantity"`
	Unit     string  `bson:"unit" json:"unit"`
}

// Recipe is owned by one user and optionally shared into a family group.
type Recipe struct {
	ID       primitive.ObjectID  `bson:"_id" json:"id"`
	OwnerID  primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	FamilyID *primitive.ObjectID `bson:"family_id,omitempty" json:"familyId,omitempty"`

	Title        string       `bson:"title" json:"title"`
	TitleCI      string       `bson:"title_ci" json:"-"`
	Description  string       `bson:"description" json:"description"`
	Ingredients  []Ingredient `bson:"ingredients" json:"ingredients"`
	Instructions []string     `bson:"instructions" json:"instructions"`
	Tags         []string     `bson:"tags" json:"tags"`

	PrepMinutes int `bson:"prep_minutes" json:"prepMinutes"`
	CookMinutes int `bson:"cook_minutes" json:"cookMinutes"`
	Servings    int `bson:"servings" json:"servings"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// TotalMinutes is prep plus cook time.
func (r Recipe) TotalMinutes() int { return r.PrepMinutes + r.CookMinutes }

// HasTag reports whether the recipe carries tag (already lower-cased).
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
