// internal/domain/models/pantry.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PantryItem is one stocked ingredient. Items with a FamilyID are visible to
// the family only while the group shares its pantry.
type PantryItem struct {
	ID       primitive.ObjectID  `bson:"_id" json:"id"`
	OwnerID  primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	FamilyID *primitive.ObjectID `bson:"family_id,omitempty" json:"familyId,omitempty"`

	Name     string `bson:"name" json:"name"`
	NameCI   string `bson:"name_ci" json:"-"`
	Category string `bson:"category" json:"category"`

	Quantity          float64    `bson:"quantity" json:"quantity"`
	Unit              string     `bson:"unit" json:"unit"`
	LowStockThreshold float64    `bson:"low_stock_threshold" json:"lowStockThreshold"`
	ExpiresAt         *time.Time `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsLowStock reports quantity at or below a positive threshold.
// A zero threshold means "never low".
func (p PantryItem) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.Quantity <= p.LowStockThreshold
}

// ExpiresWithin reports whether the item has an expiry on or before
// now+window. Already-expired items count.
func (p PantryItem) ExpiresWithin(now time.Time, window time.Duration) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now.Add(window))
}

// RestockQuantity is how much to buy to bring a low item back up to twice
// its threshold. Returns 0 when the item is not low.
func (p PantryItem) RestockQuantity() float64 {
	if !p.IsLowStock() {
		return 0
	}
	return 2*p.LowStockThreshold - p.Quantity
}
