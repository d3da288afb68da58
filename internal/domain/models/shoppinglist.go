// internal/domain/models/shoppinglist.go
package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrItemNotFound is returned by list item operations on an unknown item ID.
var ErrItemNotFound = errors.New("shopping list item not found")

// ShoppingItem is one line on a shopping list. IDs are UUID strings so they
// stay stable inside the embedded array.
type ShoppingItem struct {
	ID       string  `bson:"id" json:"id"`
	Name     string  `bson:"name" json:"name"`
	Quantity float64 `bson:"quantity" json:"quantity"`
	Unit     string  `bson:"unit" json:"unit"`
	Checked  bool    `bson:"checked" json:"checked"`
}

// ShoppingList is owned by one user and optionally shared with a family.
type ShoppingList struct {
	ID       primitive.ObjectID  `bson:"_id" json:"id"`
	OwnerID  primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	FamilyID *primitive.ObjectID `bson:"family_id,omitempty" json:"familyId,omitempty"`
	Name     string              `bson:"name" json:"name"`
	Items    []ShoppingItem      `bson:"items" json:"items"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ItemKey folds an item name for duplicate detection: lower-cased with
// whitespace runs collapsed.
func ItemKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// AddItem adds item to the list, folding duplicates by ItemKey:
//   - an unchecked match with the same unit absorbs the quantity
//   - a checked match is replaced by item and unchecked
//   - otherwise item is appended with a fresh ID from newID
//
// It returns the resulting list entry.
func (l *ShoppingList) AddItem(item ShoppingItem, newID func() string, now time.Time) ShoppingItem {
	key := ItemKey(item.Name)
	item.Checked = false
	for i := range l.Items {
		cur := &l.Items[i]
		if ItemKey(cur.Name) != key {
			continue
		}
		if cur.Checked {
			item.ID = cur.ID
			*cur = item
			l.UpdatedAt = now
			return *cur
		}
		if strings.EqualFold(strings.TrimSpace(cur.Unit), strings.TrimSpace(item.Unit)) {
			cur.Quantity += item.Quantity
			l.UpdatedAt = now
			return *cur
		}
	}
	item.ID = newID()
	l.Items = append(l.Items, item)
	l.UpdatedAt = now
	return item
}

// ItemUpdate is a partial change to one list item.
type ItemUpdate struct {
	Name     *string
	Quantity *float64
	Unit     *string
	Checked  *bool
}

// UpdateItem applies u to the item with the given ID.
func (l *ShoppingList) UpdateItem(id string, u ItemUpdate, now time.Time) (ShoppingItem, error) {
	for i := range l.Items {
		if l.Items[i].ID != id {
			continue
		}
		it := &l.Items[i]
		if u.Name != nil {
			it.Name = *u.Name
		}
		if u.Quantity != nil {
			it.Quantity = *u.Quantity
		}
		if u.Unit != nil {
			it.Unit = *u.Unit
		}
		if u.Checked != nil {
			it.Checked = *u.Checked
		}
		l.UpdatedAt = now
		return *it, nil
	}
	return ShoppingItem{}, ErrItemNotFound
}

// RemoveItem deletes the item with the given ID.
func (l *ShoppingList) RemoveItem(id string, now time.Time) error {
	for i := range l.Items {
		if l.Items[i].ID == id {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			l.UpdatedAt = now
			return nil
		}
	}
	return ErrItemNotFound
}
