// internal/app/features/shopping/types.go
package shopping

import (
	"strings"

	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type itemRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=100" label:"Item name"`
	Quantity float64 `json:"quantity" validate:"gte=0" label:"Quantity"`
	Unit     string  `json:"unit" validate:"max=30" label:"Unit"`
}

func (req itemRequest) item() models.ShoppingItem {
	return models.ShoppingItem{
		Name:     normalize.Name(req.Name),
		Quantity: req.Quantity,
		Unit:     strings.TrimSpace(req.Unit),
	}
}

type createRequest struct {
	Name     string              `json:"name" validate:"required,notblank,max=100" label:"Name"`
	FamilyID *primitive.ObjectID `json:"familyId"`
	Items    []itemRequest       `json:"items" validate:"max=200,dive" label:"Items"`
}

// updateRequest renames a list or changes where it is shared. The items
// are managed through the item endpoints.
type updateRequest struct {
	Name     string              `json:"name" validate:"required,notblank,max=100" label:"Name"`
	FamilyID *primitive.ObjectID `json:"familyId"`
}

type itemUpdateRequest struct {
	Name     *string  `json:"name" validate:"omitempty,notblank,max=100" label:"Item name"`
	Quantity *float64 `json:"quantity" validate:"omitempty,gte=0" label:"Quantity"`
	Unit     *string  `json:"unit" validate:"omitempty,max=30" label:"Unit"`
	Checked  *bool    `json:"checked"`
}

func (req itemUpdateRequest) update() models.ItemUpdate {
	u := models.ItemUpdate{Quantity: req.Quantity, Checked: req.Checked}
	if req.Name != nil {
		n := normalize.Name(*req.Name)
		u.Name = &n
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		u.Unit = &unit
	}
	return u
}

func (req itemUpdateRequest) empty() bool {
	return req.Name == nil && req.Quantity == nil && req.Unit == nil && req.Checked == nil
}

type listView struct {
	models.ShoppingList
	Remaining int `json:"remaining"`
}

func toView(l models.ShoppingList) listView {
	n := 0
	for _, it := range l.Items {
		if !it.Checked {
			n++
		}
	}
	return listView{ShoppingList: l, Remaining: n}
}
