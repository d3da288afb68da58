// internal/app/features/pantry/types.go
package pantry

import (
	"strings"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// itemRequest is the body for both create and replace.
type itemRequest struct {
	Name              string              `json:"name" validate:"required,notblank,max=100" label:"Name"`
	Category          string              `json:"category" validate:"max=50" label:"Category"`
	Quantity          float64             `json:"quantity" validate:"gte=0" label:"Quantity"`
	Unit              string              `json:"unit" validate:"max=30" label:"Unit"`
	LowStockThreshold float64             `json:"lowStockThreshold" validate:"gte=0" label:"Low-stock threshold"`
	ExpiresAt         *time.Time          `json:"expiresAt"`
	FamilyID          *primitive.ObjectID `json:"familyId"`
}

func (req itemRequest) apply(p *models.PantryItem) {
	p.Name = normalize.Name(req.Name)
	p.Category = strings.ToLower(normalize.Name(req.Category))
	p.Quantity = req.Quantity
	p.Unit = strings.TrimSpace(req.Unit)
	p.LowStockThreshold = req.LowStockThreshold
	p.FamilyID = req.FamilyID
	p.ExpiresAt = nil
	if req.ExpiresAt != nil {
		exp := req.ExpiresAt.UTC().Truncate(time.Millisecond)
		p.ExpiresAt = &exp
	}
}

type itemView struct {
	models.PantryItem
	LowStock bool `json:"lowStock"`
}

func toView(p models.PantryItem) itemView {
	return itemView{PantryItem: p, LowStock: p.IsLowStock()}
}
