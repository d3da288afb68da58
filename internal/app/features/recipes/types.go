// internal/app/features/recipes/types.go
package recipes

import (
	"strings"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ingredientRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=100" label:"Ingredient name"`
	Quantity float64 `json:"quantity" validate:"gte=0" label:"Ingredient quantity"`
	Unit     string  `json:"unit" validate:"max=30" label:"Ingredient unit"`
}

// recipeRequest is the body for both create and replace.
type recipeRequest struct {
	Title        string              `json:"title" validate:"required,notblank,max=120" label:"Title"`
	Description  string              `json:"description" validate:"max=2000" label:"Description"`
	FamilyID     *primitive.ObjectID `json:"familyId"`
	Ingredients  []ingredientRequest `json:"ingredients" validate:"max=100,dive" label:"Ingredients"`
	Instructions []string            `json:"instructions" validate:"max=100,dive,max=2000" label:"Instructions"`
	Tags         []string            `json:"tags" validate:"max=20,dive,max=40" label:"Tags"`
	PrepMinutes  int                 `json:"prepMinutes" validate:"gte=0,lte=10080" label:"Prep minutes"`
	CookMinutes  int                 `json:"cookMinutes" validate:"gte=0,lte=10080" label:"Cook minutes"`
	Servings     int                 `json:"servings" validate:"gte=0,lte=1000" label:"Servings"`
}

// apply copies the request onto r, normalizing text. Description and
// instructions are stored as submitted; markup in them is a validation
// error and leaves r untouched.
func (req recipeRequest) apply(r *models.Recipe) error {
	desc, err := htmlsanitize.Text(req.Description)
	if err != nil {
		return apierr.Validation("Description must be plain text.")
	}
	steps, err := htmlsanitize.Texts(req.Instructions)
	if err != nil {
		return apierr.Validation("Instructions must be plain text.")
	}

	r.Title = normalize.Name(req.Title)
	r.Description = desc
	r.FamilyID = req.FamilyID
	r.Ingredients = make([]models.Ingredient, 0, len(req.Ingredients))
	for _, in := range req.Ingredients {
		r.Ingredients = append(r.Ingredients, models.Ingredient{
			Name:     normalize.Name(in.Name),
			Quantity: in.Quantity,
			Unit:     strings.TrimSpace(in.Unit),
		})
	}
	r.Instructions = steps
	r.Tags = normalize.Tags(req.Tags)
	r.PrepMinutes = req.PrepMinutes
	r.CookMinutes = req.CookMinutes
	r.Servings = req.Servings
	return nil
}

// recipeView adds the computed fields clients display.
type recipeView struct {
	models.Recipe
	TotalMinutes int  `json:"totalMinutes"`
	CanEdit      bool `json:"canEdit"`
}
