// internal/app/features/recipes/handler.go
package recipes

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/policy/sharepolicy"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
	"github.com/dalemusser/recipehub/internal/app/system/paging"
	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecipeStore is the persistence the handlers need. *recipestore.Store
// satisfies it.
type RecipeStore interface {
	Create(ctx context.Context, r models.Recipe) (models.Recipe, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Recipe, error)
	ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID, f recipestore.ListFilter) ([]models.Recipe, error)
	Update(ctx context.Context, r models.Recipe) (models.Recipe, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Handler serves /recipes. Recipes are readable by the owner and by active
// members of the family they are shared into; family members need the
// admin role to change them.
type Handler struct {
	Recipes  RecipeStore
	Families sharepolicy.Families
	Log      *zap.Logger
}

func NewHandler(recipes RecipeStore, families sharepolicy.Families, logger *zap.Logger) *Handler {
	return &Handler{Recipes: recipes, Families: families, Log: logger}
}

var errRecipeNotFound = apierr.NotFound("Recipe not found.")

func owned(r models.Recipe) sharepolicy.Owned {
	return sharepolicy.Owned{OwnerID: r.OwnerID, FamilyID: r.FamilyID}
}

func (h *Handler) view(ctx context.Context, uid primitive.ObjectID, r models.Recipe) (recipeView, error) {
	canEdit, err := sharepolicy.CanModify(ctx, h.Families, uid, models.ShareRecipes, owned(r), true)
	if err != nil {
		return recipeView{}, err
	}
	return recipeView{Recipe: r, TotalMinutes: r.TotalMinutes(), CanEdit: canEdit}, nil
}

// load fetches a recipe the actor may read. Recipes the actor cannot see
// are reported as not found.
func (h *Handler) load(ctx context.Context, uid, id primitive.ObjectID) (models.Recipe, error) {
	r, err := h.Recipes.GetByID(ctx, id)
	if errors.Is(err, recipestore.ErrNotFound) {
		return models.Recipe{}, errRecipeNotFound
	}
	if err != nil {
		return models.Recipe{}, apierr.Internal(err, "load recipe")
	}
	ok, err := sharepolicy.CanRead(ctx, h.Families, uid, models.ShareRecipes, owned(r))
	if err != nil {
		return models.Recipe{}, err
	}
	if !ok {
		return models.Recipe{}, errRecipeNotFound
	}
	return r, nil
}

func recipeID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, jsonio.PathError("recipe id")
	}
	return id, nil
}

// List handles GET /recipes?q=&tag=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}

	limit, err := paging.ListLimit(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "recipes list")
	defer cancel()

	families, err := sharepolicy.VisibleFamilies(ctx, h.Families, uid, models.ShareRecipes)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	list, err := h.Recipes.ListVisible(ctx, uid, families, recipestore.ListFilter{
		Query: normalize.QueryParam(query.Get(r, "q")),
		Tag:   normalize.Tag(query.Get(r, "tag")),
		Limit: limit,
	})
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "list recipes"))
		return
	}

	out := make([]recipeView, 0, len(list))
	for _, rec := range list {
		v, err := h.view(ctx, uid, rec)
		if err != nil {
			jsonio.Error(w, log, err)
			return
		}
		out = append(out, v)
	}
	jsonio.Write(w, http.StatusOK, out)
}

// Create handles POST /recipes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}

	var req recipeRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "recipes create")
	defer cancel()

	if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.ShareRecipes, req.FamilyID); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	rec := models.Recipe{OwnerID: uid}
	if err := req.apply(&rec); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	created, err := h.Recipes.Create(ctx, rec)
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "create recipe"))
		return
	}
	jsonio.Write(w, http.StatusCreated, recipeView{Recipe: created, TotalMinutes: created.TotalMinutes(), CanEdit: true})
}

// Get handles GET /recipes/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := recipeID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, "recipes get")
	defer cancel()

	rec, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	v, err := h.view(ctx, uid, rec)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, v)
}

// Update handles PUT /recipes/{id}. The body replaces every editable field.
// Only the owner may move a recipe between families.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := recipeID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	var req recipeRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "recipes update")
	defer cancel()

	rec, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	canEdit, err := sharepolicy.CanModify(ctx, h.Families, uid, models.ShareRecipes, owned(rec), true)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if !canEdit {
		jsonio.Error(w, log, apierr.Forbidden("Only the owner or a family admin can edit this recipe."))
		return
	}
	if !sameFamily(rec.FamilyID, req.FamilyID) {
		if rec.OwnerID != uid {
			jsonio.Error(w, log, apierr.Forbidden("Only the owner can change where a recipe is shared."))
			return
		}
		if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.ShareRecipes, req.FamilyID); err != nil {
			jsonio.Error(w, log, err)
			return
		}
	}

	if err := req.apply(&rec); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	updated, err := h.Recipes.Update(ctx, rec)
	if errors.Is(err, recipestore.ErrNotFound) {
		jsonio.Error(w, log, errRecipeNotFound)
		return
	}
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "update recipe"))
		return
	}
	jsonio.Write(w, http.StatusOK, recipeView{Recipe: updated, TotalMinutes: updated.TotalMinutes(), CanEdit: true})
}

// Delete handles DELETE /recipes/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := recipeID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "recipes delete")
	defer cancel()

	rec, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	canEdit, err := sharepolicy.CanModify(ctx, h.Families, uid, models.ShareRecipes, owned(rec), true)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if !canEdit {
		jsonio.Error(w, log, apierr.Forbidden("Only the owner or a family admin can delete this recipe."))
		return
	}
	if _, err := h.Recipes.Delete(ctx, id); err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "delete recipe"))
		return
	}
	log.Info("recipe deleted", zap.String("recipe_id", id.Hex()))
	jsonio.NoContent(w)
}

func sameFamily(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
