// internal/app/features/pantry/handler.go
package pantry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/recipehub/internal/app/policy/sharepolicy"
	pantrystore "github.com/dalemusser/recipehub/internal/app/store/pantry"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
	"github.com/dalemusser/recipehub/internal/app/system/paging"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxExpiringWithinDays bounds the expiringWithinDays filter.
const MaxExpiringWithinDays = 3650

// ItemStore is the persistence the handlers need. *pantrystore.Store
// satisfies it.
type ItemStore interface {
	Create(ctx context.Context, p models.PantryItem) (models.PantryItem, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.PantryItem, error)
	ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID, f pantrystore.ListFilter) ([]models.PantryItem, error)
	Update(ctx context.Context, p models.PantryItem) (models.PantryItem, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Handler serves /pantry. Family items are visible and editable by any
// active member while the group shares its pantry.
type Handler struct {
	Items    ItemStore
	Families sharepolicy.Families
	Log      *zap.Logger
	Now      func() time.Time
}

func NewHandler(items ItemStore, families sharepolicy.Families, logger *zap.Logger) *Handler {
	return &Handler{Items: items, Families: families, Log: logger, Now: time.Now}
}

var errItemNotFound = apierr.NotFound("Pantry item not found.")

func owned(p models.PantryItem) sharepolicy.Owned {
	return sharepolicy.Owned{OwnerID: p.OwnerID, FamilyID: p.FamilyID}
}

func (h *Handler) load(ctx context.Context, uid, id primitive.ObjectID) (models.PantryItem, error) {
	p, err := h.Items.GetByID(ctx, id)
	if errors.Is(err, pantrystore.ErrNotFound) {
		return models.PantryItem{}, errItemNotFound
	}
	if err != nil {
		return models.PantryItem{}, apierr.Internal(err, "load pantry item")
	}
	ok, err := sharepolicy.CanRead(ctx, h.Families, uid, models.SharePantry, owned(p))
	if err != nil {
		return models.PantryItem{}, err
	}
	if !ok {
		return models.PantryItem{}, errItemNotFound
	}
	return p, nil
}

func itemID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, jsonio.PathError("pantry item id")
	}
	return id, nil
}

// listFilter parses ?lowStock=true&expiringWithinDays=N.
func (h *Handler) listFilter(r *http.Request) (pantrystore.ListFilter, error) {
	var f pantrystore.ListFilter
	if raw := query.Get(r, "lowStock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, apierr.Validation("lowStock must be true or false.")
		}
		f.LowStock = v
	}
	if raw := query.Get(r, "expiringWithinDays"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 || days > MaxExpiringWithinDays {
			return f, apierr.Validation("expiringWithinDays must be an integer between 0 and %d.", MaxExpiringWithinDays)
		}
		by := h.Now().UTC().AddDate(0, 0, days)
		f.ExpiresBy = &by
	}
	limit, err := paging.ListLimit(r)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	return f, nil
}

// List handles GET /pantry.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	filter, err := h.listFilter(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "pantry list")
	defer cancel()

	families, err := sharepolicy.VisibleFamilies(ctx, h.Families, uid, models.SharePantry)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	items, err := h.Items.ListVisible(ctx, uid, families, filter)
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "list pantry"))
		return
	}

	out := make([]itemView, 0, len(items))
	for _, p := range items {
		out = append(out, toView(p))
	}
	jsonio.Write(w, http.StatusOK, out)
}

// Create handles POST /pantry.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	var req itemRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "pantry create")
	defer cancel()

	if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.SharePantry, req.FamilyID); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	p := models.PantryItem{OwnerID: uid}
	req.apply(&p)
	created, err := h.Items.Create(ctx, p)
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "create pantry item"))
		return
	}
	jsonio.Write(w, http.StatusCreated, toView(created))
}

// Get handles GET /pantry/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := itemID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, "pantry get")
	defer cancel()

	p, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(p))
}

// Update handles PUT /pantry/{id}. The body replaces every editable field.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := itemID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	var req itemRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "pantry update")
	defer cancel()

	p, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if !sameFamily(p.FamilyID, req.FamilyID) {
		if p.OwnerID != uid {
			jsonio.Error(w, log, apierr.Forbidden("Only the owner can change where a pantry item is shared."))
			return
		}
		if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.SharePantry, req.FamilyID); err != nil {
			jsonio.Error(w, log, err)
			return
		}
	}

	req.apply(&p)
	updated, err := h.Items.Update(ctx, p)
	if errors.Is(err, pantrystore.ErrNotFound) {
		jsonio.Error(w, log, errItemNotFound)
		return
	}
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "update pantry item"))
		return
	}
	jsonio.Write(w, http.StatusOK, toView(updated))
}

// Delete handles DELETE /pantry/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := itemID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "pantry delete")
	defer cancel()

	if _, err := h.load(ctx, uid, id); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if _, err := h.Items.Delete(ctx, id); err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "delete pantry item"))
		return
	}
	log.Info("pantry item deleted", zap.String("item_id", id.Hex()))
	jsonio.NoContent(w)
}

func sameFamily(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
