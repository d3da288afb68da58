// internal/app/features/shopping/handler.go
package shopping

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/recipehub/internal/app/policy/sharepolicy"
	pantrystore "github.com/dalemusser/recipehub/internal/app/store/pantry"
	shoppingliststore "github.com/dalemusser/recipehub/internal/app/store/shoppinglists"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ListStore is the persistence the handlers need.
// *shoppingliststore.Store satisfies it.
type ListStore interface {
	Create(ctx context.Context, l models.ShoppingList) (models.ShoppingList, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.ShoppingList, error)
	ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID) ([]models.ShoppingList, error)
	Save(ctx context.Context, l *models.ShoppingList) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// PantrySource lists pantry items for the low-stock import.
type PantrySource interface {
	ListVisible(ctx context.Context, ownerID primitive.ObjectID, familyIDs []primitive.ObjectID, f pantrystore.ListFilter) ([]models.PantryItem, error)
}

// Handler serves /shopping-lists. Family lists are visible and editable by
// any active member while the group shares its shopping lists.
type Handler struct {
	Lists    ListStore
	Pantry   PantrySource
	Families sharepolicy.Families
	Log      *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

func NewHandler(lists ListStore, pantry PantrySource, families sharepolicy.Families, logger *zap.Logger) *Handler {
	return &Handler{
		Lists:    lists,
		Pantry:   pantry,
		Families: families,
		Log:      logger,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

var (
	errListNotFound = apierr.NotFound("Shopping list not found.")
	errItemNotFound = apierr.NotFound("Shopping list item not found.")
)

func (h *Handler) clock() time.Time {
	return h.Now().UTC().Truncate(time.Millisecond)
}

func owned(l models.ShoppingList) sharepolicy.Owned {
	return sharepolicy.Owned{OwnerID: l.OwnerID, FamilyID: l.FamilyID}
}

func (h *Handler) load(ctx context.Context, uid, id primitive.ObjectID) (models.ShoppingList, error) {
	l, err := h.Lists.GetByID(ctx, id)
	if errors.Is(err, shoppingliststore.ErrNotFound) {
		return models.ShoppingList{}, errListNotFound
	}
	if err != nil {
		return models.ShoppingList{}, apierr.Internal(err, "load shopping list")
	}
	ok, err := sharepolicy.CanRead(ctx, h.Families, uid, models.ShareShoppingLists, owned(l))
	if err != nil {
		return models.ShoppingList{}, err
	}
	if !ok {
		return models.ShoppingList{}, errListNotFound
	}
	return l, nil
}

func (h *Handler) save(ctx context.Context, l *models.ShoppingList) error {
	err := h.Lists.Save(ctx, l)
	if errors.Is(err, shoppingliststore.ErrNotFound) {
		return errListNotFound
	}
	if err != nil {
		return apierr.Internal(err, "save shopping list")
	}
	return nil
}

func listID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, jsonio.PathError("shopping list id")
	}
	return id, nil
}

// edit is the shared flow for item endpoints: resolve the caller and list,
// apply fn, then persist and render.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, uid primitive.ObjectID, l *models.ShoppingList) error) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := listID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, op)
	defer cancel()

	l, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if err := fn(ctx, uid, &l); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if err := h.save(ctx, &l); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(l))
}

// List handles GET /shopping-lists.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "shopping list")
	defer cancel()

	families, err := sharepolicy.VisibleFamilies(ctx, h.Families, uid, models.ShareShoppingLists)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	lists, err := h.Lists.ListVisible(ctx, uid, families)
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "list shopping lists"))
		return
	}
	out := make([]listView, 0, len(lists))
	for _, l := range lists {
		out = append(out, toView(l))
	}
	jsonio.Write(w, http.StatusOK, out)
}

// Create handles POST /shopping-lists. Initial items are merged the same
// way as items added later.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	var req createRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "shopping create")
	defer cancel()

	if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.ShareShoppingLists, req.FamilyID); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	now := h.clock()
	l := models.ShoppingList{
		OwnerID:  uid,
		FamilyID: req.FamilyID,
		Name:     normalize.Name(req.Name),
		Items:    []models.ShoppingItem{},
	}
	for _, it := range req.Items {
		l.AddItem(it.item(), h.NewID, now)
	}
	created, err := h.Lists.Create(ctx, l)
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "create shopping list"))
		return
	}
	jsonio.Write(w, http.StatusCreated, toView(created))
}

// Get handles GET /shopping-lists/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := listID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, "shopping get")
	defer cancel()

	l, err := h.load(ctx, uid, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(l))
}

// Update handles PUT /shopping-lists/{id}: rename, or (owner only) change
// the family the list is shared with.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, requestid.Logger(r.Context(), h.Log), err)
		return
	}
	h.edit(w, r, "shopping update", func(ctx context.Context, uid primitive.ObjectID, l *models.ShoppingList) error {
		if !sameFamily(l.FamilyID, req.FamilyID) {
			if l.OwnerID != uid {
				return apierr.Forbidden("Only the owner can change where a shopping list is shared.")
			}
			if err := sharepolicy.CheckShareTarget(ctx, h.Families, uid, models.ShareShoppingLists, req.FamilyID); err != nil {
				return err
			}
		}
		l.Name = normalize.Name(req.Name)
		l.FamilyID = req.FamilyID
		l.UpdatedAt = h.clock()
		return nil
	})
}

// Delete handles DELETE /shopping-lists/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	uid, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	id, err := listID(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "shopping delete")
	defer cancel()

	if _, err := h.load(ctx, uid, id); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if _, err := h.Lists.Delete(ctx, id); err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "delete shopping list"))
		return
	}
	log.Info("shopping list deleted", zap.String("list_id", id.Hex()))
	jsonio.NoContent(w)
}

// AddItem handles POST /shopping-lists/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, requestid.Logger(r.Context(), h.Log), err)
		return
	}
	h.edit(w, r, "shopping add item", func(_ context.Context, _ primitive.ObjectID, l *models.ShoppingList) error {
		l.AddItem(req.item(), h.NewID, h.clock())
		return nil
	})
}

// UpdateItem handles PUT /shopping-lists/{id}/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemUpdateRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, requestid.Logger(r.Context(), h.Log), err)
		return
	}
	if req.empty() {
		jsonio.Error(w, requestid.Logger(r.Context(), h.Log), apierr.Validation("Provide at least one field to change."))
		return
	}
	itemID := chi.URLParam(r, "itemId")
	h.edit(w, r, "shopping update item", func(_ context.Context, _ primitive.ObjectID, l *models.ShoppingList) error {
		if _, err := l.UpdateItem(itemID, req.update(), h.clock()); err != nil {
			return errItemNotFound
		}
		return nil
	})
}

// RemoveItem handles DELETE /shopping-lists/{id}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	h.edit(w, r, "shopping remove item", func(_ context.Context, _ primitive.ObjectID, l *models.ShoppingList) error {
		if err := l.RemoveItem(itemID, h.clock()); err != nil {
			return errItemNotFound
		}
		return nil
	})
}

// FromLowStock handles POST /shopping-lists/{id}/from-low-stock. Every
// low-stock pantry item the caller can see is added with enough quantity to
// restock it.
func (h *Handler) FromLowStock(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, "shopping from low stock", func(ctx context.Context, uid primitive.ObjectID, l *models.ShoppingList) error {
		families, err := sharepolicy.VisibleFamilies(ctx, h.Families, uid, models.SharePantry)
		if err != nil {
			return err
		}
		low, err := h.Pantry.ListVisible(ctx, uid, families, pantrystore.ListFilter{LowStock: true})
		if err != nil {
			return apierr.Internal(err, "list low-stock pantry items")
		}
		now := h.clock()
		for _, p := range low {
			l.AddItem(models.ShoppingItem{
				Name:     p.Name,
				Quantity: p.RestockQuantity(),
				Unit:     p.Unit,
			}, h.NewID, now)
		}
		l.UpdatedAt = now
		return nil
	})
}

func sameFamily(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
