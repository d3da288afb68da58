// internal/app/features/family/handler.go
package family

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
	"github.com/dalemusser/recipehub/internal/app/system/paging"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the /family endpoints.
type Handler struct {
	Svc *Service
	Log *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// begin resolves the actor and a deadline-bound context for one request.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, timeout func() time.Duration, op string) (context.Context, context.CancelFunc, authz.Actor, *zap.Logger, bool) {
	log := requestid.Logger(r.Context(), h.Log)
	actor, ok := authz.ActorFrom(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return nil, nil, authz.Actor{}, log, false
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeout(), log, op)
	return ctx, cancel, actor, log, true
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, jsonio.PathError(name)
	}
	return id, nil
}

// ListMine handles GET /family.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Medium, "family list")
	if !ok {
		return
	}
	defer cancel()

	views, err := h.Svc.ListMine(ctx, actor)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, views)
}

// Create handles POST /family.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family create")
	if !ok {
		return
	}
	defer cancel()

	var req createRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Create(ctx, actor, CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	log.Info("family group created", zap.String("family_id", view.ID.Hex()))
	jsonio.Write(w, http.StatusCreated, view)
}

// Get handles GET /family/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Short, "family get")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// Update handles PUT /family/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family update")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	var req updateRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Update(ctx, actor, id, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// Invite handles POST /family/{id}/invite.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family invite")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	var req inviteRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Invite(ctx, actor, id, req.Email)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// Join handles POST /family/join.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family join")
	if !ok {
		return
	}
	defer cancel()

	var req joinRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Join(ctx, actor, req.InviteCode)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// UpdateMember handles PUT /family/{id}/members/{memberId}.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family update member")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	memberID, err := pathID(r, "memberId")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	var req updateMemberRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.UpdateMember(ctx, actor, id, memberID, MemberUpdateInput{Role: req.Role, IsActive: req.IsActive})
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// RemoveMember handles DELETE /family/{id}/members/{memberId}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family remove member")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	memberID, err := pathID(r, "memberId")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.RemoveMember(ctx, actor, id, memberID)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// Leave handles POST /family/{id}/leave.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Long, "family leave")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	view, err := h.Svc.Leave(ctx, actor, id)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, view)
}

// Activity handles GET /family/{id}/activity?limit=N.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, log, ok := h.begin(w, r, timeouts.Medium, "family activity")
	if !ok {
		return
	}
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	limit, err := paging.ParseLimit(r)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	events, err := h.Svc.Activity(ctx, actor, id, limit)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, events)
}
