// internal/app/features/account/handler.go
package account

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/authutil"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
	"github.com/dalemusser/recipehub/internal/app/system/metrics"
	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore is the identity store. *userstore.Store satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
}

// TokenIssuer signs bearer tokens. *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(userID, email, name string) (string, time.Time, error)
}

// Handler serves /auth.
type Handler struct {
	Users    UserStore
	Tokens   TokenIssuer
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// Limiter throttles register and login. Nil disables throttling.
	Limiter *ratelimit.LoginLimiter
}

func NewHandler(users UserStore, tokens TokenIssuer, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Tokens: tokens, AuditLog: audit, Metrics: m, Log: logger}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Name     string `json:"name" validate:"required,notblank,max=100" label:"Name"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// UserView is the public part of a user.
type UserView struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// SessionView is returned by register and login.
type SessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

func toUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Name: u.FullName, Email: u.Email}
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := authutil.HashPassword("recipehub-no-such-user")
	return h
})

var errBadCredentials = apierr.Unauthenticated("Incorrect email or password.")

// throttle records an attempt and, when over the limit, sets Retry-After
// and returns a rate_limited error.
func (h *Handler) throttle(w http.ResponseWriter, r *http.Request, email string) error {
	ok, wait, msg := h.Limiter.Check(ratelimit.ClientIP(r), email)
	if ok {
		return nil
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	return apierr.RateLimited("%s", msg)
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	var err error
	defer func() { h.Metrics.AuthEvent("register", err) }()

	var req registerRequest
	if err = jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if err = h.throttle(w, r, ""); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	if perr := authutil.ValidatePassword(req.Password); perr != nil {
		err = apierr.Validation("%s", authutil.PasswordRules())
		jsonio.Error(w, log, err)
		return
	}
	hash, herr := authutil.HashPassword(req.Password)
	if herr != nil {
		err = apierr.Internal(herr, "hash password")
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "account register")
	defer cancel()

	u, cerr := h.Users.Create(ctx, models.User{
		FullName:     req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(cerr, userstore.ErrDuplicateEmail):
		err = apierr.Conflict("An account with that email already exists.")
		jsonio.Error(w, log, err)
		return
	case cerr != nil:
		err = apierr.Internal(cerr, "create user")
		jsonio.Error(w, log, err)
		return
	}

	h.AuditLog.Registered(ctx, u.ID, u.Email)
	sess, err := h.session(&u)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	log.Info("account registered", zap.String("user_id", u.ID.Hex()))
	jsonio.Write(w, http.StatusCreated, sess)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	var err error
	defer func() { h.Metrics.AuthEvent("login", err) }()

	var req loginRequest
	if err = jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, log, err)
		return
	}
	email := normalize.Email(req.Email)
	if err = h.throttle(w, r, email); err != nil {
		jsonio.Error(w, log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, "account login")
	defer cancel()

	u, lerr := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(lerr, userstore.ErrNotFound):
		authutil.CheckPassword(req.Password, dummyHash())
		h.AuditLog.LoginFailedUserNotFound(ctx, email)
		err = errBadCredentials
		jsonio.Error(w, log, err)
		return
	case lerr != nil:
		err = apierr.Internal(lerr, "load user")
		jsonio.Error(w, log, err)
		return
	}

	if !authutil.CheckPassword(req.Password, u.PasswordHash) {
		h.AuditLog.LoginFailedWrongPassword(ctx, u.ID, email)
		err = errBadCredentials
		jsonio.Error(w, log, err)
		return
	}
	if u.Status == models.UserStatusDisabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, u.ID, email)
		err = apierr.Forbidden("This account is disabled.")
		jsonio.Error(w, log, err)
		return
	}

	h.AuditLog.LoginSuccess(ctx, u.ID, email)
	h.Limiter.ResetEmail(email)
	sess, err := h.session(u)
	if err != nil {
		jsonio.Error(w, log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, sess)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log := requestid.Logger(r.Context(), h.Log)
	id, ok := authz.UserID(r)
	if !ok {
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, "account me")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		// Token outlived the account.
		jsonio.Error(w, log, apierr.Unauthenticated("Sign in required."))
		return
	}
	if err != nil {
		jsonio.Error(w, log, apierr.Internal(err, "load user"))
		return
	}
	jsonio.Write(w, http.StatusOK, toUserView(u))
}

func (h *Handler) session(u *models.User) (SessionView, error) {
	token, exp, err := h.Tokens.Issue(u.ID.Hex(), u.Email, u.FullName)
	if err != nil {
		return SessionView{}, apierr.Internal(err, "issue token")
	}
	return SessionView{Token: token, ExpiresAt: exp, User: toUserView(u)}, nil
}
