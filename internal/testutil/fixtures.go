package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the same request adds to the existing params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user. The password hash is a placeholder;
// use the account feature when a real login is needed.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        strings.ToLower(email),
		PasswordHash: "x",
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateFamilyGroup inserts a group created by creator with default
// settings and the given invite code.
func (f *Fixtures) CreateFamilyGroup(ctx context.Context, name string, creator primitive.ObjectID, inviteCode string) models.FamilyGroup {
	f.t.Helper()

	g := models.NewFamilyGroup(name, "", creator, models.DefaultFamilySettings(), inviteCode, time.Now().UTC().Truncate(time.Millisecond))
	g.NameCI = text.Fold(name)

	if _, err := f.db.Collection("family_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test family group: %v", err)
	}
	return g
}

// CreatePantryItem inserts a pantry item owned by ownerID.
func (f *Fixtures) CreatePantryItem(ctx context.Context, ownerID primitive.ObjectID, familyID *primitive.ObjectID, name string, qty, threshold float64) models.PantryItem {
	f.t.Helper()

	now := time.Now().UTC()
	item := models.PantryItem{
		ID:                primitive.NewObjectID(),
		OwnerID:           ownerID,
		FamilyID:          familyID,
		Name:              name,
		NameCI:            text.Fold(name),
		Quantity:          qty,
		Unit:              "pcs",
		LowStockThreshold: threshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("pantry_items").InsertOne(ctx, item); err != nil {
		f.t.Fatalf("failed to create test pantry item: %v", err)
	}
	return item
}
