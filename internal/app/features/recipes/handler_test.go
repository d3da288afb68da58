package recipes_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/recipehub/internal/app/features/family"
	"github.com/dalemusser/recipehub/internal/app/features/recipes"
	familystore "github.com/dalemusser/recipehub/internal/app/store/families"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/recipehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	families *family.Service
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	groups := familystore.New(db)
	fam := family.NewService(groups, userstore.New(db), invitecode.New(groups, 0), family.Options{})
	h := recipes.NewHandler(recipestore.New(db), fam, zap.NewNop())
	return &env{
		router:   recipes.Routes(h),
		fixtures: testutil.NewFixtures(t, db),
		families: fam,
	}
}

func (e *env) serve(r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func asTestUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email}
}

func actor(u models.User) authz.Actor {
	return authz.Actor{ID: u.ID, Email: u.Email, Name: u.FullName}
}

type recipeResp struct {
	models.Recipe
	TotalMinutes int  `json:"totalMinutes"`
	CanEdit      bool `json:"canEdit"`
}

func (e *env) create(t *testing.T, u testutil.TestUser, body string) recipeResp {
	t.Helper()
	rec := e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/", body, u))
	rec.AssertStatus(t, http.StatusCreated)
	var got recipeResp
	rec.DecodeJSON(t, &got)
	return got
}

func TestCreateAndGet(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := asTestUser(e.fixtures.CreateUser(ctx, "Alice Smith", "alice@example.com"))

	got := e.create(t, alice, `{
		"title":"  Pancakes ",
		"description":"Fluffy & \"light\" pancakes <3",
		"ingredients":[{"name":"flour","quantity":2,"unit":"cup"}],
		"instructions":["Mix flour & milk.","  ","Cook < 2 min a side."],
		"tags":["Breakfast","breakfast"," Sweet "],
		"prepMinutes":10,"cookMinutes":15,"servings":4}`)

	if got.Title != "Pancakes" || got.TotalMinutes != 25 || !got.CanEdit {
		t.Errorf("unexpected recipe: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "breakfast" || got.Tags[1] != "sweet" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Description != `Fluffy & "light" pancakes <3` {
		t.Errorf("description = %q, want it unchanged", got.Description)
	}
	if len(got.Instructions) != 2 || got.Instructions[0] != "Mix flour & milk." || got.Instructions[1] != "Cook < 2 min a side." {
		t.Errorf("instructions = %q", got.Instructions)
	}

	rec := e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+got.ID.Hex(), alice))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"title":"Pancakes"`)
}

func TestCreate_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := asTestUser(e.fixtures.CreateUser(ctx, "Alice Smith", "alice@example.com"))

	for _, body := range []string{
		`{}`,
		`{"title":" "}`,
		`{"title":"x","servings":-1}`,
		`{"title":"x","ingredients":[{"quantity":1}]}`,
		`{"title":"x","familyId":"zzz"}`,
		`{"title":"x","owner":"me"}`,
		`{"title":"x","description":"Fluffy <b>pancakes</b>"}`,
		`{"title":"x","instructions":["Mix.","<img src=x onerror=alert(1)>Cook."]}`,
	} {
		rec := e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/", body, alice))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestFamilySharing(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fixtures.CreateUser(ctx, "Alice Smith", "alice@example.com")
	b := e.fixtures.CreateUser(ctx, "Bob Smith", "bob@example.com")
	c := e.fixtures.CreateUser(ctx, "Carol Jones", "carol@example.com")
	alice, bob, carol := asTestUser(a), asTestUser(b), asTestUser(c)
	g := e.fixtures.CreateFamilyGroup(ctx, "Smith Family", a.ID, "K3J9QZ7M")
	if _, err := e.families.Join(ctx, actor(b), g.InviteCode); err != nil {
		t.Fatalf("Join: %v", err)
	}

	shared := e.create(t, bob, fmt.Sprintf(`{"title":"Bob's Chili","familyId":%q}`, g.ID.Hex()))
	private := e.create(t, bob, `{"title":"Bob's Secret Sauce"}`)

	// Carol is not in the family and cannot share into it.
	rec := e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/",
		fmt.Sprintf(`{"title":"Carol's","familyId":%q}`, g.ID.Hex()), carol))
	rec.AssertStatus(t, http.StatusForbidden)

	// Alice sees the shared recipe only.
	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/", alice))
	rec.AssertStatus(t, http.StatusOK)
	var list []recipeResp
	rec.DecodeJSON(t, &list)
	if len(list) != 1 || list[0].ID != shared.ID {
		t.Fatalf("alice's list = %+v", list)
	}
	if !list[0].CanEdit {
		t.Error("family admin should be able to edit shared recipes")
	}

	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+private.ID.Hex(), alice))
	rec.AssertStatus(t, http.StatusNotFound)
	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+shared.ID.Hex(), carol))
	rec.AssertStatus(t, http.StatusNotFound)

	// Admin edits the shared recipe but cannot move it out of the family.
	rec = e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+shared.ID.Hex(),
		fmt.Sprintf(`{"title":"Family Chili","familyId":%q}`, g.ID.Hex()), alice))
	rec.AssertStatus(t, http.StatusOK)
	rec = e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+shared.ID.Hex(), `{"title":"Mine now"}`, alice))
	rec.AssertStatus(t, http.StatusForbidden)

	// Bob leaves; he still owns his recipe, alice keeps seeing it.
	if _, err := e.families.Leave(ctx, actor(b), g.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+shared.ID.Hex(), bob))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"title":"Family Chili"`)
}

func TestMemberCannotEditOthersSharedRecipe(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fixtures.CreateUser(ctx, "Alice Smith", "alice@example.com")
	b := e.fixtures.CreateUser(ctx, "Bob Smith", "bob@example.com")
	g := e.fixtures.CreateFamilyGroup(ctx, "Smith Family", a.ID, "K3J9QZ7M")
	if _, err := e.families.Join(ctx, actor(b), g.InviteCode); err != nil {
		t.Fatalf("Join: %v", err)
	}

	r := e.create(t, asTestUser(a), fmt.Sprintf(`{"title":"Roast","familyId":%q}`, g.ID.Hex()))

	rec := e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+r.ID.Hex(), asTestUser(b)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"canEdit":false`)

	rec = e.serve(testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+r.ID.Hex(),
		fmt.Sprintf(`{"title":"Bob's Roast","familyId":%q}`, g.ID.Hex()), asTestUser(b)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+r.ID.Hex(), asTestUser(b)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+r.ID.Hex(), asTestUser(a)))
	rec.AssertStatus(t, http.StatusNoContent)
	rec = e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+r.ID.Hex(), asTestUser(a)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestListFilters(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := asTestUser(e.fixtures.CreateUser(ctx, "Alice Smith", "alice@example.com"))

	e.create(t, alice, `{"title":"Crème Brûlée","tags":["dessert"]}`)
	e.create(t, alice, `{"title":"Lemon Tart","tags":["dessert","citrus"]}`)
	e.create(t, alice, `{"title":"Lemon Chicken","tags":["dinner"]}`)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?q=lemon", 2},
		{"?q=creme", 1},
		{"?tag=Dessert", 2},
		{"?q=lemon&tag=dessert", 1},
		{"?q=(", 0},
		{"?limit=2", 2},
		{"?tag=dessert&limit=1", 1},
	}
	for _, tt := range tests {
		rec := e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+tt.query, alice))
		rec.AssertStatus(t, http.StatusOK)
		var list []recipeResp
		rec.DecodeJSON(t, &list)
		if len(list) != tt.want {
			t.Errorf("GET %s: got %d recipes, want %d", tt.query, len(list), tt.want)
		}
	}

	rec := e.serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/?limit=many", alice))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorKind(t, "validation")
}
