package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, "recipehub-test", time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return tm
}

func protected() http.Handler {
	return auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.CurrentUser(r)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(u.ID))
	}))
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	if _, err := auth.NewTokenManager("", "x", time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	tm := newTestTokenManager(t)
	tok, exp, err := tm.Issue("507f1f77bcf86cd799439011", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry should be in the future, got %v", exp)
	}
	u, err := tm.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.ID != "507f1f77bcf86cd799439011" || u.Email != "alice@example.com" || u.Name != "Alice" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	other, _ := auth.NewTokenManager("another-secret-that-is-32-chars-long!", "recipehub-test", time.Hour, zap.NewNop())
	tok, _, _ := other.Issue("u1", "a@example.com", "A")

	if _, err := newTestTokenManager(t).Verify(tok); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	other, _ := auth.NewTokenManager(testSecret, "someone-else", time.Hour, zap.NewNop())
	tok, _, _ := other.Issue("u1", "a@example.com", "A")

	if _, err := newTestTokenManager(t).Verify(tok); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestVerify_Expired(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "recipehub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

	if _, err := newTestTokenManager(t).Verify(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerify_RejectsNoneAlg(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "recipehub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)

	if _, err := newTestTokenManager(t).Verify(tok); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	rec := httptest.NewRecorder()
	protected().ServeHTTP(rec, httptest.NewRequest("GET", "/family", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unauthenticated"`) {
		t.Errorf("expected unauthenticated envelope, got %s", rec.Body.String())
	}
}

func TestLoadUser_ValidBearer(t *testing.T) {
	tm := newTestTokenManager(t)
	tok, _, _ := tm.Issue("user-123", "a@example.com", "A")

	req := httptest.NewRequest("GET", "/family", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	tm.LoadUser(protected()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "user-123" {
		t.Errorf("expected user id in body, got %q", rec.Body.String())
	}
}

func TestLoadUser_BadBearer_StaysAnonymous(t *testing.T) {
	tm := newTestTokenManager(t)
	for _, h := range []string{"Bearer not-a-token", "Basic abc", "Bearer "} {
		req := httptest.NewRequest("GET", "/family", nil)
		req.Header.Set("Authorization", h)
		rec := httptest.NewRecorder()
		tm.LoadUser(protected()).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", h, rec.Code)
		}
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	if _, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil)); ok {
		t.Error("expected no user")
	}
}

func TestCurrentUser_WithUser(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.TokenUser{ID: "u1", Name: "Test"})
	u, ok := auth.CurrentUser(req)
	if !ok || u.ID != "u1" {
		t.Errorf("expected u1, got %+v ok=%v", u, ok)
	}
}
