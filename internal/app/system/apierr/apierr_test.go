package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
		{Kind("bogus"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("family group %s not found", "x"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("did not expect match on ErrConflict")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Forbidden("no")); got != KindForbidden {
		t.Errorf("KindOf = %s", got)
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
	if got := KindOf(fmt.Errorf("load: %w", NotFound("gone"))); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %s", got)
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	e := Internal(cause, "load family")
	if e.Message != "internal error" {
		t.Errorf("Message = %q", e.Message)
	}
	if !errors.Is(e, cause) {
		t.Error("expected cause to be unwrappable")
	}
}

func TestAs_WrapsUnknown(t *testing.T) {
	e := As(errors.New("boom"))
	if e.Kind != KindInternal || e.Message != "internal error" {
		t.Errorf("As = %+v", e)
	}
}
