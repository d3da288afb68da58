// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/limits"
	"github.com/dalemusser/waffle/pantry/query"
)

// ParseLimit reads the ?limit query parameter. It returns 0 when the
// parameter is absent and a validation error when it is not a
// non-negative integer.
func ParseLimit(r *http.Request) (int, error) {
	raw := query.Get(r, "limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.Validation("limit must be a non-negative integer.")
	}
	return n, nil
}

// Clamp maps a requested limit onto [1, max]. Zero or negative selects def.
func Clamp(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	}
	return limit
}

// ListLimit parses ?limit and clamps it to the shared list bounds.
func ListLimit(r *http.Request) (int64, error) {
	n, err := ParseLimit(r)
	if err != nil {
		return 0, err
	}
	return int64(Clamp(n, limits.DefaultListRows, limits.MaxListRows)), nil
}
