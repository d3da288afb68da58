// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/jsonio"
)

// NotFound renders the JSON envelope for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	jsonio.Error(w, nil, apierr.NotFound("No route for %s %s.", r.Method, r.URL.Path))
}

// MethodNotAllowed renders the JSON envelope for a known route hit with the
// wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonio.Write(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]string{
			"kind":    "method_not_allowed",
			"message": r.Method + " is not supported on " + r.URL.Path + ".",
		},
	})
}
