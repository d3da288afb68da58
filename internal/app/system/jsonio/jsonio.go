// Package jsonio decodes request bodies into typed, validated structs and
// writes JSON responses and error envelopes.
package jsonio

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/inputval"
	"github.com/dalemusser/recipehub/internal/app/system/limits"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = limits.MaxJSONBody

// Decode reads exactly one JSON object from r into dst and validates it.
// Unknown fields, trailing data and failed validate tags all yield a
// validation error.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apierr.Validation("Request body must contain a single JSON object.")
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		return &apierr.Error{Kind: apierr.KindValidation, Message: res.First()}
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apierr.Validation("Request body is empty.")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apierr.Validation("Request body is not valid JSON.")
	case errors.As(err, &typeErr):
		return apierr.Validation("Field %q has the wrong type.", typeErr.Field)
	case errors.As(err, &maxErr):
		return apierr.Validation("Request body is too large.")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return apierr.Validation("Unknown field %s.", field)
	}
	return apierr.Validation("Request body could not be decoded: %v", err)
}

// Write renders v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apierr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Error renders err as {"error":{"kind","message"}}. Internal errors are
// logged with their cause and shown to the client as a generic message.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	e := apierr.As(err)
	if e.Kind == apierr.KindInternal {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		e = &apierr.Error{Kind: apierr.KindInternal, Message: "internal error"}
	}
	Write(w, e.Kind.Status(), errorBody{Error: errorDetail{Kind: e.Kind, Message: e.Message}})
}

// PathError is a helper for malformed path parameters.
func PathError(name string) error {
	return apierr.Validation("Invalid %s.", name)
}
