// Package requestid tags every request with an X-Request-ID and a
// request-scoped zap logger.
package requestid

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header is the request/response header carrying the ID.
const Header = "X-Request-ID"

type ctxKey int

const (
	idKey ctxKey = iota
	loggerKey
)

// maxClientIDLen bounds client-supplied IDs so they cannot bloat log lines.
const maxClientIDLen = 128

// Middleware accepts a client-supplied X-Request-ID (if short enough) or
// mints a UUID, echoes it on the response, and attaches a logger carrying
// it. Each request is logged once on completion.
func Middleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" || len(id) > maxClientIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(Header, id)

			log := base.With(zap.String("request_id", id))
			ctx := context.WithValue(r.Context(), idKey, id)
			ctx = context.WithValue(ctx, loggerKey, log)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))

			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

// ID returns the request ID from ctx, or "".
func ID(ctx context.Context) string {
	id, _ := ctx.Value(idKey).(string)
	return id
}

// Logger returns the request-scoped logger, or fallback when none is set.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
