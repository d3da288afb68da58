// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// ValidSetting reports whether s is one of all, db, log, off.
func ValidSetting(s string) bool {
	switch s {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (register, login).
	Auth string
	// Family controls logging for family group membership events.
	Family string
}

// EventStore persists audit events. *audit.Store satisfies it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via the EventStore) and structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

/*───────────────────────────── request info ─────────────────────────────*/

type requestInfo struct {
	ip        string
	userAgent string
}

type ctxKey struct{}

// CaptureRequest stores the client IP and user agent in the request context
// so services can log audit events with only a context.Context.
func CaptureRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := requestInfo{ip: getClientIP(r), userAgent: r.UserAgent()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

func fromContext(ctx context.Context) requestInfo {
	info, _ := ctx.Value(ctxKey{}).(requestInfo)
	return info
}

// getClientIP returns the host of r.RemoteAddr. Proxy headers are only
// honoured once middleware.RealIP has folded them into RemoteAddr.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

/*───────────────────────────── core ─────────────────────────────*/

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FamilyID != nil {
		fields = append(fields, zap.String("family_id", event.FamilyID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Request IP, user agent and request ID are filled from ctx when unset.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryFamily:
		setting = l.config.Family
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	info := fromContext(ctx)
	if event.IP == "" {
		event.IP = info.ip
	}
	if event.UserAgent == "" {
		event.UserAgent = info.userAgent
	}
	if event.RequestID == "" {
		event.RequestID = requestid.ID(ctx)
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}

	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedUserDisabled logs a failed login due to disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		Success:       false,
		FailureReason: "user disabled",
		Details:       map[string]string{"email": email},
	})
}

// --- Family Events ---

func (l *Logger) family(ctx context.Context, eventType string, actorID, familyID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFamily,
		EventType: eventType,
		ActorID:   &actorID,
		UserID:    userID,
		FamilyID:  &familyID,
		Success:   true,
		Details:   details,
	})
}

// FamilyCreated logs a new family group and its creator.
func (l *Logger) FamilyCreated(ctx context.Context, actorID, familyID primitive.ObjectID, familyName string) {
	l.family(ctx, audit.EventFamilyCreated, actorID, familyID, &actorID, map[string]string{
		"family_name": familyName,
	})
}

// FamilyUpdated logs a name, description or settings change.
func (l *Logger) FamilyUpdated(ctx context.Context, actorID, familyID primitive.ObjectID, fieldsChanged string) {
	l.family(ctx, audit.EventFamilyUpdated, actorID, familyID, nil, map[string]string{
		"fields_changed": fieldsChanged,
	})
}

// MemberInvited logs an invite by email. reactivated is true when an
// inactive roster entry was brought back.
func (l *Logger) MemberInvited(ctx context.Context, actorID, familyID, targetUserID primitive.ObjectID, reactivated bool) {
	l.family(ctx, audit.EventMemberInvited, actorID, familyID, &targetUserID, map[string]string{
		"reactivated": strconv.FormatBool(reactivated),
	})
}

// MemberJoined logs a join by invite code.
func (l *Logger) MemberJoined(ctx context.Context, userID, familyID primitive.ObjectID, reactivated bool) {
	l.family(ctx, audit.EventMemberJoined, userID, familyID, &userID, map[string]string{
		"reactivated": strconv.FormatBool(reactivated),
	})
}

// MemberUpdated logs a role or activity change made by an admin.
func (l *Logger) MemberUpdated(ctx context.Context, actorID, familyID, targetUserID primitive.ObjectID, role string, active bool) {
	l.family(ctx, audit.EventMemberUpdated, actorID, familyID, &targetUserID, map[string]string{
		"role":      role,
		"is_active": strconv.FormatBool(active),
	})
}

// MemberRemoved logs a removal by an admin or by the member themself.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, familyID, targetUserID primitive.ObjectID) {
	l.family(ctx, audit.EventMemberRemoved, actorID, familyID, &targetUserID, nil)
}

// MemberLeft logs a member leaving on their own.
func (l *Logger) MemberLeft(ctx context.Context, userID, familyID primitive.ObjectID) {
	l.family(ctx, audit.EventMemberLeft, userID, familyID, &userID, nil)
}
