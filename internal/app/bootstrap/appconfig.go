// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration. WAFFLE's CoreConfig covers
// ports, TLS, logging and request limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string // HS256 signing secret (32+ bytes outside dev)
	JWTIssuer string
	JWTTTL    time.Duration

	// Register/login throttling per client IP (per minute) and per
	// account email (per five minutes)
	LoginMaxPerIP    int
	LoginMaxPerEmail int

	// Family groups
	InviteCodeMaxAttempts int // random draws before giving up on a unique invite code
	MembershipMaxRetries  int // reload-and-reapply cycles after a version conflict

	// Honour X-Forwarded-For / X-Real-IP. Only set behind a proxy that
	// overwrites them; otherwise clients can pick their own IP.
	TrustProxyHeaders bool

	// Browser clients allowed to call the API. Empty disables CORS.
	CORSAllowedOrigins []string

	// Invite notifications through Amazon SES
	MailEnabled   bool
	MailFrom      string
	MailFromName  string
	MailAWSRegion string

	// Base URL for email links
	BaseURL string

	// Audit logging destinations: all, db, log or off
	AuditLogAuth   string
	AuditLogFamily string
}
