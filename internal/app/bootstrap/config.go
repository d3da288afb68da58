// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// MinJWTSecretLength is enforced everywhere except the dev environment.
const MinJWTSecretLength = 32

// appConfigKeys defines the configuration keys for RecipeHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: RECIPEHUB_MONGO_URI, RECIPEHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "recipehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HS256 token signing secret (32+ chars in production)"},
	{Name: "jwt_issuer", Default: "recipehub", Desc: "Token issuer claim"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Token lifetime (e.g., 24h, 30m)"},

	{Name: "login_max_per_ip", Default: ratelimit.DefaultPerIP, Desc: "Register/login attempts per client IP per minute"},
	{Name: "login_max_per_email", Default: ratelimit.DefaultPerEmail, Desc: "Login attempts per account per five minutes"},

	// Family groups
	{Name: "invite_code_max_attempts", Default: 10, Desc: "Random draws before invite code generation gives up"},
	{Name: "membership_max_retries", Default: 5, Desc: "Retries after a concurrent family group update"},

	{Name: "trust_proxy_headers", Default: false, Desc: "Take the client IP from X-Forwarded-For/X-Real-IP (only behind a trusted proxy)"},

	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed by CORS (blank disables)"},

	// Email via SES
	{Name: "mail_enabled", Default: false, Desc: "Send family invite emails through Amazon SES"},
	{Name: "mail_from", Default: "", Desc: "From email address"},
	{Name: "mail_from_name", Default: "RecipeHub", Desc: "From display name"},
	{Name: "mail_aws_region", Default: "us-east-1", Desc: "AWS region for SES"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_family", Default: "all", Desc: "Family event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, RECIPEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RECIPEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		LoginMaxPerIP:    appValues.Int("login_max_per_ip"),
		LoginMaxPerEmail: appValues.Int("login_max_per_email"),

		InviteCodeMaxAttempts: appValues.Int("invite_code_max_attempts"),
		MembershipMaxRetries:  appValues.Int("membership_max_retries"),

		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		MailEnabled:   appValues.Bool("mail_enabled"),
		MailFrom:      appValues.String("mail_from"),
		MailFromName:  appValues.String("mail_from_name"),
		MailAWSRegion: appValues.String("mail_aws_region"),

		BaseURL: appValues.String("base_url"),

		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogFamily: appValues.String("audit_log_family"),
	}

	return coreCfg, appCfg, nil
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	dev := coreCfg != nil && coreCfg.Env == "dev"
	if len(appCfg.JWTSecret) < MinJWTSecretLength && !dev {
		return fmt.Errorf("jwt_secret must be at least %d characters outside dev", MinJWTSecretLength)
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive")
	}

	if appCfg.InviteCodeMaxAttempts < 1 {
		return fmt.Errorf("invite_code_max_attempts must be at least 1")
	}
	if appCfg.MembershipMaxRetries < 1 {
		return fmt.Errorf("membership_max_retries must be at least 1")
	}

	for key, v := range map[string]string{
		"audit_log_auth":   appCfg.AuditLogAuth,
		"audit_log_family": appCfg.AuditLogFamily,
	} {
		if !auditlog.ValidSetting(v) {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	if appCfg.MailEnabled && appCfg.MailFrom == "" {
		logger.Warn("mail_enabled is set but mail_from is empty; invite emails stay disabled")
	}

	return nil
}
