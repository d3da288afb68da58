// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	accountfeature "github.com/dalemusser/recipehub/internal/app/features/account"
	errorsfeature "github.com/dalemusser/recipehub/internal/app/features/errors"
	familyfeature "github.com/dalemusser/recipehub/internal/app/features/family"
	healthfeature "github.com/dalemusser/recipehub/internal/app/features/health"
	pantryfeature "github.com/dalemusser/recipehub/internal/app/features/pantry"
	recipesfeature "github.com/dalemusser/recipehub/internal/app/features/recipes"
	shoppingfeature "github.com/dalemusser/recipehub/internal/app/features/shopping"
	"github.com/dalemusser/recipehub/internal/app/store/audit"
	familystore "github.com/dalemusser/recipehub/internal/app/store/families"
	metricsstore "github.com/dalemusser/recipehub/internal/app/store/metrics"
	pantrystore "github.com/dalemusser/recipehub/internal/app/store/pantry"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	shoppingliststore "github.com/dalemusser/recipehub/internal/app/store/shoppinglists"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/app/system/mailer"
	"github.com/dalemusser/recipehub/internal/app/system/metrics"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/app/system/requestid"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Version is reported by /health. Set with -ldflags at build time.
var Version = "dev"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	mail, err := mailer.New(ctx, mailer.Config{
		Enabled:  appCfg.MailEnabled,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		Region:   appCfg.MailAWSRegion,
		SiteName: "RecipeHub",
		BaseURL:  appCfg.BaseURL,
	}, logger)
	if err != nil {
		logger.Error("mailer init failed", zap.Error(err))
		return nil, err
	}

	return buildRouter(appCfg, deps, mail, metrics.New(), logger)
}

// buildRouter assembles stores, services and feature routers.
func buildRouter(appCfg AppConfig, deps DBDeps, mail *mailer.Mailer, m *metrics.Metrics, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.JWTTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	if err := m.Register(metricsstore.NewCollector(db, timeouts.Short())); err != nil {
		logger.Error("metrics collector registration failed", zap.Error(err))
		return nil, err
	}

	// Stores
	users := userstore.New(db)
	groups := familystore.New(db)
	auditStore := audit.New(db)
	pantryItems := pantrystore.New(db)

	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Family: appCfg.AuditLogFamily,
	})

	// Family groups are the sharing authority for every other feature.
	families := familyfeature.NewService(groups, users, invitecode.New(groups, appCfg.InviteCodeMaxAttempts), familyfeature.Options{
		Notifier:   familyfeature.MailNotifier{Mailer: mail},
		Activity:   auditStore,
		Audit:      auditLog,
		Metrics:    m,
		Logger:     logger,
		MaxRetries: appCfg.MembershipMaxRetries,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if appCfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	if len(appCfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", requestid.Header},
			ExposedHeaders:   []string{requestid.Header},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(requestid.Middleware(logger))
	r.Use(auditlog.CaptureRequest)

	// Global auth middleware: injects the bearer-token user when present.
	r.Use(tokens.LoadUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Operations
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, Version, logger)))
	r.Handle("/metrics", m.Handler())

	// Accounts
	accountHandler := accountfeature.NewHandler(users, tokens, auditLog, m, logger)
	accountHandler.Limiter = ratelimit.NewLoginLimiter(ratelimit.LoginConfig{
		PerIP:    appCfg.LoginMaxPerIP,
		PerEmail: appCfg.LoginMaxPerEmail,
	})
	r.Mount("/auth", accountfeature.Routes(accountHandler))

	// Family groups
	r.Mount("/family", familyfeature.Routes(familyfeature.NewHandler(families, logger)))

	// Shared records
	r.Mount("/recipes", recipesfeature.Routes(recipesfeature.NewHandler(recipestore.New(db), families, logger)))
	r.Mount("/pantry", pantryfeature.Routes(pantryfeature.NewHandler(pantryItems, families, logger)))
	r.Mount("/shopping-lists", shoppingfeature.Routes(shoppingfeature.NewHandler(shoppingliststore.New(db), pantryItems, families, logger)))

	return r, nil
}
