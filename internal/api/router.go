// Package api wires the HTTP surface: middleware chain, route groups, and
// handlers. The router also assembles the audit engine (registry, recorder,
// writer, interceptor) and threads it into every repository, so the single
// construction point here is where audit coverage of the whole API is decided.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/agrocore/agrocore/internal/audit"
	"github.com/agrocore/agrocore/internal/config"
	"github.com/agrocore/agrocore/internal/db/repositories"
	"github.com/agrocore/agrocore/internal/jobs"
	"github.com/agrocore/agrocore/internal/middleware"
	"github.com/agrocore/agrocore/internal/safego"
	"github.com/agrocore/agrocore/internal/store"
	"github.com/agrocore/agrocore/internal/verification"
)

// BackgroundServices owns the long-running goroutines started alongside the
// HTTP server. Shutdown stops them during graceful termination.
type BackgroundServices struct {
	sweeper  *jobs.StaleLeadSweeper
	shippers []audit.Shipper
	cancel   context.CancelFunc
}

// Start launches the background jobs. Panics inside a job are recovered and
// logged rather than taking the server down.
func (b *BackgroundServices) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	safego.Go("stale-lead-sweeper", func() { b.sweeper.Start(ctx) })
}

// Shutdown stops all background jobs and releases the audit shippers' handles.
func (b *BackgroundServices) Shutdown() {
	if b.cancel != nil {
		b.cancel()
	}
	b.sweeper.Stop()
	for _, s := range b.shippers {
		if err := s.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
}

// NewRouter builds the Gin engine with all routes and middleware registered,
// plus the background services the server runs beside it.
func NewRouter(cfg *config.Config, database *sqlx.DB, rdb *redis.Client) (*gin.Engine, *BackgroundServices) {
	// Audit engine: one writer, one recorder, one interceptor, shared by all
	// repositories.
	writer := audit.NewWriter(database)
	shippers := auditShippers(cfg)
	recorder := audit.NewRecorder(writer, shippers...)
	registry := store.NewRegistry(store.DefaultTables()...)
	interceptor := store.NewInterceptor(database, registry, recorder)

	auditRepo := repositories.NewAuditRepository(database)
	userRepo := repositories.NewUserRepository(database, interceptor)
	companyRepo := repositories.NewCompanyRepository(database, interceptor)
	plantRepo := repositories.NewPlantRepository(database, interceptor)
	partnerRepo := repositories.NewPartnerRepository(database, interceptor)
	leadRepo := repositories.NewLeadRepository(database, interceptor, recorder)

	codes := verification.NewStore(rdb, cfg.Auth.VerificationTTL)
	sweeper := jobs.NewStaleLeadSweeper(leadRepo, cfg.Jobs.StaleLeadSweepInterval, cfg.Jobs.StaleLeadAfter)

	authHandlers := &AuthHandlers{Users: userRepo, Codes: codes, TokenTTL: cfg.Auth.TokenTTL}
	auditHandlers := &AuditHandlers{Repo: auditRepo, PageSize: cfg.Audit.PageSize}
	companyHandlers := &CompanyHandlers{Repo: companyRepo}
	plantHandlers := &PlantHandlers{Repo: plantRepo}
	partnerHandlers := &PartnerHandlers{Repo: partnerRepo}
	leadHandlers := &LeadHandlers{Repo: leadRepo}
	userHandlers := &UserHandlers{Repo: userRepo}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", healthCheckHandler(database))
	router.GET("/ready", readinessHandler(database, rdb))

	// Login is rate limited more aggressively than the rest of the API and
	// runs outside the auth chain.
	authGroup := router.Group("/v1/auth")
	authGroup.Use(middleware.RateLimitMiddleware(rdb, middleware.AuthRateLimitConfig()))
	{
		authGroup.POST("/login", authHandlers.Login)
		authGroup.POST("/verification/issue", authHandlers.IssueVerificationCode)
		authGroup.POST("/verification/verify", authHandlers.VerifyCode)
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(rdb, middleware.DefaultRateLimitConfig()))
	v1.Use(middleware.AuthMiddleware(userRepo))
	{
		v1.POST("/companies", companyHandlers.Create)
		v1.GET("/companies", companyHandlers.List)
		v1.GET("/companies/:id", companyHandlers.Get)
		v1.PUT("/companies/:id", companyHandlers.Update)
		v1.DELETE("/companies/:id", companyHandlers.Deactivate)
		v1.POST("/companies/:id/reactivate", companyHandlers.Reactivate)
		v1.GET("/companies/:id/plants", plantHandlers.ListByCompany)

		v1.POST("/plants", plantHandlers.Create)
		v1.GET("/plants/:id", plantHandlers.Get)
		v1.PUT("/plants/:id", plantHandlers.Update)
		v1.DELETE("/plants/:id", plantHandlers.Deactivate)

		v1.POST("/partners", partnerHandlers.Create)
		v1.GET("/partners/:id", partnerHandlers.Get)
		v1.PUT("/partners/:id", partnerHandlers.Update)
		v1.DELETE("/partners/:id", partnerHandlers.Deactivate)

		v1.POST("/leads", leadHandlers.Create)
		v1.GET("/leads/:id", leadHandlers.Get)
		v1.PUT("/leads/:id/status", leadHandlers.UpdateStatus)
		v1.DELETE("/leads/:id", leadHandlers.Deactivate)

		// Audit trail and user administration require elevated privileges.
		adminGroup := v1.Group("")
		adminGroup.Use(middleware.RequireAdmin())
		{
			adminGroup.GET("/audit-logs", auditHandlers.List)
			adminGroup.GET("/audit-logs/history", auditHandlers.History)
			adminGroup.GET("/audit-logs/actor/:id", auditHandlers.HistoryByActor)

			adminGroup.POST("/users", userHandlers.Create)
			adminGroup.GET("/users/:id", userHandlers.Get)
			adminGroup.DELETE("/users/:id", userHandlers.Deactivate)

			adminGroup.DELETE("/companies/:id/purge", companyHandlers.Delete)
		}
	}

	return router, &BackgroundServices{sweeper: sweeper, shippers: shippers}
}

// auditShippers builds the configured external audit destinations. A file
// path that cannot be opened disables that destination with a log line; the
// durable database trail does not depend on any of these.
func auditShippers(cfg *config.Config) []audit.Shipper {
	var shippers []audit.Shipper
	if cfg.Audit.WebhookURL != "" {
		shippers = append(shippers, audit.NewWebhookShipper(cfg.Audit.WebhookURL, nil, 0))
	}
	if cfg.Audit.FilePath != "" {
		fs, err := audit.NewFileShipper(cfg.Audit.FilePath)
		if err != nil {
			slog.Error("audit file shipper disabled", "path", cfg.Audit.FilePath, "error", err)
		} else {
			shippers = append(shippers, fs)
		}
	}
	return shippers
}

func healthCheckHandler(database *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	}
}

func readinessHandler(database *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}
		ready := true

		if err := database.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unreachable"
			ready = false
		} else {
			checks["database"] = "ok"
		}

		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "unreachable"
			ready = false
		} else {
			checks["redis"] = "ok"
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "checks": checks})
	}
}
