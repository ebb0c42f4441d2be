// Package server assembles the HTTP surface: gin engine, middleware chain,
// and route registration for every feature handler.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visitgate/internal/audit"
	authhandler "visitgate/internal/auth/handler"
	authsvc "visitgate/internal/auth/service"
	"visitgate/internal/config"
	identityrepo "visitgate/internal/identity/repository"
	"visitgate/internal/observability"
	ratelimit "visitgate/internal/ratelimit/service"
	resetsvc "visitgate/internal/reset/service"
	"visitgate/internal/server/middleware"
	sessionsvc "visitgate/internal/session/service"
	"visitgate/internal/tenantctx"
	tenanthandler "visitgate/internal/tenantctx/handler"
)

// Deps are the wired services the HTTP surface exposes.
type Deps struct {
	Config     *config.Config
	DB         *sql.DB
	Auth       *authsvc.Service
	Resets     *resetsvc.Service
	Limiter    *ratelimit.Limiter
	Sessions   *sessionsvc.Manager
	Identities identityrepo.Repository
	Resolver   *tenantctx.Resolver
	Auditor    audit.AuditLogger
	Metrics    *observability.Metrics
	// Deliver receives issued reset tokens for out-of-band delivery; nil uses
	// the auth handler's logging default.
	Deliver authhandler.TokenDeliverer
}

// NewRouter builds the gin engine with the full middleware chain and routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Config != nil && d.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestContext())
	r.Use(middleware.Telemetry(d.Metrics))
	r.Use(middleware.Audit(d.Auditor))

	r.GET("/healthz", healthz(d.DB))

	public := r.Group("/v1")
	authed := r.Group("/v1")
	authed.Use(middleware.Auth(d.Sessions, d.Identities, d.Resolver))

	cookie := authhandler.CookieConfig{}
	if d.Config != nil {
		cookie.Domain = d.Config.CookieDomain
		cookie.Secure = d.Config.CookieSecure
	}
	authhandler.NewHandler(d.Auth, d.Resets, d.Limiter, d.Identities, cookie, d.Deliver).Register(public, authed)
	tenanthandler.NewHandler(d.Resolver).Register(authed)

	return r
}

// New returns an http.Server listening on the configured address. The caller
// owns startup and graceful shutdown.
func New(d Deps) *http.Server {
	addr := ":8080"
	if d.Config != nil && d.Config.HTTPAddr != "" {
		addr = d.Config.HTTPAddr
	}
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthz(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
