// Package handler exposes the authentication HTTP endpoints: login, logout,
// password change, and the password reset flow.
package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authsvc "visitgate/internal/auth/service"
	identityrepo "visitgate/internal/identity/repository"
	ratelimit "visitgate/internal/ratelimit/service"
	resetsvc "visitgate/internal/reset/service"
	"visitgate/internal/security"
	"visitgate/internal/server/middleware"
)

// ActionResetRequest is the rate limiter action for password reset requests.
const ActionResetRequest = "reset_request"

// CookieConfig carries the session cookie attributes the handler issues.
type CookieConfig struct {
	Domain string
	Secure bool
}

// TokenDeliverer receives the raw reset token for out-of-band delivery (the
// reset link email). The default logs the issue event without the token.
type TokenDeliverer func(email, rawToken string)

// Handler serves the /v1/auth routes.
type Handler struct {
	auth       *authsvc.Service
	resets     *resetsvc.Service
	limiter    *ratelimit.Limiter
	identities identityrepo.Repository
	cookie     CookieConfig
	deliver    TokenDeliverer
}

func NewHandler(auth *authsvc.Service, resets *resetsvc.Service, limiter *ratelimit.Limiter, identities identityrepo.Repository, cookie CookieConfig, deliver TokenDeliverer) *Handler {
	if deliver == nil {
		deliver = func(email, rawToken string) {
			log.Printf("auth: reset token issued for %s (no deliverer configured)", email)
		}
	}
	return &Handler{
		auth:       auth,
		resets:     resets,
		limiter:    limiter,
		identities: identities,
		cookie:     cookie,
		deliver:    deliver,
	}
}

// Register mounts the auth routes. Public routes go on public, authenticated
// ones on authed (behind the Auth middleware).
func (h *Handler) Register(public, authed *gin.RouterGroup) {
	public.POST("/auth/login", h.login)
	public.POST("/auth/forgot", h.forgot)
	public.POST("/auth/reset", h.reset)
	authed.POST("/auth/logout", h.logout)
	authed.POST("/auth/password", h.changePassword)
	authed.GET("/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()

	res, err := h.auth.Login(ctx, req.Email, req.Password, req.Role, middleware.ClientAddress(ctx), middleware.ClientAgent(ctx))
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		case errors.Is(err, authsvc.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		case errors.Is(err, authsvc.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limit_exceeded"})
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		case errors.Is(err, authsvc.ErrSessionCreateFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session_create_failed"})
		default:
			log.Printf("auth handler: login: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"identity": res.Identity})
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	raw, _ := middleware.GetSessionToken(ctx)
	tenantID, _ := middleware.GetTenantID(ctx)
	identity := middleware.GetIdentity(ctx)
	identityID := ""
	if identity != nil {
		identityID = identity.ID
	}

	if err := h.auth.Logout(ctx, raw, tenantID, identityID); err != nil {
		log.Printf("auth handler: logout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	identity := middleware.GetIdentity(ctx)

	err := h.auth.ChangePassword(ctx, identity, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var weak *security.WeakPasswordError
		switch {
		case errors.Is(err, authsvc.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "current_password_mismatch"})
		case errors.As(err, &weak):
			c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password", "violations": weak.Violations})
		default:
			log.Printf("auth handler: change password: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	// every session died with the old credential, including this one
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

type forgotRequest struct {
	Email string `json:"email"`
}

// forgot issues a reset token when the email resolves to an active identity.
// The response is 202 regardless, so callers cannot probe which emails exist.
func (h *Handler) forgot(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	addr := middleware.ClientAddress(ctx)

	allowed, err := h.limiter.Allow(ctx, addr, ActionResetRequest)
	if err != nil {
		log.Printf("auth handler: forgot rate check: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limit_exceeded"})
		return
	}
	if err := h.limiter.RecordAttempt(ctx, addr, ActionResetRequest); err != nil {
		log.Printf("auth handler: forgot record attempt: %v", err)
	}

	identity, err := h.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("auth handler: forgot lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if identity != nil && identity.Active {
		raw, err := h.resets.CreateToken(ctx, identity.ID)
		if err != nil {
			log.Printf("auth handler: create reset token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		h.deliver(identity.Email, raw)
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()

	err := h.resets.ConsumeAndReset(ctx, req.Token, req.NewPassword)
	if err != nil {
		var weak *security.WeakPasswordError
		switch {
		case errors.As(err, &weak):
			c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password", "violations": weak.Violations})
		case errors.Is(err, resetsvc.ErrInvalidToken):
			// one generic message for unknown, expired, used, and superseded
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_or_expired_token"})
		default:
			log.Printf("auth handler: reset: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	identity := middleware.GetIdentity(ctx)
	tenantID, _ := middleware.GetTenantID(ctx)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": authsvc.IdentitySummary{
		ID:       identity.ID,
		Email:    identity.Email,
		Role:     string(identity.Role),
		TenantID: tenantID,
	}})
}

func (h *Handler) setSessionCookie(c *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, raw, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}
