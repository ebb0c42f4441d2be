// Package handler exposes the tenant switch endpoint for super-admins.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"visitgate/internal/server/middleware"
	"visitgate/internal/tenantctx"
)

// Handler serves the /v1/tenant routes.
type Handler struct {
	resolver *tenantctx.Resolver
}

func NewHandler(resolver *tenantctx.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Register mounts the tenant routes on the authenticated group.
func (h *Handler) Register(authed *gin.RouterGroup) {
	authed.POST("/tenant/switch", h.switchTenant)
}

type switchRequest struct {
	TenantID string `json:"tenant_id"`
}

func (h *Handler) switchTenant(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	identity := middleware.GetIdentity(ctx)

	err := h.resolver.SwitchTenant(ctx, identity, req.TenantID)
	if err != nil {
		switch {
		case errors.Is(err, tenantctx.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		case errors.Is(err, tenantctx.ErrTenantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		default:
			log.Printf("tenant handler: switch: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
