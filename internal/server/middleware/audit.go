package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"visitgate/internal/audit"
)

// Audit records a best-effort audit entry after each authenticated mutating
// request. GET requests and unauthenticated requests are skipped; feature
// services write their own specific events on top of this generic trail.
func Audit(auditor audit.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if auditor == nil || c.Request.Method == "GET" {
			return
		}
		ctx := c.Request.Context()
		identity := GetIdentity(ctx)
		if identity == nil {
			return
		}
		tenantID, _ := GetTenantID(ctx)
		resource := pathResource(c.FullPath())
		action := strings.ToLower(c.Request.Method) + "_" + resource
		meta := fmt.Sprintf(`{"status":%d}`, c.Writer.Status())
		auditor.LogEvent(ctx, tenantID, identity.ID, action, resource, meta)
	}
}

// pathResource maps a route path like /v1/tenant/switch to "tenant".
func pathResource(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, p := range parts {
		if p == "" || p == "v1" {
			continue
		}
		return p
	}
	return "unknown"
}
