package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	identityrepo "visitgate/internal/identity/repository"
	sessionsvc "visitgate/internal/session/service"
	"visitgate/internal/tenantctx"
)

// Auth validates the session cookie and injects the identity, its resolved
// tenant, and the raw token into the request context. Any failure — missing
// cookie, unknown or expired session, missing or inactive identity — aborts
// with a uniform 401. The tenant is resolved per request so a super-admin's
// switch takes effect on the next call.
func Auth(sessions *sessionsvc.Manager, identities identityrepo.Repository, resolver *tenantctx.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil || raw == "" {
			unauthorized(c)
			return
		}
		ctx := c.Request.Context()

		s, err := sessions.Validate(ctx, raw, ClientAddress(ctx))
		if err != nil {
			unauthorized(c)
			return
		}
		identity, err := identities.GetByID(ctx, s.IdentityID)
		if err != nil {
			log.Printf("auth middleware: load identity %s: %v", s.IdentityID, err)
			unauthorized(c)
			return
		}
		if identity == nil || !identity.Active {
			unauthorized(c)
			return
		}
		tenantID, err := resolver.ResolveTenant(ctx, identity)
		if err != nil {
			log.Printf("auth middleware: resolve tenant for %s: %v", identity.ID, err)
			unauthorized(c)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(ctx, identity, tenantID, raw))
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
}
