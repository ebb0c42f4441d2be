package middleware

import (
	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie the session token travels in.
const SessionCookieName = "session_token"

// RequestContext captures the client address and agent into the request
// context so services and the audit logger can read them without touching
// gin directly.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
