// Package middleware carries the HTTP middleware chain: request metadata
// capture, session authentication, and per-request audit.
package middleware

import (
	"context"

	identitydomain "visitgate/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	identityKey      = contextKey{"identity"}
	tenantIDKey      = contextKey{"tenant_id"}
	sessionTokenKey  = contextKey{"session_token"}
	clientAddressKey = contextKey{"client_address"}
	clientAgentKey   = contextKey{"client_agent"}
)

// WithIdentity returns a context carrying the authenticated identity, its
// resolved tenant, and the raw session token. Handlers read these via
// GetIdentity, GetTenantID, GetSessionToken.
func WithIdentity(ctx context.Context, identity *identitydomain.Identity, tenantID, rawToken string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	ctx = context.WithValue(ctx, sessionTokenKey, rawToken)
	return ctx
}

// WithClientInfo returns a context carrying the request's client address and
// agent string.
func WithClientInfo(ctx context.Context, clientAddress, clientAgent string) context.Context {
	ctx = context.WithValue(ctx, clientAddressKey, clientAddress)
	ctx = context.WithValue(ctx, clientAgentKey, clientAgent)
	return ctx
}

// GetIdentity returns the authenticated identity from context, or nil.
func GetIdentity(ctx context.Context) *identitydomain.Identity {
	v, _ := ctx.Value(identityKey).(*identitydomain.Identity)
	return v
}

// GetTenantID returns the resolved tenant id from context and true if set.
func GetTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantIDKey).(string)
	return v, ok
}

// GetSessionToken returns the raw session token from context and true if set.
func GetSessionToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionTokenKey).(string)
	return v, ok
}

// ClientAddress returns the client address from context, or "unknown".
func ClientAddress(ctx context.Context) string {
	if v, ok := ctx.Value(clientAddressKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ClientAgent returns the client agent string from context, or "".
func ClientAgent(ctx context.Context) string {
	v, _ := ctx.Value(clientAgentKey).(string)
	return v
}
