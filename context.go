package scopekit

import (
	"context"
)

// Context keys for ScopeKit values.
type contextKey string

const (
	contextKeyUsername  contextKey = "scopekit:username"
	contextKeyRequestID contextKey = "scopekit:request_id"
	contextKeyIPAddress contextKey = "scopekit:ip_address"
	contextKeyUserAgent contextKey = "scopekit:user_agent"
	contextKeyUser      contextKey = "scopekit:user"
)

// WithUsername adds the authenticated caller's username to the context.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKeyUsername, username)
}

// GetUsername retrieves the caller's username from context.
// Returns empty string if not set.
func GetUsername(ctx context.Context) string {
	if v := ctx.Value(contextKeyUsername); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithIPAddress adds the client IP address to the context.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the client IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the client user agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the client user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUser adds the authorized user record to the context. Set by
// RequirePermission after a successful check.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// UserFromContext retrieves the authorized user from context.
// Returns nil if not set.
func UserFromContext(ctx context.Context) *User {
	if v := ctx.Value(contextKeyUser); v != nil {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}
