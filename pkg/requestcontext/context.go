// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that
// are typically set by middleware but consumed by services and stores. By keeping
// this package free of net/http dependencies, services can import only what they
// need without pulling in HTTP-related code.
//
// The tenant context is the propagation primitive for tenant isolation: once a
// request's identity is known, middleware derives a context via WithTenant and
// every piece of work spawned from that request (including goroutines handed the
// context) observes the same tenant. Because context.Context is immutable and
// flows along the call chain, concurrent requests can never observe each other's
// tenant, and there is nothing to restore when a request completes.
//
// Usage in services (read values):
//
//	tc, ok := requestcontext.Tenant(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithTenant(ctx, requestcontext.TenantContext{...})
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"
	"time"

	id "clinicore/pkg/domain"
)

// TenantContext carries the identity of the request's tenant and acting user.
// It exists for the lifetime of one inbound request and is never persisted.
type TenantContext struct {
	TenantID id.TenantID
	UserID   id.UserID
}

// Context key types (unexported for encapsulation).
type (
	tenantKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
)

// Tenant retrieves the active tenant context.
// ok is false outside any tenant scope (health checks, maintenance jobs);
// callers must treat that as "no tenant scoping applies", never as a license
// to fall back to a previously seen tenant.
func Tenant(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(TenantContext)
	return tc, ok
}

// WithTenant derives a context scoped to the given tenant. The parent context
// is untouched; work holding the parent continues to observe no tenant.
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, tc)
}

// TenantID is a convenience accessor returning the active tenant ID, or the
// zero value when no tenant scope is active.
func TenantID(ctx context.Context) id.TenantID {
	if tc, ok := Tenant(ctx); ok {
		return tc.TenantID
	}
	return id.TenantID{}
}

// UserID returns the acting user's ID, or the zero value outside tenant scope.
func UserID(ctx context.Context) id.UserID {
	if tc, ok := Tenant(ctx); ok {
		return tc.UserID
	}
	return id.UserID{}
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests), so all
// timestamps within one request agree.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the full middleware chain and
// for workers that need a consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the normalized User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}
