// Package context carries request-scoped values between the transports and
// the logging handlers: the trace ID of a request and the username of the
// session that made it.
package context

import "context"

type contextKey uint8

const (
	traceIDKey contextKey = iota
	usernameKey
)

func value(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)

	return v, ok
}

// WithTraceID returns a copy of ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace ID stored in ctx, if any.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	return value(ctx, traceIDKey)
}

// WithUsername returns a copy of ctx carrying the username of an authenticated session.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFromContext returns the session username stored in ctx, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	return value(ctx, usernameKey)
}
