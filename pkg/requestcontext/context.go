// Package requestcontext provides typed accessors for request-scoped values.
// Context keys are unexported types so other packages cannot collide.
package requestcontext

import "context"

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
