package loggy

import (
	"context"

	"github.com/tildaslashalef/docsync/internal/ulid"
)

type requestIDKey struct{}

// GetRequestID returns the request id carried by ctx, or "" if there is none
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestID attaches a request id to ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// EnsureRequestID keeps an existing request id or attaches a fresh one.
// Every store call made with the returned context shares the id.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := GetRequestID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.RequestID()
	return WithRequestID(ctx, id), id
}

// WithContext returns a Logger stamped with the request id of ctx, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := GetRequestID(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}
