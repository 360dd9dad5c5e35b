package services

import "context"

type contextKey string

const (
	applicationIDKey contextKey = "application_id"
	messageIDKey     contextKey = "message_id"
	requestIDKey     contextKey = "request_id"
)

// WithApplicationID annotates context with the tracked application identifier.
func WithApplicationID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, applicationIDKey, id)
}

// ApplicationIDFromContext extracts the application identifier if present.
func ApplicationIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(applicationIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithMessageID annotates context with the mailbox message being processed.
func WithMessageID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageIDFromContext returns the mailbox message identifier if present.
func MessageIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(messageIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
