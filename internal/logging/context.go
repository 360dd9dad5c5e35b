package logging

import (
	"context"
	"log/slog"

	"jobtrail/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags a log line with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldApplicationID is the key for tracked application identifiers.
	FieldApplicationID = "application_id"
	// FieldMessageID is the key for mailbox message identifiers.
	FieldMessageID = "message_id"
	// FieldStage is the key for application lifecycle stages.
	FieldStage = "stage"
	// FieldCorrelationID is the key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ApplicationIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldApplicationID, id))
	}
	if id, ok := services.MessageIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMessageID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
