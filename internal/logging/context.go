package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAsset is the standardized structured logging key for photo asset paths.
	FieldAsset = "asset"
	// FieldOverlay is the standardized structured logging key for overlay kinds.
	FieldOverlay = "overlay"
	// FieldSessionID is the standardized structured logging key for culling session identifiers.
	FieldSessionID = "session_id"
	// FieldRunID is the standardized structured logging key for export run identifiers.
	FieldRunID = "run_id"
)

type contextKey int

const (
	assetKey contextKey = iota
	sessionIDKey
	runIDKey
)

// WithAsset tags the context with the photo asset being worked on.
func WithAsset(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, assetKey, path)
}

// WithSessionID tags the context with the culling session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithRunID tags the context with an export run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if asset, ok := ctx.Value(assetKey).(string); ok && asset != "" {
		fields = append(fields, slog.String(FieldAsset, asset))
	}
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
