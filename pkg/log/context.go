package log

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithSession derives a child of the context logger tagged with the
// session's viewer, id and event. Empty values are omitted.
func WithSession(ctx context.Context, viewerID, sessionID, eventID string) context.Context {
	c := Ctx(ctx).With()
	if viewerID != "" {
		c = c.Str(FieldViewerID, viewerID)
	}
	if sessionID != "" {
		c = c.Str(FieldSessionID, sessionID)
	}
	if eventID != "" {
		c = c.Str(FieldEventID, eventID)
	}
	return WithLogger(ctx, c.Logger())
}

// Ctx retrieves the logger from the context, falling back to the global one.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
