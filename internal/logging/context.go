// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Connection identifies the client connection a log entry belongs to.
type Connection struct {
	ID     uint64
	Remote string
}

type connectionCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if ctx == nil {
		return fields
	}

	if conn, ok := ConnectionFromContext(ctx); ok {
		fields = append(fields, zap.Uint64("conn.id", conn.ID))
		if conn.Remote != "" {
			fields = append(fields, zap.String("conn.remote", conn.Remote))
		}
	}

	return fields
}

// WithConnection adds connection identity to context.
func WithConnection(ctx context.Context, conn Connection) context.Context {
	return context.WithValue(ctx, connectionCtxKey{}, conn)
}

// ConnectionFromContext extracts connection identity from context.
func ConnectionFromContext(ctx context.Context) (Connection, bool) {
	conn, ok := ctx.Value(connectionCtxKey{}).(Connection)
	return conn, ok
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
