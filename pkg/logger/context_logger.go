package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	connectionIDKey contextKey = "connection_id"
	userIDKey       contextKey = "user_id"
	requestIDKey    contextKey = "request_id"
)

func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ConnectionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(connectionIDKey).(string)
	return id
}

// ContextLogger attaches the identifiers carried by a context to log lines.
type ContextLogger struct {
	logger *zap.SugaredLogger
}

func NewContextLogger(logger *zap.SugaredLogger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// For returns a logger with connection_id, user_id and request_id fields when present.
func (cl *ContextLogger) For(ctx context.Context) *zap.SugaredLogger {
	var fields []interface{}
	for _, key := range []contextKey{connectionIDKey, userIDKey, requestIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}
