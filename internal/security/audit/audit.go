package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, clientIP, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("client_ip", clientIP),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogMutation(ctx context.Context, clientIP, method, resource, resourceID string) {
	action := "create"
	switch method {
	case "PUT", "PATCH":
		action = "update"
	case "DELETE":
		action = "delete"
	}
	al.LogAction(ctx, clientIP, action, resource, resourceID, "initiated", "")
}

func (al *Logger) LogDenied(ctx context.Context, clientIP, reason string) {
	al.LogAction(ctx, clientIP, "access_denied", "api", "", "denied", reason)
}
