package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event. Email values are masked
// before emission; passwords, tokens, and hashes never appear here.
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSignInAttempt logs the outcome of a sign-in attempt. Failures are
// emitted at warn level, successes at info.
func (al *AuditLogger) LogSignInAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogLockout logs an account entering the locked state.
func (al *AuditLogger) LogLockout(email, ipAddress string, until time.Time) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", "account_locked"),
		slog.String("email", SanitizedEmail(email)),
		slog.String("locked_until", until.UTC().Format(time.RFC3339)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, userID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
