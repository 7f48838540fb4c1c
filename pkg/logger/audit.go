package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditLogger records the security-relevant events an operator may need
// to reconstruct later: who was denylisted, which ledger entries were
// decided, which sign-ins failed. Emails are masked like all other logs.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs an authentication attempt (OTP verify or password
// sign-in)
func (al *AuditLogger) LogAuthAttempt(eventType, email string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", eventType),
		slog.String("email", SanitizedEmail(email)),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogBlockAction logs a denylist mutation
func (al *AuditLogger) LogBlockAction(eventType, email, actor string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "block"),
		slog.String("event_type", eventType),
		slog.String("email", SanitizedEmail(email)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if actor != "" {
		attrs = append(attrs, slog.String("actor", SanitizedEmail(actor)))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// LogLedgerDecision logs an admin approve/reject on a ledger entry
func (al *AuditLogger) LogLedgerDecision(decision, subscriptionID, email, resourceID string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "ledger"),
		slog.String("event_type", decision),
		slog.String("subscription_id", subscriptionID),
		slog.String("email", SanitizedEmail(email)),
		slog.String("resource_id", resourceID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
