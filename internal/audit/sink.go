package audit

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/db/models"
)

// DBSink appends entries to the audit_entries table.
type DBSink struct {
	db *gorm.DB
}

// NewDBSink creates a database sink.
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

// Name implements Sink.
func (s *DBSink) Name() string { return SinkDB }

// Write implements Sink.
func (s *DBSink) Write(ctx context.Context, e models.AuditEntry) error {
	return s.db.WithContext(ctx).Create(&e).Error
}

// LogSink writes entries to the global logger.
// Denials for a misconfigured requirement are logged at error level, other denials at warn level.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink on the global logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.Logger}
}

// NewLogSinkWithLogger creates a sink on l.
func NewLogSinkWithLogger(l zerolog.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Name implements Sink.
func (s *LogSink) Name() string { return SinkLog }

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, e models.AuditEntry) error {
	var ev *zerolog.Event

	switch {
	case e.Allowed:
		ev = s.logger.Info()
	case e.Reason == string(auth.ReasonRoleNotFound):
		ev = s.logger.Error()
	default:
		ev = s.logger.Warn()
	}

	ev.Str("audit_id", e.ID).
		Str("user_id", e.UserID).
		Str("requirement", e.Requirement).
		Bool("allowed", e.Allowed).
		Str("reason", e.Reason).
		Str("detail", e.Detail).
		Time("decided_at", e.CreatedAt).
		Msg("authorization decision")

	return nil
}
