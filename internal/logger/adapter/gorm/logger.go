// Package gorm adapts the global zerolog logger to gorm's logger interface.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold marks queries slower than this as warnings.
const DefaultSlowThreshold = 200 * time.Millisecond

// Logger writes gorm statements through zerolog.
type Logger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logger        func() *zerolog.Logger
}

// New returns a gorm logger writing to the global zerolog logger.
// Record-not-found errors are never logged, stores translate them into domain errors.
func New(level gormlogger.LogLevel) *Logger {
	return &Logger{
		level:         level,
		slowThreshold: DefaultSlowThreshold,
		logger:        func() *zerolog.Logger { return &log.Logger },
	}
}

// WithLogger returns a copy writing to l instead of the global logger.
func (g *Logger) WithLogger(l zerolog.Logger) *Logger {
	out := *g
	out.logger = func() *zerolog.Logger { return &l }

	return &out
}

// LogMode implements gormlogger.Interface.
func (g *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *g
	out.level = level

	return &out
}

// Info implements gormlogger.Interface.
func (g *Logger) Info(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.logger().Info().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Warn implements gormlogger.Interface.
func (g *Logger) Warn(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.logger().Warn().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Error implements gormlogger.Interface.
func (g *Logger) Error(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.logger().Error().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Trace implements gormlogger.Interface.
func (g *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		g.logger().Error().Err(err).Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logger().Warn().Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logger().Debug().Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
