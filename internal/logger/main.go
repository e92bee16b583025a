// Package logger initialises the global zerolog logger used by every package.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelWriter routes events to one writer per severity:
// trace, debug and info, warn, error and above.
type LevelWriter struct {
	io.Writer
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	TraceWriter io.Writer
	WarnWriter  io.Writer
}

// WriteLevel implements zerolog.LevelWriter.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	var w io.Writer

	switch {
	case l == zerolog.Disabled:
		return 0, nil
	case l == zerolog.TraceLevel:
		w = lw.TraceWriter
	case l == zerolog.WarnLevel:
		w = lw.WarnWriter
	case l > zerolog.WarnLevel:
		w = lw.ErrorWriter
	default:
		w = lw.InfoWriter
	}

	return w.Write(p) //nolint:wrapcheck
}

// Init configures the global logger from cfg.
// Every event carries the app name and, when set, the environment.
// With no writer enabled nothing is written.
func Init(cfg Log) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("log level %q", cfg.LogLevel))
	}

	switch {
	case cfg.ServiceName == "":
		return ErrMissingServiceName
	case cfg.AppName == "":
		return ErrMissingAppName
	}

	zerolog.SetGlobalLevel(level)
	zerolog.ErrorHandler = reportWriteFailure //nolint:reassign

	var writers []io.Writer

	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		if fw := newRollingInfoErrorFile(cfg); fw != nil {
			writers = append(writers, fw)
		}
	}

	lc := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Hook(newLevelCounter(cfg.ServiceName)).
		With().Timestamp().Str("app", cfg.AppName)

	if cfg.LogEnv != "" {
		lc = lc.Str("env", cfg.LogEnv)
	}

	// stack traces of pkg/errors values are only worth their size at trace level
	if level == zerolog.TraceLevel {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
		lc = lc.Stack()
	}

	if cfg.ReportCaller {
		lc = lc.Caller()
	}

	log.Logger = lc.Logger()

	return nil
}

// rolling returns a lumberjack file under dir.
func rolling(dir, name string, maxSize, maxAge, maxBackups int) io.Writer {
	return &lumberjack.Logger{
		Filename:   path.Join(dir, name),
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
	}
}

// newRollingInfoErrorFile writes each severity to its own rotated file.
// It returns nil when the log directory can not be created.
func newRollingInfoErrorFile(cfg Log) io.Writer {
	f := cfg.File

	if err := os.MkdirAll(f.Path, 0o750); err != nil { //nolint: mnd
		log.Error().Err(err).Str("path", f.Path).Msg("log directory not usable, file logging disabled")
		return nil
	}

	return &LevelWriter{
		ErrorWriter: rolling(f.Path, f.ErrorLog, f.ErrorMaxSize, f.ErrorMaxAge, f.ErrorMaxBackups),
		InfoWriter:  rolling(f.Path, f.InfoLog, f.InfoMaxSize, f.InfoMaxAge, f.InfoMaxBackups),
		TraceWriter: rolling(f.Path, f.TraceLog, f.TraceMaxSize, f.TraceMaxAge, f.TraceMaxBackups),
		WarnWriter:  rolling(f.Path, f.WarnLog, f.WarnMaxSize, f.WarnMaxAge, f.WarnMaxBackups),
	}
}

// NewConsoleWriter writes info and debug to stdout and everything else to stderr,
// as JSON or, with Console.UseConsoleWriter, human readable.
func NewConsoleWriter(cfg Log) io.Writer {
	out := func(w io.Writer) io.Writer {
		if !cfg.Console.UseConsoleWriter {
			return w
		}

		return zerolog.ConsoleWriter{Out: w, TimeFormat: zerolog.TimeFieldFormat}
	}

	return &LevelWriter{
		ErrorWriter: out(os.Stderr),
		InfoWriter:  out(os.Stdout),
		TraceWriter: out(os.Stderr),
		WarnWriter:  out(os.Stderr),
	}
}
