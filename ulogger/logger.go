// Package ulogger provides the structured-logging interface used by every
// component in this module. It mirrors the call surface the teacher
// repository's own ulogger.Logger exposes at its call sites (model.Block,
// services/validator, ...), backed here by zerolog.
package ulogger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LogLevel selects the minimum severity that is emitted.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// Logger is the structured-logging surface every package depends on. It is
// always passed explicitly (never a global), matching the teacher's
// ctx-first, logger-second call convention.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	LogLevel() LogLevel

	// New returns a derived logger tagged with an additional component
	// name, e.g. logger.New("mempool").
	New(component string) Logger
}

type zerologLogger struct {
	log   zerolog.Logger
	level LogLevel
}

// New constructs a Logger writing to w (os.Stderr if nil) at the given
// level, tagged with service as the top-level component name.
func New(service string, level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	zl = zl.Level(toZerologLevel(level))
	return &zerologLogger{log: zl, level: level}
}

func toZerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *zerologLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologLogger) Fatalf(format string, args ...interface{}) {
	l.log.Fatal().Msgf(format, args...)
}

func (l *zerologLogger) LogLevel() LogLevel {
	return l.level
}

func (l *zerologLogger) New(component string) Logger {
	return &zerologLogger{
		log:   l.log.With().Str("component", component).Logger(),
		level: l.level,
	}
}

// Nop returns a Logger that discards everything, for use in tests.
func Nop() Logger {
	return New("nop", LogLevelFatal+1, io.Discard)
}
