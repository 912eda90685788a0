package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// logger wraps zerolog for structured logging.
type logger struct {
	z zerolog.Logger
}

// newLogger creates a logger with console output at info level.
func newLogger() *logger {
	noColor := os.Getenv("NO_COLOR") != ""
	if fi, err := os.Stderr.Stat(); err == nil && (fi.Mode()&os.ModeCharDevice) == 0 {
		noColor = true
	}

	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	zl := zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	return &logger{z: zl}
}

// nopLogger discards everything. Used by tests.
func nopLogger() *logger {
	return &logger{z: zerolog.Nop()}
}

// setVerbose switches debug output on or off.
func (l *logger) setVerbose(v bool) {
	if v {
		l.z = l.z.Level(zerolog.DebugLevel)
		return
	}
	l.z = l.z.Level(zerolog.InfoLevel)
}

func (l *logger) debug(msg string) { l.z.Debug().Msg(msg) }
func (l *logger) info(msg string)  { l.z.Info().Msg(msg) }
func (l *logger) warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *logger) ok(msg string)    { l.z.Info().Msg(msg) }
func (l *logger) err(msg string)   { l.z.Error().Msg(msg) }

func (l *logger) debugf(format string, args ...any) {
	if l.z.GetLevel() > zerolog.DebugLevel {
		return
	}
	l.debug(fmt.Sprintf(format, args...))
}
func (l *logger) infof(format string, args ...any) { l.info(fmt.Sprintf(format, args...)) }
func (l *logger) warnf(format string, args ...any) { l.warn(fmt.Sprintf(format, args...)) }
func (l *logger) okf(format string, args ...any)   { l.ok(fmt.Sprintf(format, args...)) }
