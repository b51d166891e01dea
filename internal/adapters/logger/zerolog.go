// Package logger adapts zerolog to the ports.Logger interface.
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"cryptoSignalBot/internal/ports"
)

// ZeroLogger implements ports.Logger on top of a zerolog.Logger.
type ZeroLogger struct {
	log zerolog.Logger
}

// ParseLevel converts a string level to a zerolog level, defaulting to info.
func ParseLevel(levelStr string) zerolog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing JSON lines to stderr at the given level.
func New(level zerolog.Level) *ZeroLogger {
	zl := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return &ZeroLogger{log: zl}
}

// NewWithLogger wraps an existing zerolog.Logger. Used by tests to capture
// output.
func NewWithLogger(zl zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: zl}
}

func applyFields(ev *zerolog.Event, fields []map[string]interface{}) *zerolog.Event {
	for _, m := range fields {
		for k, v := range m {
			ev = ev.Interface(k, v)
		}
	}
	return ev
}

func (z *ZeroLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	applyFields(z.log.Debug(), fields).Msg(msg)
}

func (z *ZeroLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	applyFields(z.log.Info(), fields).Msg(msg)
}

func (z *ZeroLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	applyFields(z.log.Warn(), fields).Msg(msg)
}

func (z *ZeroLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	applyFields(z.log.Error().Err(err), fields).Msg(msg)
}

var _ ports.Logger = (*ZeroLogger)(nil)
