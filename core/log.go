package core

import (
	"os"

	"github.com/rs/zerolog"
)

type Log interface {
	Info() *zerolog.Event
	Debug() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// NewLogger returns a pointer because zerolog declares the level methods on
// *Logger; only the pointer satisfies Log.
func NewLogger(level string) *zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	return &logger
}

// NopLogger is the Log used when callers do not supply one.
func NopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}
