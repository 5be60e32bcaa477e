// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs a zerolog logger at the given level writing to w. If w
// is nil, os.Stderr is used.
func Init(level zerolog.Level, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("log level set to DEBUG")
	}
}

// ParseLevel maps a config string to a zerolog.Level, defaulting to
// info on anything unrecognized.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
