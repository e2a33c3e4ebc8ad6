package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	Logger zerolog.Logger = NewLogger(os.Stderr)
)

func ParseLevel(inlevel string) zerolog.Level {
	switch strings.ToLower(inlevel) {
	case "trace":
		return zerolog.TraceLevel
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

// NewLogger builds a console logger. Levels are applied globally by
// LogInit so copies handed out earlier follow a reload.
func NewLogger(out io.Writer) zerolog.Logger {
	return zerolog.New(
		zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339},
	).With().Timestamp().Caller().Logger()
}

func LogInit(inlevel string) {
	level := ParseLevel(inlevel)
	zerolog.SetGlobalLevel(level)
	Logger.Info().Msgf("logging initialized at level %v", level)
}
