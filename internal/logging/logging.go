package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every deployctl log line.
const (
	LogFieldAppName   = "app"
	LogFieldAttemptID = "attempt"
	LogFieldPhase     = "phase"
	LogFieldTag       = "tag"
)

type Config struct {
	Debug      bool
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global zerolog logger and returns it.
func Init(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.JSONOutput {
		logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.TimeOnly,
		}).With().Timestamp().Logger()
	}
	log.Logger = logger
	return logger
}

// ForAttempt returns a child logger tagged with the app and attempt id.
func ForAttempt(logger zerolog.Logger, appName, attemptID string) zerolog.Logger {
	return logger.With().
		Str(LogFieldAppName, appName).
		Str(LogFieldAttemptID, attemptID).
		Logger()
}
