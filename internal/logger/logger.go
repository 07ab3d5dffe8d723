package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// DefaultConfig logs warnings and above to stderr so command output on
// stdout stays clean for piping.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	}
}

// Setup initializes the global logger. The returned closer releases the log
// file when Output is a path and is a no-op otherwise.
func Setup(cfg LogConfig) (func() error, error) {
	noop := func() error { return nil }

	levelName := strings.ToLower(cfg.Level)
	if levelName == "" {
		levelName = "warn"
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return noop, err
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	closer := noop
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return noop, err
		}
		output = file
		closer = file.Close
	}

	if strings.ToLower(cfg.Format) != "json" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339

	return closer, nil
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
