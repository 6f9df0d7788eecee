// Package logging builds the service's zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON  = "json"
	FormatPlain = "plain"
)

// New returns a logger writing to w. An empty level or format falls back to
// the environment default: info and json in production, debug and plain
// console output elsewhere.
func New(format, level string, w io.Writer) (zerolog.Logger, error) {
	if format == "" {
		format = defaultFormat()
	}
	if level == "" {
		level = defaultLevel()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case FormatJSON:
	case FormatPlain, "text", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: true}
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// EnvironmentName returns the detected runtime environment.
func EnvironmentName() string {
	for _, key := range []string{"ENV", "GO_ENV", "ENVIRONMENT", "APP_ENV"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "kubernetes"
	}
	return "development"
}

func isProduction() bool {
	env := strings.ToLower(EnvironmentName())
	return strings.HasPrefix(env, "prod") || os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

func defaultFormat() string {
	if isProduction() {
		return FormatJSON
	}
	return FormatPlain
}

func defaultLevel() string {
	if isProduction() {
		return "info"
	}
	return "debug"
}
