// Package logging builds the component loggers used across the service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartmove/internal/config"
)

// New returns a logger tagged with component. Output is human readable when
// APP_ENV=dev or the format is "console", JSON otherwise.
func New(component string, cfg config.LoggingConfig) zerolog.Logger {
	return NewWithWriter(os.Stdout, component, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component string, cfg config.LoggingConfig) zerolog.Logger {
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
}
