// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for the base logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to LOG_LEVEL, then info
	Output  io.Writer // defaults to os.Stderr
	Service string    // attached to every entry
	Console bool      // human-readable output instead of JSON
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the base logger. Only the first call has effect.
func Configure(cfg Config) {
	once.Do(func() {
		base = build(cfg)
	})
}

func build(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	service := cfg.Service
	if service == "" {
		service = "markitdown-web"
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Base returns the configured logger, configuring defaults on first use.
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
