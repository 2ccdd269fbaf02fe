package tts

import (
	"log/slog"
	"time"
)

// Config holds configuration for the Command backend.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Binary is the speech command, e.g. "say" or "espeak-ng".
	Binary string

	// BaseWPM is the command's words per minute at Rate 1.0.
	BaseWPM int

	// ListTimeout bounds the voice listing command.
	ListTimeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring synthesizers.
type Option func(*Config)

// WithBinary sets the speech command.
func WithBinary(binary string) Option {
	return func(c *Config) {
		c.Binary = binary
	}
}

// WithBaseWPM sets the speaking rate that Rate 1.0 maps to.
func WithBaseWPM(wpm int) Option {
	return func(c *Config) {
		c.BaseWPM = wpm
	}
}

// WithListTimeout sets the timeout for listing voices.
func WithListTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ListTimeout = timeout
	}
}

// WithLogger sets the structured logger for the synthesizer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseWPM:     175, // natural rate for both say and espeak
		ListTimeout: 5 * time.Second,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Binary == "" {
		return ErrNoBinary
	}
	return nil
}
