package voice

import (
	"log/slog"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLanguage sets the recognition and utterance language. Default en-US.
func WithLanguage(lang string) Option {
	return func(b *Bridge) {
		b.language = lang
	}
}

// WithTranscriptHandler replaces the default transcript delivery, which
// sends the transcript to the session as a user message.
func WithTranscriptHandler(fn func(transcript string) error) Option {
	return func(b *Bridge) {
		b.onTranscript = fn
	}
}

// WithLogger sets the structured logger for the bridge.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}
