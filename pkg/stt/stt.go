// Package stt defines the speech recognition capability the voice bridge
// consumes.
//
// A Recognizer is a process-wide engine: one recognition session at a time.
// Results and errors are delivered asynchronously through a Handler, in the
// order they were recognized.
//
// Example usage:
//
//	err := recognizer.Start(stt.DefaultConfig(), stt.HandlerFuncs{
//	    Result: func(ev stt.ResultEvent) {
//	        if ev.Final() {
//	            fmt.Println("heard:", ev.Transcript())
//	        }
//	    },
//	    Error: func(ev stt.ErrorEvent) {
//	        fmt.Println("recognition error:", ev.Code)
//	    },
//	})
package stt

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultLanguage is the recognition language.
const DefaultLanguage = "en-US"

// Config configures a recognition session.
type Config struct {
	// Continuous keeps capturing after the first result.
	Continuous bool `json:"continuous"`

	// InterimResults delivers non-final hypotheses as they form.
	InterimResults bool `json:"interimResults"`

	// Language is a BCP 47 tag such as "en-US".
	Language string `json:"lang"`
}

// DefaultConfig returns continuous capture with interim results in en-US.
func DefaultConfig() Config {
	return Config{
		Continuous:     true,
		InterimResults: true,
		Language:       DefaultLanguage,
	}
}

// Recognizer is the speech-to-text capability.
type Recognizer interface {
	// Start begins a recognition session and delivers events to h until
	// Stop is called or the engine ends the session.
	Start(cfg Config, h Handler) error

	// Stop halts capture for the active session.
	Stop() error
}

// Handler receives recognition events.
type Handler interface {
	OnResult(ev ResultEvent)
	OnError(ev ErrorEvent)
}

// HandlerFuncs adapts a pair of functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Result func(ev ResultEvent)
	Error  func(ev ErrorEvent)
}

// OnResult calls Result.
func (h HandlerFuncs) OnResult(ev ResultEvent) {
	if h.Result != nil {
		h.Result(ev)
	}
}

// OnError calls Error.
func (h HandlerFuncs) OnError(ev ErrorEvent) {
	if h.Error != nil {
		h.Error(ev)
	}
}

// Alternative is one hypothesis for a stretch of speech.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Result is one recognized stretch of speech with its hypotheses, best first.
type Result struct {
	Alternatives []Alternative `json:"alternatives"`
	IsFinal      bool          `json:"isFinal"`
}

// Top returns the best hypothesis, or "" when there is none.
func (r Result) Top() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// ResultEvent carries every result of the session so far.
type ResultEvent struct {
	Results []Result `json:"results"`
}

// Transcript joins the top hypothesis of every result.
func (e ResultEvent) Transcript() string {
	return strings.Join(lo.Map(e.Results, func(r Result, _ int) string { return r.Top() }), "")
}

// Final reports whether any result is final.
func (e ResultEvent) Final() bool {
	return lo.SomeBy(e.Results, func(r Result) bool { return r.IsFinal })
}

// NewResultEvent builds an event holding a single result with one hypothesis.
func NewResultEvent(transcript string, final bool) ResultEvent {
	return ResultEvent{Results: []Result{{
		Alternatives: []Alternative{{Transcript: transcript, Confidence: 1}},
		IsFinal:      final,
	}}}
}

// ErrorEvent reports a recognition failure. Code follows the engine's own
// vocabulary, e.g. "no-speech", "audio-capture", "not-allowed".
type ErrorEvent struct {
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e ErrorEvent) Error() string {
	if e.Message != "" {
		return "stt: " + e.Code + ": " + e.Message
	}
	return "stt: " + e.Code
}
