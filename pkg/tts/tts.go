// Package tts defines the speech synthesis capability the voice bridge
// consumes, plus the backends that implement it.
//
// A Synthesizer is a process-wide engine with a single output: speaking a new
// utterance after Cancel replaces whatever was playing. Backends include the
// OS speech command (Command) and, in package web, a connected browser tab.
//
// Example usage:
//
//	synth := tts.DetectCommand()
//	if synth == nil {
//	    return // synthesis unavailable on this host
//	}
//
//	u := tts.NewUtterance("Hello world")
//	u.Voice = tts.SelectVoice(synth.Voices())
//	_ = synth.Cancel()
//	_ = synth.Speak(u)
package tts

// DefaultLanguage is the utterance language.
const DefaultLanguage = "en-US"

// Neutral prosody. Pitch and rate are multipliers; volume is 0.0-1.0.
const (
	DefaultPitch  = 1.0
	DefaultRate   = 1.0
	DefaultVolume = 1.0
)

// Synthesizer is the text-to-speech capability.
type Synthesizer interface {
	// Speak enqueues u. Callers cancel first for last-write-wins output.
	Speak(u Utterance) error

	// Cancel drops the current and all pending utterances.
	Cancel() error

	// Voices lists the voices the engine offers. It may be empty.
	Voices() []Voice
}

// Utterance is one request to speak.
type Utterance struct {
	Text     string  `json:"text"`
	Language string  `json:"lang"`
	Pitch    float64 `json:"pitch"`
	Rate     float64 `json:"rate"`
	Volume   float64 `json:"volume"`

	// Voice selects a specific voice. Nil uses the engine default.
	Voice *Voice `json:"voice,omitempty"`
}

// NewUtterance returns an utterance with neutral prosody in en-US.
func NewUtterance(text string) Utterance {
	return Utterance{
		Text:     text,
		Language: DefaultLanguage,
		Pitch:    DefaultPitch,
		Rate:     DefaultRate,
		Volume:   DefaultVolume,
	}
}

// Voice describes a voice offered by an engine.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"lang,omitempty"`
	Default  bool   `json:"default,omitempty"`
}
