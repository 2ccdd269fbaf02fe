package tts

import (
	"sync"
	"time"
)

// Mock implements Synthesizer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SpeakFunc is called when Speak is invoked.
	// If nil, the utterance becomes the one currently speaking.
	SpeakFunc func(u Utterance) error

	// CancelFunc is called when Cancel is invoked.
	// If nil, returns nil.
	CancelFunc func() error

	// VoicesFunc is called when Voices is invoked.
	// If nil, returns no voices.
	VoicesFunc func() []Voice

	// Tracking
	mu       sync.Mutex
	calls    []MockCall
	spoken   []Utterance
	speaking *Utterance
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// NewMock creates a new mock synthesizer offering voices.
func NewMock(voices ...Voice) *Mock {
	m := &Mock{}
	if len(voices) > 0 {
		m.VoicesFunc = func() []Voice { return voices }
	}
	return m
}

// Speak calls SpeakFunc and records the call.
func (m *Mock) Speak(u Utterance) error {
	m.recordCall("Speak", u.Text)
	if m.SpeakFunc != nil {
		if err := m.SpeakFunc(u); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, u)
	m.speaking = &u
	return nil
}

// Cancel calls CancelFunc and records the call.
func (m *Mock) Cancel() error {
	m.recordCall("Cancel", "")
	if m.CancelFunc != nil {
		if err := m.CancelFunc(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = nil
	return nil
}

// Voices calls VoicesFunc and records the call.
func (m *Mock) Voices() []Voice {
	m.recordCall("Voices", "")
	if m.VoicesFunc != nil {
		return m.VoicesFunc()
	}
	return nil
}

// Speaking returns the utterance that would be audible now, or nil.
func (m *Mock) Speaking() *Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.speaking == nil {
		return nil
	}
	u := *m.speaking
	return &u
}

// Spoken returns every utterance passed to a successful Speak.
func (m *Mock) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Utterance, len(m.spoken))
	copy(result, m.spoken)
	return result
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Text:   text,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls and utterances.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.spoken = nil
	m.speaking = nil
}

// WithError returns a mock whose Speak and Cancel always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SpeakFunc: func(Utterance) error {
			return err
		},
		CancelFunc: func() error {
			return err
		},
	}
}

// Verify Mock implements Synthesizer at compile time.
var _ Synthesizer = (*Mock)(nil)
