package stt

import (
	"sync"
	"time"
)

// Mock implements Recognizer for testing.
// Events are injected with EmitResult and EmitError and delivered
// synchronously to the handler of the active session.
type Mock struct {
	// StartFunc is called when Start is invoked.
	// If nil, Start succeeds unless a session is active.
	StartFunc func(cfg Config) error

	// StopFunc is called when Stop is invoked.
	// If nil, Stop succeeds.
	StopFunc func() error

	mu      sync.Mutex
	handler Handler
	config  Config
	calls   []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock recognizer.
func NewMock() *Mock {
	return &Mock{}
}

// Start records the call and remembers h as the active handler.
func (m *Mock) Start(cfg Config, h Handler) error {
	m.recordCall("Start")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		return ErrAlreadyStarted
	}
	if m.StartFunc != nil {
		if err := m.StartFunc(cfg); err != nil {
			return err
		}
	}
	m.handler = h
	m.config = cfg
	return nil
}

// Stop records the call and ends the active session.
func (m *Mock) Stop() error {
	m.recordCall("Stop")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StopFunc != nil {
		if err := m.StopFunc(); err != nil {
			return err
		}
	}
	if m.handler == nil {
		return ErrNotStarted
	}
	m.handler = nil
	return nil
}

// Active reports whether a session is running.
func (m *Mock) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

// Config returns the configuration of the last successful Start.
func (m *Mock) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Handler returns the active handler, or nil.
func (m *Mock) Handler() Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler
}

// EmitResult delivers ev to the active session. It reports false when no
// session is active.
func (m *Mock) EmitResult(ev ResultEvent) bool {
	h := m.Handler()
	if h == nil {
		return false
	}
	h.OnResult(ev)
	return true
}

// EmitError delivers ev to the active session. It reports false when no
// session is active.
func (m *Mock) EmitError(ev ErrorEvent) bool {
	h := m.Handler()
	if h == nil {
		return false
	}
	h.OnError(ev)
	return true
}

func (m *Mock) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
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

// Verify Mock implements Recognizer at compile time.
var _ Recognizer = (*Mock)(nil)
