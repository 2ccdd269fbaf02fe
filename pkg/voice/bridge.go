package voice

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/eventloop"
	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
)

// availability is implemented by capabilities that can be present but
// temporarily unreachable.
type availability interface {
	Available() bool
}

// Bridge coordinates recognition and synthesis with a chat session.
type Bridge struct {
	loop        *eventloop.Loop
	session     *chat.Session
	recognizer  stt.Recognizer
	synthesizer tts.Synthesizer

	language     string
	onTranscript func(string) error
	logger       *slog.Logger

	mu         sync.RWMutex
	state      State
	muted      bool
	lastErr    string
	interim    string
	generation uint64
	closed     bool

	// loop-only
	wasProcessing bool
	unsubscribe   func()

	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn func(Status)
}

// NewBridge wires a bridge to session. recognizer and synthesizer may be nil
// when the capability is missing; pass an untyped nil, not a nil pointer.
func NewBridge(loop *eventloop.Loop, session *chat.Session, recognizer stt.Recognizer, synthesizer tts.Synthesizer, opts ...Option) *Bridge {
	b := &Bridge{
		loop:        loop,
		session:     session,
		recognizer:  recognizer,
		synthesizer: synthesizer,
		language:    stt.DefaultLanguage,
		logger:      slog.Default().With("component", "voice.bridge"),
	}
	b.onTranscript = session.SendUserMessage
	for _, opt := range opts {
		opt(b)
	}

	b.wasProcessing = session.Snapshot().IsProcessing
	b.unsubscribe = session.Subscribe(b.onSessionChange)

	b.logger.Info("voice bridge ready",
		"recognition", recognizer != nil,
		"synthesis", synthesizer != nil,
	)
	return b
}

// StartListening begins a recognition session. It is a no-op when
// recognition is unavailable or already running.
func (b *Bridge) StartListening() error {
	return b.loop.Post(b.startListening)
}

// StopListening ends the active recognition session, if any.
func (b *Bridge) StopListening() error {
	return b.loop.Post(b.stopListening)
}

// ToggleListening starts listening when idle and stops it otherwise.
func (b *Bridge) ToggleListening() error {
	return b.loop.Post(func() {
		if b.currentState() == Listening {
			b.stopListening()
			return
		}
		b.startListening()
	})
}

// SetMuted enables or disables auto-speak. An utterance already playing is
// not interrupted.
func (b *Bridge) SetMuted(muted bool) error {
	return b.loop.Post(func() { b.setMuted(muted) })
}

// ToggleMute flips the mute flag.
func (b *Bridge) ToggleMute() error {
	return b.loop.Post(func() {
		b.mu.RLock()
		muted := b.muted
		b.mu.RUnlock()
		b.setMuted(!muted)
	})
}

// Close detaches the bridge from the session and stops an active
// recognition session. Safe to call more than once. When the loop has
// already stopped, Close runs on the calling goroutine.
func (b *Bridge) Close() {
	if err := b.loop.Post(b.close); errors.Is(err, eventloop.ErrStopped) {
		b.close()
	}
}

// Status returns a snapshot of the bridge. Safe from any goroutine.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		State:                b.state,
		Muted:                b.muted,
		RecognitionAvailable: capable(b.recognizer),
		SynthesisAvailable:   capable(b.synthesizer),
		LastError:            b.lastErr,
		Interim:              b.interim,
	}
}

// Subscribe registers fn to be called on the loop after every status change.
// The returned function removes the subscription.
func (b *Bridge) Subscribe(fn func(Status)) func() {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.nextObs++
	id := b.nextObs
	b.observers = append(b.observers, observer{id: id, fn: fn})
	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		b.observers = lo.Reject(b.observers, func(o observer, _ int) bool { return o.id == id })
	}
}

func (b *Bridge) startListening() {
	b.mu.Lock()
	if b.closed || b.state == Listening {
		b.mu.Unlock()
		return
	}
	if b.recognizer == nil {
		b.mu.Unlock()
		b.logger.Debug("recognition unavailable, ignoring start")
		return
	}
	b.generation++
	gen := b.generation
	b.mu.Unlock()

	cfg := stt.Config{
		Continuous:     true,
		InterimResults: true,
		Language:       b.language,
	}
	if err := b.recognizer.Start(cfg, b.handlerFor(gen)); err != nil {
		if errors.Is(err, stt.ErrUnavailable) {
			b.logger.Info("recognition unavailable", "error", err)
		} else {
			b.logger.Warn("failed to start recognition", "error", err)
		}
		b.mu.Lock()
		b.lastErr = err.Error()
		b.mu.Unlock()
		b.notify()
		return
	}

	b.mu.Lock()
	b.state = Listening
	b.interim = ""
	b.lastErr = ""
	b.mu.Unlock()

	b.logger.Debug("listening started", "generation", gen)
	b.notify()
}

// stopListening moves Listening to Idle and stops the recognizer. Events
// from the finished session become stale.
func (b *Bridge) stopListening() {
	b.mu.Lock()
	if b.state != Listening {
		b.mu.Unlock()
		return
	}
	b.state = Idle
	b.interim = ""
	b.generation++
	b.mu.Unlock()

	if err := b.recognizer.Stop(); err != nil && !errors.Is(err, stt.ErrNotStarted) {
		b.logger.Debug("recognizer stop", "error", err)
	}

	b.logger.Debug("listening stopped")
	b.notify()
}

func (b *Bridge) handlerFor(gen uint64) stt.Handler {
	return stt.HandlerFuncs{
		Result: func(ev stt.ResultEvent) {
			b.post(func() { b.handleResult(gen, ev) })
		},
		Error: func(ev stt.ErrorEvent) {
			b.post(func() { b.handleError(gen, ev) })
		},
	}
}

func (b *Bridge) handleResult(gen uint64, ev stt.ResultEvent) {
	if !b.current(gen) {
		b.logger.Debug("dropping stale recognition result", "generation", gen)
		return
	}

	transcript := ev.Transcript()
	if !ev.Final() {
		b.mu.Lock()
		b.interim = transcript
		b.mu.Unlock()
		b.notify()
		return
	}

	b.logger.Info("transcript", "chars", len(transcript))
	if err := b.onTranscript(transcript); err != nil {
		b.logger.Warn("failed to deliver transcript", "error", err)
	}
	b.stopListening()
}

func (b *Bridge) handleError(gen uint64, ev stt.ErrorEvent) {
	if !b.current(gen) {
		b.logger.Debug("dropping stale recognition error", "generation", gen, "code", ev.Code)
		return
	}

	b.logger.Warn("speech recognition error", "code", ev.Code, "message", ev.Message)

	b.mu.Lock()
	b.lastErr = ev.Error()
	b.mu.Unlock()

	b.stopListening()
}

// onSessionChange speaks the newest assistant message when a reply lands.
func (b *Bridge) onSessionChange(change chat.Change) {
	if change.Kind != chat.ChangeProcessing {
		return
	}
	finished := b.wasProcessing && !change.State.IsProcessing
	b.wasProcessing = change.State.IsProcessing
	if finished {
		b.speakLatest()
	}
}

func (b *Bridge) speakLatest() {
	if b.synthesizer == nil {
		return
	}

	b.mu.RLock()
	muted, closed := b.muted, b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	if muted {
		b.logger.Debug("muted, not speaking")
		return
	}

	msg, ok := b.session.LastAssistantMessage()
	if !ok {
		return
	}

	if err := b.synthesizer.Cancel(); err != nil {
		b.logger.Debug("cancel speech", "error", err)
	}

	u := tts.NewUtterance(msg.Text)
	u.Language = b.language
	u.Voice = tts.SelectVoice(b.synthesizer.Voices())

	if err := b.synthesizer.Speak(u); err != nil {
		if errors.Is(err, tts.ErrUnavailable) {
			b.logger.Debug("synthesis unavailable", "error", err)
			return
		}
		b.logger.Warn("failed to speak", "error", err)
		return
	}
	b.logger.Debug("speaking", "chars", len(u.Text), "voice", voiceName(u.Voice))
}

func (b *Bridge) setMuted(muted bool) {
	b.mu.Lock()
	changed := b.muted != muted
	b.muted = muted
	b.mu.Unlock()

	if changed {
		b.logger.Debug("mute changed", "muted", muted)
		b.notify()
	}
}

func (b *Bridge) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.stopListening()
}

func (b *Bridge) current(gen uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == Listening && b.generation == gen
}

func (b *Bridge) currentState() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bridge) post(fn func()) {
	if err := b.loop.Post(fn); err != nil {
		b.logger.Debug("dropping recognition event", "error", err)
	}
}

func (b *Bridge) notify() {
	status := b.Status()

	b.obsMu.Lock()
	observers := make([]observer, len(b.observers))
	copy(observers, b.observers)
	b.obsMu.Unlock()

	for _, o := range observers {
		o.fn(status)
	}
}

func capable(c any) bool {
	if c == nil {
		return false
	}
	if a, ok := c.(availability); ok {
		return a.Available()
	}
	return true
}

func voiceName(v *tts.Voice) string {
	if v == nil {
		return ""
	}
	return v.Name
}
