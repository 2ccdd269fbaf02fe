package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/teslashibe/go-companion/pkg/avatar"
	"github.com/teslashibe/go-companion/pkg/eventloop"
)

// State is a copy of the session state handed to hosts and observers.
type State struct {
	Messages             []Message `json:"messages"`
	IsProcessing         bool      `json:"isProcessing"`
	CustomAvatar         string    `json:"customAvatar,omitempty"`
	ShowAvatarCustomizer bool      `json:"showAvatarCustomizer"`
}

// ChangeKind identifies which part of the state changed.
type ChangeKind int

const (
	// ChangeMessages means a message was appended.
	ChangeMessages ChangeKind = iota
	// ChangeProcessing means IsProcessing flipped.
	ChangeProcessing
	// ChangeAvatar means the avatar or the customizer visibility changed.
	ChangeAvatar
)

// String returns a human-readable change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeMessages:
		return "messages"
	case ChangeProcessing:
		return "processing"
	case ChangeAvatar:
		return "avatar"
	default:
		return "unknown"
	}
}

// Change is delivered to observers after every mutation.
type Change struct {
	Kind  ChangeKind
	State State
}

// Option configures a Session.
type Option func(*Session)

// WithResponder sets the reply generator. Defaults to Canned(DefaultReply).
func WithResponder(r Responder) Option {
	return func(s *Session) {
		s.responder = r
	}
}

// WithResponseDelay sets how long a reply takes to arrive.
func WithResponseDelay(d time.Duration) Option {
	return func(s *Session) {
		s.delay = d
	}
}

// WithGreeting sets the assistant message the thread opens with.
// An empty greeting starts with an empty thread.
func WithGreeting(text string) Option {
	return func(s *Session) {
		s.greeting = text
	}
}

// WithLogger sets the structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is the composition root for one conversation.
//
// Sends made while a reply is pending are queued: each gets exactly one
// reply, in order, and IsProcessing stays true until the last reply lands.
type Session struct {
	loop      *eventloop.Loop
	responder Responder
	delay     time.Duration
	greeting  string
	logger    *slog.Logger

	mu         sync.RWMutex
	messages   []Message
	processing bool
	avatar     avatar.Selector
	pending    []string
	timer      eventloop.Timer
	closed     bool

	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn func(Change)
}

// NewSession creates a session whose thread starts with the greeting.
func NewSession(loop *eventloop.Loop, opts ...Option) *Session {
	s := &Session{
		loop:      loop,
		responder: Canned(DefaultReply),
		delay:     DefaultResponseDelay,
		greeting:  DefaultGreeting,
		logger:    slog.Default().With("component", "chat.session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.greeting != "" {
		s.messages = append(s.messages, NewAssistantMessage(s.greeting, loop.Now()))
	}
	return s
}

// SendUserMessage appends a user message, sets IsProcessing and schedules
// the reply. Empty text is accepted.
func (s *Session) SendUserMessage(text string) error {
	return s.loop.Post(func() { s.sendUserMessage(text) })
}

// SelectAvatar sets the active avatar and closes the customizer.
func (s *Session) SelectAvatar(ref string) error {
	return s.loop.Post(func() {
		s.mutateAvatar(func(a *avatar.Selector) { a.Select(ref) })
	})
}

// OpenCustomizer shows the avatar customizer.
func (s *Session) OpenCustomizer() error {
	return s.loop.Post(func() {
		s.mutateAvatar((*avatar.Selector).Open)
	})
}

// CloseCustomizer hides the avatar customizer without changing the avatar.
func (s *Session) CloseCustomizer() error {
	return s.loop.Post(func() {
		s.mutateAvatar((*avatar.Selector).Close)
	})
}

// Snapshot returns a copy of the current state. Safe from any goroutine.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// LastAssistantMessage returns the most recent assistant message.
func (s *Session) LastAssistantMessage() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, _, ok := lo.FindLastIndexOf(s.messages, func(m Message) bool { return !m.IsUser })
	return msg, ok
}

// Subscribe registers fn to be called on the loop after every change.
// The returned function removes the subscription.
func (s *Session) Subscribe(fn func(Change)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		s.observers = lo.Reject(s.observers, func(o observer, _ int) bool { return o.id == id })
	}
}

// Close cancels a pending reply. Queued sends are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.pending) > 0 {
		s.logger.Debug("dropping pending replies", "count", len(s.pending))
	}
	s.pending = nil
}

func (s *Session) sendUserMessage(text string) {
	msg := NewUserMessage(text, s.loop.Now())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, msg)
	s.pending = append(s.pending, text)
	startReply := len(s.pending) == 1
	wasProcessing := s.processing
	s.processing = true
	s.mu.Unlock()

	s.logger.Debug("user message", "chars", len(text), "queued", !startReply)

	s.notify(ChangeMessages)
	if !wasProcessing {
		s.notify(ChangeProcessing)
	}
	if startReply {
		s.scheduleResponse()
	}
}

func (s *Session) scheduleResponse() {
	timer := s.loop.AfterFunc(s.delay, s.generateResponse)

	s.mu.Lock()
	s.timer = timer
	s.mu.Unlock()
}

// generateResponse answers the oldest pending send.
func (s *Session) generateResponse() {
	s.mu.Lock()
	if s.closed || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	prompt := s.pending[0]
	s.mu.Unlock()

	reply := NewAssistantMessage(s.responder.Reply(prompt), s.loop.Now())

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.pending = s.pending[1:]
	more := len(s.pending) > 0
	s.timer = nil
	if !more {
		s.processing = false
	}
	s.mu.Unlock()

	s.logger.Debug("assistant reply", "chars", len(reply.Text), "remaining", len(s.pending))

	s.notify(ChangeMessages)
	if more {
		s.scheduleResponse()
		return
	}
	s.notify(ChangeProcessing)
}

func (s *Session) mutateAvatar(fn func(*avatar.Selector)) {
	s.mu.Lock()
	before := s.avatar
	fn(&s.avatar)
	changed := before != s.avatar
	s.mu.Unlock()

	if changed {
		s.notify(ChangeAvatar)
	}
}

func (s *Session) notify(kind ChangeKind) {
	change := Change{Kind: kind, State: s.Snapshot()}

	s.obsMu.Lock()
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, o := range observers {
		o.fn(change)
	}
}

func (s *Session) snapshotLocked() State {
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return State{
		Messages:             messages,
		IsProcessing:         s.processing,
		CustomAvatar:         s.avatar.Current(),
		ShowAvatarCustomizer: s.avatar.Visible(),
	}
}
