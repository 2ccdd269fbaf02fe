package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// SessionMsg carries a new session snapshot into the program.
type SessionMsg chat.State

// VoiceMsg carries a new voice status into the program.
type VoiceMsg voice.Status

// feed turns subscription callbacks into tea messages. Each channel holds
// only the latest value, so a busy program never blocks the event loop.
type feed struct {
	session chan chat.State
	voice   chan voice.Status
	done    chan struct{}
	once    sync.Once
}

func newFeed() *feed {
	return &feed{
		session: make(chan chat.State, 1),
		voice:   make(chan voice.Status, 1),
		done:    make(chan struct{}),
	}
}

func (f *feed) pushSession(c chat.Change) {
	offer(f.session, c.State)
}

func (f *feed) pushVoice(s voice.Status) {
	offer(f.voice, s)
}

func (f *feed) close() {
	f.once.Do(func() { close(f.done) })
}

// wait blocks until the next update. Exactly one wait is outstanding at a
// time; Update re-arms it after each message.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-f.session:
			return SessionMsg(s)
		case s := <-f.voice:
			return VoiceMsg(s)
		case <-f.done:
			return nil
		}
	}
}

// offer replaces whatever is buffered in ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
