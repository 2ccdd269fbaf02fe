package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/eventloop"
	"github.com/teslashibe/go-companion/pkg/voice"
)

type fakeVoice struct {
	status       voice.Status
	calls        []string
	unsubscribed bool
}

func (f *fakeVoice) Status() voice.Status { return f.status }

func (f *fakeVoice) Subscribe(func(voice.Status)) func() {
	return func() { f.unsubscribed = true }
}

func (f *fakeVoice) ToggleListening() error {
	f.calls = append(f.calls, "listen")
	return nil
}

func (f *fakeVoice) ToggleMute() error {
	f.calls = append(f.calls, "mute")
	return nil
}

type fixture struct {
	clock   *eventloop.ManualClock
	loop    *eventloop.Loop
	session *chat.Session
	voice   *fakeVoice
	app     *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := eventloop.NewManualClock(time.Unix(1700000000, 0))
	loop := eventloop.New(eventloop.WithClock(clock), eventloop.WithLogger(log.Discard()))
	session := chat.NewSession(loop, chat.WithLogger(log.Discard()))
	v := &fakeVoice{status: voice.Status{RecognitionAvailable: true, SynthesisAvailable: true}}

	app := NewApp(session, WithVoice(v), WithLogger(log.Discard()))
	t.Cleanup(app.Close)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	return &fixture{clock: clock, loop: loop, session: session, voice: v, app: app}
}

func (f *fixture) key(msg tea.KeyMsg) tea.Cmd {
	_, cmd := f.app.Update(msg)
	return cmd
}

func (f *fixture) typeText(text string) {
	f.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// sync runs queued loop tasks and feeds the resulting update to the app.
func (f *fixture) sync(t *testing.T) {
	t.Helper()
	f.loop.RunPending()
	select {
	case s := <-f.app.feed.session:
		f.app.Update(SessionMsg(s))
	default:
		t.Fatal("no session update")
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)

	f.typeText("hello")
	assert.Equal(t, "hello", f.app.input.Value())
	f.key(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, f.app.input.Value())

	f.sync(t)
	require.Len(t, f.app.state.Messages, 2)
	assert.Equal(t, "hello", f.app.state.Messages[1].Text)
	assert.True(t, f.app.state.IsProcessing)
	assert.Contains(t, f.app.statusLine(), "thinking")
	assert.Contains(t, f.app.View(), "you: hello")

	f.clock.Advance(chat.DefaultResponseDelay)
	f.sync(t)
	require.Len(t, f.app.state.Messages, 3)
	assert.False(t, f.app.state.IsProcessing)
	assert.NotContains(t, f.app.statusLine(), "thinking")
}

func TestBlankInputIgnored(t *testing.T) {
	f := newFixture(t)

	f.typeText("   ")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Zero(t, f.loop.RunPending())
	assert.Len(t, f.session.Snapshot().Messages, 1)
}

func TestSendAfterLoopStopped(t *testing.T) {
	f := newFixture(t)
	f.loop.Stop()

	f.typeText("hello")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, f.app.err, eventloop.ErrStopped)
	assert.Equal(t, "hello", f.app.input.Value(), "input kept for retry")
	assert.Contains(t, f.app.statusLine(), "stopped")
}

func TestVoiceKeys(t *testing.T) {
	f := newFixture(t)

	f.key(tea.KeyMsg{Type: tea.KeyCtrlL})
	f.key(tea.KeyMsg{Type: tea.KeyCtrlT})
	f.key(tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Equal(t, []string{"listen", "mute", "listen"}, f.voice.calls)
	assert.Empty(t, f.app.input.Value())
}

func TestVoiceKeysWithoutBridge(t *testing.T) {
	clock := eventloop.NewManualClock(time.Unix(0, 0))
	loop := eventloop.New(eventloop.WithClock(clock), eventloop.WithLogger(log.Discard()))
	app := NewApp(chat.NewSession(loop), WithLogger(log.Discard()))
	defer app.Close()

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.NoError(t, app.err)
	assert.Equal(t, "ready", app.statusLine())
}

func TestVoiceStatusLine(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "ready", f.app.statusLine())

	f.app.Update(VoiceMsg{
		State:                voice.Listening,
		Muted:                true,
		RecognitionAvailable: true,
		Interim:              "turn on",
	})
	line := f.app.statusLine()
	assert.Contains(t, line, "listening")
	assert.Contains(t, line, `"turn on"`)
	assert.Contains(t, line, "muted")
	assert.Contains(t, line, "speech unavailable")

	f.app.Update(VoiceMsg{LastError: "stt: network: offline"})
	line = f.app.statusLine()
	assert.Contains(t, line, "mic unavailable")
	assert.NotContains(t, line, "offline")
}

func TestAvatarCustomizer(t *testing.T) {
	f := newFixture(t)

	f.key(tea.KeyMsg{Type: tea.KeyCtrlA})
	f.sync(t)
	require.True(t, f.app.state.ShowAvatarCustomizer)
	assert.Contains(t, f.app.View(), "Choose an avatar")

	// Keys drive the picker, not the input.
	f.typeText("j")
	assert.Empty(t, f.app.input.Value())
	f.key(tea.KeyMsg{Type: tea.KeyDown})
	f.key(tea.KeyMsg{Type: tea.KeyUp})
	f.key(tea.KeyMsg{Type: tea.KeyEnter})
	f.sync(t)

	assert.Equal(t, "preset:aurora", f.app.state.CustomAvatar)
	assert.False(t, f.app.state.ShowAvatarCustomizer)
	assert.Contains(t, f.app.headerView(), "Aurora")
	assert.Len(t, f.session.Snapshot().Messages, 1, "selecting sends nothing")

	// Reopening puts the cursor on the active avatar; esc keeps it.
	f.key(tea.KeyMsg{Type: tea.KeyCtrlA})
	f.sync(t)
	preset, ok := f.app.picker.Selected()
	require.True(t, ok)
	assert.Equal(t, "preset:aurora", preset.Ref)

	f.key(tea.KeyMsg{Type: tea.KeyEsc})
	f.sync(t)
	assert.False(t, f.app.state.ShowAvatarCustomizer)
	assert.Equal(t, "preset:aurora", f.app.state.CustomAvatar)
}

func TestPickerBounds(t *testing.T) {
	p := NewPicker(nil)
	_, ok := p.Selected()
	assert.False(t, ok)

	f := newFixture(t)
	p = f.app.picker
	p.Up()
	preset, _ := p.Selected()
	assert.Equal(t, "preset:nova", preset.Ref)
	for range 10 {
		p.Down()
	}
	preset, _ = p.Selected()
	assert.Equal(t, "preset:orbit", preset.Ref)
}

func TestQuit(t *testing.T) {
	f := newFixture(t)

	cmd := f.key(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFeedKeepsLatest(t *testing.T) {
	fd := newFeed()
	fd.pushVoice(voice.Status{Muted: false})
	fd.pushVoice(voice.Status{Muted: true})

	msg := fd.wait()()
	require.IsType(t, VoiceMsg{}, msg)
	assert.True(t, msg.(VoiceMsg).Muted)

	fd.close()
	assert.Nil(t, fd.wait()())
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	f.app.Close()
	f.app.Close()

	assert.True(t, f.voice.unsubscribed)
	require.NoError(t, f.session.SendUserMessage("hello"))
	f.loop.RunPending()
	assert.Empty(t, f.app.feed.session)
}
