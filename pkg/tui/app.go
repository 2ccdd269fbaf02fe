// Package tui is the terminal host: a bubbletea program that renders the
// chat session and drives it from the keyboard.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-companion/pkg/avatar"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// Session is the part of chat.Session the terminal drives.
type Session interface {
	Snapshot() chat.State
	Subscribe(fn func(chat.Change)) func()
	SendUserMessage(text string) error
	SelectAvatar(ref string) error
	OpenCustomizer() error
	CloseCustomizer() error
}

// Voice is the part of voice.Bridge the terminal drives.
type Voice interface {
	Status() voice.Status
	Subscribe(fn func(voice.Status)) func()
	ToggleListening() error
	ToggleMute() error
}

// Option configures an App.
type Option func(*App)

// WithVoice enables the listen and mute controls.
func WithVoice(v Voice) Option {
	return func(a *App) {
		a.voice = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// App is the root bubbletea model.
type App struct {
	session Session
	voice   Voice
	logger  *slog.Logger

	feed        *feed
	unsubscribe []func()

	width, height int
	keys          KeyMap
	chat          *Chat
	input         *Input
	picker        *Picker
	spinner       spinner.Model
	help          help.Model

	state       chat.State
	voiceStatus voice.Status
	err         error
}

// NewApp subscribes to session (and the voice bridge, if given) and
// renders their current state.
func NewApp(session Session, opts ...Option) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = CursorStyle

	a := &App{
		session: session,
		logger:  slog.Default().With("component", "tui"),
		feed:    newFeed(),
		keys:    DefaultKeyMap,
		chat:    NewChat(),
		input:   NewInput(),
		picker:  NewPicker(avatar.Presets),
		spinner: sp,
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.unsubscribe = append(a.unsubscribe, session.Subscribe(a.feed.pushSession))
	if a.voice != nil {
		a.unsubscribe = append(a.unsubscribe, a.voice.Subscribe(a.feed.pushVoice))
		a.voiceStatus = a.voice.Status()
	}
	a.setState(session.Snapshot())
	return a
}

// Close detaches the app from its sources. Safe to call more than once.
func (a *App) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
	a.feed.close()
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.input.Init(), a.feed.wait()}
	if a.state.IsProcessing {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case SessionMsg:
		wasProcessing := a.state.IsProcessing
		a.setState(chat.State(msg))
		cmds := []tea.Cmd{a.feed.wait()}
		if a.state.IsProcessing && !wasProcessing {
			cmds = append(cmds, a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)

	case VoiceMsg:
		a.voiceStatus = voice.Status(msg)
		return a, a.feed.wait()

	case spinner.TickMsg:
		if !a.state.IsProcessing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		if a.state.ShowAvatarCustomizer {
			a.updatePicker(msg)
			return a, nil
		}
		return a, a.updateKeys(msg)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Send):
		a.send()
		return nil
	case key.Matches(msg, a.keys.Listen):
		if a.voice != nil {
			a.report(a.voice.ToggleListening())
		}
		return nil
	case key.Matches(msg, a.keys.Mute):
		if a.voice != nil {
			a.report(a.voice.ToggleMute())
		}
		return nil
	case key.Matches(msg, a.keys.Customize):
		a.report(a.session.OpenCustomizer())
		return nil
	case key.Matches(msg, a.keys.ScrollUp, a.keys.ScrollDown):
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

func (a *App) updatePicker(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, a.keys.Up):
		a.picker.Up()
	case key.Matches(msg, a.keys.Down):
		a.picker.Down()
	case key.Matches(msg, a.keys.Select):
		if preset, ok := a.picker.Selected(); ok {
			a.report(a.session.SelectAvatar(preset.Ref))
		}
	case key.Matches(msg, a.keys.Close):
		a.report(a.session.CloseCustomizer())
	}
}

// send submits the input line. Blank lines are ignored.
func (a *App) send() {
	text := a.input.Value()
	if strings.TrimSpace(text) == "" {
		return
	}
	if a.report(a.session.SendUserMessage(text)) {
		a.input.Reset()
	}
}

// report records the outcome of a session or voice call and reports
// whether it succeeded.
func (a *App) report(err error) bool {
	a.err = err
	if err != nil {
		a.logger.Warn("action failed", "error", err)
		return false
	}
	return true
}

func (a *App) setState(state chat.State) {
	if state.ShowAvatarCustomizer && !a.state.ShowAvatarCustomizer {
		a.picker.Reset(state.CustomAvatar)
		a.input.Blur()
	}
	if !state.ShowAvatarCustomizer && a.state.ShowAvatarCustomizer {
		a.input.Focus()
	}
	a.state = state
	a.chat.SetMessages(state.Messages, avatar.DisplayName(state.CustomAvatar))
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	header := a.headerView()
	status := a.statusView()
	input := a.input.View(a.width)
	var helpView string
	if a.state.ShowAvatarCustomizer {
		helpView = a.help.View(pickerKeys(a.keys))
	} else {
		helpView = a.help.View(a.keys)
	}

	used := lipgloss.Height(header) + lipgloss.Height(status) + lipgloss.Height(input) + lipgloss.Height(helpView)
	parts := []string{header}
	contentHeight := a.height - used
	if a.state.ShowAvatarCustomizer {
		picker := a.picker.View(a.width, a.state.CustomAvatar)
		parts = append(parts, picker)
		contentHeight -= lipgloss.Height(picker)
	}
	if contentHeight >= 3 {
		parts = append(parts, a.chat.View(a.width, contentHeight))
	}
	parts = append(parts, status, input, helpView)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) headerView() string {
	return HeaderStyle.Width(a.width).Render(fmt.Sprintf("Companion | %s", avatar.DisplayName(a.state.CustomAvatar)))
}

func (a *App) statusView() string {
	return StatusStyle.Width(a.width).Render(a.statusLine())
}

// statusLine summarizes processing, voice and the last failed action.
// Recognition errors are not shown; the bridge just returns to idle.
func (a *App) statusLine() string {
	var parts []string
	if a.state.IsProcessing {
		parts = append(parts, a.spinner.View()+" thinking")
	}
	if a.voice != nil {
		v := a.voiceStatus
		switch {
		case !v.RecognitionAvailable:
			parts = append(parts, "mic unavailable")
		case v.Listening():
			parts = append(parts, ActiveStyle.Render("● listening"))
		}
		if v.Interim != "" {
			parts = append(parts, fmt.Sprintf("%q", v.Interim))
		}
		if !v.SynthesisAvailable {
			parts = append(parts, "speech unavailable")
		}
		if v.Muted {
			parts = append(parts, "muted")
		}
	}
	if a.err != nil {
		parts = append(parts, ErrorStyle.Render(a.err.Error()))
	}
	if len(parts) == 0 {
		return "ready"
	}
	return strings.Join(parts, " · ")
}

// Run drives app in a full-screen program until the user quits or ctx is
// cancelled, then closes app.
func Run(ctx context.Context, app *App, opts ...tea.ProgramOption) error {
	defer app.Close()

	p := tea.NewProgram(app, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
