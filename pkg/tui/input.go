package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputLimit matches the dashboard's message size limit.
const inputLimit = 4096

type Input struct {
	textinput textinput.Model
}

func NewInput() *Input {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = inputLimit
	ti.Prompt = "› "
	ti.Focus()
	return &Input{textinput: ti}
}

func (i *Input) Init() tea.Cmd {
	return textinput.Blink
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textinput, cmd = i.textinput.Update(msg)
	return i, cmd
}

func (i *Input) View(width int) string {
	if width > 4 {
		i.textinput.Width = width - 6
	}
	return InputBarStyle.Width(width - 2).Render(i.textinput.View())
}

func (i *Input) Value() string {
	return i.textinput.Value()
}

func (i *Input) Reset() {
	i.textinput.Reset()
}

func (i *Input) Focus() tea.Cmd {
	return i.textinput.Focus()
}

func (i *Input) Blur() {
	i.textinput.Blur()
}
