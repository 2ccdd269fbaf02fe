package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-companion/pkg/chat"
)

// Chat renders the message thread in a scrollable viewport.
type Chat struct {
	viewport  viewport.Model
	messages  []chat.Message
	assistant string
	width     int
}

func NewChat() *Chat {
	return &Chat{viewport: viewport.New(0, 0)}
}

func (c *Chat) Update(msg tea.Msg) (*Chat, tea.Cmd) {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return c, cmd
}

func (c *Chat) View(width, height int) string {
	c.resize(width-4, height-2)
	return ChatPanelStyle.Width(width - 2).Height(height - 2).Render(c.viewport.View())
}

// SetMessages replaces the thread. The view follows the newest message
// unless the user has scrolled up.
func (c *Chat) SetMessages(messages []chat.Message, assistant string) {
	follow := c.viewport.AtBottom() || len(c.messages) == 0
	c.messages = messages
	c.assistant = assistant
	c.updateContent()
	if follow {
		c.viewport.GotoBottom()
	}
}

func (c *Chat) resize(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	if width == c.width && height == c.viewport.Height {
		return
	}
	c.width = width
	c.viewport.Width = width
	c.viewport.Height = height
	c.updateContent()
	c.viewport.GotoBottom()
}

func (c *Chat) updateContent() {
	c.viewport.SetContent(c.render())
}

func (c *Chat) render() string {
	var sb strings.Builder
	for i, msg := range c.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		name, style := c.assistant, AssistantMessageStyle
		if msg.IsUser {
			name, style = "you", UserMessageStyle
		}
		line := name + ": " + msg.Text
		if c.width > 0 {
			line = lipgloss.NewStyle().Width(c.width).Render(line)
		}
		sb.WriteString(style.Render(line))
	}
	return sb.String()
}
