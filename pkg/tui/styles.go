package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Violet   = lipgloss.Color("#7c3aed")
	Lavender = lipgloss.Color("#c4b5fd")
	OffWhite = lipgloss.Color("#f8f7f4")
	Gray     = lipgloss.Color("#6b7280")
	Rose     = lipgloss.Color("#f43f5e")

	// Styles
	HeaderStyle = lipgloss.NewStyle().
			Background(Violet).
			Foreground(OffWhite).
			Bold(true).
			Padding(0, 1)

	ChatPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Violet).
			Padding(0, 1)

	PickerPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Lavender).
				Padding(0, 1)

	InputBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Violet).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Gray).
			Padding(0, 1)

	UserMessageStyle = lipgloss.NewStyle().
				Foreground(OffWhite).
				Bold(true)

	AssistantMessageStyle = lipgloss.NewStyle().
				Foreground(Lavender)

	CursorStyle = lipgloss.NewStyle().
			Foreground(Violet).
			Bold(true)

	ActiveStyle = lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Rose)
)
