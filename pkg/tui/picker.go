package tui

import (
	"strings"

	"github.com/teslashibe/go-companion/pkg/avatar"
)

// Picker is the avatar customizer: a list of presets with a cursor.
type Picker struct {
	presets []avatar.Preset
	cursor  int
}

func NewPicker(presets []avatar.Preset) *Picker {
	return &Picker{presets: presets}
}

// Reset moves the cursor onto the active avatar, or the first preset.
func (p *Picker) Reset(current string) {
	p.cursor = 0
	for i, preset := range p.presets {
		if preset.Ref == current {
			p.cursor = i
			return
		}
	}
}

func (p *Picker) Up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *Picker) Down() {
	if p.cursor < len(p.presets)-1 {
		p.cursor++
	}
}

// Selected returns the preset under the cursor.
func (p *Picker) Selected() (avatar.Preset, bool) {
	if len(p.presets) == 0 {
		return avatar.Preset{}, false
	}
	return p.presets[p.cursor], true
}

func (p *Picker) View(width int, current string) string {
	var sb strings.Builder
	sb.WriteString("Choose an avatar\n")
	for i, preset := range p.presets {
		sb.WriteString("\n")
		cursor := "  "
		if i == p.cursor {
			cursor = CursorStyle.Render("> ")
		}
		sb.WriteString(cursor)
		if preset.Ref == current {
			sb.WriteString(ActiveStyle.Render(preset.Name + " ●"))
		} else {
			sb.WriteString(preset.Name)
		}
	}
	return PickerPanelStyle.Width(width - 2).Render(sb.String())
}
