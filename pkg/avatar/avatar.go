// Package avatar holds the displayed avatar and the customizer's visibility.
package avatar

import "strings"

// Preset is a built-in avatar offered by the customizer.
type Preset struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}

// Presets lists the avatars offered by the customizer, in display order.
var Presets = []Preset{
	{Ref: "preset:nova", Name: "Nova"},
	{Ref: "preset:aurora", Name: "Aurora"},
	{Ref: "preset:sage", Name: "Sage"},
	{Ref: "preset:pixel", Name: "Pixel"},
	{Ref: "preset:orbit", Name: "Orbit"},
}

// DefaultName is shown when no avatar has been selected.
const DefaultName = "Assistant"

// Lookup returns the preset for ref.
func Lookup(ref string) (Preset, bool) {
	for _, p := range Presets {
		if p.Ref == ref {
			return p, true
		}
	}
	return Preset{}, false
}

// DisplayName returns a human-readable label for an avatar reference.
func DisplayName(ref string) string {
	if ref == "" {
		return DefaultName
	}
	if p, ok := Lookup(ref); ok {
		return p.Name
	}
	// Custom references are usually image URLs; show the last path segment.
	if i := strings.LastIndex(ref, "/"); i >= 0 && i < len(ref)-1 {
		return ref[i+1:]
	}
	return ref
}

// Selector tracks the active avatar and whether the customizer is open.
// It is not safe for concurrent use; the session serializes access.
type Selector struct {
	current string
	visible bool
}

// Open shows the customizer.
func (s *Selector) Open() {
	s.visible = true
}

// Close hides the customizer without changing the avatar.
func (s *Selector) Close() {
	s.visible = false
}

// Select makes ref the active avatar and hides the customizer.
// Any string is accepted; an empty ref restores the default avatar.
func (s *Selector) Select(ref string) {
	s.current = ref
	s.visible = false
}

// Current returns the active avatar reference, empty for the default.
func (s *Selector) Current() string {
	return s.current
}

// Visible reports whether the customizer is open.
func (s *Selector) Visible() bool {
	return s.visible
}
