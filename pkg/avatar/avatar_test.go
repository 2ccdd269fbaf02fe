package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectClosesCustomizer(t *testing.T) {
	var s Selector

	s.Open()
	assert.True(t, s.Visible())

	s.Select("preset:sage")
	assert.False(t, s.Visible())
	assert.Equal(t, "preset:sage", s.Current())
}

func TestCloseKeepsAvatar(t *testing.T) {
	var s Selector
	s.Select("https://example.com/me.png")

	s.Open()
	s.Close()

	assert.False(t, s.Visible())
	assert.Equal(t, "https://example.com/me.png", s.Current())
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"", DefaultName},
		{"preset:nova", "Nova"},
		{"https://example.com/avatars/cat.png", "cat.png"},
		{"plain", "plain"},
		{"trailing/", "trailing/"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.ref))
		})
	}
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("preset:orbit")
	assert.True(t, ok)
	assert.Equal(t, "Orbit", p.Name)

	_, ok = Lookup("preset:missing")
	assert.False(t, ok)
}
