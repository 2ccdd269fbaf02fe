package tts

import (
	"strings"

	"github.com/samber/lo"
)

// PreferredVoiceHints are matched case-insensitively against voice names.
// A voice matching any hint is preferred over the engine default.
var PreferredVoiceHints = []string{"female", "samantha"}

// SelectVoice returns the first voice whose name matches a preferred hint,
// or nil to let the engine use its default voice.
func SelectVoice(voices []Voice) *Voice {
	v, ok := lo.Find(voices, func(v Voice) bool {
		name := strings.ToLower(v.Name)
		return lo.SomeBy(PreferredVoiceHints, func(hint string) bool {
			return strings.Contains(name, hint)
		})
	})
	if !ok {
		return nil
	}
	return &v
}
