// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"fmt"
)

// Message kinds pushed to dashboard clients.
const (
	KindSession = "session"
	KindVoice   = "voice"
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Message is a pre-encoded text frame.
type Message struct {
	Data []byte
}

// Encode wraps v in an envelope of the given kind.
func Encode(kind string, v any) (Message, error) {
	data, err := json.Marshal(Envelope{Type: kind, Data: v})
	if err != nil {
		return Message{}, fmt.Errorf("hub: encode %s: %w", kind, err)
	}
	return Message{Data: data}, nil
}
