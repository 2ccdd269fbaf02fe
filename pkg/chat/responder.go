package chat

import "time"

const (
	// DefaultGreeting opens every session.
	DefaultGreeting = "Hi there! I'm your AI assistant. How can I help you today?"

	// DefaultReply is the simulated assistant reply.
	DefaultReply = "I'm processing your request. As an AI assistant, I'm here to help you with any questions or tasks you might have."

	// DefaultResponseDelay is how long the simulated reply takes.
	DefaultResponseDelay = time.Second
)

// Responder produces the assistant's reply to a user message.
// Reply runs on the event loop and must not block.
type Responder interface {
	Reply(prompt string) string
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(prompt string) string

// Reply calls f.
func (f ResponderFunc) Reply(prompt string) string {
	return f(prompt)
}

// Canned replies with the same text to every prompt.
type Canned string

// Reply returns the canned text.
func (c Canned) Reply(string) string {
	return string(c)
}
