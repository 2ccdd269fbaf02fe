// Package chat owns the conversation: the ordered message thread, the
// simulated responder and the session state every host renders.
//
// All mutation runs on an eventloop.Loop. Session methods may be called from
// any goroutine; they post the change onto the loop and return immediately.
//
// Example usage:
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//
//	session := chat.NewSession(loop)
//	session.Subscribe(func(c chat.Change) {
//	    render(c.State)
//	})
//	session.SendUserMessage("Hello")
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable entry in the thread.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserMessage creates a message typed or spoken by the user.
func NewUserMessage(text string, at time.Time) Message {
	return Message{ID: uuid.New(), Text: text, IsUser: true, CreatedAt: at}
}

// NewAssistantMessage creates a message from the assistant.
func NewAssistantMessage(text string, at time.Time) Message {
	return Message{ID: uuid.New(), Text: text, IsUser: false, CreatedAt: at}
}

// Role returns "user" or "assistant".
func (m Message) Role() string {
	if m.IsUser {
		return "user"
	}
	return "assistant"
}
