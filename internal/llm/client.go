package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when a completion carries no usable message.
var ErrNoChoices = errors.New("no response choices")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

// LLMClient sends one chat completion request and returns the first choice's
// message content.
type LLMClient interface {
	Generate(ctx context.Context, messages ...Message) (string, error)
}

// System is shorthand for a single system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User is shorthand for a single user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
