package llm

import (
	"context"
	"errors"
)

// Role of a message in a reasoning request
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrEmptyResponse is returned when the reasoning service answers without any text
var ErrEmptyResponse = errors.New("reasoning service returned no text")

// Message is one (role, content) pair
type Message struct {
	Role    Role
	Content string
}

// Request is the vendor-neutral reasoning request
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Reasoner generates text for a request
type Reasoner interface {
	// Complete returns the generated text or an error. It never retries.
	Complete(ctx context.Context, req Request) (string, error)

	// Provider names the backing service for logs and metrics
	Provider() string
}
