package llm

import (
	"context"
)

// Message roles, mirroring the chat completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role/content pair sent to or received from a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEvent is one token emitted by a streaming model call.
type StreamEvent struct {
	Token        string
	FinishReason string
}

// Stream yields model tokens in emission order.
type Stream interface {
	Recv() (*StreamEvent, error)
	Close()
}

// TokenFunc receives each token as the model emits it. Returning an
// error aborts the stream.
type TokenFunc func(token string) error

// Client abstracts a hosted chat model.
type Client interface {
	// Complete issues one blocking call and returns the final text.
	Complete(ctx context.Context, messages []*Message) (string, error)
	// Stream issues one streaming call, forwarding each token to fn
	// synchronously, and returns the full accumulated text.
	Stream(ctx context.Context, messages []*Message, fn TokenFunc) (string, error)
}
