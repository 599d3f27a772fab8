// Package llm answers questions via Cohere's hosted chat API, grounding
// responses in retrieved code chunks passed as documents.
package llm

import (
	"context"
	"time"
)

// Message roles accepted by the chat API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultChatModel is the chat model used when none is configured.
	DefaultChatModel = "command-r-plus-08-2024"

	// DefaultTemperature keeps answers grounded rather than creative.
	DefaultTemperature = 0.3

	// DefaultTimeout is the per-request timeout for chat calls.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is a retrieved chunk passed to the model for grounding.
type Document struct {
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

// ChatRequest is one grounded chat call.
type ChatRequest struct {
	Messages  []Message
	Documents []Document
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Text         string
	FinishReason string

	// CitedDocumentIDs lists the grounding documents the model cited,
	// in citation order, deduplicated.
	CitedDocumentIDs []string
}

// Client generates grounded chat completions.
type Client interface {
	// Chat sends a conversation plus grounding documents and returns the reply
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelName returns the model identifier
	ModelName() string

	// Close releases resources
	Close() error
}
