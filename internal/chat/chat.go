package chat

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrProviderFailed    = errors.New("chat provider failed")
	ErrNoProviderEnabled = errors.New("no chat provider configured")
)

// Response is one completed chat turn
type Response struct {
	Content string
	Model   string

	// Token usage as reported by the provider, zero when unreported
	PromptTokens int
	OutputTokens int
}

// Client is a chat completion backend
type Client interface {
	// Complete sends one system+user exchange and returns the reply
	Complete(ctx context.Context, system, user string) (*Response, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the client
	Close() error
}
