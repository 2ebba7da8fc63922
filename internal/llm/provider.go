package llm

import "context"

// ChatMessage is one entry of the ordered message history sent to a model
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest contains generation parameters for one model call
type ChatRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	Model        string
	MaxTokens    int
	Temperature  float32
}

// ChatResponse contains the generation result and token usage
type ChatResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// Provider defines the interface for language-model providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat generates a completion for the given request
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
