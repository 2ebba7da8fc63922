package search

import (
	"context"
	"time"
)

// Snippet is one ranked text result from a context provider
type Snippet struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Provider is one independent context source. Providers must be safe for
// concurrent use; a slow or failing provider only costs its own contribution.
type Provider interface {
	// Name labels the provider's block in the context bundle
	Name() string

	// Relevant reports whether this provider should run for the question
	Relevant(question string) bool

	// Timeout bounds one Search call
	Timeout() time.Duration

	// Search returns ranked snippets for the query
	Search(ctx context.Context, query string, maxResults int) ([]Snippet, error)
}
