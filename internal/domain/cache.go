package domain

import (
	"context"
	"strings"
)

// ResponseCache stores answers keyed by normalized question text.
// Implementations treat entries older than their TTL as misses.
type ResponseCache interface {
	// Get returns the cached answer for a question, or ("", nil) on a miss.
	Get(ctx context.Context, question string) (string, error)
	Set(ctx context.Context, question, answer string) error
}

// NormalizeQuestion folds case and collapses whitespace so trivially
// different phrasings of the same question share a cache key.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}
