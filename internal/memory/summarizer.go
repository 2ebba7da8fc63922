package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/llm"
)

const summaryMaxTokens = 200

// ModelSummarizer condenses conversation history with a cheap model call
type ModelSummarizer struct {
	provider llm.Provider
	model    string
}

// NewModelSummarizer creates a summarizer over the given provider. The
// model should be the fast tier's model; summaries never need quality.
func NewModelSummarizer(provider llm.Provider, model string) *ModelSummarizer {
	return &ModelSummarizer{provider: provider, model: model}
}

// Summarize folds the previous summary and the old messages into a short
// prose summary
func (s *ModelSummarizer) Summarize(ctx context.Context, previousSummary string, messages []domain.Message) (string, error) {
	var sb strings.Builder
	if previousSummary != "" {
		sb.WriteString("Previous summary: ")
		sb.WriteString(previousSummary)
		sb.WriteString("\n\n")
	}
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: "Summarize this support conversation in 2-3 sentences. Keep the user's problem, what has been tried, and any unresolved points. Plain prose, no lists.",
		Messages: []llm.ChatMessage{
			{Role: "user", Content: sb.String()},
		},
		Model:     s.model,
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
