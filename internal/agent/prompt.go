package agent

import (
	"strings"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/llm"
	"github.com/cxlinux-ai/supportbot/internal/search"
	"github.com/cxlinux-ai/supportbot/internal/sentiment"
)

const defaultSystemPrompt = `You are a support assistant for a software product, answering user questions inside a community chat server.
Answer concisely and accurately. If you are not sure, say so instead of guessing.
Never invent product features, prices, or policies.`

const softenToneInstruction = `The user sounds frustrated. Acknowledge their frustration briefly, stay calm and empathetic, and focus on concrete next steps.`

// buildRequest assembles the model call: system prompt with optional tone
// adjustment, the session summary and recent turns as history, the gathered
// context, and the current question last.
func buildRequest(systemPrompt string, turn domain.TurnInput, session *domain.ConversationSession, bundle *search.Bundle, sent sentiment.Result, profile llm.Profile, model string) llm.ChatRequest {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if sent.ShouldSoftenTone {
		sb.WriteString("\n\n")
		sb.WriteString(softenToneInstruction)
	}
	if session != nil && session.Summary != "" {
		sb.WriteString("\n\nSummary of the conversation so far:\n")
		sb.WriteString(session.Summary)
	}
	if bundle != nil && !bundle.Empty() {
		sb.WriteString("\n\nRelevant context (use it when it applies, ignore it when it doesn't):\n")
		sb.WriteString(bundle.Text)
	}

	var messages []llm.ChatMessage
	if session != nil {
		for _, m := range session.Messages {
			messages = append(messages, llm.ChatMessage{
				Role:    string(m.Role),
				Content: m.Content,
			})
		}
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: turn.Text})

	return llm.ChatRequest{
		SystemPrompt: sb.String(),
		Messages:     messages,
		Model:        model,
		MaxTokens:    profile.MaxTokens,
		Temperature:  profile.Temperature,
	}
}
