package domain

// TurnInput is the inbound payload handed to the orchestrator by the
// messaging-platform bridge for one question.
type TurnInput struct {
	IdentityID  string   `json:"identity_id" validate:"required"`
	ChannelID   string   `json:"channel_id" validate:"required"`
	GuildID     string   `json:"guild_id,omitempty"`
	Text        string   `json:"text" validate:"required"`
	Attachments []string `json:"attachments,omitempty"`
	ReplyToID   string   `json:"reply_to_id,omitempty"`
	Privileged  bool     `json:"privileged"`
}

// AnswerMetadata carries diagnostics about how an answer was produced
type AnswerMetadata struct {
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	Tier         string `json:"tier,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	CacheHit     bool   `json:"cache_hit"`
	LatencyMs    int64  `json:"latency_ms"`
	// Remaining is the identity's quota after this turn, -1 for unlimited.
	Remaining int `json:"remaining"`
}

// AnswerResult is the orchestrator's output for one turn
type AnswerResult struct {
	RequestID  string            `json:"request_id"`
	Text       string            `json:"text"`
	Parts      []string          `json:"parts,omitempty"`
	Escalation *EscalationNotice `json:"escalation,omitempty"`
	Metadata   AnswerMetadata    `json:"metadata"`
}
