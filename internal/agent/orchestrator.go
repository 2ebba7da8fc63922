// Package agent composes the quota gate, response cache, sentiment scoring,
// model routing, conversation memory, context gathering, and escalation into
// the end-to-end answer operation. Nothing escapes Answer as a panic or an
// unclassified error.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/escalation"
	"github.com/cxlinux-ai/supportbot/internal/llm"
	"github.com/cxlinux-ai/supportbot/internal/memory"
	"github.com/cxlinux-ai/supportbot/internal/quota"
	"github.com/cxlinux-ai/supportbot/internal/search"
	"github.com/cxlinux-ai/supportbot/internal/sentiment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config tunes the orchestrator
type Config struct {
	// SystemPrompt overrides the built-in support persona when set.
	SystemPrompt string
	// Provider selects the llm router entry; empty uses the default.
	Provider string
	// FastModel and QualityModel are the model names behind the two tiers.
	FastModel    string
	QualityModel string
	// MessageLimit is the platform's per-message size; answers above it
	// are split into parts.
	MessageLimit int
}

// Orchestrator answers questions. It is the only component with an
// external contract.
type Orchestrator struct {
	limiter    *quota.Limiter
	cache      domain.ResponseCache
	memory     *memory.Manager
	aggregator *search.Aggregator
	engine     *escalation.Engine
	router     *llm.Router
	notifier   domain.Notifier
	cfg        Config
}

// NewOrchestrator wires the components together
func NewOrchestrator(
	limiter *quota.Limiter,
	cache domain.ResponseCache,
	mem *memory.Manager,
	aggregator *search.Aggregator,
	engine *escalation.Engine,
	router *llm.Router,
	notifier domain.Notifier,
	cfg Config,
) *Orchestrator {
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = MessageSizeLimit
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Orchestrator{
		limiter:    limiter,
		cache:      cache,
		memory:     mem,
		aggregator: aggregator,
		engine:     engine,
		router:     router,
		notifier:   notifier,
		cfg:        cfg,
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, notice *domain.EscalationNotice) error { return nil }

// Answer runs one turn end to end. The only error it returns is
// ErrQuotaExceeded; every other failure is absorbed into a user-facing
// answer text.
func (o *Orchestrator) Answer(ctx context.Context, turn domain.TurnInput) (*domain.AnswerResult, error) {
	requestID := uuid.New().String()
	start := time.Now()

	logger := log.With().
		Str("request_id", requestID).
		Str("channel_id", turn.ChannelID).
		Str("identity_id", turn.IdentityID).
		Logger()

	// 1. Quota gate. Checked before anything costs money.
	if !o.limiter.CanProceed(ctx, turn.IdentityID, turn.Privileged) {
		logger.Info().Msg("quota exceeded")
		return nil, ErrQuotaExceeded
	}

	// 2. Cache lookup. A hit skips the model and every provider.
	cached, err := o.cache.Get(ctx, turn.Text)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed")
	}
	if cached != "" {
		logger.Info().Msg("cache hit")
		return o.result(ctx, requestID, turn, cached, nil, domain.AnswerMetadata{
			CacheHit:  true,
			LatencyMs: time.Since(start).Milliseconds(),
		}), nil
	}

	// 3. Sentiment and model routing are pure and cheap.
	sent := sentiment.Analyze(turn.Text)
	profile := llm.Classify(turn.Text)

	// 4. Memory load, summarizing first when the window has grown.
	session := o.memory.Load(ctx, turn.ChannelID, turn.IdentityID)
	if o.memory.NeedsSummarization(session) {
		if err := o.memory.Summarize(ctx, turn.ChannelID, turn.IdentityID); err != nil {
			// Proceed with the unsummarized window.
			logger.Warn().Err(err).Msg("summarization failed, continuing without")
		} else {
			session = o.memory.Load(ctx, turn.ChannelID, turn.IdentityID)
		}
	}

	// 5. Context gather. Provider failures surface as absent contributions.
	bundle := o.aggregator.Gather(ctx, turn.Text)

	// 6. Model call with one-level degradation.
	answer, meta, ok := o.generate(ctx, logger, turn, session, bundle, sent, profile)
	meta.CacheHit = false
	meta.LatencyMs = time.Since(start).Milliseconds()

	if !ok {
		// Degraded answer: not cached, not remembered, not counted.
		return o.result(ctx, requestID, turn, answer, nil, meta), nil
	}

	// 7. Record the turn. Persistence is debounced behind the memory
	// manager, so none of this blocks on the durable store.
	if err := o.cache.Set(ctx, turn.Text, answer); err != nil {
		logger.Warn().Err(err).Msg("cache store failed")
	}
	o.memory.Append(ctx, turn.ChannelID, turn.IdentityID, domain.RoleUser, turn.Text)
	updated := o.memory.Append(ctx, turn.ChannelID, turn.IdentityID, domain.RoleAssistant, answer)
	o.limiter.RecordUsage(ctx, turn.IdentityID, turn.Privileged)

	// 8. Escalation is evaluated post-hoc and augments the answer, never
	// replaces it.
	var notice *domain.EscalationNotice
	decision := o.engine.Evaluate(turn.Text, updated, sent)
	if decision.ShouldEscalate {
		notice = &domain.EscalationNotice{
			ID:         uuid.New().String(),
			Priority:   decision.Priority,
			Reason:     decision.Reason,
			Question:   turn.Text,
			IdentityID: turn.IdentityID,
			ChannelID:  turn.ChannelID,
		}
		if err := o.notifier.Notify(ctx, notice); err != nil {
			logger.Error().Err(err).Str("priority", string(decision.Priority)).Msg("escalation notify failed")
		}
		answer += escalationNoticeText
		logger.Info().
			Str("priority", string(decision.Priority)).
			Str("reason", decision.Reason).
			Msg("turn escalated")
	}

	return o.result(ctx, requestID, turn, answer, notice, meta), nil
}

// generate performs the model call and its tier fallback. The bool result
// reports whether the text is a real model answer (true) or degraded
// filler (false).
func (o *Orchestrator) generate(
	ctx context.Context,
	logger zerolog.Logger,
	turn domain.TurnInput,
	session *domain.ConversationSession,
	bundle *search.Bundle,
	sent sentiment.Result,
	profile llm.Profile,
) (string, domain.AnswerMetadata, bool) {
	provider, err := o.router.GetProvider(o.cfg.Provider)
	if err != nil {
		logger.Error().Err(err).Msg("no usable llm provider")
		return degradedText, domain.AnswerMetadata{}, false
	}

	meta := domain.AnswerMetadata{
		Provider: provider.Name(),
		Tier:     string(profile.Tier),
	}

	model := o.modelFor(provider, profile.Tier)
	req := buildRequest(o.cfg.SystemPrompt, turn, session, bundle, sent, profile, model)

	resp, err := provider.Chat(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnauthorized):
			// Never retried automatically.
			logger.Error().Err(err).Msg("llm auth failure")
			return degradedText, meta, false
		case errors.Is(err, llm.ErrRateLimited):
			logger.Warn().Err(err).Msg("llm rate limited")
			return rateLimitedText, meta, false
		}

		if profile.Tier == llm.TierQuality {
			// One fallback attempt at the cheaper tier.
			logger.Warn().Err(err).Msg("quality tier failed, retrying on fast tier")
			fallback := llm.FastProfile()
			req = buildRequest(o.cfg.SystemPrompt, turn, session, bundle, sent, fallback, o.modelFor(provider, fallback.Tier))
			resp, err = provider.Chat(ctx, req)
			meta.Tier = string(fallback.Tier)
		}
		if err != nil {
			logger.Error().Err(err).Msg("model call failed")
			return apologyText, meta, false
		}
	}

	meta.Model = resp.Model
	meta.InputTokens = resp.InputTokens
	meta.OutputTokens = resp.OutputTokens
	return strings.TrimSpace(resp.Text), meta, true
}

func (o *Orchestrator) modelFor(provider llm.Provider, tier llm.Tier) string {
	switch tier {
	case llm.TierFast:
		if o.cfg.FastModel != "" {
			return o.cfg.FastModel
		}
	case llm.TierQuality:
		if o.cfg.QualityModel != "" {
			return o.cfg.QualityModel
		}
	}
	return provider.DefaultModel()
}

func (o *Orchestrator) result(ctx context.Context, requestID string, turn domain.TurnInput, text string, notice *domain.EscalationNotice, meta domain.AnswerMetadata) *domain.AnswerResult {
	meta.Remaining = o.limiter.Remaining(ctx, turn.IdentityID, turn.Privileged)
	return &domain.AnswerResult{
		RequestID:  requestID,
		Text:       text,
		Parts:      splitMessage(text, o.cfg.MessageLimit),
		Escalation: notice,
		Metadata:   meta,
	}
}
