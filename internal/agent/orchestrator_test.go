package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/escalation"
	"github.com/cxlinux-ai/supportbot/internal/llm"
	"github.com/cxlinux-ai/supportbot/internal/memory"
	"github.com/cxlinux-ai/supportbot/internal/quota"
	"github.com/cxlinux-ai/supportbot/internal/repository/memstore"
	"github.com/cxlinux-ai/supportbot/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const dailyAllowance = 5

type harness struct {
	provider   *MockProvider
	notifier   *MockNotifier
	summarizer *MockSummarizer
	usage      *memstore.UsageStore
	cache      *memstore.ResponseCache
	memory     *memory.Manager
	orch       *Orchestrator
}

func newHarness(t *testing.T, contextProviders ...search.Provider) *harness {
	t.Helper()

	provider := new(MockProvider)
	provider.On("Name").Return("mock")
	provider.On("IsConfigured").Return(true)
	provider.On("DefaultModel").Return("mock-model")

	router := llm.NewRouter("mock")
	router.RegisterProvider(provider)

	notifier := new(MockNotifier)
	summarizer := new(MockSummarizer)

	usage := memstore.NewUsageStore()
	cache := memstore.NewResponseCache(time.Hour)

	mem := memory.NewManager(memstore.NewConversationStore(), summarizer, memory.Config{
		FlushInterval: 50 * time.Millisecond,
	})
	t.Cleanup(mem.Close)

	orch := NewOrchestrator(
		quota.NewLimiter(usage, dailyAllowance),
		cache,
		mem,
		search.NewAggregator(contextProviders, time.Second, 5, 6000),
		escalation.NewEngine(0),
		router,
		notifier,
		Config{Provider: "mock"},
	)

	return &harness{
		provider:   provider,
		notifier:   notifier,
		summarizer: summarizer,
		usage:      usage,
		cache:      cache,
		memory:     mem,
		orch:       orch,
	}
}

func turnInput(text string) domain.TurnInput {
	return domain.TurnInput{
		IdentityID: "user-1",
		ChannelID:  "chan-1",
		Text:       text,
	}
}

func TestOrchestrator_QuotaExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.usage.Upsert(ctx, &domain.UsageCounter{
		IdentityID: "user-1",
		Count:      dailyAllowance,
		DayKey:     quota.DayKey(time.Now()),
	})

	result, err := h.orch.Answer(ctx, turnInput("can you help me?"))

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Nil(t, result)
	h.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestOrchestrator_QuotaIgnoredForPrivileged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.usage.Upsert(ctx, &domain.UsageCounter{
		IdentityID: "user-1",
		Count:      dailyAllowance,
		DayKey:     quota.DayKey(time.Now()),
	})
	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{Text: "sure", Model: "mock-model"}, nil)

	turn := turnInput("please summarize the escalation backlog for this week")
	turn.Privileged = true

	result, err := h.orch.Answer(ctx, turn)

	assert.NoError(t, err)
	assert.Equal(t, "sure", result.Text)
	assert.Equal(t, quota.Unlimited, result.Metadata.Remaining)
}

func TestOrchestrator_CacheHitSkipsModel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.cache.Set(ctx, "What is the refund policy?", "Refunds are honored within 30 days.")

	result, err := h.orch.Answer(ctx, turnInput("what  IS the refund policy?"))

	assert.NoError(t, err)
	assert.Equal(t, "Refunds are honored within 30 days.", result.Text)
	assert.True(t, result.Metadata.CacheHit)
	// Cache hits cost nothing against the daily allowance.
	assert.Equal(t, dailyAllowance, result.Metadata.Remaining)
	h.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestOrchestrator_SuccessfulAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{
			Text:         "  Check the certificate chain on the load balancer.  ",
			Model:        "mock-model",
			InputTokens:  42,
			OutputTokens: 17,
		}, nil)

	question := "My deployment rejects the TLS certificate even though it was renewed last week, what should I check?"
	result, err := h.orch.Answer(ctx, turnInput(question))

	assert.NoError(t, err)
	assert.Equal(t, "Check the certificate chain on the load balancer.", result.Text)
	assert.Equal(t, []string{result.Text}, result.Parts)
	assert.False(t, result.Metadata.CacheHit)
	assert.Equal(t, "mock", result.Metadata.Provider)
	assert.Equal(t, string(llm.TierQuality), result.Metadata.Tier)
	assert.Equal(t, 42, result.Metadata.InputTokens)
	assert.Equal(t, dailyAllowance-1, result.Metadata.Remaining)
	assert.Nil(t, result.Escalation)

	// Both halves of the turn land in memory.
	session := h.memory.Load(ctx, "chan-1", "user-1")
	if assert.Len(t, session.Messages, 2) {
		assert.Equal(t, domain.RoleUser, session.Messages[0].Role)
		assert.Equal(t, domain.RoleAssistant, session.Messages[1].Role)
	}

	// The same question, normalized, now hits the cache.
	again, err := h.orch.Answer(ctx, turnInput(strings.ToUpper(question)))
	assert.NoError(t, err)
	assert.True(t, again.Metadata.CacheHit)
	h.provider.AssertNumberOfCalls(t, "Chat", 1)
}

func TestOrchestrator_GatheredContextReachesTheModel(t *testing.T) {
	snippet := "exports are batched and run every ten minutes"
	ctxProvider := new(MockContextProvider)
	ctxProvider.On("Name").Return("kb")
	ctxProvider.On("Relevant", mock.Anything).Return(true)
	ctxProvider.On("Timeout").Return(time.Second)
	ctxProvider.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]search.Snippet{{Source: "kb", Content: snippet}}, nil)

	h := newHarness(t, ctxProvider)

	h.provider.On("Chat", mock.Anything, mock.MatchedBy(func(req llm.ChatRequest) bool {
		return strings.Contains(req.SystemPrompt, snippet)
	})).Return(&llm.ChatResponse{Text: "Exports run every ten minutes.", Model: "mock-model"}, nil)

	result, err := h.orch.Answer(context.Background(), turnInput("Why does the nightly export of my project data take so long to show up?"))

	assert.NoError(t, err)
	assert.Equal(t, "Exports run every ten minutes.", result.Text)
	ctxProvider.AssertExpectations(t)
	h.provider.AssertExpectations(t)
}

func TestOrchestrator_SimpleQuestionTakesFastTier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.MatchedBy(func(req llm.ChatRequest) bool {
		return req.MaxTokens == 300 && req.Temperature == 0
	})).Return(&llm.ChatResponse{Text: "Pro costs 9 euro a month.", Model: "mock-model"}, nil)

	result, err := h.orch.Answer(ctx, turnInput("what is the price of the pro plan?"))

	assert.NoError(t, err)
	assert.Equal(t, string(llm.TierFast), result.Metadata.Tier)
	h.provider.AssertExpectations(t)
}

func TestOrchestrator_UrgentQuestionEscalates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{Text: "Checking the incident now.", Model: "mock-model"}, nil)
	h.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.EscalationNotice) bool {
		return n.Priority == domain.PriorityUrgent && n.IdentityID == "user-1"
	})).Return(nil)

	result, err := h.orch.Answer(ctx, turnInput("URGENT: production is completely down for every customer!!!"))

	assert.NoError(t, err)
	if assert.NotNil(t, result.Escalation) {
		assert.Equal(t, domain.PriorityUrgent, result.Escalation.Priority)
		assert.Equal(t, "urgent_language", result.Escalation.Reason)
	}
	assert.Contains(t, result.Text, "flagged this conversation")
	h.notifier.AssertExpectations(t)
}

func TestOrchestrator_QualityFailureFallsBackToFast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()
	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{Text: "Short answer.", Model: "mock-model"}, nil).Once()

	question := "Walk me through configuring single sign-on with our identity provider, including the certificate exchange."
	result, err := h.orch.Answer(ctx, turnInput(question))

	assert.NoError(t, err)
	assert.Equal(t, "Short answer.", result.Text)
	assert.Equal(t, string(llm.TierFast), result.Metadata.Tier)
	h.provider.AssertNumberOfCalls(t, "Chat", 2)
}

func TestOrchestrator_AuthFailureDegradesWithoutRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(nil, &llm.StatusError{Provider: "mock", StatusCode: 401})

	question := "Explain how I migrate my workspace data between regions without downtime please."
	result, err := h.orch.Answer(ctx, turnInput(question))

	assert.NoError(t, err)
	assert.Equal(t, degradedText, result.Text)
	h.provider.AssertNumberOfCalls(t, "Chat", 1)

	// Degraded answers are never cached, counted, or remembered.
	assert.Equal(t, dailyAllowance, result.Metadata.Remaining)
	session := h.memory.Load(ctx, "chan-1", "user-1")
	assert.Empty(t, session.Messages)

	again, err := h.orch.Answer(ctx, turnInput(question))
	assert.NoError(t, err)
	assert.False(t, again.Metadata.CacheHit)
	h.provider.AssertNumberOfCalls(t, "Chat", 2)
}

func TestOrchestrator_RateLimitedDegradesWithoutRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(nil, &llm.StatusError{Provider: "mock", StatusCode: 429})

	result, err := h.orch.Answer(ctx, turnInput("Describe every step of the incident escalation process in detail."))

	assert.NoError(t, err)
	assert.Equal(t, rateLimitedText, result.Text)
	h.provider.AssertNumberOfCalls(t, "Chat", 1)
}

func TestOrchestrator_LongSessionGetsSummarized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		h.memory.Append(ctx, "chan-1", "user-1", role, "earlier message")
	}

	h.summarizer.On("Summarize", mock.Anything, "", mock.Anything).
		Return("They debugged a webhook delivery problem.", nil)
	h.provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{Text: "Retry with exponential backoff.", Model: "mock-model"}, nil)
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := h.orch.Answer(ctx, turnInput("The webhook retries are still piling up, how should I drain the queue safely?"))

	assert.NoError(t, err)
	assert.Equal(t, "Retry with exponential backoff.", result.Text)
	h.summarizer.AssertNumberOfCalls(t, "Summarize", 1)

	session := h.memory.Load(ctx, "chan-1", "user-1")
	assert.Equal(t, "They debugged a webhook delivery problem.", session.Summary)
	// 15 stored, 9 summarized away, plus the new user and assistant turns.
	assert.Len(t, session.Messages, 8)
	assert.Equal(t, 17, session.MessageCount)
}
