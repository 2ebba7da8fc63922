package agent

import (
	"context"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/llm"
	"github.com/cxlinux-ai/supportbot/internal/search"
	"github.com/stretchr/testify/mock"
)

// MockProvider mocks the llm.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) AvailableModels() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockProvider) DefaultModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ChatResponse), args.Error(1)
}

// MockNotifier mocks the domain.Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notice *domain.EscalationNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

// MockSummarizer mocks the memory.Summarizer interface
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, previousSummary string, messages []domain.Message) (string, error) {
	args := m.Called(ctx, previousSummary, messages)
	return args.String(0), args.Error(1)
}

// MockContextProvider mocks the search.Provider interface
type MockContextProvider struct {
	mock.Mock
}

func (m *MockContextProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContextProvider) Relevant(question string) bool {
	args := m.Called(question)
	return args.Bool(0)
}

func (m *MockContextProvider) Timeout() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockContextProvider) Search(ctx context.Context, query string, maxResults int) ([]search.Snippet, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Snippet), args.Error(1)
}
