package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSummarizer mocks the Summarizer interface
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, previousSummary string, messages []domain.Message) (string, error) {
	args := m.Called(ctx, previousSummary, messages)
	return args.String(0), args.Error(1)
}

// slowStore delays every Get so tests can observe how cold loads overlap
type slowStore struct {
	*memstore.ConversationStore
	delay time.Duration
	gets  atomic.Int32
}

func (s *slowStore) Get(ctx context.Context, channelID, identityID string) (*domain.ConversationSession, error) {
	s.gets.Add(1)
	time.Sleep(s.delay)
	return s.ConversationStore.Get(ctx, channelID, identityID)
}

func newTestManager(t *testing.T, summarizer Summarizer, cfg Config) (*Manager, *memstore.ConversationStore) {
	t.Helper()
	store := memstore.NewConversationStore()
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 20 * time.Millisecond
	}
	m := NewManager(store, summarizer, cfg)
	t.Cleanup(m.Close)
	return m, store
}

func TestManager_LoadMissingSessionStartsFresh(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{})

	session := m.Load(context.Background(), "chan", "user")

	assert.Equal(t, "chan", session.ChannelID)
	assert.Equal(t, "user", session.IdentityID)
	assert.Empty(t, session.Messages)
	assert.Zero(t, session.MessageCount)
}

func TestManager_AppendAccumulatesMessages(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{})
	ctx := context.Background()

	m.Append(ctx, "chan", "user", domain.RoleUser, "hello")
	session := m.Append(ctx, "chan", "user", domain.RoleAssistant, "hi, how can I help?")

	assert.Len(t, session.Messages, 2)
	assert.Equal(t, 2, session.MessageCount)
	assert.Equal(t, domain.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "hi, how can I help?", session.Messages[1].Content)
	assert.WithinDuration(t, time.Now(), session.LastActivity, time.Second)
}

func TestManager_SnapshotsAreIsolated(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{})
	ctx := context.Background()

	first := m.Append(ctx, "chan", "user", domain.RoleUser, "one")
	first.Messages[0].Content = "mutated"

	second := m.Load(ctx, "chan", "user")
	assert.Equal(t, "one", second.Messages[0].Content)
}

func TestManager_FlusherPersistsDebounced(t *testing.T) {
	m, store := newTestManager(t, nil, Config{FlushInterval: 20 * time.Millisecond})
	ctx := context.Background()

	m.Append(ctx, "chan", "user", domain.RoleUser, "persist me")

	assert.Eventually(t, func() bool {
		stored, err := store.Get(ctx, "chan", "user")
		return err == nil && stored != nil && len(stored.Messages) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestManager_CloseFlushesPending(t *testing.T) {
	store := memstore.NewConversationStore()
	m := NewManager(store, nil, Config{FlushInterval: time.Hour})
	ctx := context.Background()

	m.Append(ctx, "chan", "user", domain.RoleUser, "written on close")
	m.Close()

	stored, err := store.Get(ctx, "chan", "user")
	assert.NoError(t, err)
	if assert.NotNil(t, stored) {
		assert.Len(t, stored.Messages, 1)
	}
}

func TestManager_ColdMissReadsStore(t *testing.T) {
	m, store := newTestManager(t, nil, Config{})
	ctx := context.Background()

	store.Upsert(ctx, &domain.ConversationSession{
		ChannelID:    "chan",
		IdentityID:   "user",
		Messages:     []domain.Message{{Role: domain.RoleUser, Content: "from the store"}},
		MessageCount: 1,
		LastActivity: time.Now(),
	})

	session := m.Load(ctx, "chan", "user")
	if assert.Len(t, session.Messages, 1) {
		assert.Equal(t, "from the store", session.Messages[0].Content)
	}
}

func TestManager_ColdLoadsOverlapAcrossSessions(t *testing.T) {
	store := &slowStore{ConversationStore: memstore.NewConversationStore(), delay: 100 * time.Millisecond}
	m := NewManager(store, nil, Config{FlushInterval: time.Hour})
	t.Cleanup(m.Close)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Load(context.Background(), fmt.Sprintf("chan-%d", i), "user")
		}(i)
	}
	wg.Wait()

	// One slow session must not serialize the others behind the manager lock.
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, int32(3), store.gets.Load())
}

func TestManager_ConcurrentColdLoadsShareOneRead(t *testing.T) {
	store := &slowStore{ConversationStore: memstore.NewConversationStore(), delay: 50 * time.Millisecond}
	m := NewManager(store, nil, Config{FlushInterval: time.Hour})
	t.Cleanup(m.Close)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Load(context.Background(), "chan", "user")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.gets.Load())
}

func TestManager_IdleSessionExpiresOnRead(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{IdleTimeout: 30 * time.Minute})
	ctx := context.Background()

	session := m.Append(ctx, "chan", "user", domain.RoleUser, "old news")
	assert.Len(t, session.Messages, 1)

	// Backdate the in-memory session past the idle timeout.
	m.mu.Lock()
	m.sessions[domain.SessionKey("chan", "user")].LastActivity = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	fresh := m.Load(ctx, "chan", "user")
	assert.Empty(t, fresh.Messages)
	assert.Zero(t, fresh.MessageCount)
}

func TestManager_ClearRemovesEverywhere(t *testing.T) {
	m, store := newTestManager(t, nil, Config{FlushInterval: 10 * time.Millisecond})
	ctx := context.Background()

	m.Append(ctx, "chan", "user", domain.RoleUser, "soon gone")
	assert.Eventually(t, func() bool {
		stored, _ := store.Get(ctx, "chan", "user")
		return stored != nil
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, m.Clear(ctx, "chan", "user"))

	stored, err := store.Get(ctx, "chan", "user")
	assert.NoError(t, err)
	assert.Nil(t, stored)
	assert.Empty(t, m.Load(ctx, "chan", "user").Messages)
}

func TestManager_SummarizeKeepsRecentMessages(t *testing.T) {
	summarizer := new(MockSummarizer)
	m, _ := newTestManager(t, summarizer, Config{SummarizeAt: 10, KeepRecent: 4})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		m.Append(ctx, "chan", "user", domain.RoleUser, fmt.Sprintf("message %d", i))
	}

	session := m.Load(ctx, "chan", "user")
	assert.True(t, m.NeedsSummarization(session))

	summarizer.On("Summarize", mock.Anything, "", mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) == 6 && msgs[0].Content == "message 0"
	})).Return("six early messages", nil)

	assert.NoError(t, m.Summarize(ctx, "chan", "user"))

	session = m.Load(ctx, "chan", "user")
	assert.Equal(t, "six early messages", session.Summary)
	if assert.Len(t, session.Messages, 4) {
		assert.Equal(t, "message 6", session.Messages[0].Content)
	}
	// MessageCount tracks the whole conversation, not the trimmed window.
	assert.Equal(t, 10, session.MessageCount)
	summarizer.AssertExpectations(t)
}

func TestManager_SummarizeFailureLeavesSessionIntact(t *testing.T) {
	summarizer := new(MockSummarizer)
	summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)

	m, _ := newTestManager(t, summarizer, Config{SummarizeAt: 4, KeepRecent: 2})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		m.Append(ctx, "chan", "user", domain.RoleUser, fmt.Sprintf("message %d", i))
	}

	assert.Error(t, m.Summarize(ctx, "chan", "user"))

	session := m.Load(ctx, "chan", "user")
	assert.Len(t, session.Messages, 4)
	assert.Empty(t, session.Summary)
}

func TestManager_NilSummarizerIsANoop(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{SummarizeAt: 2, KeepRecent: 1})
	ctx := context.Background()

	m.Append(ctx, "chan", "user", domain.RoleUser, "one")
	m.Append(ctx, "chan", "user", domain.RoleUser, "two")

	assert.NoError(t, m.Summarize(ctx, "chan", "user"))
	assert.Len(t, m.Load(ctx, "chan", "user").Messages, 2)
}

func TestManager_HardCapFoldsOverflowIntoSummary(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{MaxMessages: 5, SummarizeAt: 100})
	ctx := context.Background()

	var session *domain.ConversationSession
	for i := 0; i < 7; i++ {
		session = m.Append(ctx, "chan", "user", domain.RoleUser, fmt.Sprintf("message %d", i))
	}

	assert.Len(t, session.Messages, 5)
	assert.Equal(t, "message 2", session.Messages[0].Content)
	assert.Equal(t, 7, session.MessageCount)
	assert.Contains(t, session.Summary, "Earlier turns:")
	assert.Contains(t, session.Summary, "message 0")
}

func TestManager_HardCapFoldKeepsValidUTF8(t *testing.T) {
	m, _ := newTestManager(t, nil, Config{MaxMessages: 2, SummarizeAt: 100})
	ctx := context.Background()

	long := strings.Repeat("ü", 120)
	m.Append(ctx, "chan", "user", domain.RoleUser, long)
	m.Append(ctx, "chan", "user", domain.RoleUser, "second")
	session := m.Append(ctx, "chan", "user", domain.RoleUser, "third")

	assert.True(t, utf8.ValidString(session.Summary))
	assert.Contains(t, session.Summary, strings.Repeat("ü", 80)+"...")
}
