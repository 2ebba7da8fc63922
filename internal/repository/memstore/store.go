// Package memstore provides process-local implementations of the store
// interfaces. Suitable for single-instance deployments and tests; swap in
// the postgres/redis implementations when counters and conversations must
// be shared across processes.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
)

// ConversationStore is an in-memory domain.ConversationStore
type ConversationStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ConversationSession
}

// NewConversationStore creates an empty conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{sessions: make(map[string]*domain.ConversationSession)}
}

func (s *ConversationStore) Get(ctx context.Context, channelID, identityID string) (*domain.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[domain.SessionKey(channelID, identityID)]
	if !ok {
		return nil, nil
	}
	cp := *session
	cp.Messages = append([]domain.Message(nil), session.Messages...)
	return &cp, nil
}

func (s *ConversationStore) Upsert(ctx context.Context, session *domain.ConversationSession) error {
	cp := *session
	cp.Messages = append([]domain.Message(nil), session.Messages...)

	s.mu.Lock()
	s.sessions[session.Key()] = &cp
	s.mu.Unlock()
	return nil
}

func (s *ConversationStore) Delete(ctx context.Context, channelID, identityID string) error {
	s.mu.Lock()
	delete(s.sessions, domain.SessionKey(channelID, identityID))
	s.mu.Unlock()
	return nil
}

// UsageStore is an in-memory domain.UsageStore
type UsageStore struct {
	mu       sync.RWMutex
	counters map[string]domain.UsageCounter
}

// NewUsageStore creates an empty usage store
func NewUsageStore() *UsageStore {
	return &UsageStore{counters: make(map[string]domain.UsageCounter)}
}

func (s *UsageStore) Get(ctx context.Context, identityID string) (*domain.UsageCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.counters[identityID]
	if !ok {
		return nil, nil
	}
	return &counter, nil
}

func (s *UsageStore) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	s.mu.Lock()
	s.counters[counter.IdentityID] = *counter
	s.mu.Unlock()
	return nil
}

type cacheEntry struct {
	answer    string
	createdAt time.Time
}

// ResponseCache is an in-memory domain.ResponseCache with lazy TTL expiry
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewResponseCache creates an empty response cache
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *ResponseCache) Get(ctx context.Context, question string) (string, error) {
	key := domain.NormalizeQuestion(question)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Since(entry.createdAt) > c.ttl {
		return "", nil
	}
	return entry.answer, nil
}

func (c *ResponseCache) Set(ctx context.Context, question, answer string) error {
	key := domain.NormalizeQuestion(question)

	c.mu.Lock()
	c.entries[key] = cacheEntry{answer: answer, createdAt: time.Now()}
	c.mu.Unlock()
	return nil
}
