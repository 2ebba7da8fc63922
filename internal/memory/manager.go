// Package memory maintains per-(channel, identity) conversation sessions:
// an in-process authoritative map in front of the durable store, with
// summarization of old turns and debounced persistence.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/rs/zerolog/log"
)

// Config tunes session retention and summarization
type Config struct {
	// MaxMessages is the hard cap on stored messages per session.
	MaxMessages int
	// SummarizeAt is the message count that triggers summarization.
	SummarizeAt int
	// KeepRecent is how many messages survive a summarization verbatim.
	KeepRecent int
	// IdleTimeout expires a session; expiry is checked at read time.
	IdleTimeout time.Duration
	// FlushInterval is the debounce window for durable-store writes.
	FlushInterval time.Duration
}

// DefaultConfig returns the production retention settings
func DefaultConfig() Config {
	return Config{
		MaxMessages:   20,
		SummarizeAt:   15,
		KeepRecent:    6,
		IdleTimeout:   time.Hour,
		FlushInterval: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxMessages <= 0 {
		c.MaxMessages = d.MaxMessages
	}
	if c.SummarizeAt <= 0 {
		c.SummarizeAt = d.SummarizeAt
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = d.KeepRecent
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	return c
}

// Summarizer condenses old messages into a short prose summary
type Summarizer interface {
	Summarize(ctx context.Context, previousSummary string, messages []domain.Message) (string, error)
}

// Manager owns session state. In-memory state is authoritative for reads
// within the flush window; the store is only consulted on a cold miss.
type Manager struct {
	store      domain.ConversationStore
	summarizer Summarizer
	cfg        Config

	mu       sync.Mutex
	sessions map[string]*domain.ConversationSession
	loading  map[string]chan struct{}

	flusher *flusher
}

// NewManager creates a manager and starts its flush worker
func NewManager(store domain.ConversationStore, summarizer Summarizer, cfg Config) *Manager {
	m := &Manager{
		store:      store,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
		sessions:   make(map[string]*domain.ConversationSession),
		loading:    make(map[string]chan struct{}),
	}
	m.flusher = newFlusher(m, m.cfg.FlushInterval)
	return m
}

// Close flushes pending writes and stops the flush worker
func (m *Manager) Close() {
	m.flusher.close()
}

// Load returns a snapshot of the session for (channel, identity). An idle
// session past its timeout is treated as absent; a fresh one is returned
// in its place.
func (m *Manager) Load(ctx context.Context, channelID, identityID string) *domain.ConversationSession {
	key := domain.SessionKey(channelID, identityID)
	m.ensure(ctx, channelID, identityID)

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[key]
	if !ok {
		// Cleared between ensure and here.
		session = newSession(channelID, identityID)
		m.sessions[key] = session
	}

	if session.MessageCount > 0 && time.Since(session.LastActivity) > m.cfg.IdleTimeout {
		session = newSession(channelID, identityID)
		m.sessions[key] = session
	}

	return snapshot(session)
}

// Append records one message and marks the session dirty for the flusher.
// It returns a snapshot of the updated session.
func (m *Manager) Append(ctx context.Context, channelID, identityID string, role domain.MessageRole, text string) *domain.ConversationSession {
	key := domain.SessionKey(channelID, identityID)
	m.ensure(ctx, channelID, identityID)

	m.mu.Lock()
	session, ok := m.sessions[key]
	if !ok {
		session = newSession(channelID, identityID)
		m.sessions[key] = session
	}

	session.Messages = append(session.Messages, domain.Message{
		Role:      role,
		Content:   text,
		CreatedAt: time.Now(),
	})
	session.MessageCount++
	session.LastActivity = time.Now()
	m.trimToCap(session)

	snap := snapshot(session)
	m.mu.Unlock()

	m.flusher.markDirty(key)
	return snap
}

// Clear resets the session immediately, both in memory and in the store
func (m *Manager) Clear(ctx context.Context, channelID, identityID string) error {
	key := domain.SessionKey(channelID, identityID)

	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()

	return m.store.Delete(ctx, channelID, identityID)
}

// NeedsSummarization reports whether the session's window has grown past
// the summarization threshold
func (m *Manager) NeedsSummarization(session *domain.ConversationSession) bool {
	return session != nil && len(session.Messages) >= m.cfg.SummarizeAt
}

// Summarize condenses all but the most recent messages into the session
// summary. On failure the session is left untouched so the turn can
// proceed with the unsummarized window.
func (m *Manager) Summarize(ctx context.Context, channelID, identityID string) error {
	if m.summarizer == nil {
		return nil
	}

	key := domain.SessionKey(channelID, identityID)

	m.mu.Lock()
	session, ok := m.sessions[key]
	if !ok || len(session.Messages) <= m.cfg.KeepRecent {
		m.mu.Unlock()
		return nil
	}
	old := make([]domain.Message, len(session.Messages)-m.cfg.KeepRecent)
	copy(old, session.Messages[:len(old)])
	previousSummary := session.Summary
	m.mu.Unlock()

	summary, err := m.summarizer.Summarize(ctx, previousSummary, old)
	if err != nil {
		return err
	}

	m.mu.Lock()
	// The window may have grown while the model ran; drop exactly the
	// messages that were summarized.
	if cur, ok := m.sessions[key]; ok && len(cur.Messages) >= len(old) {
		cur.Messages = append([]domain.Message(nil), cur.Messages[len(old):]...)
		cur.Summary = summary
	}
	m.mu.Unlock()

	m.flusher.markDirty(key)
	return nil
}

// trimToCap enforces the hard message cap. Trimmed messages are folded into
// the summary text rather than dropped silently; this is the degraded path
// for sessions whose summarization kept failing.
func (m *Manager) trimToCap(session *domain.ConversationSession) {
	over := len(session.Messages) - m.cfg.MaxMessages
	if over <= 0 {
		return
	}

	var dropped []string
	for _, msg := range session.Messages[:over] {
		line := msg.Content
		if runes := []rune(line); len(runes) > 80 {
			line = string(runes[:80]) + "..."
		}
		dropped = append(dropped, string(msg.Role)+": "+line)
	}

	if session.Summary != "" {
		session.Summary += "\n"
	}
	session.Summary += "Earlier turns: " + strings.Join(dropped, " | ")
	session.Messages = append([]domain.Message(nil), session.Messages[over:]...)
}

// ensure populates the in-memory entry for (channel, identity) from the
// store when it is absent. The store read runs with m.mu released so a
// slow read for one session never stalls other sessions; concurrent
// callers for the same key share a single read through a per-key latch.
func (m *Manager) ensure(ctx context.Context, channelID, identityID string) {
	key := domain.SessionKey(channelID, identityID)

	for {
		m.mu.Lock()
		if _, ok := m.sessions[key]; ok {
			m.mu.Unlock()
			return
		}
		if latch, inflight := m.loading[key]; inflight {
			m.mu.Unlock()
			<-latch
			continue
		}
		latch := make(chan struct{})
		m.loading[key] = latch
		m.mu.Unlock()

		session := m.loadFromStore(ctx, channelID, identityID)

		m.mu.Lock()
		if _, ok := m.sessions[key]; !ok {
			m.sessions[key] = session
		}
		delete(m.loading, key)
		m.mu.Unlock()
		close(latch)
		return
	}
}

func (m *Manager) loadFromStore(ctx context.Context, channelID, identityID string) *domain.ConversationSession {
	stored, err := m.store.Get(ctx, channelID, identityID)
	if err != nil {
		log.Error().Err(err).
			Str("channel_id", channelID).
			Str("identity_id", identityID).
			Msg("conversation store read failed, starting fresh")
	}
	if stored == nil {
		return newSession(channelID, identityID)
	}
	return stored
}

// flushKey writes one session to the durable store. Called by the flusher.
func (m *Manager) flushKey(ctx context.Context, key string) {
	m.mu.Lock()
	session, ok := m.sessions[key]
	var snap *domain.ConversationSession
	if ok {
		snap = snapshot(session)
	}
	m.mu.Unlock()

	if snap == nil {
		return
	}
	if err := m.store.Upsert(ctx, snap); err != nil {
		log.Error().Err(err).Str("key", key).Msg("conversation store write failed")
	}
}

func newSession(channelID, identityID string) *domain.ConversationSession {
	return &domain.ConversationSession{
		ChannelID:  channelID,
		IdentityID: identityID,
	}
}

func snapshot(s *domain.ConversationSession) *domain.ConversationSession {
	cp := *s
	cp.Messages = append([]domain.Message(nil), s.Messages...)
	return &cp
}
