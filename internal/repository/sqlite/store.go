// Package sqlite provides an embedded durable store for single-node
// deployments that want persistence without running postgres and redis.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	channel_id TEXT NOT NULL,
	identity_id TEXT NOT NULL,
	messages TEXT NOT NULL DEFAULT '[]',
	summary TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	last_activity TIMESTAMP NOT NULL,
	PRIMARY KEY (channel_id, identity_id)
);
CREATE TABLE IF NOT EXISTS usage_counters (
	identity_id TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0,
	day_key TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS answer_cache (
	question TEXT PRIMARY KEY,
	answer TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Store implements the conversation, usage, and cache interfaces over a
// single sqlite file
type Store struct {
	db       *sql.DB
	cacheTTL time.Duration
}

// NewStore opens (or creates) the database file and bootstraps the schema
func NewStore(path string, cacheTTL time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Store{db: db, cacheTTL: cacheTTL}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Conversations returns the conversation store view
func (s *Store) Conversations() *ConversationStore {
	return &ConversationStore{store: s}
}

// Usage returns the usage store view
func (s *Store) Usage() *UsageStore {
	return &UsageStore{store: s}
}

// Cache returns the response cache view
func (s *Store) Cache() *ResponseCache {
	return &ResponseCache{store: s}
}

// ConversationStore implements domain.ConversationStore
type ConversationStore struct {
	store *Store
}

func (r *ConversationStore) Get(ctx context.Context, channelID, identityID string) (*domain.ConversationSession, error) {
	query := `
		SELECT channel_id, identity_id, messages, summary, message_count, last_activity
		FROM conversations
		WHERE channel_id = ? AND identity_id = ?
	`
	var session domain.ConversationSession
	var messages string
	err := r.store.db.QueryRowContext(ctx, query, channelID, identityID).Scan(
		&session.ChannelID,
		&session.IdentityID,
		&messages,
		&session.Summary,
		&session.MessageCount,
		&session.LastActivity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &session, nil
}

func (r *ConversationStore) Upsert(ctx context.Context, session *domain.ConversationSession) error {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO conversations (channel_id, identity_id, messages, summary, message_count, last_activity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, identity_id) DO UPDATE SET
			messages = excluded.messages,
			summary = excluded.summary,
			message_count = excluded.message_count,
			last_activity = excluded.last_activity
	`
	_, err = r.store.db.ExecContext(ctx, query,
		session.ChannelID,
		session.IdentityID,
		string(messages),
		session.Summary,
		session.MessageCount,
		session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

func (r *ConversationStore) Delete(ctx context.Context, channelID, identityID string) error {
	_, err := r.store.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE channel_id = ? AND identity_id = ?`,
		channelID, identityID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// UsageStore implements domain.UsageStore
type UsageStore struct {
	store *Store
}

func (r *UsageStore) Get(ctx context.Context, identityID string) (*domain.UsageCounter, error) {
	var counter domain.UsageCounter
	err := r.store.db.QueryRowContext(ctx,
		`SELECT identity_id, count, day_key FROM usage_counters WHERE identity_id = ?`,
		identityID,
	).Scan(&counter.IdentityID, &counter.Count, &counter.DayKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return &counter, nil
}

func (r *UsageStore) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	query := `
		INSERT INTO usage_counters (identity_id, count, day_key)
		VALUES (?, ?, ?)
		ON CONFLICT (identity_id) DO UPDATE SET
			count = excluded.count,
			day_key = excluded.day_key
	`
	_, err := r.store.db.ExecContext(ctx, query, counter.IdentityID, counter.Count, counter.DayKey)
	if err != nil {
		return fmt.Errorf("failed to upsert usage counter: %w", err)
	}
	return nil
}

// ResponseCache implements domain.ResponseCache with lazy TTL expiry
type ResponseCache struct {
	store *Store
}

func (r *ResponseCache) Get(ctx context.Context, question string) (string, error) {
	var answer string
	var createdAt time.Time
	err := r.store.db.QueryRowContext(ctx,
		`SELECT answer, created_at FROM answer_cache WHERE question = ?`,
		domain.NormalizeQuestion(question),
	).Scan(&answer, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read answer cache: %w", err)
	}

	if time.Since(createdAt) > r.store.cacheTTL {
		return "", nil
	}
	return answer, nil
}

func (r *ResponseCache) Set(ctx context.Context, question, answer string) error {
	query := `
		INSERT INTO answer_cache (question, answer, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (question) DO UPDATE SET
			answer = excluded.answer,
			created_at = excluded.created_at
	`
	_, err := r.store.db.ExecContext(ctx, query, domain.NormalizeQuestion(question), answer, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write answer cache: %w", err)
	}
	return nil
}
