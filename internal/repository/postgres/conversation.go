package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository implements domain.ConversationStore
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Get(ctx context.Context, channelID, identityID string) (*domain.ConversationSession, error) {
	query := `
		SELECT channel_id, identity_id, messages, summary, message_count, last_activity
		FROM conversations
		WHERE channel_id = $1 AND identity_id = $2
	`
	var s domain.ConversationSession
	var messages []byte
	err := r.pool.QueryRow(ctx, query, channelID, identityID).Scan(
		&s.ChannelID,
		&s.IdentityID,
		&messages,
		&s.Summary,
		&s.MessageCount,
		&s.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := json.Unmarshal(messages, &s.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &s, nil
}

func (r *ConversationRepository) Upsert(ctx context.Context, session *domain.ConversationSession) error {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO conversations (channel_id, identity_id, messages, summary, message_count, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, identity_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			summary = EXCLUDED.summary,
			message_count = EXCLUDED.message_count,
			last_activity = EXCLUDED.last_activity
	`
	_, err = r.pool.Exec(ctx, query,
		session.ChannelID,
		session.IdentityID,
		messages,
		session.Summary,
		session.MessageCount,
		session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, channelID, identityID string) error {
	query := `DELETE FROM conversations WHERE channel_id = $1 AND identity_id = $2`
	_, err := r.pool.Exec(ctx, query, channelID, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}
