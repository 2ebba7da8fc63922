package domain

import (
	"context"
	"fmt"
	"time"
)

// ConversationSession represents the remembered state of one (channel, identity) pair
type ConversationSession struct {
	ChannelID    string    `json:"channel_id"`
	IdentityID   string    `json:"identity_id"`
	Messages     []Message `json:"messages"`
	Summary      string    `json:"summary,omitempty"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionKey builds the store key for a (channel, identity) pair
func SessionKey(channelID, identityID string) string {
	return fmt.Sprintf("%s:%s", channelID, identityID)
}

// Key returns the store key for this session
func (s *ConversationSession) Key() string {
	return SessionKey(s.ChannelID, s.IdentityID)
}

// ConversationStore defines the durable store for conversation sessions.
// Upsert semantics are last-write-wins per key.
type ConversationStore interface {
	Get(ctx context.Context, channelID, identityID string) (*ConversationSession, error)
	Upsert(ctx context.Context, session *ConversationSession) error
	Delete(ctx context.Context, channelID, identityID string) error
}
