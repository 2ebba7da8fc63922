package domain

import "context"

// EscalationPriority orders how quickly a human should pick up a handoff
type EscalationPriority string

const (
	PriorityLow    EscalationPriority = "low"
	PriorityMedium EscalationPriority = "medium"
	PriorityHigh   EscalationPriority = "high"
	PriorityUrgent EscalationPriority = "urgent"
)

// EscalationNotice is the side-channel payload sent to human operators
type EscalationNotice struct {
	ID         string             `json:"id"`
	Priority   EscalationPriority `json:"priority"`
	Reason     string             `json:"reason"`
	Question   string             `json:"question"`
	IdentityID string             `json:"identity_id"`
	ChannelID  string             `json:"channel_id"`
}

// Notifier delivers escalation notices to the operator side channel
type Notifier interface {
	Notify(ctx context.Context, notice *EscalationNotice) error
}
