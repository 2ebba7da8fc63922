package domain

import "context"

// UsageCounter tracks how many answers an identity has consumed on a given day
type UsageCounter struct {
	IdentityID string `json:"identity_id"`
	Count      int    `json:"count"`
	DayKey     string `json:"day_key"`
}

// UsageStore defines the durable store for usage counters
type UsageStore interface {
	Get(ctx context.Context, identityID string) (*UsageCounter, error)
	Upsert(ctx context.Context, counter *UsageCounter) error
}
