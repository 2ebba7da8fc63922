package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const usagePrefix = "usage:"

// UsageStore implements domain.UsageStore in Redis for multi-instance
// deployments where counters must be shared.
type UsageStore struct {
	client *Client
}

// NewUsageStore creates a new usage store
func NewUsageStore(client *Client) *UsageStore {
	return &UsageStore{client: client}
}

func (s *UsageStore) Get(ctx context.Context, identityID string) (*domain.UsageCounter, error) {
	fields, err := s.client.rdb.HGetAll(ctx, usagePrefix+identityID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read usage counter: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("corrupt usage count for %s: %w", identityID, err)
	}

	return &domain.UsageCounter{
		IdentityID: identityID,
		Count:      count,
		DayKey:     fields["day_key"],
	}, nil
}

func (s *UsageStore) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	err := s.client.rdb.HSet(ctx, usagePrefix+counter.IdentityID,
		"count", counter.Count,
		"day_key", counter.DayKey,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write usage counter: %w", err)
	}
	return nil
}
