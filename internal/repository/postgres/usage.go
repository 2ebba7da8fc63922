package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository implements domain.UsageStore
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

func (r *UsageRepository) Get(ctx context.Context, identityID string) (*domain.UsageCounter, error) {
	query := `
		SELECT identity_id, count, day_key
		FROM usage_counters
		WHERE identity_id = $1
	`
	var c domain.UsageCounter
	err := r.pool.QueryRow(ctx, query, identityID).Scan(&c.IdentityID, &c.Count, &c.DayKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return &c, nil
}

func (r *UsageRepository) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	query := `
		INSERT INTO usage_counters (identity_id, count, day_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id) DO UPDATE SET
			count = EXCLUDED.count,
			day_key = EXCLUDED.day_key
	`
	_, err := r.pool.Exec(ctx, query, counter.IdentityID, counter.Count, counter.DayKey)
	if err != nil {
		return fmt.Errorf("failed to upsert usage counter: %w", err)
	}
	return nil
}
