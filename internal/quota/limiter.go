// Package quota enforces the per-identity daily answer allowance.
package quota

import (
	"context"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/rs/zerolog/log"
)

// Unlimited is the remaining value reported for privileged identities
const Unlimited = -1

// Limiter gates answers behind a daily usage allowance. Privileged
// identities always pass and are never counted.
type Limiter struct {
	store          domain.UsageStore
	dailyAllowance int
}

// NewLimiter creates a limiter over the given usage store
func NewLimiter(store domain.UsageStore, dailyAllowance int) *Limiter {
	if dailyAllowance <= 0 {
		dailyAllowance = 5
	}
	return &Limiter{store: store, dailyAllowance: dailyAllowance}
}

// DayKey returns the UTC day bucket for a point in time
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CanProceed reports whether the identity may receive another answer today.
// A store failure denies rather than crashing or silently allowing.
func (l *Limiter) CanProceed(ctx context.Context, identityID string, privileged bool) bool {
	if privileged {
		return true
	}

	counter, err := l.store.Get(ctx, identityID)
	if err != nil {
		log.Error().Err(err).Str("identity_id", identityID).Msg("usage store read failed, denying")
		return false
	}
	if counter == nil || counter.DayKey != DayKey(time.Now()) {
		return true
	}
	return counter.Count < l.dailyAllowance
}

// RecordUsage counts one successful answer for a non-privileged identity.
// The first call of a new day resets the counter to 1 so the triggering
// call itself is counted.
func (l *Limiter) RecordUsage(ctx context.Context, identityID string, privileged bool) {
	if privileged {
		return
	}

	today := DayKey(time.Now())
	counter, err := l.store.Get(ctx, identityID)
	if err != nil {
		log.Error().Err(err).Str("identity_id", identityID).Msg("usage store read failed, skipping record")
		return
	}

	if counter == nil || counter.DayKey != today {
		counter = &domain.UsageCounter{IdentityID: identityID, Count: 1, DayKey: today}
	} else {
		counter.Count++
	}

	if err := l.store.Upsert(ctx, counter); err != nil {
		log.Error().Err(err).Str("identity_id", identityID).Msg("usage store write failed")
	}
}

// Remaining returns how many answers the identity has left today,
// or Unlimited for privileged identities.
func (l *Limiter) Remaining(ctx context.Context, identityID string, privileged bool) int {
	if privileged {
		return Unlimited
	}

	counter, err := l.store.Get(ctx, identityID)
	if err != nil {
		log.Error().Err(err).Str("identity_id", identityID).Msg("usage store read failed")
		return 0
	}
	if counter == nil || counter.DayKey != DayKey(time.Now()) {
		return l.dailyAllowance
	}

	remaining := l.dailyAllowance - counter.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
