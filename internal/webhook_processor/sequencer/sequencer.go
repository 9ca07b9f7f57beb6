// Package sequencer serializes webhook processing per financial event.
// The provider delivers webhooks concurrently and out of order; a short-lived
// Redis lock per authentication code guarantees that at most one event for a
// given transaction is being applied at a time, and that later-arriving
// events are pushed back into the retry pipeline instead of interleaving.
package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pagstream-payments-hub/internal/platform/persistence"
)

// ErrEventInFlight signals that another event for the same authentication
// code is currently being applied. The caller republishes with backoff
// rather than waiting on the lock.
var ErrEventInFlight = errors.New("another event for this transaction is in flight")

const lockKeyPrefix = "seq:"

// Sequencer grants per-authentication-code processing slots
type Sequencer struct {
	redis   persistence.RedisClient
	lockTTL time.Duration
	logger  *slog.Logger
}

// New creates a sequencer. The TTL bounds how long a crashed worker can hold
// a slot before it frees itself.
func New(logger *slog.Logger, redis persistence.RedisClient, lockTTL time.Duration) *Sequencer {
	return &Sequencer{
		redis:   redis,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Acquire claims the processing slot for an authentication code. Returns
// ErrEventInFlight when the slot is held. A Redis failure is returned as-is:
// processing without the lock would reintroduce the interleaving the
// sequencer exists to prevent, so the caller retries instead.
func (s *Sequencer) Acquire(ctx context.Context, authenticationCode string) error {
	ok, err := s.redis.SetNX(ctx, lockKeyPrefix+authenticationCode, time.Now().UnixNano(), s.lockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire sequencer slot", "authentication_code", authenticationCode, "error", err)
		return err
	}
	if !ok {
		return ErrEventInFlight
	}
	return nil
}

// Release frees the processing slot. A release failure is logged and
// swallowed; the TTL reclaims the slot on its own.
func (s *Sequencer) Release(ctx context.Context, authenticationCode string) {
	if err := s.redis.Del(ctx, lockKeyPrefix+authenticationCode); err != nil {
		s.logger.Warn("Failed to release sequencer slot; TTL will reclaim it",
			"authentication_code", authenticationCode, "error", err)
	}
}
