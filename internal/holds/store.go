package holds

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
)

// AvailabilityFunc reports whether the catalog currently lists the seat as free.
// It must return an error wrapping ErrSeatNotFound for unknown seats.
type AvailabilityFunc func(ctx context.Context, key Key) (bool, error)

// Store owns every hold. All transitions of a single key are linearizable;
// different keys never contend with each other.
type Store interface {
	// TryAcquire creates a HELD record if the key has no live hold, has not
	// been consumed, and the catalog lists the seat as available.
	TryAcquire(ctx context.Context, key Key, ttl time.Duration, owner string) (Hold, error)
	// Claim is TryAcquire and Consume as one step. The record is created CONSUMED.
	Claim(ctx context.Context, key Key, owner string) (Hold, error)
	// Consume moves a HELD record to CONSUMED. Expiry is checked against the
	// clock, not against whether the reclaimer has run.
	Consume(ctx context.Context, holdID string) (Hold, error)
	// Release moves a HELD record to reason (EXPIRED or CANCELLED). Releasing a
	// terminal hold is a no-op reported by changed == false.
	Release(ctx context.Context, holdID string, reason State) (hold Hold, changed bool, err error)
	// ScanExpired lazily yields HELD records with expiry <= now without
	// changing them. The sequence can be ranged over more than once.
	ScanExpired(ctx context.Context, now time.Time) iter.Seq2[Hold, error]

	Get(ctx context.Context, holdID string) (Hold, error)
	// Current returns the most recent record created for key, in any state.
	Current(ctx context.Context, key Key) (Hold, bool, error)
	// Claims yields the most recent record of every key that is HELD or CONSUMED.
	Claims(ctx context.Context) iter.Seq2[Hold, error]
	// Purge drops terminal records closed before the cutoff. The most recent
	// record of a key is kept.
	Purge(ctx context.Context, before time.Time) (int, error)
	Ping(ctx context.Context) error
}

type options struct {
	now   func() time.Time
	newID func() string
}

type Option func(*options)

// WithClock replaces time.Now as the store's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the uuid based hold id generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func checkReason(reason State) error {
	if reason != StateExpired && reason != StateCancelled {
		return ErrInvalidReason
	}
	return nil
}
