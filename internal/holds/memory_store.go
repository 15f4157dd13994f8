package holds

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type record struct {
	key  Key
	hold Hold // guarded by the owning slot's mutex
}

// slot serializes every transition of one key.
type slot struct {
	mu      sync.Mutex
	history []*record // oldest first; the last entry is the current record
}

func (s *slot) current() *record {
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

type shard struct {
	mu    sync.RWMutex
	slots map[Key]*slot
}

// MemoryStore keeps holds in a sharded map with one mutex per key. The shard
// lock is only taken to find or create a slot, so different keys do not block
// each other.
type MemoryStore struct {
	shards    []*shard
	available AvailabilityFunc
	records   sync.Map // hold id -> *record
	opts      options
}

// NewMemoryStore creates an in-process store. shards <= 0 falls back to 64.
func NewMemoryStore(available AvailabilityFunc, shards int, opts ...Option) *MemoryStore {
	if shards <= 0 {
		shards = 64
	}
	s := &MemoryStore{
		shards:    make([]*shard, shards),
		available: available,
		opts:      buildOptions(opts),
	}
	for i := range s.shards {
		s.shards[i] = &shard{slots: make(map[Key]*slot)}
	}
	return s
}

func (s *MemoryStore) shardFor(key Key) *shard {
	h := xxhash.New()
	_, _ = h.WriteString(key.FlightID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(key.SeatNo)
	return s.shards[h.Sum64()%uint64(len(s.shards))]
}

func (s *MemoryStore) slot(key Key, create bool) *slot {
	sh := s.shardFor(key)

	sh.mu.RLock()
	sl, ok := sh.slots[key]
	sh.mu.RUnlock()
	if ok || !create {
		return sl
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sl, ok = sh.slots[key]; !ok {
		sl = &slot{}
		sh.slots[key] = sl
	}
	return sl
}

// lookup resolves a hold id to its record and locked slot. The caller must
// unlock the slot.
func (s *MemoryStore) lookup(holdID string) (*record, *slot, error) {
	v, ok := s.records.Load(holdID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrHoldNotFound, holdID)
	}
	rec := v.(*record)
	sl := s.slot(rec.key, false)
	if sl == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrHoldNotFound, holdID)
	}
	sl.mu.Lock()
	return rec, sl, nil
}

func (s *MemoryStore) TryAcquire(ctx context.Context, key Key, ttl time.Duration, owner string) (Hold, error) {
	if ttl <= 0 {
		return Hold{}, ErrInvalidTTL
	}
	return s.acquire(ctx, key, ttl, owner, StateHeld)
}

func (s *MemoryStore) Claim(ctx context.Context, key Key, owner string) (Hold, error) {
	return s.acquire(ctx, key, 0, owner, StateConsumed)
}

func (s *MemoryStore) acquire(ctx context.Context, key Key, ttl time.Duration, owner string, state State) (Hold, error) {
	sl := s.slot(key, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := s.opts.now()
	if cur := sl.current(); cur != nil {
		switch {
		case cur.hold.Live(now):
			return Hold{}, fmt.Errorf("%w: %s", ErrAlreadyHeld, key)
		case cur.hold.State == StateConsumed:
			return Hold{}, fmt.Errorf("%w: %s is booked", ErrSeatUnavailable, key)
		case cur.hold.State == StateHeld:
			// lapsed, waiting for the reclaimer
			return Hold{}, fmt.Errorf("%w: %s hold %s lapsed but is not released yet", ErrSeatUnavailable, key, cur.hold.ID)
		}
	}

	ok, err := s.available(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return Hold{}, err
		}
		return Hold{}, fmt.Errorf("failed to check seat availability: %w", err)
	}
	if !ok {
		return Hold{}, fmt.Errorf("%w: %s", ErrSeatUnavailable, key)
	}

	rec := &record{
		key: key,
		hold: Hold{
			ID:        s.opts.newID(),
			FlightID:  key.FlightID,
			SeatNo:    key.SeatNo,
			Owner:     owner,
			State:     StateHeld,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		},
	}
	if state == StateConsumed {
		rec.hold.close(StateConsumed, now)
	}

	s.records.Store(rec.hold.ID, rec)
	sl.history = append(sl.history, rec)
	return rec.hold, nil
}

func (s *MemoryStore) Consume(ctx context.Context, holdID string) (Hold, error) {
	rec, sl, err := s.lookup(holdID)
	if err != nil {
		return Hold{}, err
	}
	defer sl.mu.Unlock()

	now := s.opts.now()
	switch rec.hold.State {
	case StateConsumed:
		return Hold{}, fmt.Errorf("%w: %s", ErrHoldAlreadyConsumed, holdID)
	case StateExpired:
		return Hold{}, fmt.Errorf("%w: %s", ErrHoldExpired, holdID)
	case StateCancelled:
		return Hold{}, fmt.Errorf("%w: %s was released", ErrHoldNotFound, holdID)
	}
	if rec.hold.Lapsed(now) {
		return Hold{}, fmt.Errorf("%w: %s expired at %s", ErrHoldExpired, holdID, rec.hold.ExpiresAt.Format(time.RFC3339))
	}

	rec.hold.close(StateConsumed, now)
	return rec.hold, nil
}

func (s *MemoryStore) Release(ctx context.Context, holdID string, reason State) (Hold, bool, error) {
	if err := checkReason(reason); err != nil {
		return Hold{}, false, err
	}

	rec, sl, err := s.lookup(holdID)
	if err != nil {
		return Hold{}, false, err
	}
	defer sl.mu.Unlock()

	if rec.hold.State != StateHeld {
		return rec.hold, false, nil
	}
	rec.hold.close(reason, s.opts.now())
	return rec.hold, true, nil
}

func (s *MemoryStore) ScanExpired(ctx context.Context, now time.Time) iter.Seq2[Hold, error] {
	return func(yield func(Hold, error) bool) {
		for _, sh := range s.shards {
			if err := ctx.Err(); err != nil {
				yield(Hold{}, err)
				return
			}

			var lapsed []Hold
			for _, sl := range sh.snapshot() {
				sl.mu.Lock()
				for _, rec := range sl.history {
					if rec.hold.Lapsed(now) {
						lapsed = append(lapsed, rec.hold)
					}
				}
				sl.mu.Unlock()
			}

			// yield outside every lock so the caller can release
			for _, h := range lapsed {
				if !yield(h, nil) {
					return
				}
			}
		}
	}
}

func (sh *shard) snapshot() []*slot {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	out := make([]*slot, 0, len(sh.slots))
	for _, sl := range sh.slots {
		out = append(out, sl)
	}
	return out
}

func (s *MemoryStore) Get(ctx context.Context, holdID string) (Hold, error) {
	rec, sl, err := s.lookup(holdID)
	if err != nil {
		return Hold{}, err
	}
	defer sl.mu.Unlock()
	return rec.hold, nil
}

func (s *MemoryStore) Current(ctx context.Context, key Key) (Hold, bool, error) {
	sl := s.slot(key, false)
	if sl == nil {
		return Hold{}, false, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	cur := sl.current()
	if cur == nil {
		return Hold{}, false, nil
	}
	return cur.hold, true, nil
}

func (s *MemoryStore) Claims(ctx context.Context) iter.Seq2[Hold, error] {
	return func(yield func(Hold, error) bool) {
		for _, sh := range s.shards {
			if err := ctx.Err(); err != nil {
				yield(Hold{}, err)
				return
			}
			for _, sl := range sh.snapshot() {
				sl.mu.Lock()
				cur := sl.current()
				var h Hold
				ok := cur != nil && (cur.hold.State == StateHeld || cur.hold.State == StateConsumed)
				if ok {
					h = cur.hold
				}
				sl.mu.Unlock()

				if ok && !yield(h, nil) {
					return
				}
			}
		}
	}
}

func (s *MemoryStore) Purge(ctx context.Context, before time.Time) (int, error) {
	purged := 0
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		for _, sl := range sh.snapshot() {
			sl.mu.Lock()
			keep := sl.history[:0]
			last := len(sl.history) - 1
			for i, rec := range sl.history {
				h := rec.hold
				if i != last && h.State.IsTerminal() && h.ClosedAt != nil && h.ClosedAt.Before(before) {
					s.records.Delete(h.ID)
					purged++
					continue
				}
				keep = append(keep, rec)
			}
			for i := len(keep); i < len(sl.history); i++ {
				sl.history[i] = nil
			}
			sl.history = keep
			sl.mu.Unlock()
		}
	}
	return purged, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
