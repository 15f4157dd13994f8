package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flightdesk/internal/bookings"
	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
	"flightdesk/internal/notifications"
	"flightdesk/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []*notifications.Event
}

func (s *recordingSink) Dispatch(e *notifications.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []notifications.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	manager *Manager
	store   holds.Store
	catalog *flights.MemoryCatalog
	ledger  *bookings.MemoryLedger
	clock   *fakeClock
	events  *recordingSink
}

func testFlights() []flights.Flight {
	return []flights.Flight{
		{
			ID: "F1", Origin: "Dubai", Destination: "Kolkata", Date: "2020-02-06", Price: 5000,
			Seats: []flights.Seat{
				{SeatNo: "12A", Type: flights.SeatTypeWindow, Available: true, Price: 5600},
				{SeatNo: "12B", Type: flights.SeatTypeMiddle, Available: true, Price: 5000},
				{SeatNo: "12C", Type: flights.SeatTypeAisle, Available: false, Price: 5300},
			},
		},
	}
}

type storeFactory func(t *testing.T, available holds.AvailabilityFunc, clock *fakeClock) holds.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, available holds.AvailabilityFunc, clock *fakeClock) holds.Store {
			return holds.NewMemoryStore(available, 8, holds.WithClock(clock.Now))
		},
		"redis": func(t *testing.T, available holds.AvailabilityFunc, clock *fakeClock) holds.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return holds.NewRedisStore(client, available, 16, holds.WithClock(clock.Now))
		},
	}
}

func newFixture(t *testing.T, factory storeFactory, opts ...Option) *fixture {
	t.Helper()
	catalog, err := flights.NewMemoryCatalog(testFlights())
	require.NoError(t, err)

	f := &fixture{
		catalog: catalog,
		ledger:  bookings.NewMemoryLedger(),
		clock:   newFakeClock(),
		events:  &recordingSink{},
	}
	f.store = factory(t, CatalogAvailability(catalog), f.clock)

	opts = append([]Option{WithClock(f.clock.Now), WithEvents(f.events), WithLogger(logger.Discard())}, opts...)
	f.manager = NewManager(f.store, catalog, f.ledger, DefaultConfig(), opts...)
	return f
}

func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, newFixture(t, factory))
		})
	}
}

func (f *fixture) seatAvailable(t *testing.T, seatNo string) bool {
	t.Helper()
	ok, err := f.catalog.SeatAvailable(context.Background(), "F1", seatNo)
	require.NoError(t, err)
	return ok
}

func reconcileRequested(m *Manager) bool {
	select {
	case <-m.ReconcileRequests():
		return true
	default:
		return false
	}
}

func TestCreateHold(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "session-1")
		require.NoError(t, err)
		assert.Equal(t, holds.StateHeld, hold.State)
		assert.Equal(t, "session-1", hold.Owner)
		assert.Equal(t, f.clock.Now().Add(600*time.Second), hold.ExpiresAt)
		assert.False(t, f.seatAvailable(t, "12A"))
		assert.Equal(t, []notifications.EventType{notifications.EventHoldCreated}, f.events.types())
	})
}

func TestCreateHold_Rejections(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		_, err := f.manager.CreateHold(ctx, "F9", "12A", 0, "")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, ReasonFlightNotFound, Reason(err))

		_, err = f.manager.CreateHold(ctx, "F1", "99Z", 0, "")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, ReasonSeatNotFound, Reason(err))

		_, err = f.manager.CreateHold(ctx, "F1", "12C", 0, "")
		assert.ErrorIs(t, err, ErrConflict)
		assert.ErrorIs(t, err, holds.ErrSeatUnavailable)

		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		assert.ErrorIs(t, err, ErrConflict)
		assert.ErrorIs(t, err, holds.ErrAlreadyHeld)

		// failed acquires never touch the catalog
		assert.False(t, f.seatAvailable(t, "12C"))
		assert.True(t, f.seatAvailable(t, "12B"))
	})
}

func TestCreateHold_TTLBounds(t *testing.T) {
	f := newFixture(t, backends()["memory"])
	ctx := context.Background()

	_, err := f.manager.CreateHold(ctx, "F1", "12A", 500*time.Millisecond, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.manager.CreateHold(ctx, "F1", "12A", 31*time.Minute, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.True(t, f.seatAvailable(t, "12A"))

	hold, err := f.manager.CreateHold(ctx, "F1", "12A", time.Second, "")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(time.Second), hold.ExpiresAt)
}

func TestScenario_HoldExpiresBeforeConfirm(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", time.Second, "")
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now().Add(time.Second), hold.ExpiresAt)

		f.clock.Advance(1500 * time.Millisecond)

		_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
		assert.ErrorIs(t, err, ErrExpired)
		assert.Equal(t, ReasonHoldExpired, Reason(err))
		assert.False(t, f.seatAvailable(t, "12A"), "seat stays held until reclaim")

		list, err := f.ledger.ListByFlight(ctx, "F1")
		require.NoError(t, err)
		assert.Empty(t, list)

		released, err := f.manager.ReclaimExpired(ctx)
		require.NoError(t, err)
		require.Len(t, released, 1)
		assert.Equal(t, hold.ID, released[0].ID)
		assert.Equal(t, holds.StateExpired, released[0].State)
		assert.True(t, f.seatAvailable(t, "12A"))

		got, err := f.manager.GetHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, holds.StateExpired, got.State)

		_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
		assert.ErrorIs(t, err, ErrExpired)

		// nothing left to reclaim
		released, err = f.manager.ReclaimExpired(ctx)
		require.NoError(t, err)
		assert.Empty(t, released)

		assert.Contains(t, f.events.types(), notifications.EventHoldExpired)
	})
}

func TestScenario_ConfirmThenSeatUnavailable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)

		booking, err := f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{FullName: "Asha Rao", Email: "asha@example.com"})
		require.NoError(t, err)
		assert.Equal(t, hold.ID, booking.HoldID)
		assert.Equal(t, "12A", booking.SeatNo)
		assert.Equal(t, 5600, booking.TotalPrice)
		assert.Equal(t, bookings.StatusConfirmed, booking.Status)
		assert.Len(t, booking.Code, 8)
		for _, r := range booking.Code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r))
		}

		stored, err := f.ledger.GetByCode(ctx, booking.Code)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, stored.ID)

		assert.False(t, f.seatAvailable(t, "12A"))

		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		assert.ErrorIs(t, err, holds.ErrSeatUnavailable)
		assert.NotErrorIs(t, err, holds.ErrAlreadyHeld)

		// booked seats are never reclaimed
		f.clock.Advance(time.Hour)
		released, err := f.manager.ReclaimExpired(ctx)
		require.NoError(t, err)
		assert.Empty(t, released)
		assert.False(t, f.seatAvailable(t, "12A"))

		_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
		assert.ErrorIs(t, err, ErrAlreadyConsumed)
		assert.False(t, reconcileRequested(f.manager))
	})
}

func TestConfirmBooking_DefaultPassenger(t *testing.T) {
	f := newFixture(t, backends()["memory"])
	ctx := context.Background()

	hold, err := f.manager.CreateHold(ctx, "F1", "12B", 0, "")
	require.NoError(t, err)
	booking, err := f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{FullName: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Passenger", booking.Passenger.FullName)
}

func TestConfirmBooking_UnknownHold(t *testing.T) {
	f := newFixture(t, backends()["memory"])

	_, err := f.manager.ConfirmBooking(context.Background(), "nope", bookings.Passenger{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ReasonHoldNotFound, Reason(err))
}

func TestReleaseHold(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)

		released, err := f.manager.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, holds.StateCancelled, released.State)
		assert.True(t, f.seatAvailable(t, "12A"))

		// idempotent
		again, err := f.manager.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, holds.StateCancelled, again.State)
		assert.True(t, f.seatAvailable(t, "12A"))

		_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = f.manager.ReleaseHold(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		// the seat can be held again
		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		assert.False(t, reconcileRequested(f.manager))
	})
}

func TestReleaseHold_AfterConfirmKeepsSeatBooked(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
		require.NoError(t, err)

		got, err := f.manager.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, holds.StateConsumed, got.State)
		assert.False(t, f.seatAvailable(t, "12A"))
	})
}

func TestRestore_DoesNotClobberNewerClaim(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		first, err := f.manager.CreateHold(ctx, "F1", "12A", time.Second, "first")
		require.NoError(t, err)
		f.clock.Advance(2 * time.Second)
		_, err = f.manager.ReclaimExpired(ctx)
		require.NoError(t, err)

		second, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "second")
		require.NoError(t, err)

		// a late restore for the first hold must leave the second one alone
		expired, err := f.manager.GetHold(ctx, first.ID)
		require.NoError(t, err)
		restored, err := f.manager.restore(ctx, expired)
		require.NoError(t, err)
		assert.False(t, restored)
		assert.False(t, f.seatAvailable(t, "12A"))

		_, err = f.manager.ReleaseHold(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, f.seatAvailable(t, "12A"))

		_, err = f.manager.ConfirmBooking(ctx, second.ID, bookings.Passenger{})
		require.NoError(t, err)
	})
}

func TestConfirmSeat_Direct(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		booking, err := f.manager.ConfirmSeat(ctx, "F1", "12B", bookings.Passenger{FullName: "Ravi"})
		require.NoError(t, err)
		assert.Equal(t, 5000, booking.TotalPrice)
		assert.False(t, f.seatAvailable(t, "12B"))

		hold, err := f.manager.GetHold(ctx, booking.HoldID)
		require.NoError(t, err)
		assert.Equal(t, holds.StateConsumed, hold.State)

		_, err = f.manager.ConfirmSeat(ctx, "F1", "12B", bookings.Passenger{})
		assert.ErrorIs(t, err, ErrConflict)
		assert.ErrorIs(t, err, holds.ErrSeatUnavailable)

		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		_, err = f.manager.ConfirmSeat(ctx, "F1", "12A", bookings.Passenger{})
		assert.ErrorIs(t, err, holds.ErrAlreadyHeld)

		_, err = f.manager.ConfirmSeat(ctx, "F1", "12C", bookings.Passenger{})
		assert.ErrorIs(t, err, holds.ErrSeatUnavailable)

		_, err = f.manager.ConfirmSeat(ctx, "F1", "1A", bookings.Passenger{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, reconcileRequested(f.manager))
	})
}

func TestConcurrentCreateHold_SingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		const n = 32

		var wg sync.WaitGroup
		errs := make(chan error, n)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := f.manager.CreateHold(ctx, "F1", "12A", 0, fmt.Sprintf("s%d", i))
				errs <- err
			}(i)
		}
		close(start)
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrConflict)
		}
		assert.Equal(t, 1, wins)
		assert.False(t, reconcileRequested(f.manager))
	})
}

func TestConcurrentConfirm_SingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrAlreadyConsumed)
		}
		assert.Equal(t, 1, wins)

		list, err := f.ledger.ListByFlight(ctx, "F1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestConcurrentDirectAndHold_SingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		const n = 16

		var wg sync.WaitGroup
		wins := make(chan string, 2*n)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				if _, err := f.manager.ConfirmSeat(ctx, "F1", "12A", bookings.Passenger{}); err == nil {
					wins <- "direct"
				}
			}()
			go func() {
				defer wg.Done()
				<-start
				if _, err := f.manager.CreateHold(ctx, "F1", "12A", 0, ""); err == nil {
					wins <- "hold"
				}
			}()
		}
		close(start)
		wg.Wait()
		close(wins)

		count := 0
		for range wins {
			count++
		}
		assert.Equal(t, 1, count)
		assert.False(t, f.seatAvailable(t, "12A"))
	})
}

func TestConfirmBooking_RegeneratesDuplicateCode(t *testing.T) {
	codes := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	var mu sync.Mutex
	gen := func(n int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	f := newFixture(t, backends()["memory"], WithCodeGenerator(gen))
	ctx := context.Background()

	first, err := f.manager.ConfirmSeat(ctx, "F1", "12A", bookings.Passenger{})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", first.Code)

	second, err := f.manager.ConfirmSeat(ctx, "F1", "12B", bookings.Passenger{})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", second.Code)
}

func TestConfirmBooking_LedgerFailureIsInconsistent(t *testing.T) {
	gen := func(n int) (string, error) { return "", errors.New("entropy exhausted") }
	f := newFixture(t, backends()["memory"], WithCodeGenerator(gen))
	ctx := context.Background()

	hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
	require.NoError(t, err)

	_, err = f.manager.ConfirmBooking(ctx, hold.ID, bookings.Passenger{})
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.Equal(t, ReasonInconsistent, Reason(err))
	assert.True(t, reconcileRequested(f.manager))

	got, err := f.manager.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, holds.StateConsumed, got.State)
	assert.False(t, f.seatAvailable(t, "12A"))
	assert.Contains(t, f.events.types(), notifications.EventInconsistency)
}

func TestReleaseHold_ReportsInconsistency(t *testing.T) {
	f := newFixture(t, backends()["memory"])
	ctx := context.Background()

	hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
	require.NoError(t, err)

	// someone flipped the flag behind the manager's back
	require.NoError(t, f.catalog.SetAvailability(ctx, "F1", "12A", true))

	_, err = f.manager.ReleaseHold(ctx, hold.ID)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.True(t, reconcileRequested(f.manager))
	assert.True(t, f.seatAvailable(t, "12A"))
}

func TestCreateHold_CatalogDisagreementCancelsHold(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			catalog, err := flights.NewMemoryCatalog(testFlights())
			require.NoError(t, err)

			// a store that trusts a stale read: 12C looks free to it
			stale := func(ctx context.Context, key holds.Key) (bool, error) { return true, nil }
			clock := newFakeClock()
			store := factory(t, stale, clock)
			m := NewManager(store, catalog, bookings.NewMemoryLedger(), DefaultConfig(),
				WithClock(clock.Now), WithLogger(logger.Discard()))

			_, err = m.CreateHold(ctx, "F1", "12C", 0, "")
			assert.ErrorIs(t, err, ErrInconsistent)
			assert.True(t, reconcileRequested(m))

			cur, ok, err := store.Current(ctx, holds.Key{FlightID: "F1", SeatNo: "12C"})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, holds.StateCancelled, cur.State, "no orphan hold is left behind")

			ok, err = catalog.SeatAvailable(ctx, "F1", "12C")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// stallingCatalog parks the first "mark taken" swap on one seat until released.
type stallingCatalog struct {
	*flights.MemoryCatalog
	seatNo  string
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (c *stallingCatalog) SwapAvailability(ctx context.Context, flightID, seatNo string, available bool) (bool, error) {
	if seatNo == c.seatNo && !available && c.armed.CompareAndSwap(true, false) {
		close(c.entered)
		<-c.release
	}
	return c.MemoryCatalog.SwapAvailability(ctx, flightID, seatNo, available)
}

func TestReconcile_DoesNotBlockOtherSeats(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mem, err := flights.NewMemoryCatalog(testFlights())
			require.NoError(t, err)
			catalog := &stallingCatalog{
				MemoryCatalog: mem,
				seatNo:        "12A",
				entered:       make(chan struct{}),
				release:       make(chan struct{}),
			}

			clock := newFakeClock()
			m := NewManager(factory(t, CatalogAvailability(catalog), clock), catalog, bookings.NewMemoryLedger(),
				DefaultConfig(), WithClock(clock.Now), WithLogger(logger.Discard()))

			_, err = m.CreateHold(ctx, "F1", "12A", 0, "")
			require.NoError(t, err)
			require.NoError(t, mem.SetAvailability(ctx, "F1", "12A", true))
			catalog.armed.Store(true)

			type result struct {
				fixed int
				err   error
			}
			reconciled := make(chan result, 1)
			go func() {
				fixed, err := m.Reconcile(ctx)
				reconciled <- result{fixed, err}
			}()
			<-catalog.entered

			held := make(chan error, 1)
			go func() {
				_, err := m.CreateHold(ctx, "F1", "12B", 0, "")
				held <- err
			}()

			select {
			case err := <-held:
				assert.NoError(t, err)
			case <-time.After(500 * time.Millisecond):
				t.Fatal("CreateHold on 12B waited for reconciliation of 12A")
			}

			close(catalog.release)
			res := <-reconciled
			require.NoError(t, res.err)
			assert.Equal(t, 1, res.fixed)
			ok, err := mem.SeatAvailable(ctx, "F1", "12A")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestReconcile_SkipsClaimReleasedSinceScan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		hold, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		scanned, err := f.store.Get(ctx, hold.ID)
		require.NoError(t, err)

		_, err = f.manager.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)
		require.True(t, f.seatAvailable(t, "12A"))

		// the scan saw 12A held; by the time the seat is checked it is free
		repaired, err := f.manager.reconcileSeat(ctx, scanned)
		require.NoError(t, err)
		assert.False(t, repaired)
		assert.True(t, f.seatAvailable(t, "12A"))
	})
}

func TestReconcile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		held, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		booked, err := f.manager.ConfirmSeat(ctx, "F1", "12B", bookings.Passenger{})
		require.NoError(t, err)

		require.NoError(t, f.catalog.SetAvailability(ctx, "F1", "12A", true))
		require.NoError(t, f.catalog.SetAvailability(ctx, "F1", "12B", true))

		fixed, err := f.manager.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, fixed)
		assert.False(t, f.seatAvailable(t, "12A"))
		assert.False(t, f.seatAvailable(t, "12B"))

		fixed, err = f.manager.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, fixed)

		_, err = f.manager.ConfirmBooking(ctx, held.ID, bookings.Passenger{})
		require.NoError(t, err)
		assert.NotEmpty(t, booked.Code)
	})
}

func TestReclaimExpired_BatchLimit(t *testing.T) {
	f := newFixture(t, backends()["memory"])
	f.manager.config.ReclaimBatchSize = 1
	ctx := context.Background()

	_, err := f.manager.CreateHold(ctx, "F1", "12A", time.Second, "")
	require.NoError(t, err)
	_, err = f.manager.CreateHold(ctx, "F1", "12B", time.Second, "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	released, err := f.manager.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Len(t, released, 1)

	released, err = f.manager.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Len(t, released, 1)

	assert.True(t, f.seatAvailable(t, "12A"))
	assert.True(t, f.seatAvailable(t, "12B"))
}

func TestPurgeClosed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		old, err := f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)
		_, err = f.manager.ReleaseHold(ctx, old.ID)
		require.NoError(t, err)
		_, err = f.manager.CreateHold(ctx, "F1", "12A", 0, "")
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		purged, err := f.manager.PurgeClosed(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, purged)

		_, err = f.manager.GetHold(ctx, old.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{classify(holds.ErrSeatNotFound), 404, ReasonSeatNotFound},
		{classify(flights.ErrFlightNotFound), 404, ReasonFlightNotFound},
		{classify(holds.ErrHoldNotFound), 404, ReasonHoldNotFound},
		{classify(holds.ErrAlreadyHeld), 409, ReasonAlreadyHeld},
		{classify(holds.ErrSeatUnavailable), 409, ReasonSeatUnavailable},
		{classify(holds.ErrHoldExpired), 410, ReasonHoldExpired},
		{classify(holds.ErrHoldAlreadyConsumed), 409, ReasonHoldAlreadyConsumed},
		{classify(holds.ErrInvalidTTL), 400, ReasonInvalidRequest},
		{fmt.Errorf("%w: x", ErrInconsistent), 500, ReasonInconsistent},
		{errors.New("boom"), 500, ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.reason, Reason(tt.err))
		})
	}
}

func TestGenerateConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := generateConfirmationCode(8)
		require.NoError(t, err)
		require.Len(t, code, 8)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		seen[code] = true
	}
	assert.Len(t, seen, 1000)
	assert.Len(t, codeAlphabet, 32)
}
