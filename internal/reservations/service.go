package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flightdesk/internal/bookings"
	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
	"flightdesk/internal/notifications"
	"flightdesk/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultPassengerName = "Passenger"
	directBookingOwner   = "direct-booking"
	maxCodeAttempts      = 5
)

// Service is the hold, confirm and release protocol over the hold store, the
// flight catalog and the booking ledger.
type Service interface {
	CreateHold(ctx context.Context, flightID, seatNo string, ttl time.Duration, owner string) (holds.Hold, error)
	ConfirmBooking(ctx context.Context, holdID string, passenger bookings.Passenger) (*bookings.Booking, error)
	// ConfirmSeat books a seat without a prior hold. It behaves as CreateHold
	// immediately followed by ConfirmBooking, done as one atomic step.
	ConfirmSeat(ctx context.Context, flightID, seatNo string, passenger bookings.Passenger) (*bookings.Booking, error)
	ReleaseHold(ctx context.Context, holdID string) (holds.Hold, error)
	GetHold(ctx context.Context, holdID string) (holds.Hold, error)

	ReclaimExpired(ctx context.Context) ([]holds.Hold, error)
	Reconcile(ctx context.Context) (int, error)
	PurgeClosed(ctx context.Context, retention time.Duration) (int, error)
	ReconcileRequests() <-chan struct{}
}

// EventSink receives lifecycle events after a transition has been committed.
// It must not block.
type EventSink interface {
	Dispatch(event *notifications.Event)
}

type nopSink struct{}

func (nopSink) Dispatch(*notifications.Event) {}

// Config holds the TTL bounds and tuning for a Manager
type Config struct {
	DefaultHoldTTL   time.Duration
	MinHoldTTL       time.Duration
	MaxHoldTTL       time.Duration
	CodeLength       int
	ReclaimBatchSize int
}

func DefaultConfig() Config {
	return Config{
		DefaultHoldTTL:   600 * time.Second,
		MinHoldTTL:       time.Second,
		MaxHoldTTL:       30 * time.Minute,
		CodeLength:       8,
		ReclaimBatchSize: 100,
	}
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithEvents(sink EventSink) Option {
	return func(m *Manager) { m.events = sink }
}

func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithCodeGenerator replaces the random confirmation code source
func WithCodeGenerator(gen func(n int) (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

// Manager implements Service. Hold state is always changed in the store first
// and the catalog second.
type Manager struct {
	store   holds.Store
	catalog flights.Catalog
	ledger  bookings.Ledger
	config  Config

	events    EventSink
	log       *logger.Logger
	now       func() time.Time
	newCode   func(n int) (string, error)
	reconcile chan struct{}

	// serializes the store and catalog steps of one seat; other seats never wait
	seats *keyLocks
}

func NewManager(store holds.Store, catalog flights.Catalog, ledger bookings.Ledger, config Config, opts ...Option) *Manager {
	if config.CodeLength <= 0 {
		config.CodeLength = 8
	}
	m := &Manager{
		store:     store,
		catalog:   catalog,
		ledger:    ledger,
		config:    config,
		events:    nopSink{},
		log:       logger.GetDefault(),
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   generateConfirmationCode,
		reconcile: make(chan struct{}, 1),
		seats:     newKeyLocks(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CatalogAvailability adapts a catalog to the hold store's availability check
func CatalogAvailability(catalog flights.Catalog) holds.AvailabilityFunc {
	return func(ctx context.Context, key holds.Key) (bool, error) {
		ok, err := catalog.SeatAvailable(ctx, key.FlightID, key.SeatNo)
		if err != nil {
			if errors.Is(err, flights.ErrFlightNotFound) || errors.Is(err, flights.ErrSeatNotFound) {
				return false, fmt.Errorf("%w: %w", holds.ErrSeatNotFound, err)
			}
			return false, err
		}
		return ok, nil
	}
}

func (m *Manager) resolveTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		return m.config.DefaultHoldTTL, nil
	}
	if ttl < m.config.MinHoldTTL || ttl > m.config.MaxHoldTTL {
		return 0, fmt.Errorf("%w: hold ttl %s outside [%s, %s]", ErrInvalidRequest, ttl, m.config.MinHoldTTL, m.config.MaxHoldTTL)
	}
	return ttl, nil
}

func (m *Manager) CreateHold(ctx context.Context, flightID, seatNo string, ttl time.Duration, owner string) (holds.Hold, error) {
	ttl, err := m.resolveTTL(ttl)
	if err != nil {
		return holds.Hold{}, err
	}
	if _, err := m.catalog.Seat(ctx, flightID, seatNo); err != nil {
		return holds.Hold{}, classify(err)
	}

	key := holds.Key{FlightID: flightID, SeatNo: seatNo}
	unlock := m.seats.lock(key)
	defer unlock()

	hold, err := m.store.TryAcquire(ctx, key, ttl, owner)
	if err != nil {
		return holds.Hold{}, classify(err)
	}

	prev, err := m.catalog.SwapAvailability(ctx, flightID, seatNo, false)
	if err != nil {
		return holds.Hold{}, m.abandon(ctx, hold, fmt.Sprintf("hold %s granted but catalog update failed: %v", hold.ID, err))
	}
	if !prev {
		return holds.Hold{}, m.abandon(ctx, hold, fmt.Sprintf("hold %s granted on a seat the catalog already listed as taken", hold.ID))
	}

	m.log.LogHoldCreated(ctx, hold.ID, flightID, seatNo, hold.ExpiresAt)
	m.emit(notifications.EventHoldCreated, hold, nil)
	return hold, nil
}

// abandon cancels a hold the caller will never learn about and reports the
// disagreement that made it unusable. The catalog is left as found.
func (m *Manager) abandon(ctx context.Context, hold holds.Hold, detail string) error {
	if _, _, err := m.store.Release(ctx, hold.ID, holds.StateCancelled); err != nil {
		detail = fmt.Sprintf("%s; cancelling the hold failed: %v", detail, err)
	}
	return m.inconsistent(ctx, hold.Key(), detail)
}

// lockHold resolves a hold id to its seat and locks that seat.
func (m *Manager) lockHold(ctx context.Context, holdID string) (func(), error) {
	hold, err := m.store.Get(ctx, holdID)
	if err != nil {
		return nil, classify(err)
	}
	return m.seats.lock(hold.Key()), nil
}

func (m *Manager) ConfirmBooking(ctx context.Context, holdID string, passenger bookings.Passenger) (*bookings.Booking, error) {
	unlock, err := m.lockHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hold, err := m.store.Consume(ctx, holdID)
	if err != nil {
		return nil, classify(err)
	}
	return m.book(ctx, hold, passenger, true)
}

func (m *Manager) ConfirmSeat(ctx context.Context, flightID, seatNo string, passenger bookings.Passenger) (*bookings.Booking, error) {
	if _, err := m.catalog.Seat(ctx, flightID, seatNo); err != nil {
		return nil, classify(err)
	}

	key := holds.Key{FlightID: flightID, SeatNo: seatNo}
	unlock := m.seats.lock(key)
	defer unlock()

	hold, err := m.store.Claim(ctx, key, directBookingOwner)
	if err != nil {
		return nil, classify(err)
	}
	return m.book(ctx, hold, passenger, false)
}

// book marks the consumed hold's seat as taken and appends the booking.
// wasHeld tells whether the catalog should already show the seat as taken.
func (m *Manager) book(ctx context.Context, hold holds.Hold, passenger bookings.Passenger, wasHeld bool) (*bookings.Booking, error) {
	seat, err := m.catalog.Seat(ctx, hold.FlightID, hold.SeatNo)
	if err != nil {
		return nil, m.inconsistent(ctx, hold.Key(), fmt.Sprintf("hold %s consumed but seat lookup failed: %v", hold.ID, err))
	}

	prev, err := m.catalog.SwapAvailability(ctx, hold.FlightID, hold.SeatNo, false)
	if err != nil {
		return nil, m.inconsistent(ctx, hold.Key(), fmt.Sprintf("hold %s consumed but catalog update failed: %v", hold.ID, err))
	}
	if prev == wasHeld {
		// the seat is now taken either way, so the booking goes ahead
		_ = m.inconsistent(ctx, hold.Key(), fmt.Sprintf("catalog listed seat as available=%t when booking hold %s", prev, hold.ID))
	}

	if strings.TrimSpace(passenger.FullName) == "" {
		passenger.FullName = defaultPassengerName
	}
	booking := &bookings.Booking{
		ID:         uuid.NewString(),
		HoldID:     hold.ID,
		FlightID:   hold.FlightID,
		SeatNo:     hold.SeatNo,
		Passenger:  passenger,
		Status:     bookings.StatusConfirmed,
		TotalPrice: seat.Price,
		CreatedAt:  m.now(),
	}
	if err := m.appendBooking(ctx, booking); err != nil {
		return nil, m.inconsistent(ctx, hold.Key(), fmt.Sprintf("hold %s consumed but booking was not recorded: %v", hold.ID, err))
	}

	m.log.LogBookingConfirmed(ctx, booking.ID, booking.Code, booking.FlightID, booking.SeatNo)
	m.emit(notifications.EventBookingConfirmed, hold, booking)
	return booking, nil
}

func (m *Manager) appendBooking(ctx context.Context, booking *bookings.Booking) error {
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		booking.Code, err = m.newCode(m.config.CodeLength)
		if err != nil {
			return fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		err = m.ledger.Append(ctx, booking)
		if !errors.Is(err, bookings.ErrDuplicateCode) {
			return err
		}
	}
	return err
}

func (m *Manager) ReleaseHold(ctx context.Context, holdID string) (holds.Hold, error) {
	unlock, err := m.lockHold(ctx, holdID)
	if err != nil {
		return holds.Hold{}, err
	}
	defer unlock()

	hold, changed, err := m.store.Release(ctx, holdID, holds.StateCancelled)
	if err != nil {
		return holds.Hold{}, classify(err)
	}
	if !changed {
		return hold, nil
	}
	return hold, m.afterRelease(ctx, hold)
}

// afterRelease restores the seat for a hold that just left HELD and reports it
func (m *Manager) afterRelease(ctx context.Context, hold holds.Hold) error {
	restored, err := m.restore(ctx, hold)
	m.log.LogHoldReleased(ctx, hold.ID, hold.FlightID, hold.SeatNo, hold.State.String(), restored)

	eventType := notifications.EventHoldReleased
	if hold.State == holds.StateExpired {
		eventType = notifications.EventHoldExpired
	}
	m.emit(eventType, hold, nil)
	return err
}

// restore marks the seat available again unless a newer record has claimed
// the key since this hold was created.
func (m *Manager) restore(ctx context.Context, hold holds.Hold) (bool, error) {
	cur, ok, err := m.store.Current(ctx, hold.Key())
	if err != nil {
		return false, fmt.Errorf("failed to read current hold for %s: %w", hold.Key(), err)
	}
	if ok && cur.ID != hold.ID {
		return false, nil
	}

	prev, err := m.catalog.SwapAvailability(ctx, hold.FlightID, hold.SeatNo, true)
	if err != nil {
		return false, m.inconsistent(ctx, hold.Key(), fmt.Sprintf("hold %s released but catalog update failed: %v", hold.ID, err))
	}
	if prev {
		return true, m.inconsistent(ctx, hold.Key(), fmt.Sprintf("seat was already available when hold %s was released", hold.ID))
	}
	return true, nil
}

func (m *Manager) GetHold(ctx context.Context, holdID string) (holds.Hold, error) {
	hold, err := m.store.Get(ctx, holdID)
	if err != nil {
		return holds.Hold{}, classify(err)
	}
	return hold, nil
}

// ReclaimExpired runs one reclaim pass: every HELD hold past its expiry is
// released as EXPIRED and its seat restored. At most ReclaimBatchSize holds
// are released per pass.
func (m *Manager) ReclaimExpired(ctx context.Context) ([]holds.Hold, error) {
	start := time.Now()
	now := m.now()

	released := make([]holds.Hold, 0)
	var errs []error
	for lapsed, err := range m.store.ScanExpired(ctx, now) {
		if err != nil {
			errs = append(errs, err)
			break
		}

		hold, changed, err := m.expire(ctx, lapsed)
		if err != nil {
			errs = append(errs, err)
		}
		if !changed {
			// confirmed or cancelled since the scan
			continue
		}
		released = append(released, hold)
		if m.config.ReclaimBatchSize > 0 && len(released) >= m.config.ReclaimBatchSize {
			break
		}
	}

	m.log.LogReclaimPass(ctx, len(released), time.Since(start))
	return released, errors.Join(errs...)
}

// expire releases one lapsed hold as EXPIRED and restores its seat.
func (m *Manager) expire(ctx context.Context, lapsed holds.Hold) (holds.Hold, bool, error) {
	unlock := m.seats.lock(lapsed.Key())
	defer unlock()

	hold, changed, err := m.store.Release(ctx, lapsed.ID, holds.StateExpired)
	if err != nil {
		return holds.Hold{}, false, fmt.Errorf("failed to expire hold %s: %w", lapsed.ID, err)
	}
	if !changed {
		return hold, false, nil
	}
	return hold, true, m.afterRelease(ctx, hold)
}

// Reconcile marks seats unavailable whose key is claimed by a live hold or a
// booking while the catalog lists them as free. It returns the number fixed.
// Each seat is locked only while it is checked.
func (m *Manager) Reconcile(ctx context.Context) (int, error) {
	fixed := 0
	var errs []error
	for claim, err := range m.store.Claims(ctx) {
		if err != nil {
			errs = append(errs, err)
			break
		}

		repaired, err := m.reconcileSeat(ctx, claim)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if repaired {
			fixed++
		}
	}

	if fixed > 0 {
		m.log.InfoContext(ctx, "Reconciliation pass repaired seats", "fixed", fixed)
	}
	return fixed, errors.Join(errs...)
}

// reconcileSeat re-reads the seat's current record under its lock, since the
// claim seen by the scan may have been released or replaced since.
func (m *Manager) reconcileSeat(ctx context.Context, claim holds.Hold) (bool, error) {
	unlock := m.seats.lock(claim.Key())
	defer unlock()

	cur, ok, err := m.store.Current(ctx, claim.Key())
	if err != nil {
		return false, fmt.Errorf("failed to read current hold for %s: %w", claim.Key(), err)
	}
	if !ok || cur.ID != claim.ID {
		return false, nil
	}
	switch {
	case cur.State == holds.StateConsumed:
	case cur.State == holds.StateHeld && !cur.Lapsed(m.now()):
	default:
		return false, nil
	}

	prev, err := m.catalog.SwapAvailability(ctx, cur.FlightID, cur.SeatNo, false)
	if err != nil {
		return false, fmt.Errorf("failed to reconcile %s: %w", cur.Key(), err)
	}
	if prev {
		m.log.LogInconsistency(ctx, cur.FlightID, cur.SeatNo,
			fmt.Sprintf("reconciled: seat listed as available while hold %s is %s", cur.ID, cur.State))
	}
	return prev, nil
}

func (m *Manager) PurgeClosed(ctx context.Context, retention time.Duration) (int, error) {
	return m.store.Purge(ctx, m.now().Add(-retention))
}

// ReconcileRequests signals whenever an inconsistency asked for a reconciliation pass
func (m *Manager) ReconcileRequests() <-chan struct{} {
	return m.reconcile
}

// inconsistent reports a disagreement between hold store and catalog, asks for
// a reconciliation pass and returns the error to surface.
func (m *Manager) inconsistent(ctx context.Context, key holds.Key, detail string) error {
	m.log.LogInconsistency(ctx, key.FlightID, key.SeatNo, detail)

	select {
	case m.reconcile <- struct{}{}:
	default:
	}

	m.events.Dispatch(notifications.NewEvent(notifications.EventInconsistency, key.FlightID, key.SeatNo).With("detail", detail))
	return fmt.Errorf("%w: %s: %s", ErrInconsistent, key, detail)
}

func (m *Manager) emit(eventType notifications.EventType, hold holds.Hold, booking *bookings.Booking) {
	event := notifications.NewEvent(eventType, hold.FlightID, hold.SeatNo)
	event.HoldID = hold.ID
	event.Owner = hold.Owner
	if booking != nil {
		event.BookingID = booking.ID
		event.With("confirmation_code", booking.Code)
	}
	if hold.State.IsTerminal() {
		event.With("state", hold.State.String())
	}
	m.events.Dispatch(event)
}
