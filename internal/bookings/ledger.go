package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrDuplicateID     = errors.New("booking id or hold id already recorded")
	ErrDuplicateCode   = errors.New("confirmation code already issued")
	ErrDuplicateSeat   = errors.New("seat already has a confirmed booking")
)

// Ledger stores confirmed bookings. It is append-only from the reservation
// service's point of view.
type Ledger interface {
	Append(ctx context.Context, booking *Booking) error
	Get(ctx context.Context, bookingID string) (*Booking, error)
	GetByCode(ctx context.Context, code string) (*Booking, error)
	ListByFlight(ctx context.Context, flightID string) ([]Booking, error)
	Ping(ctx context.Context) error
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu     sync.RWMutex
	byID   map[string]*Booking
	byCode map[string]string
	byHold map[string]string
	bySeat map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byID:   make(map[string]*Booking),
		byCode: make(map[string]string),
		byHold: make(map[string]string),
		bySeat: make(map[string]string),
	}
}

func (l *MemoryLedger) Append(ctx context.Context, booking *Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[booking.ID]; ok {
		return fmt.Errorf("%w: booking %s", ErrDuplicateID, booking.ID)
	}
	if _, ok := l.byHold[booking.HoldID]; ok {
		return fmt.Errorf("%w: hold %s", ErrDuplicateID, booking.HoldID)
	}
	if _, ok := l.byCode[booking.Code]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, booking.Code)
	}
	if booking.Status.HoldsSeat() {
		if _, ok := l.bySeat[booking.seatKey()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSeat, booking.seatKey())
		}
	}

	stored := *booking
	l.byID[stored.ID] = &stored
	l.byCode[stored.Code] = stored.ID
	l.byHold[stored.HoldID] = stored.ID
	if stored.Status.HoldsSeat() {
		l.bySeat[stored.seatKey()] = stored.ID
	}
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, bookingID string) (*Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.byID[bookingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	out := *b
	return &out, nil
}

func (l *MemoryLedger) GetByCode(ctx context.Context, code string) (*Booking, error) {
	l.mu.RLock()
	id, ok := l.byCode[code]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, code)
	}
	return l.Get(ctx, id)
}

func (l *MemoryLedger) ListByFlight(ctx context.Context, flightID string) ([]Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Booking, 0)
	for _, b := range l.byID {
		if b.FlightID == flightID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (l *MemoryLedger) Ping(ctx context.Context) error {
	return nil
}
