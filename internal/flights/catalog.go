package flights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrFlightNotFound = errors.New("flight not found")
	ErrSeatNotFound   = errors.New("seat not found")
)

// Catalog is the read-mostly flight dataset. Seat availability is the only
// mutable field and is changed exclusively by the reservation service.
type Catalog interface {
	Get(ctx context.Context, flightID string) (*Flight, error)
	Seat(ctx context.Context, flightID, seatNo string) (Seat, error)
	SeatAvailable(ctx context.Context, flightID, seatNo string) (bool, error)
	SetAvailability(ctx context.Context, flightID, seatNo string, available bool) error
	// SwapAvailability sets the flag and returns the previous value atomically.
	SwapAvailability(ctx context.Context, flightID, seatNo string, available bool) (bool, error)
	Search(ctx context.Context, q SearchQuery) ([]Flight, error)
	List(ctx context.Context) ([]Flight, error)
}

type flightEntry struct {
	mu     sync.RWMutex
	flight Flight
	seats  map[string]int
}

// MemoryCatalog keeps flights in memory. The set of flights is fixed at
// construction; each flight guards its own seats.
type MemoryCatalog struct {
	flights map[string]*flightEntry
	order   []string
}

// NewMemoryCatalog builds a catalog from flights, rejecting duplicate flight ids
// and duplicate seat numbers within a flight.
func NewMemoryCatalog(flights []Flight) (*MemoryCatalog, error) {
	c := &MemoryCatalog{
		flights: make(map[string]*flightEntry, len(flights)),
		order:   make([]string, 0, len(flights)),
	}

	for i := range flights {
		f := flights[i].clone()
		if f.ID == "" {
			return nil, fmt.Errorf("flight at index %d has no id", i)
		}
		if _, dup := c.flights[f.ID]; dup {
			return nil, fmt.Errorf("duplicate flight id %q", f.ID)
		}

		entry := &flightEntry{flight: f, seats: make(map[string]int, len(f.Seats))}
		for j, s := range f.Seats {
			if s.SeatNo == "" {
				return nil, fmt.Errorf("flight %s: seat at index %d has no seat_no", f.ID, j)
			}
			if _, dup := entry.seats[s.SeatNo]; dup {
				return nil, fmt.Errorf("flight %s: duplicate seat %q", f.ID, s.SeatNo)
			}
			entry.seats[s.SeatNo] = j
		}

		c.flights[f.ID] = entry
		c.order = append(c.order, f.ID)
	}

	return c, nil
}

func (c *MemoryCatalog) entry(flightID string) (*flightEntry, error) {
	e, ok := c.flights[flightID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlightNotFound, flightID)
	}
	return e, nil
}

func (c *MemoryCatalog) Get(ctx context.Context, flightID string) (*Flight, error) {
	e, err := c.entry(flightID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	f := e.flight.clone()
	return &f, nil
}

func (c *MemoryCatalog) Seat(ctx context.Context, flightID, seatNo string) (Seat, error) {
	e, err := c.entry(flightID)
	if err != nil {
		return Seat{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.seats[seatNo]
	if !ok {
		return Seat{}, fmt.Errorf("%w: %s on flight %s", ErrSeatNotFound, seatNo, flightID)
	}
	return e.flight.Seats[idx], nil
}

func (c *MemoryCatalog) SeatAvailable(ctx context.Context, flightID, seatNo string) (bool, error) {
	seat, err := c.Seat(ctx, flightID, seatNo)
	if err != nil {
		return false, err
	}
	return seat.Available, nil
}

func (c *MemoryCatalog) SetAvailability(ctx context.Context, flightID, seatNo string, available bool) error {
	_, err := c.SwapAvailability(ctx, flightID, seatNo, available)
	return err
}

func (c *MemoryCatalog) SwapAvailability(ctx context.Context, flightID, seatNo string, available bool) (bool, error) {
	e, err := c.entry(flightID)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.seats[seatNo]
	if !ok {
		return false, fmt.Errorf("%w: %s on flight %s", ErrSeatNotFound, seatNo, flightID)
	}
	prev := e.flight.Seats[idx].Available
	e.flight.Seats[idx].Available = available
	return prev, nil
}

func (c *MemoryCatalog) Search(ctx context.Context, q SearchQuery) ([]Flight, error) {
	origin := strings.TrimSpace(q.Origin)
	destination := strings.TrimSpace(q.Destination)
	date := strings.TrimSpace(q.Date)

	results := make([]Flight, 0)
	for _, id := range c.order {
		e := c.flights[id]
		e.mu.RLock()
		f := &e.flight
		match := (origin == "" || strings.EqualFold(f.Origin, origin)) &&
			(destination == "" || strings.EqualFold(f.Destination, destination)) &&
			(date == "" || f.Date == date)
		if match {
			results = append(results, f.clone())
		}
		e.mu.RUnlock()
	}
	return results, nil
}

func (c *MemoryCatalog) List(ctx context.Context) ([]Flight, error) {
	return c.Search(ctx, SearchQuery{})
}
