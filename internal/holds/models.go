package holds

import "time"

// State is the lifecycle state of a hold. HELD is the only non-terminal state.
type State string

const (
	StateHeld      State = "HELD"
	StateConsumed  State = "CONSUMED"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
)

// IsValid checks if the state is valid
func (s State) IsValid() bool {
	switch s {
	case StateHeld, StateConsumed, StateExpired, StateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateConsumed || s == StateExpired || s == StateCancelled
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Key identifies one seat on one flight.
type Key struct {
	FlightID string
	SeatNo   string
}

func (k Key) String() string {
	return k.FlightID + "/" + k.SeatNo
}

// Hold is a snapshot of a claim on a seat. Stores hand out copies; changing a
// Hold value never changes stored state.
type Hold struct {
	ID        string     `json:"hold_id"`
	FlightID  string     `json:"flight_id"`
	SeatNo    string     `json:"seat_no"`
	Owner     string     `json:"owner,omitempty"`
	State     State      `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func (h Hold) Key() Key {
	return Key{FlightID: h.FlightID, SeatNo: h.SeatNo}
}

// Live reports whether the hold is HELD and its expiry is still ahead of now.
func (h Hold) Live(now time.Time) bool {
	return h.State == StateHeld && now.Before(h.ExpiresAt)
}

// Lapsed reports whether the hold is still HELD but its expiry has passed.
func (h Hold) Lapsed(now time.Time) bool {
	return h.State == StateHeld && !now.Before(h.ExpiresAt)
}

// Remaining is the time left before expiry, zero once lapsed or closed.
func (h Hold) Remaining(now time.Time) time.Duration {
	if !h.Live(now) {
		return 0
	}
	return h.ExpiresAt.Sub(now)
}

func (h *Hold) close(state State, at time.Time) {
	h.State = state
	h.ClosedAt = &at
}
