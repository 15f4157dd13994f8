package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a reservation lifecycle transition
type EventType string

const (
	EventHoldCreated      EventType = "HOLD_CREATED"
	EventHoldReleased     EventType = "HOLD_RELEASED"
	EventHoldExpired      EventType = "HOLD_EXPIRED"
	EventBookingConfirmed EventType = "BOOKING_CONFIRMED"
	EventInconsistency    EventType = "INCONSISTENCY_DETECTED"
)

// Event is published after a reservation transition has been committed.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	HoldID     string            `json:"hold_id,omitempty"`
	BookingID  string            `json:"booking_id,omitempty"`
	FlightID   string            `json:"flight_id"`
	SeatNo     string            `json:"seat_no"`
	Owner      string            `json:"owner,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// NewEvent stamps a fresh id and the current time
func NewEvent(eventType EventType, flightID, seatNo string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		FlightID:   flightID,
		SeatNo:     seatNo,
		OccurredAt: time.Now().UTC(),
	}
}

// With sets a payload entry and returns the event for chaining
func (e *Event) With(key, value string) *Event {
	if e.Payload == nil {
		e.Payload = make(map[string]string)
	}
	e.Payload[key] = value
	return e
}

// PartitionKey keeps every event for one seat on the same partition
func (e *Event) PartitionKey() string {
	return e.FlightID + "/" + e.SeatNo
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
