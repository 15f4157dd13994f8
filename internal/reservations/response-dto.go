package reservations

import (
	"time"

	"flightdesk/internal/holds"
)

type HoldResponse struct {
	HoldID           string      `json:"hold_id"`
	FlightID         string      `json:"flight_id"`
	SeatNo           string      `json:"seat_no"`
	SessionID        string      `json:"session_id,omitempty"`
	State            holds.State `json:"state"`
	CreatedAt        time.Time   `json:"created_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
	RemainingSeconds int         `json:"remaining_seconds"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
}

func NewHoldResponse(h holds.Hold, now time.Time) HoldResponse {
	return HoldResponse{
		HoldID:           h.ID,
		FlightID:         h.FlightID,
		SeatNo:           h.SeatNo,
		SessionID:        h.Owner,
		State:            h.State,
		CreatedAt:        h.CreatedAt,
		ExpiresAt:        h.ExpiresAt,
		RemainingSeconds: int(h.Remaining(now).Seconds()),
		ClosedAt:         h.ClosedAt,
	}
}

type SweepResponse struct {
	Released int            `json:"released"`
	Holds    []HoldResponse `json:"holds"`
}
