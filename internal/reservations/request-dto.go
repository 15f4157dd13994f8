package reservations

// FlightHoldRequest is the body of POST /flights/:flight_id/hold
type FlightHoldRequest struct {
	SeatNo      string `json:"seat_no" validate:"required,seatno"`
	SessionID   string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	HoldMinutes int    `json:"hold_minutes,omitempty" validate:"omitempty,min=1"`
}

// SeatHoldRequest is the body of POST /seat/hold-seat
type SeatHoldRequest struct {
	FlightID   string `json:"flight_id" validate:"required,flightid"`
	SeatNo     string `json:"seat_no" validate:"required,seatno"`
	SessionID  string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" validate:"omitempty,min=1"`
}

// BookRequest confirms either an existing hold or, without hold_id, a seat
// directly.
type BookRequest struct {
	HoldID   string `json:"hold_id,omitempty" validate:"omitempty,max=64"`
	FlightID string `json:"flight_id,omitempty" validate:"required_without=HoldID,omitempty,flightid"`
	SeatNo   string `json:"seat_no,omitempty" validate:"required_without=HoldID,omitempty,seatno"`

	FullName      string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	PassengerName string `json:"passenger_name,omitempty" validate:"omitempty,max=120"` // older clients; full_name wins
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,max=32"`
}
