package bookings

import "time"

type BookingResponse struct {
	BookingID        string    `json:"booking_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	HoldID           string    `json:"hold_id"`
	FlightID         string    `json:"flight_id"`
	SeatNo           string    `json:"seat_no"`
	Passenger        Passenger `json:"passenger"`
	Status           Status    `json:"status"`
	TotalPrice       int       `json:"total_price"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		BookingID:        b.ID,
		ConfirmationCode: b.Code,
		HoldID:           b.HoldID,
		FlightID:         b.FlightID,
		SeatNo:           b.SeatNo,
		Passenger:        b.Passenger,
		Status:           b.Status,
		TotalPrice:       b.TotalPrice,
		CreatedAt:        b.CreatedAt,
	}
}

type FlightBookingsResponse struct {
	FlightID string            `json:"flight_id"`
	Bookings []BookingResponse `json:"bookings"`
	Count    int               `json:"count"`
}
