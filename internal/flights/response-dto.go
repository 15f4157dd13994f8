package flights

type SearchResponse struct {
	Flights []Flight `json:"flights"`
	Count   int      `json:"count"`
}

type SeatMapResponse struct {
	FlightID  string `json:"flight_id"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Seats     []Seat `json:"seats"`
}

func NewSeatMapResponse(f *Flight) SeatMapResponse {
	return SeatMapResponse{
		FlightID:  f.ID,
		Total:     len(f.Seats),
		Available: f.AvailableSeats(),
		Seats:     f.Seats,
	}
}
