package flights

// SeatType classifies a seat by its position in the row
type SeatType string

const (
	SeatTypeWindow SeatType = "window"
	SeatTypeMiddle SeatType = "middle"
	SeatTypeAisle  SeatType = "aisle"
)

// IsValid checks if the seat type is one of the known positions
func (t SeatType) IsValid() bool {
	switch t {
	case SeatTypeWindow, SeatTypeMiddle, SeatTypeAisle:
		return true
	}
	return false
}

// Seat is one bookable seat on a flight. Available is the source of truth for
// whether the seat may be held.
type Seat struct {
	SeatNo    string   `json:"seat_no"`
	Type      SeatType `json:"type,omitempty"`
	Available bool     `json:"available"`
	Price     int      `json:"price"`
}

type Flight struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode,omitempty"`
	Origin       string    `json:"from"`
	Destination  string    `json:"to"`
	Date         string    `json:"date"`
	Departure    string    `json:"departure,omitempty"`
	Arrival      string    `json:"arrival,omitempty"`
	Price        int       `json:"price"`
	Airline      string    `json:"airline,omitempty"`
	FlightNumber string    `json:"flight_number,omitempty"`
	Stops        int       `json:"stops"`
	Layovers     []*string `json:"layovers"`
	TotalTime    string    `json:"total_time,omitempty"`
	Seats        []Seat    `json:"seats"`
}

// AvailableSeats counts seats currently free to hold
func (f *Flight) AvailableSeats() int {
	n := 0
	for _, s := range f.Seats {
		if s.Available {
			n++
		}
	}
	return n
}

func (f *Flight) clone() Flight {
	out := *f
	out.Seats = append([]Seat(nil), f.Seats...)
	if f.Layovers != nil {
		out.Layovers = make([]*string, len(f.Layovers))
		for i, l := range f.Layovers {
			if l != nil {
				v := *l
				out.Layovers[i] = &v
			}
		}
	}
	return out
}

// SearchQuery filters flights. Empty fields match everything; origin and
// destination compare case-insensitively.
type SearchQuery struct {
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Date        string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}
