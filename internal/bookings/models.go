package bookings

import (
	"time"
)

// Passenger is the traveller a booking is issued to
type Passenger struct {
	FullName string `gorm:"type:varchar(120);not null" json:"full_name"`
	Email    string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone    string `gorm:"type:varchar(32)" json:"phone,omitempty"`
}

// Booking is written exactly once, when a hold is consumed. Code is the
// human-facing confirmation code (PNR); ID is the internal identifier.
type Booking struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"booking_id"`
	Code       string    `gorm:"column:pnr;type:varchar(16);uniqueIndex;not null" json:"pnr"`
	HoldID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"hold_id"`
	FlightID   string    `gorm:"type:varchar(64);index;not null" json:"flight_id"`
	SeatNo     string    `gorm:"type:varchar(16);not null" json:"seat_no"`
	Passenger  Passenger `gorm:"embedded;embeddedPrefix:passenger_" json:"passenger"`
	Status     Status    `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	TotalPrice int       `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) seatKey() string {
	return b.FlightID + "/" + b.SeatNo
}
