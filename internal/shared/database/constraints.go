package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints the ledger relies on for
// concurrency control beyond what the struct tags declare.
func MigrateConstraints(db *gorm.DB) error {
	// At most one confirmed booking per seat on a flight
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_bookings_confirmed_seat
		ON bookings (flight_id, seat_no)
		WHERE status = 'CONFIRMED';
	`).Error
	if err != nil {
		return err
	}

	// Flight manifests are listed in booking order
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_flight_created
		ON bookings (flight_id, created_at);
	`).Error
}
