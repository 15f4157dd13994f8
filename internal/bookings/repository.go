package bookings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository is the PostgreSQL Ledger. The gorm connection must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, booking *Booking) error {
	err := r.db.WithContext(ctx).Create(booking).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.classifyDuplicate(ctx, booking)
	}
	return fmt.Errorf("failed to append booking: %w", err)
}

// classifyDuplicate works out which unique constraint rejected the insert.
func (r *Repository) classifyDuplicate(ctx context.Context, booking *Booking) error {
	var count int64
	db := r.db.WithContext(ctx).Model(&Booking{})

	if err := db.Where("id = ? OR hold_id = ?", booking.ID, booking.HoldID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to classify duplicate booking: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: booking %s / hold %s", ErrDuplicateID, booking.ID, booking.HoldID)
	}

	if err := r.db.WithContext(ctx).Model(&Booking{}).Where("pnr = ?", booking.Code).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to classify duplicate booking: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, booking.Code)
	}

	return fmt.Errorf("%w: %s", ErrDuplicateSeat, booking.seatKey())
}

func (r *Repository) Get(ctx context.Context, bookingID string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", bookingID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("pnr = ?", code).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, code)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *Repository) ListByFlight(ctx context.Context, flightID string) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("flight_id = ?", flightID).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
