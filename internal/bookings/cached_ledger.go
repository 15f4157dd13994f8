package bookings

import (
	"context"
	"time"

	"flightdesk/internal/shared/constants"
	"flightdesk/pkg/cache"
	"flightdesk/pkg/logger"
)

// CachedLedger puts a read-through Redis cache in front of another Ledger.
// Bookings are immutable once appended, so entries never need invalidation.
type CachedLedger struct {
	Ledger
	cache cache.Service
	ttl   time.Duration
}

func NewCachedLedger(next Ledger, c cache.Service, ttl time.Duration) *CachedLedger {
	if ttl <= 0 {
		ttl = constants.TTL_BOOKING_DETAIL
	}
	return &CachedLedger{Ledger: next, cache: c, ttl: ttl}
}

func (l *CachedLedger) Append(ctx context.Context, booking *Booking) error {
	if err := l.Ledger.Append(ctx, booking); err != nil {
		return err
	}

	if err := l.cache.Set(ctx, constants.BuildBookingDetailKey(booking.ID), booking, l.ttl); err != nil {
		logger.GetDefault().WarnContext(ctx, "Failed to warm booking cache", "booking_id", booking.ID, "error", err)
	}
	return nil
}

func (l *CachedLedger) Get(ctx context.Context, bookingID string) (*Booking, error) {
	var booking Booking
	err := l.cache.GetOrSet(ctx, constants.BuildBookingDetailKey(bookingID), l.ttl, func() (interface{}, error) {
		return l.Ledger.Get(ctx, bookingID)
	}, &booking)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (l *CachedLedger) GetByCode(ctx context.Context, code string) (*Booking, error) {
	var booking Booking
	err := l.cache.GetOrSet(ctx, constants.BuildBookingByCodeKey(code), l.ttl, func() (interface{}, error) {
		return l.Ledger.GetByCode(ctx, code)
	}, &booking)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
