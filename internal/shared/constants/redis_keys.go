package constants

import "time"

// Redis keys used across the service.
// Pattern: flightdesk:{module}:{kind}:{identifier}

const (
	CACHE_PREFIX = "flightdesk"
)

// ================== HOLDS MODULE ==================

const (
	KEY_HOLD_RECORD       = CACHE_PREFIX + ":holds:record:" // + hold-id (hash)
	KEY_SEAT_CLAIM        = CACHE_PREFIX + ":holds:seat:"   // + flight-id:seat-no -> current hold-id
	KEY_HOLD_EXPIRY_INDEX = CACHE_PREFIX + ":holds:expiry"  // zset hold-id -> expires_at (ms), HELD only
	KEY_HOLD_CLOSED_INDEX = CACHE_PREFIX + ":holds:closed"  // zset hold-id -> closed_at (ms), terminal only
)

// ================== BOOKINGS MODULE ==================

const (
	CACHE_KEY_BOOKING_DETAIL  = CACHE_PREFIX + ":bookings:detail:uuid:" // + booking-id
	CACHE_KEY_BOOKING_BY_CODE = CACHE_PREFIX + ":bookings:detail:pnr:"  // + confirmation code
)

// Bookings never change after they are written, so they can sit in cache for long.
const (
	TTL_BOOKING_DETAIL = 1 * time.Hour
)

// ================== RATE LIMIT MODULE ==================

const (
	KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + limit-type:client-ip
)

// ================== HELPER FUNCTIONS ==================

func BuildHoldRecordKey(holdID string) string {
	return KEY_HOLD_RECORD + holdID
}

func BuildSeatClaimKey(flightID, seatNo string) string {
	return KEY_SEAT_CLAIM + flightID + ":" + seatNo
}

func BuildBookingDetailKey(bookingID string) string {
	return CACHE_KEY_BOOKING_DETAIL + bookingID
}

func BuildBookingByCodeKey(code string) string {
	return CACHE_KEY_BOOKING_BY_CODE + code
}

func BuildRateLimitKey(limitType, clientIP string) string {
	return KEY_RATE_LIMIT + limitType + ":" + clientIP
}
