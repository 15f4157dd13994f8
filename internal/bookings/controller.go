package bookings

import (
	"errors"
	"net/http"
	"strings"

	"flightdesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const ReasonBookingNotFound = "BOOKING_NOT_FOUND"

type Controller struct {
	ledger Ledger
}

func NewController(ledger Ledger) *Controller {
	return &Controller{ledger: ledger}
}

// GetBooking handles GET /booking/:booking_id
func (c *Controller) GetBooking(ctx *gin.Context) {
	booking, err := c.ledger.Get(ctx.Request.Context(), ctx.Param("booking_id"))
	if err != nil {
		c.respondLookupError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", NewBookingResponse(booking), nil)
}

// GetBookingByCode handles GET /booking/pnr/:pnr
func (c *Controller) GetBookingByCode(ctx *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(ctx.Param("pnr")))
	booking, err := c.ledger.GetByCode(ctx.Request.Context(), code)
	if err != nil {
		c.respondLookupError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", NewBookingResponse(booking), nil)
}

// ListFlightBookings handles GET /flights/:flight_id/bookings
func (c *Controller) ListFlightBookings(ctx *gin.Context) {
	flightID := ctx.Param("flight_id")
	list, err := c.ledger.ListByFlight(ctx.Request.Context(), flightID)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to list bookings", "INTERNAL", err)
		return
	}

	out := FlightBookingsResponse{FlightID: flightID, Bookings: make([]BookingResponse, 0, len(list))}
	for i := range list {
		out.Bookings = append(out.Bookings, NewBookingResponse(&list[i]))
	}
	out.Count = len(out.Bookings)

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", out, nil)
}

func (c *Controller) respondLookupError(ctx *gin.Context, err error) {
	if errors.Is(err, ErrBookingNotFound) {
		response.RespondError(ctx, http.StatusNotFound, "Booking not found", ReasonBookingNotFound, err)
		return
	}
	response.RespondError(ctx, http.StatusInternalServerError, "Failed to retrieve booking", "INTERNAL", err)
}
