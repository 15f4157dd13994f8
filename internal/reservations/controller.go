package reservations

import (
	"net/http"
	"strings"
	"time"

	"flightdesk/internal/bookings"
	"flightdesk/internal/shared/utils/response"
	"flightdesk/internal/shared/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
	now       func() time.Time
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validation.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HOLDS

// HoldFlightSeat handles POST /flights/:flight_id/hold
func (c *Controller) HoldFlightSeat(ctx *gin.Context) {
	var req FlightHoldRequest
	if !c.bind(ctx, &req) {
		return
	}

	ttl := time.Duration(req.HoldMinutes) * time.Minute
	hold, err := c.service.CreateHold(ctx.Request.Context(), ctx.Param("flight_id"), normalizeSeat(req.SeatNo), ttl, req.SessionID)
	if err != nil {
		respondServiceError(ctx, "Failed to hold seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seat held successfully", NewHoldResponse(hold, c.now()), nil)
}

// HoldSeat handles POST /seat/hold-seat
func (c *Controller) HoldSeat(ctx *gin.Context) {
	var req SeatHoldRequest
	if !c.bind(ctx, &req) {
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	hold, err := c.service.CreateHold(ctx.Request.Context(), req.FlightID, normalizeSeat(req.SeatNo), ttl, req.SessionID)
	if err != nil {
		respondServiceError(ctx, "Failed to hold seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seat held successfully", NewHoldResponse(hold, c.now()), nil)
}

// GetHold handles GET /seat/hold/:hold_id
func (c *Controller) GetHold(ctx *gin.Context) {
	hold, err := c.service.GetHold(ctx.Request.Context(), ctx.Param("hold_id"))
	if err != nil {
		respondServiceError(ctx, "Failed to get hold", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold retrieved successfully", NewHoldResponse(hold, c.now()), nil)
}

// ReleaseHold handles DELETE /seat/hold/:hold_id
func (c *Controller) ReleaseHold(ctx *gin.Context) {
	hold, err := c.service.ReleaseHold(ctx.Request.Context(), ctx.Param("hold_id"))
	if err != nil {
		respondServiceError(ctx, "Failed to release hold", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold released successfully", NewHoldResponse(hold, c.now()), nil)
}

// BOOKINGS

// Book handles POST /booking/book
func (c *Controller) Book(ctx *gin.Context) {
	var req BookRequest
	if !c.bind(ctx, &req) {
		return
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		name = strings.TrimSpace(req.PassengerName)
	}
	passenger := bookings.Passenger{
		FullName: name,
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
	}

	var (
		booking *bookings.Booking
		err     error
	)
	if req.HoldID != "" {
		booking, err = c.service.ConfirmBooking(ctx.Request.Context(), req.HoldID, passenger)
	} else {
		booking, err = c.service.ConfirmSeat(ctx.Request.Context(), req.FlightID, normalizeSeat(req.SeatNo), passenger)
	}
	if err != nil {
		respondServiceError(ctx, "Failed to confirm booking", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Booking confirmed successfully", bookings.NewBookingResponse(booking), nil)
}

// MAINTENANCE

// SweepExpired handles POST /flights/sweep-expired
func (c *Controller) SweepExpired(ctx *gin.Context) {
	released, err := c.service.ReclaimExpired(ctx.Request.Context())
	out := SweepResponse{Released: len(released), Holds: make([]HoldResponse, 0, len(released))}
	now := c.now()
	for _, h := range released {
		out.Holds = append(out.Holds, NewHoldResponse(h, now))
	}
	if err != nil {
		response.RespondJSON(ctx, "error", HTTPStatus(err), "Sweep finished with errors", out,
			response.ErrorDetail{Reason: Reason(err), Detail: err.Error()})
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Expired holds released", out, nil)
}

func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", ReasonInvalidRequest, err)
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Validation failed", ReasonInvalidRequest, err)
		return false
	}
	return true
}

func respondServiceError(ctx *gin.Context, message string, err error) {
	response.RespondError(ctx, HTTPStatus(err), message, Reason(err), err)
}

func normalizeSeat(seatNo string) string {
	return strings.ToUpper(strings.TrimSpace(seatNo))
}
