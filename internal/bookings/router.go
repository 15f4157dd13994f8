package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures the read side of the booking ledger
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, limit gin.HandlerFunc) {
	booking := rg.Group("/booking")
	booking.Use(limit)
	{
		booking.GET("/:booking_id", controller.GetBooking)    // GET /api/v1/booking/:booking_id
		booking.GET("/pnr/:pnr", controller.GetBookingByCode) // GET /api/v1/booking/pnr/:pnr
	}

	rg.GET("/flights/:flight_id/bookings", limit, controller.ListFlightBookings)
}
