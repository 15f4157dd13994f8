package reservations

import (
	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures the hold and booking write routes
func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, limit gin.HandlerFunc) {
	flights := rg.Group("/flights")
	{
		flights.POST("/:flight_id/hold", limit, controller.HoldFlightSeat) // POST /api/v1/flights/:flight_id/hold
		flights.POST("/sweep-expired", controller.SweepExpired)           // POST /api/v1/flights/sweep-expired
	}

	seat := rg.Group("/seat")
	seat.Use(limit)
	{
		seat.POST("/hold-seat", controller.HoldSeat)          // POST /api/v1/seat/hold-seat
		seat.GET("/hold/:hold_id", controller.GetHold)        // GET /api/v1/seat/hold/:hold_id
		seat.DELETE("/hold/:hold_id", controller.ReleaseHold) // DELETE /api/v1/seat/hold/:hold_id
	}

	rg.POST("/booking/book", limit, controller.Book) // POST /api/v1/booking/book
}
