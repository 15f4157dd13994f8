package flights

import (
	"github.com/gin-gonic/gin"
)

func SetupFlightRoutes(rg *gin.RouterGroup, controller *Controller) {

	flights := rg.Group("/flights")
	{
		flights.GET("", controller.ListFlights)                   // GET /api/v1/flights
		flights.GET("/search", controller.SearchFlights)          // GET /api/v1/flights/search?origin=&destination=&date=
		flights.GET("/:flight_id", controller.GetFlight)          // GET /api/v1/flights/:flight_id
		flights.GET("/:flight_id/seatmap", controller.GetSeatMap) // GET /api/v1/flights/:flight_id/seatmap
	}

	seat := rg.Group("/seat")
	{
		seat.GET("/seatmap/:flight_id", controller.GetSeatMap) // GET /api/v1/seat/seatmap/:flight_id
	}
}
