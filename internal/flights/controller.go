package flights

import (
	"errors"
	"net/http"

	"flightdesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const ReasonFlightNotFound = "FLIGHT_NOT_FOUND"

type Controller struct {
	catalog Catalog
}

func NewController(catalog Catalog) *Controller {
	return &Controller{catalog: catalog}
}

func (c *Controller) ListFlights(ctx *gin.Context) {
	flights, err := c.catalog.List(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to list flights", "INTERNAL", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Flights retrieved successfully",
		SearchResponse{Flights: flights, Count: len(flights)}, nil)
}

func (c *Controller) SearchFlights(ctx *gin.Context) {
	var q SearchQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid search parameters", "INVALID_REQUEST", err)
		return
	}

	flights, err := c.catalog.Search(ctx.Request.Context(), q)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to search flights", "INTERNAL", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Flights retrieved successfully",
		SearchResponse{Flights: flights, Count: len(flights)}, nil)
}

func (c *Controller) GetFlight(ctx *gin.Context) {
	flight, ok := c.lookup(ctx)
	if !ok {
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Flight retrieved successfully", flight, nil)
}

func (c *Controller) GetSeatMap(ctx *gin.Context) {
	flight, ok := c.lookup(ctx)
	if !ok {
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", NewSeatMapResponse(flight), nil)
}

func (c *Controller) lookup(ctx *gin.Context) (*Flight, bool) {
	flightID := ctx.Param("flight_id")
	if flightID == "" {
		response.RespondError(ctx, http.StatusBadRequest, "Flight ID is required", "INVALID_REQUEST", nil)
		return nil, false
	}

	flight, err := c.catalog.Get(ctx.Request.Context(), flightID)
	if err != nil {
		if errors.Is(err, ErrFlightNotFound) {
			response.RespondError(ctx, http.StatusNotFound, "Flight not found", ReasonFlightNotFound, err)
			return nil, false
		}
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to get flight", "INTERNAL", err)
		return nil, false
	}
	return flight, true
}
