package trips

import (
	"errors"
	"net/http"

	"busline/internal/seats"
	"busline/internal/shared/utils/response"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	SearchTrips(c *gin.Context)
	GetTrip(c *gin.Context)
	UpdateTripBookings(c *gin.Context)
	GetSeatMap(c *gin.Context)
	GetLayout(c *gin.Context)
	GetOrder(c *gin.Context)
	GetTripOrders(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// SearchTrips handles GET /api/v1/trips
func (ctrl *controller) SearchTrips(c *gin.Context) {
	var query TripSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := ctrl.service.SearchTrips(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Trips retrieved successfully", result, nil)
}

// GetTrip handles GET /api/v1/trips/:id
func (ctrl *controller) GetTrip(c *gin.Context) {
	tripID, ok := parseID(c, ErrInvalidTripID)
	if !ok {
		return
	}

	trip, err := ctrl.service.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Trip retrieved successfully", trip, nil)
}

// UpdateTripBookings handles PATCH /api/v1/trips/:id
func (ctrl *controller) UpdateTripBookings(c *gin.Context) {
	tripID, ok := parseID(c, ErrInvalidTripID)
	if !ok {
		return
	}

	var req UpdateTripBookingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := ctrl.service.UpdateTripBookings(c.Request.Context(), tripID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Booking saved successfully"
	if result.IsCancelled() {
		message = "Booking cancelled successfully"
	}
	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, message, result, nil)
}

// GetSeatMap handles GET /api/v1/trips/:id/seats
func (ctrl *controller) GetSeatMap(c *gin.Context) {
	tripID, ok := parseID(c, ErrInvalidTripID)
	if !ok {
		return
	}

	var query SeatMapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	seatMap, err := ctrl.service.GetSeatMap(c.Request.Context(), tripID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

// GetLayout handles GET /api/v1/layouts/:name
func (ctrl *controller) GetLayout(c *gin.Context) {
	layout, err := ctrl.service.GetLayout(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Layout retrieved successfully", layout, nil)
}

// GetOrder handles GET /api/v1/orders/:id
func (ctrl *controller) GetOrder(c *gin.Context) {
	bookingID, ok := parseID(c, ErrInvalidOrderID)
	if !ok {
		return
	}

	order, err := ctrl.service.GetOrder(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Booking order retrieved successfully", order, nil)
}

// GetTripOrders handles GET /api/v1/admin/trips/:id/orders
func (ctrl *controller) GetTripOrders(c *gin.Context) {
	tripID, ok := parseID(c, ErrInvalidTripID)
	if !ok {
		return
	}

	orders, err := ctrl.service.GetTripOrders(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Booking orders retrieved successfully", gin.H{
		"orders": orders,
		"count":  len(orders),
	}, nil)
}

func parseID(c *gin.Context, invalid error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, invalid.Error(), nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	var conflict *SeatConflictError
	var invalid *ValidationError

	switch {
	case errors.As(err, &conflict):
		response.RespondJSON(c, response.StatusError, http.StatusConflict, conflict.Error(), nil, gin.H{
			"conflicting_seats": conflict.Seats,
		})
	case errors.As(err, &invalid):
		response.RespondJSON(c, response.StatusError, http.StatusUnprocessableEntity, "Validation failed", nil, invalid.Fields)
	case errors.Is(err, ErrTripNotFound), errors.Is(err, ErrOrderNotFound), errors.Is(err, seats.ErrUnknownLayout):
		response.RespondJSON(c, response.StatusError, http.StatusNotFound, err.Error(), nil, nil)
	default:
		logger.GetDefault().LogHTTPError(c, err, http.StatusInternalServerError)
		response.RespondJSON(c, response.StatusError, http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
