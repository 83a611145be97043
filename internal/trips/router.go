package trips

import (
	"busline/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTripRoutes configures the trip, seat map and order routes
func SetupTripRoutes(rg *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	trips := rg.Group("/trips")
	{
		trips.GET("", controller.SearchTrips)              // GET /api/v1/trips?origin=&destination=&date=
		trips.GET("/:id", controller.GetTrip)              // GET /api/v1/trips/:id
		trips.PATCH("/:id", controller.UpdateTripBookings) // PATCH /api/v1/trips/:id
		trips.GET("/:id/seats", controller.GetSeatMap)     // GET /api/v1/trips/:id/seats?nic=&edit=&selected=
	}

	rg.GET("/layouts/:name", controller.GetLayout) // GET /api/v1/layouts/:name
	rg.GET("/orders/:id", controller.GetOrder)     // GET /api/v1/orders/:id

	admin := rg.Group("/admin")
	admin.Use(auth, middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleStaff))
	{
		admin.GET("/trips/:id/orders", controller.GetTripOrders) // GET /api/v1/admin/trips/:id/orders
	}
}

// Route definitions for reference:
//
// BOOKING FLOW
// 1. GET   /trips/:id              snapshot with booked_seats
// 2. GET   /trips/:id/seats        resolved seat states for the viewer
// 3. PATCH /trips/:id              full reconciled list; returns booking_id
// 4. GET   /orders/:booking_id     follow-on steps (meals, payment)
//
// PATCH replies 409 with errors.conflicting_seats when another passenger
// holds a submitted seat, and 422 for seats outside the trip's layout.
