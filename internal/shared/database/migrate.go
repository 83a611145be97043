package database

import (
	"busline/internal/trips"

	"gorm.io/gorm"
)

// Migrate creates the trip, booking and booking order tables. The unique
// (trip_id, seat_number) index on bookings is declared on the model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&trips.Trip{},
		&trips.Booking{},
		&trips.BookingOrder{},
	)
}
