package trips

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses
const (
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// Trip is one scheduled bus run and the seats currently booked on it
type Trip struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Origin      string    `gorm:"type:varchar(100);not null;index:idx_trips_route" json:"origin"`
	Destination string    `gorm:"type:varchar(100);not null;index:idx_trips_route" json:"destination"`
	StartsAt    time.Time `gorm:"not null;index" json:"start_time"`
	EndsAt      time.Time `gorm:"not null" json:"end_time"`
	BusNumber   string    `gorm:"type:varchar(20);not null" json:"bus_number"`
	Price       float64   `gorm:"not null" json:"price"`
	SeatLayout  string    `gorm:"type:varchar(32);not null;default:'standard-50'" json:"seat_layout"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	BookedSeats []Booking `gorm:"foreignKey:TripID" json:"booked_seats"`
}

// Booking is one passenger on one seat. A seat is held at most once per trip.
type Booking struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TripID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookings_trip_seat" json:"trip_id"`
	SeatNumber          int       `gorm:"not null;uniqueIndex:idx_bookings_trip_seat" json:"seat_number"`
	BookingID           uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	NIC                 string    `gorm:"type:varchar(20);not null;index" json:"nic"`
	PassengerName       string    `gorm:"type:varchar(100);not null" json:"passenger_name"`
	ContactNo           string    `gorm:"type:varchar(20)" json:"contact_no"`
	Email               string    `gorm:"type:varchar(255)" json:"email"`
	GuardianContact     string    `gorm:"type:varchar(20)" json:"guardian_contact"`
	PickUpLocation      string    `gorm:"type:varchar(100)" json:"pick_up_location"`
	DropLocation        string    `gorm:"type:varchar(100)" json:"drop_location"`
	SpecialInstructions string    `gorm:"type:text" json:"special_instructions"`
	CreatedAt           time.Time `json:"created_at"`
}

// BookingOrder groups one passenger's seats on a trip under a booking id.
// Its ID is the booking id handed to the follow-on steps.
type BookingOrder struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TripID             uuid.UUID `gorm:"type:uuid;not null;index" json:"trip_id"`
	NIC                string    `gorm:"type:varchar(20);not null;index" json:"nic"`
	SeatCount          int       `gorm:"not null" json:"seat_count"`
	TotalTicketPrice   float64   `gorm:"not null" json:"total_ticket_price"`
	PickUpLocation     string    `gorm:"type:varchar(100)" json:"pick_up_location"`
	DropLocation       string    `gorm:"type:varchar(100)" json:"drop_location"`
	SpecialInstruction string    `gorm:"type:text" json:"special_instruction"`
	Status             string    `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Trip) TableName() string {
	return "trips"
}

func (Booking) TableName() string {
	return "bookings"
}

func (BookingOrder) TableName() string {
	return "booking_orders"
}

func (o *BookingOrder) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}
