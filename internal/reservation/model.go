package reservation

import (
	"time"

	"busline/internal/seats"
)

// Mode selects between a fresh booking and editing the viewer's existing one
type Mode int

const (
	ModeNew Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "new"
}

// Booking is one seat row as the backend exchanges it
type Booking struct {
	ID                  string `json:"id,omitempty"`
	BookingID           string `json:"booking_id,omitempty"`
	PassengerName       string `json:"passenger_name"`
	ContactNo           string `json:"contact_no"`
	Email               string `json:"email"`
	GuardianContact     string `json:"guardian_contact,omitempty"`
	PickUpLocation      string `json:"pick_up_location"`
	DropLocation        string `json:"drop_location"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
	NIC                 string `json:"nic"`
	SeatNumber          int    `json:"seat_number"`
}

// Trip is the read snapshot a session works against
type Trip struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	BusNumber   string    `json:"bus_number"`
	Price       float64   `json:"price"`
	SeatLayout  string    `json:"seat_layout"`
	BookedSeats []Booking `json:"booked_seats"`
}

// Claims reduces the snapshot's bookings to seat holders
func (t *Trip) Claims() []seats.Claim {
	claims := make([]seats.Claim, len(t.BookedSeats))
	for i, b := range t.BookedSeats {
		claims[i] = seats.Claim{Seat: seats.Number(b.SeatNumber), NIC: b.NIC}
	}
	return claims
}

// Patch is the replace-style write body
type Patch struct {
	BookedSeats        []Booking `json:"booked_seats"`
	BookingID          string    `json:"booking_id,omitempty"`
	NIC                string    `json:"nic"`
	SpecialInstruction string    `json:"special_instruction"`
	PickUpLocation     string    `json:"pick_up_location"`
	DropLocation       string    `json:"drop_location"`
	TotalTicketPrice   float64   `json:"total_ticket_price"`
}

// IsCancellation reports whether the patch removes every seat of nic
func (p *Patch) IsCancellation() bool {
	for _, b := range p.BookedSeats {
		if seats.NormalizeNIC(b.NIC) == p.NIC {
			return false
		}
	}
	return true
}

// PatchResult is what the backend answers a successful write with
type PatchResult struct {
	Trip             *Trip   `json:"trip"`
	BookingID        string  `json:"booking_id"`
	Status           string  `json:"status"`
	SeatCount        int     `json:"seat_count"`
	TotalTicketPrice float64 `json:"total_ticket_price"`
}
