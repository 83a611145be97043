package trips

// BookingPayload is one seat row of the replace-style write
type BookingPayload struct {
	PassengerName       string `json:"passenger_name" binding:"required,max=100"`
	ContactNo           string `json:"contact_no" binding:"required,max=20"`
	Email               string `json:"email" binding:"required,email"`
	GuardianContact     string `json:"guardian_contact" binding:"omitempty,max=20"`
	PickUpLocation      string `json:"pick_up_location" binding:"required,max=100"`
	DropLocation        string `json:"drop_location" binding:"required,max=100"`
	SpecialInstructions string `json:"special_instructions"`
	NIC                 string `json:"nic" binding:"required,max=20"`
	SeatNumber          int    `json:"seat_number" binding:"required,gt=0"`
}

// UpdateTripBookingsRequest is the PATCH /trips/:id body. BookedSeats is the
// client's full reconciled list; NIC names the passenger whose seats it writes.
type UpdateTripBookingsRequest struct {
	BookedSeats        []BookingPayload `json:"booked_seats" binding:"dive"`
	BookingID          string           `json:"booking_id,omitempty" binding:"omitempty,uuid"`
	NIC                string           `json:"nic" binding:"required,max=20"`
	SpecialInstruction string           `json:"special_instruction"`
	PickUpLocation     string           `json:"pick_up_location"`
	DropLocation       string           `json:"drop_location"`
	TotalTicketPrice   float64          `json:"total_ticket_price" binding:"gte=0"`
}

// TripSearchQuery is bound from GET /trips
type TripSearchQuery struct {
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Date        string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page,default=1" binding:"min=1"`
	Limit       int    `form:"limit,default=10" binding:"min=1,max=100"`
}

// SeatMapQuery is bound from GET /trips/:id/seats. Selected is a comma list;
// when absent an edit session starts from the viewer's own seats.
type SeatMapQuery struct {
	NIC      string  `form:"nic"`
	Edit     bool    `form:"edit"`
	Selected *string `form:"selected"`
}
