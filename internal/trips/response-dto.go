package trips

import (
	"time"

	"busline/internal/seats"
)

type BookingResponse struct {
	ID                  string `json:"id"`
	BookingID           string `json:"booking_id"`
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

type TripResponse struct {
	ID          string            `json:"id"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	BusNumber   string            `json:"bus_number"`
	Price       float64           `json:"price"`
	SeatLayout  string            `json:"seat_layout"`
	BookedSeats []BookingResponse `json:"booked_seats"`
}

// TripSummary is one row of a search page
type TripSummary struct {
	ID             string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	BusNumber      string    `json:"bus_number"`
	Price          float64   `json:"price"`
	SeatLayout     string    `json:"seat_layout"`
	SeatsTotal     int       `json:"seats_total"`
	SeatsAvailable int       `json:"seats_available"`
}

type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type TripListResponse struct {
	Trips      []TripSummary      `json:"trips"`
	Pagination PaginationResponse `json:"pagination"`
}

// UpdateTripBookingsResponse carries the booking id the follow-on steps key on
type UpdateTripBookingsResponse struct {
	Trip             TripResponse `json:"trip"`
	BookingID        string       `json:"booking_id"`
	Status           string       `json:"status"`
	SeatCount        int          `json:"seat_count"`
	TotalTicketPrice float64      `json:"total_ticket_price"`
}

func (r *UpdateTripBookingsResponse) IsCancelled() bool {
	return r.Status == OrderStatusCancelled
}

type SeatCell struct {
	Seat      int             `json:"seat"`
	State     seats.ViewState `json:"state"`
	Togglable bool            `json:"togglable"`
}

type SeatMapResponse struct {
	TripID      string                  `json:"trip_id"`
	Layout      string                  `json:"layout"`
	AisleAfter  int                     `json:"aisle_after"`
	EditMode    bool                    `json:"edit_mode"`
	Rows        [][]SeatCell            `json:"rows"`
	Counts      map[seats.ViewState]int `json:"counts"`
	ViewerSeats []int                   `json:"viewer_seats"`
}

type LayoutResponse struct {
	Name       string  `json:"name"`
	AisleAfter int     `json:"aisle_after"`
	Capacity   int     `json:"capacity"`
	Rows       [][]int `json:"rows"`
}

type OrderResponse struct {
	BookingID          string    `json:"booking_id"`
	TripID             string    `json:"trip_id"`
	NIC                string    `json:"nic"`
	SeatCount          int       `json:"seat_count"`
	TotalTicketPrice   float64   `json:"total_ticket_price"`
	PickUpLocation     string    `json:"pick_up_location"`
	DropLocation       string    `json:"drop_location"`
	SpecialInstruction string    `json:"special_instruction,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toBookingResponse(b Booking) BookingResponse {
	return BookingResponse{
		ID:                  b.ID.String(),
		BookingID:           b.BookingID.String(),
		PassengerName:       b.PassengerName,
		ContactNo:           b.ContactNo,
		Email:               b.Email,
		GuardianContact:     b.GuardianContact,
		PickUpLocation:      b.PickUpLocation,
		DropLocation:        b.DropLocation,
		SpecialInstructions: b.SpecialInstructions,
		NIC:                 b.NIC,
		SeatNumber:          b.SeatNumber,
	}
}

func toTripResponse(t *Trip) TripResponse {
	booked := make([]BookingResponse, len(t.BookedSeats))
	for i, b := range t.BookedSeats {
		booked[i] = toBookingResponse(b)
	}
	return TripResponse{
		ID:          t.ID.String(),
		Origin:      t.Origin,
		Destination: t.Destination,
		StartTime:   t.StartsAt,
		EndTime:     t.EndsAt,
		BusNumber:   t.BusNumber,
		Price:       t.Price,
		SeatLayout:  t.SeatLayout,
		BookedSeats: booked,
	}
}

func toOrderResponse(o *BookingOrder) OrderResponse {
	return OrderResponse{
		BookingID:          o.ID.String(),
		TripID:             o.TripID.String(),
		NIC:                o.NIC,
		SeatCount:          o.SeatCount,
		TotalTicketPrice:   o.TotalTicketPrice,
		PickUpLocation:     o.PickUpLocation,
		DropLocation:       o.DropLocation,
		SpecialInstruction: o.SpecialInstruction,
		Status:             o.Status,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
