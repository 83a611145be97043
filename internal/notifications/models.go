package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "BOOKING_CONFIRMED"
	BookingEventUpdated   BookingEventType = "BOOKING_UPDATED"
	BookingEventCancelled BookingEventType = "BOOKING_CANCELLED"
)

// BookingEvent is published after a booking write commits
type BookingEvent struct {
	ID               uuid.UUID        `json:"id"`
	Type             BookingEventType `json:"type"`
	BookingID        uuid.UUID        `json:"booking_id"`
	TripID           uuid.UUID        `json:"trip_id"`
	NIC              string           `json:"nic"`
	PassengerName    string           `json:"passenger_name,omitempty"`
	Email            string           `json:"email,omitempty"`
	Seats            []int            `json:"seats"`
	TotalTicketPrice float64          `json:"total_ticket_price"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// NewBookingEvent stamps an id and time on a new event
func NewBookingEvent(eventType BookingEventType, bookingID, tripID uuid.UUID, nic string, seats []int, total float64) *BookingEvent {
	if seats == nil {
		seats = []int{}
	}
	return &BookingEvent{
		ID:               uuid.New(),
		Type:             eventType,
		BookingID:        bookingID,
		TripID:           tripID,
		NIC:              nic,
		Seats:            seats,
		TotalTicketPrice: total,
		OccurredAt:       time.Now().UTC(),
	}
}

// WithPassenger sets the contact fields used by email consumers
func (e *BookingEvent) WithPassenger(name, email string) *BookingEvent {
	e.PassengerName = name
	e.Email = email
	return e
}

// PartitionKey keeps all events of one booking on one partition
func (e *BookingEvent) PartitionKey() string {
	return e.BookingID.String()
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func BookingEventFromJSON(data []byte) (*BookingEvent, error) {
	var e BookingEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
