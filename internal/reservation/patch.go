package reservation

import (
	"sort"

	"busline/internal/seats"
)

// BuildPatch reconciles a selection against the snapshot into one write.
// It reads nothing but its arguments.
//
// Edit mode drops the viewer's own bookings and keeps everyone else's; new
// mode keeps the snapshot intact. Selected seats held in what is kept are
// conflicts and produce a seat_conflict *Error with no payload. An empty edit
// selection yields a cancellation payload; an empty new selection is a
// validation *Error.
func BuildPatch(snapshot *Trip, viewer seats.Viewer, mode Mode, selection []seats.Number, form PassengerForm) (*Patch, error) {
	selected := normalizeSelection(selection)

	nic := seats.NormalizeNIC(form.NIC)
	if mode == ModeEdit {
		nic = viewer.NIC
	}
	if nic == "" {
		return nil, validationError("a NIC is required", map[string]string{"nic": "is required"})
	}
	if len(selected) == 0 && mode == ModeNew {
		return nil, validationError("select at least one seat", map[string]string{"seats": "select at least one seat"})
	}

	others := make([]Booking, 0, len(snapshot.BookedSeats))
	var bookingID string
	for _, b := range snapshot.BookedSeats {
		if mode == ModeEdit && viewer.Owns(seats.Claim{Seat: seats.Number(b.SeatNumber), NIC: b.NIC}) {
			if bookingID == "" {
				bookingID = b.BookingID
			}
			continue
		}
		others = append(others, b)
	}

	taken := make(map[seats.Number]struct{}, len(others))
	for _, b := range others {
		taken[seats.Number(b.SeatNumber)] = struct{}{}
	}
	var conflicts []seats.Number
	for _, s := range selected {
		if _, ok := taken[s]; ok {
			conflicts = append(conflicts, s)
		}
	}
	if len(conflicts) > 0 {
		return nil, conflictError(conflicts, nil, nil)
	}

	booked := make([]Booking, 0, len(others)+len(selected))
	booked = append(booked, others...)
	for _, s := range selected {
		booked = append(booked, Booking{
			PassengerName:       form.PassengerName,
			ContactNo:           form.ContactNo,
			Email:               form.Email,
			GuardianContact:     form.GuardianContact,
			PickUpLocation:      form.PickUpLocation,
			DropLocation:        form.DropLocation,
			SpecialInstructions: form.SpecialInstructions,
			NIC:                 nic,
			SeatNumber:          int(s),
		})
	}

	// the server charges for every row carrying the submitter's NIC
	charged := 0
	for _, b := range booked {
		if seats.NormalizeNIC(b.NIC) == nic {
			charged++
		}
	}

	return &Patch{
		BookedSeats:        booked,
		BookingID:          bookingID,
		NIC:                nic,
		SpecialInstruction: form.SpecialInstructions,
		PickUpLocation:     form.PickUpLocation,
		DropLocation:       form.DropLocation,
		TotalTicketPrice:   snapshot.Price * float64(charged),
	}, nil
}

// normalizeSelection copies, sorts and dedups
func normalizeSelection(in []seats.Number) []seats.Number {
	out := make([]seats.Number, 0, len(in))
	seen := make(map[seats.Number]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
