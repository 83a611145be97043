package reservation

import (
	"context"
	"fmt"

	"busline/internal/seats"
)

// Session is one booking screen: a snapshot, the board resolved from it and
// the user's in-progress selection.
type Session struct {
	gateway       Gateway
	reconciler    *Reconciler
	defaultLayout string

	tripID    string
	viewer    seats.Viewer
	mode      Mode
	snapshot  *Trip
	board     *seats.Board
	selection *seats.Selection
}

type SessionOption func(*Session)

// WithConfirmer sets who is asked before an edit session cancels a booking
func WithConfirmer(c Confirmer) SessionOption {
	return func(s *Session) {
		s.reconciler = NewReconciler(s.gateway, c)
	}
}

// WithReconciler shares one reconciler, and its in-flight guard, across sessions
func WithReconciler(r *Reconciler) SessionOption {
	return func(s *Session) {
		s.reconciler = r
	}
}

// WithDefaultLayout names the layout used when a trip carries none
func WithDefaultLayout(name string) SessionOption {
	return func(s *Session) {
		s.defaultLayout = name
	}
}

// Load fetches the trip once and starts a session. Edit sessions begin with
// the viewer's own seats selected.
func Load(ctx context.Context, gateway Gateway, tripID string, viewer seats.Viewer, mode Mode, opts ...SessionOption) (*Session, error) {
	s := &Session{
		gateway:       gateway,
		defaultLayout: seats.LayoutStandard,
		tripID:        tripID,
		viewer:        seats.NewViewer(viewer.NIC),
		mode:          mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reconciler == nil {
		s.reconciler = NewReconciler(gateway, nil)
	}

	trip, err := gateway.GetTrip(ctx, tripID)
	if err != nil {
		return nil, backendError("could not load the trip", err)
	}
	board, err := s.boardFor(trip)
	if err != nil {
		return nil, err
	}

	s.snapshot = trip
	s.board = board
	s.selection = seats.NewSelection(board, board.ViewerSeats()...)
	return s, nil
}

func (s *Session) boardFor(trip *Trip) (*seats.Board, error) {
	name := trip.SeatLayout
	if name == "" {
		name = s.defaultLayout
	}
	layout, err := seats.Lookup(name)
	if err != nil {
		return nil, backendError(fmt.Sprintf("trip %s has an unusable seat layout", trip.ID), err)
	}
	return seats.NewBoard(layout, trip.Claims(), s.viewer, s.mode == ModeEdit), nil
}

func (s *Session) TripID() string           { return s.tripID }
func (s *Session) Mode() Mode               { return s.mode }
func (s *Session) Viewer() seats.Viewer     { return s.viewer }
func (s *Session) Snapshot() *Trip          { return s.snapshot }
func (s *Session) Board() *seats.Board      { return s.board }
func (s *Session) Selection() []seats.Number { return s.selection.Seats() }

// Form is the passenger form the session starts from. Edit sessions are
// pre-filled from the viewer's lowest-numbered booked seat; new sessions are blank.
func (s *Session) Form() PassengerForm {
	if s.mode != ModeEdit || s.viewer.IsAnonymous() {
		return PassengerForm{}
	}
	var first *Booking
	for i := range s.snapshot.BookedSeats {
		b := &s.snapshot.BookedSeats[i]
		if !s.viewer.Owns(seats.Claim{Seat: seats.Number(b.SeatNumber), NIC: b.NIC}) {
			continue
		}
		if first == nil || b.SeatNumber < first.SeatNumber {
			first = b
		}
	}
	form := PassengerForm{NIC: s.viewer.NIC}
	if first != nil {
		form = FormFromBooking(*first)
		form.NIC = s.viewer.NIC
	}
	return form
}

// Toggle flips one seat; clicks on held-by-other or unknown seats do nothing
func (s *Session) Toggle(seat seats.Number) bool {
	return s.selection.Toggle(seat)
}

func (s *Session) Clear() {
	s.selection.Clear()
}

// Status resolves every seat of the layout for the current selection
func (s *Session) Status() seats.StatusMap {
	return s.selection.Status()
}

// Submit writes the selection. On success the selection is cleared and the
// snapshot replaced with the trip the backend returned; on failure both are
// left as they were.
func (s *Session) Submit(ctx context.Context, form PassengerForm) (*Result, error) {
	result, err := s.reconciler.Submit(ctx, Submission{
		TripID:    s.tripID,
		Snapshot:  s.snapshot,
		Viewer:    s.viewer,
		Mode:      s.mode,
		Selection: s.selection.Seats(),
		Form:      form,
	})
	if err != nil {
		return nil, err
	}

	s.selection.Clear()
	if result.Trip != nil {
		if board, berr := s.boardFor(result.Trip); berr == nil {
			s.snapshot = result.Trip
			s.board = board
			s.selection = seats.NewSelection(board)
		}
	}
	return result, nil
}

// Refresh re-fetches the trip and rebases the selection on it. It returns the
// selected seats that are no longer selectable and were dropped.
func (s *Session) Refresh(ctx context.Context) ([]seats.Number, error) {
	trip, err := s.gateway.GetTrip(ctx, s.tripID)
	if err != nil {
		return nil, backendError("could not reload the trip", err)
	}
	return s.Rebase(trip)
}

// Rebase swaps in a newer snapshot, such as the one carried by a conflict error
func (s *Session) Rebase(trip *Trip) ([]seats.Number, error) {
	board, err := s.boardFor(trip)
	if err != nil {
		return nil, err
	}

	previous := s.selection.Seats()
	next := seats.NewSelection(board, previous...)

	var dropped []seats.Number
	for _, seat := range previous {
		if !next.Contains(seat) {
			dropped = append(dropped, seat)
		}
	}

	s.snapshot = trip
	s.board = board
	s.selection = next
	return dropped, nil
}
