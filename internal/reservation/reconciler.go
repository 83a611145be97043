package reservation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"busline/internal/seats"
	"busline/pkg/logger"
)

// Confirmer asks the user to confirm cancelling the listed seats
type Confirmer interface {
	ConfirmCancellation(ctx context.Context, seats []seats.Number) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, seats []seats.Number) (bool, error)

func (f ConfirmFunc) ConfirmCancellation(ctx context.Context, s []seats.Number) (bool, error) {
	return f(ctx, s)
}

// Submission is one submit attempt
type Submission struct {
	TripID    string
	Snapshot  *Trip
	Viewer    seats.Viewer
	Mode      Mode
	Selection []seats.Number
	Form      PassengerForm
}

// Result of a successful write
type Result struct {
	BookingID        string
	Cancelled        bool
	TotalTicketPrice float64
	Trip             *Trip
}

// Reconciler validates, reconciles and writes one submission at a time
type Reconciler struct {
	gateway   Gateway
	confirmer Confirmer
	inFlight  atomic.Bool
	log       *logger.Logger
}

// NewReconciler creates a reconciler. A nil confirmer declines every cancellation.
func NewReconciler(gateway Gateway, confirmer Confirmer) *Reconciler {
	return &Reconciler{
		gateway:   gateway,
		confirmer: confirmer,
		log:       logger.GetDefault(),
	}
}

// Submit sends at most one PATCH and never retries. The caller's selection
// is left as it was whatever the outcome.
func (r *Reconciler) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer r.inFlight.Store(false)

	if sub.Snapshot == nil {
		return nil, backendError("no trip snapshot loaded", nil)
	}

	selection := normalizeSelection(sub.Selection)
	form := sub.Form
	if sub.Mode == ModeEdit {
		form.NIC = sub.Viewer.NIC
	}

	cancelling := sub.Mode == ModeEdit && len(selection) == 0
	if !cancelling {
		fields := form.Validate()
		if sub.Mode == ModeNew && len(selection) == 0 {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["seats"] = "select at least one seat"
		}
		if len(fields) > 0 {
			return nil, validationError("please correct the highlighted fields", fields)
		}
	}

	patch, err := BuildPatch(sub.Snapshot, sub.Viewer, sub.Mode, selection, form)
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) && rerr.Kind == KindSeatConflict {
			rerr.Snapshot = sub.Snapshot
			r.log.LogSeatConflict(ctx, sub.TripID, sub.Viewer.NIC, numbers(rerr.Seats))
		}
		return nil, err
	}

	if cancelling {
		own := ownedSeats(sub.Snapshot, sub.Viewer)
		if err := r.confirmCancellation(ctx, own); err != nil {
			return nil, err
		}
	}

	r.log.DebugContext(ctx, "submitting booking",
		"trip_id", sub.TripID,
		"mode", sub.Mode.String(),
		"seats", numbers(selection),
		"nic", logger.MaskNIC(patch.NIC),
	)

	result, err := r.gateway.PatchTrip(ctx, sub.TripID, patch)
	if err != nil {
		return nil, r.mapWriteError(ctx, sub, err)
	}

	return &Result{
		BookingID:        result.BookingID,
		Cancelled:        cancelling,
		TotalTicketPrice: result.TotalTicketPrice,
		Trip:             result.Trip,
	}, nil
}

func (r *Reconciler) confirmCancellation(ctx context.Context, own []seats.Number) error {
	if r.confirmer == nil {
		return ErrCancellationDeclined
	}
	ok, err := r.confirmer.ConfirmCancellation(ctx, own)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCancellationDeclined, err)
	}
	if !ok {
		return ErrCancellationDeclined
	}
	return nil
}

// mapWriteError turns a failed PATCH into an *Error. A 409 re-fetches the
// trip once so the caller can show what changed.
func (r *Reconciler) mapWriteError(ctx context.Context, sub Submission, err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
		conflicts := make([]seats.Number, len(se.ConflictingSeats))
		for i, s := range se.ConflictingSeats {
			conflicts[i] = seats.Number(s)
		}
		fresh, ferr := r.gateway.GetTrip(ctx, sub.TripID)
		if ferr != nil {
			r.log.WithError(ferr).WarnContext(ctx, "re-fetch after conflict failed", "trip_id", sub.TripID)
			fresh = nil
		}
		r.log.LogSeatConflict(ctx, sub.TripID, sub.Viewer.NIC, se.ConflictingSeats)
		return conflictError(conflicts, fresh, err)
	}

	berr := backendError("could not save the booking, please try again", err)
	if se != nil {
		berr.Fields = se.Fields
	}
	return berr
}

func ownedSeats(snapshot *Trip, viewer seats.Viewer) []seats.Number {
	var own []seats.Number
	for _, c := range snapshot.Claims() {
		if viewer.Owns(c) {
			own = append(own, c.Seat)
		}
	}
	return normalizeSelection(own)
}

func numbers(in []seats.Number) []int {
	out := make([]int, len(in))
	for i, n := range in {
		out[i] = int(n)
	}
	return out
}
