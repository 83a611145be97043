package reservation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"busline/internal/seats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nicKamal = "199012345678"
	nicNimal = "901234567V"
)

type fakeGateway struct {
	mu       sync.Mutex
	trip     *Trip
	getErr   error
	patchErr error
	patches  []*Patch
	gets     int
	// block, when set, holds PatchTrip until it is closed
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeGateway) GetTrip(ctx context.Context, tripID string) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.trip, nil
}

func (f *fakeGateway) PatchTrip(ctx context.Context, tripID string, patch *Patch) (*PatchResult, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.patchErr != nil {
		return nil, f.patchErr
	}

	updated := *f.trip
	updated.BookedSeats = patch.BookedSeats
	bookingID := patch.BookingID
	if bookingID == "" {
		bookingID = "bk-new"
	}
	return &PatchResult{
		Trip:             &updated,
		BookingID:        bookingID,
		Status:           "CONFIRMED",
		TotalTicketPrice: patch.TotalTicketPrice,
	}, nil
}

func (f *fakeGateway) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func confirmWith(answer bool, asked *[]seats.Number) Confirmer {
	return ConfirmFunc(func(ctx context.Context, s []seats.Number) (bool, error) {
		if asked != nil {
			*asked = s
		}
		return answer, nil
	})
}

func TestReconciler_SubmitNewBooking(t *testing.T) {
	snap := snapshot(1200, booking(5, "X", "bk-x"))
	gw := &fakeGateway{trip: snap}
	r := NewReconciler(gw, nil)

	result, err := r.Submit(context.Background(), Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Viewer:    seats.NewViewer(""),
		Mode:      ModeNew,
		Selection: []seats.Number{6},
		Form:      validForm(nicKamal),
	})

	require.NoError(t, err)
	assert.Equal(t, "bk-new", result.BookingID)
	assert.False(t, result.Cancelled)
	assert.Equal(t, 1200.0, result.TotalTicketPrice)
	require.Equal(t, 1, gw.patchCount())
	assert.Equal(t, []int{5}, seatsOf(gw.patches[0].BookedSeats, "X"))
	assert.Equal(t, []int{6}, seatsOf(gw.patches[0].BookedSeats, nicKamal))
}

func TestReconciler_ValidationMakesNoCall(t *testing.T) {
	snap := snapshot(100)
	gw := &fakeGateway{trip: snap}
	r := NewReconciler(gw, nil)

	form := validForm("bad")
	form.Email = "not-an-email"
	_, err := r.Submit(context.Background(), Submission{
		TripID:   snap.ID,
		Snapshot: snap,
		Mode:     ModeNew,
		Form:     form,
	})

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindValidation, rerr.Kind)
	assert.Contains(t, rerr.Fields, "email")
	assert.Contains(t, rerr.Fields, "nic")
	assert.Contains(t, rerr.Fields, "seats")
	assert.Zero(t, gw.patchCount())
}

func TestReconciler_LocalConflictMakesNoCall(t *testing.T) {
	snap := snapshot(100, booking(12, nicNimal, "bk-n"))
	gw := &fakeGateway{trip: snap}
	r := NewReconciler(gw, nil)
	selection := []seats.Number{12}

	_, err := r.Submit(context.Background(), Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Mode:      ModeNew,
		Selection: selection,
		Form:      validForm(nicKamal),
	})

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, []seats.Number{12}, rerr.Seats)
	assert.Same(t, snap, rerr.Snapshot)
	assert.Zero(t, gw.patchCount())
	assert.Equal(t, []seats.Number{12}, selection)
}

func TestReconciler_BackendConflictRefetchesOnce(t *testing.T) {
	snap := snapshot(100)
	fresh := snapshot(100, booking(7, nicNimal, "bk-n"))
	gw := &fakeGateway{
		trip: fresh,
		patchErr: &StatusError{
			StatusCode:       http.StatusConflict,
			Message:          "seats already booked",
			ConflictingSeats: []int{7},
		},
	}
	r := NewReconciler(gw, nil)

	_, err := r.Submit(context.Background(), Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Mode:      ModeNew,
		Selection: []seats.Number{7, 8},
		Form:      validForm(nicKamal),
	})

	require.True(t, errors.Is(err, ErrSeatConflict))
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, []seats.Number{7}, rerr.Seats)
	assert.Same(t, fresh, rerr.Snapshot)
	assert.Equal(t, 1, gw.patchCount())
	assert.Equal(t, 1, gw.gets)

	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestReconciler_BackendFailure(t *testing.T) {
	snap := snapshot(100)
	gw := &fakeGateway{
		trip: snap,
		patchErr: &StatusError{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    "validation failed",
			Fields:     map[string]string{"booked_seats[0].seat_number": "seat 60 is not part of layout standard-50"},
		},
	}
	r := NewReconciler(gw, nil)

	_, err := r.Submit(context.Background(), Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Mode:      ModeNew,
		Selection: []seats.Number{3},
		Form:      validForm(nicKamal),
	})

	require.True(t, errors.Is(err, ErrBackend))
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Fields, "booked_seats[0].seat_number")
	assert.Equal(t, 1, gw.patchCount())
	assert.Zero(t, gw.gets)
}

func TestReconciler_TransportFailureIsBackendError(t *testing.T) {
	snap := snapshot(100)
	gw := &fakeGateway{trip: snap, patchErr: errors.New("connection reset")}
	r := NewReconciler(gw, nil)

	_, err := r.Submit(context.Background(), Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Mode:      ModeNew,
		Selection: []seats.Number{3},
		Form:      validForm(nicKamal),
	})

	assert.True(t, errors.Is(err, ErrBackend))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReconciler_Cancellation(t *testing.T) {
	snap := snapshot(100,
		booking(3, nicKamal, "bk-k"),
		booking(9, nicKamal, "bk-k"),
		booking(20, nicNimal, "bk-n"),
	)

	t.Run("confirmed", func(t *testing.T) {
		gw := &fakeGateway{trip: snap}
		var asked []seats.Number
		r := NewReconciler(gw, confirmWith(true, &asked))

		result, err := r.Submit(context.Background(), Submission{
			TripID:   snap.ID,
			Snapshot: snap,
			Viewer:   seats.NewViewer(nicKamal),
			Mode:     ModeEdit,
		})

		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Equal(t, "bk-k", result.BookingID)
		assert.Equal(t, []seats.Number{3, 9}, asked)
		require.Equal(t, 1, gw.patchCount())
		assert.Empty(t, seatsOf(gw.patches[0].BookedSeats, nicKamal))
		assert.Equal(t, []int{20}, seatsOf(gw.patches[0].BookedSeats, nicNimal))
		assert.Zero(t, gw.patches[0].TotalTicketPrice)
	})

	t.Run("declined", func(t *testing.T) {
		gw := &fakeGateway{trip: snap}
		r := NewReconciler(gw, confirmWith(false, nil))

		_, err := r.Submit(context.Background(), Submission{
			TripID:   snap.ID,
			Snapshot: snap,
			Viewer:   seats.NewViewer(nicKamal),
			Mode:     ModeEdit,
		})

		assert.ErrorIs(t, err, ErrCancellationDeclined)
		assert.Zero(t, gw.patchCount())
	})

	t.Run("no confirmer", func(t *testing.T) {
		gw := &fakeGateway{trip: snap}
		r := NewReconciler(gw, nil)

		_, err := r.Submit(context.Background(), Submission{
			TripID:   snap.ID,
			Snapshot: snap,
			Viewer:   seats.NewViewer(nicKamal),
			Mode:     ModeEdit,
		})

		assert.ErrorIs(t, err, ErrCancellationDeclined)
		assert.Zero(t, gw.patchCount())
	})
}

func TestReconciler_InFlightGuard(t *testing.T) {
	snap := snapshot(100)
	gw := &fakeGateway{trip: snap, block: make(chan struct{}), entered: make(chan struct{})}
	r := NewReconciler(gw, nil)
	sub := Submission{
		TripID:    snap.ID,
		Snapshot:  snap,
		Mode:      ModeNew,
		Selection: []seats.Number{4},
		Form:      validForm(nicKamal),
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Submit(context.Background(), sub)
		done <- err
	}()
	<-gw.entered

	_, err := r.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.patchCount())

	gw.entered = nil
	gw.block = nil
	_, err = r.Submit(context.Background(), sub)
	assert.NoError(t, err)
}

func TestReconciler_MissingSnapshot(t *testing.T) {
	r := NewReconciler(&fakeGateway{}, nil)

	_, err := r.Submit(context.Background(), Submission{TripID: "trip-1", Mode: ModeNew})

	assert.ErrorIs(t, err, ErrBackend)
}
