package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, code int, message string, data, errs interface{}) {
	status := "success"
	if code >= 300 {
		status = "error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      status,
		"status_code": code,
		"message":     message,
		"data":        data,
		"errors":      errs,
	})
}

func TestHTTPGateway_GetTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/trips/trip-1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "Trip fetched successfully", snapshot(900, booking(5, "X", "bk-x")), nil)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/api/v1/", srv.Client())
	trip, err := gw.GetTrip(context.Background(), "trip-1")

	require.NoError(t, err)
	assert.Equal(t, "trip-1", trip.ID)
	assert.Equal(t, 900.0, trip.Price)
	require.Len(t, trip.BookedSeats, 1)
	assert.Equal(t, 5, trip.BookedSeats[0].SeatNumber)
}

func TestHTTPGateway_PatchTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var patch Patch
		require.NoError(t, json.Unmarshal(raw, &patch))
		assert.Equal(t, "C", patch.NIC)
		assert.Len(t, patch.BookedSeats, 1)

		writeEnvelope(w, http.StatusOK, "Trip bookings updated successfully", PatchResult{
			Trip:             snapshot(900, patch.BookedSeats...),
			BookingID:        "bk-1",
			Status:           "CONFIRMED",
			SeatCount:        1,
			TotalTicketPrice: 900,
		}, nil)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, nil)
	result, err := gw.PatchTrip(context.Background(), "trip-1", &Patch{
		BookedSeats: []Booking{booking(6, "C", "")},
		NIC:         "C",
	})

	require.NoError(t, err)
	assert.Equal(t, "bk-1", result.BookingID)
	assert.Equal(t, 1, result.SeatCount)
	require.NotNil(t, result.Trip)
	assert.Len(t, result.Trip.BookedSeats, 1)
}

func TestHTTPGateway_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		code      int
		conflicts []int
		fields    map[string]string
	}{
		{
			name: "conflict",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusConflict, "seats already booked", nil, map[string][]int{"conflicting_seats": {7, 9}})
			},
			code:      http.StatusConflict,
			conflicts: []int{7, 9},
		},
		{
			name: "validation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusUnprocessableEntity, "validation failed", nil, map[string]string{"nic": "is required"})
			},
			code:   http.StatusUnprocessableEntity,
			fields: map[string]string{"nic": "is required"},
		},
		{
			name: "string detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusInternalServerError, "internal server error", nil, "database unavailable")
			},
			code: http.StatusInternalServerError,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			code: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL, nil).GetTrip(context.Background(), "trip-1")

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.StatusCode)
			assert.Equal(t, tt.conflicts, se.ConflictingSeats)
			assert.Equal(t, tt.fields, se.Fields)
		})
	}
}

func TestHTTPGateway_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "ok", snapshot(1), nil)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPGateway(srv.URL, nil).GetTrip(ctx, "trip-1")

	assert.ErrorIs(t, err, context.Canceled)
}
