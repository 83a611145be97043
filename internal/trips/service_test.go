package trips

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"busline/internal/notifications"
	"busline/internal/seats"
	"busline/pkg/cache"
	"busline/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepository keeps trips in memory and applies merges under one mutex
type memRepository struct {
	mu     sync.Mutex
	trips  map[uuid.UUID]*Trip
	orders map[uuid.UUID]*BookingOrder
	reads  int
}

func newMemRepository(trips ...*Trip) *memRepository {
	r := &memRepository{trips: map[uuid.UUID]*Trip{}, orders: map[uuid.UUID]*BookingOrder{}}
	for _, t := range trips {
		r.trips[t.ID] = t
	}
	return r
}

func (r *memRepository) CreateTrip(_ context.Context, trip *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[trip.ID] = trip
	return nil
}

func (r *memRepository) GetTripByID(_ context.Context, id uuid.UUID) (*Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	t, ok := r.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	cp := *t
	cp.BookedSeats = append([]Booking(nil), t.BookedSeats...)
	return &cp, nil
}

func (r *memRepository) SearchTrips(_ context.Context, _ TripSearchQuery) ([]Trip, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Trip
	for _, t := range r.trips {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, int64(len(out)), nil
}

func (r *memRepository) ReplaceBookings(_ context.Context, tripID uuid.UUID, merge MergeFunc) (*Trip, *BookingChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return nil, nil, ErrTripNotFound
	}
	locked := *t
	locked.BookedSeats = append([]Booking(nil), t.BookedSeats...)

	change, err := merge(&locked)
	if err != nil {
		return nil, nil, err
	}

	t.BookedSeats = mergedView(t.BookedSeats, change)
	if prev, ok := r.orders[change.Order.ID]; ok {
		change.Order.CreatedAt = prev.CreatedAt
	}
	r.orders[change.Order.ID] = change.Order

	out := *t
	out.BookedSeats = append([]Booking(nil), t.BookedSeats...)
	return &out, change, nil
}

func (r *memRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*BookingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (r *memRepository) GetOrdersByTripID(_ context.Context, tripID uuid.UUID) ([]BookingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BookingOrder
	for _, o := range r.orders {
		if o.TripID == tripID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*notifications.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, e *notifications.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) last() *notifications.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func newTrip(layout string, bookings ...Booking) *Trip {
	id := uuid.New()
	for i := range bookings {
		bookings[i].TripID = id
		if bookings[i].ID == uuid.Nil {
			bookings[i].ID = uuid.New()
		}
	}
	return &Trip{
		ID:          id,
		Origin:      "Colombo",
		Destination: "Kandy",
		StartsAt:    time.Date(2026, 10, 20, 6, 30, 0, 0, time.UTC),
		EndsAt:      time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC),
		BusNumber:   "NB-1234",
		Price:       1500,
		SeatLayout:  layout,
		BookedSeats: bookings,
	}
}

func held(seat int, nic string, bookingID uuid.UUID) Booking {
	return Booking{
		SeatNumber:     seat,
		NIC:            nic,
		BookingID:      bookingID,
		PassengerName:  "Passenger " + nic,
		ContactNo:      "0771234567",
		Email:          "p@example.com",
		PickUpLocation: "Colombo",
		DropLocation:   "Kandy",
	}
}

func payload(seat int, nic string) BookingPayload {
	return BookingPayload{
		PassengerName:  "Kamal Perera",
		ContactNo:      "0711111111",
		Email:          "kamal@example.com",
		PickUpLocation: "Pettah",
		DropLocation:   "Peradeniya",
		NIC:            nic,
		SeatNumber:     seat,
	}
}

func seatsByNIC(bookings []BookingResponse) map[string][]int {
	out := map[string][]int{}
	for _, b := range bookings {
		out[b.NIC] = append(out[b.NIC], b.SeatNumber)
	}
	for k := range out {
		sort.Ints(out[k])
	}
	return out
}

func newTestService(repo Repository, pub EventPublisher) Service {
	return NewService(repo, nil, pub, ServiceConfig{})
}

func TestUpdateTripBookingsNewBooking(t *testing.T) {
	xOrder := uuid.New()
	trip := newTrip(seats.LayoutStandard, held(5, "X", xOrder))
	pub := &recordingPublisher{}
	svc := newTestService(newMemRepository(trip), pub)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats: []BookingPayload{payload(5, "X"), payload(6, "c")},
		NIC:         "c",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]int{"X": {5}, "C": {6}}, seatsByNIC(resp.Trip.BookedSeats))
	assert.Equal(t, OrderStatusConfirmed, resp.Status)
	assert.Equal(t, 1, resp.SeatCount)
	assert.Equal(t, 1500.0, resp.TotalTicketPrice)
	assert.NotEqual(t, xOrder.String(), resp.BookingID)
	_, err = uuid.Parse(resp.BookingID)
	assert.NoError(t, err)

	event := pub.last()
	require.NotNil(t, event)
	assert.Equal(t, notifications.BookingEventConfirmed, event.Type)
	assert.Equal(t, []int{6}, event.Seats)
	assert.Equal(t, "kamal@example.com", event.Email)
}

func TestUpdateTripBookingsConflict(t *testing.T) {
	trip := newTrip(seats.LayoutStandard, held(12, "A", uuid.New()))
	repo := newMemRepository(trip)
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	_, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats: []BookingPayload{payload(12, "B"), payload(13, "B")},
		NIC:         "B",
	})

	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int{12}, conflict.Seats)
	assert.Len(t, repo.trips[trip.ID].BookedSeats, 1)
	assert.Nil(t, pub.last())
}

func TestUpdateTripBookingsEditReplacesOwnSeats(t *testing.T) {
	bOrder := uuid.New()
	trip := newTrip(seats.LayoutStandard, held(3, "B", bOrder), held(9, "B", bOrder), held(12, "A", uuid.New()))
	pub := &recordingPublisher{}
	svc := newTestService(newMemRepository(trip), pub)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats: []BookingPayload{payload(12, "A"), payload(4, "B"), payload(9, "B")},
		BookingID:   bOrder.String(),
		NIC:         "B",
	})
	require.NoError(t, err)

	assert.Equal(t, bOrder.String(), resp.BookingID)
	assert.Equal(t, map[string][]int{"A": {12}, "B": {4, 9}}, seatsByNIC(resp.Trip.BookedSeats))
	assert.Equal(t, 3000.0, resp.TotalTicketPrice)
	assert.Equal(t, notifications.BookingEventUpdated, pub.last().Type)
}

func TestUpdateTripBookingsCancellation(t *testing.T) {
	bOrder := uuid.New()
	trip := newTrip(seats.LayoutStandard, held(3, "B", bOrder), held(9, "B", bOrder), held(12, "A", uuid.New()))
	repo := newMemRepository(trip)
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats: []BookingPayload{payload(12, "A")},
		NIC:         "B",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]int{"A": {12}}, seatsByNIC(resp.Trip.BookedSeats))
	assert.Equal(t, OrderStatusCancelled, resp.Status)
	assert.Equal(t, 0.0, resp.TotalTicketPrice)
	assert.Equal(t, bOrder.String(), resp.BookingID)

	event := pub.last()
	assert.Equal(t, notifications.BookingEventCancelled, event.Type)
	assert.Empty(t, event.Seats)
	assert.Equal(t, "p@example.com", event.Email)

	order, err := svc.GetOrder(context.Background(), bOrder)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, order.Status)
}

func TestUpdateTripBookingsLogsTotalMismatchWithTrip(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.GetDefault()
	logger.SetDefault(logger.NewWithWriter(&buf, "info"))
	t.Cleanup(func() { logger.SetDefault(previous) })

	trip := newTrip(seats.LayoutStandard)
	svc := newTestService(newMemRepository(trip), nil)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats:      []BookingPayload{payload(4, "C")},
		NIC:              "C",
		TotalTicketPrice: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, trip.Price, resp.TotalTicketPrice)

	var warned string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "client ticket total differs") {
			warned = line
		}
	}
	require.NotEmpty(t, warned)
	assert.Contains(t, warned, trip.ID.String())
}

func TestUpdateTripBookingsIgnoresOtherPassengersInPayload(t *testing.T) {
	trip := newTrip(seats.LayoutStandard, held(5, "X", uuid.New()))
	svc := newTestService(newMemRepository(trip), nil)

	// seat 20 for Z is not on the trip and seat 5 for X is dropped by the client
	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		BookedSeats: []BookingPayload{payload(20, "Z"), payload(7, "C")},
		NIC:         "C",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"X": {5}, "C": {7}}, seatsByNIC(resp.Trip.BookedSeats))
}

func TestUpdateTripBookingsValidation(t *testing.T) {
	bOrder := uuid.New()
	cases := []struct {
		name  string
		trip  *Trip
		req   UpdateTripBookingsRequest
		field string
	}{
		{
			name:  "empty new booking",
			trip:  newTrip(seats.LayoutStandard),
			req:   UpdateTripBookingsRequest{NIC: "C"},
			field: "booked_seats",
		},
		{
			name:  "seat not on compact layout",
			trip:  newTrip(seats.LayoutCompact),
			req:   UpdateTripBookingsRequest{NIC: "C", BookedSeats: []BookingPayload{payload(49, "C")}},
			field: "booked_seats[0].seat_number",
		},
		{
			name:  "duplicate seat",
			trip:  newTrip(seats.LayoutStandard),
			req:   UpdateTripBookingsRequest{NIC: "C", BookedSeats: []BookingPayload{payload(2, "C"), payload(2, "c")}},
			field: "booked_seats[1].seat_number",
		},
		{
			name:  "foreign booking id",
			trip:  newTrip(seats.LayoutStandard, held(3, "B", bOrder)),
			req:   UpdateTripBookingsRequest{NIC: "B", BookingID: uuid.NewString(), BookedSeats: []BookingPayload{payload(3, "B")}},
			field: "booking_id",
		},
		{
			name:  "blank nic",
			trip:  newTrip(seats.LayoutStandard),
			req:   UpdateTripBookingsRequest{NIC: "  ", BookedSeats: []BookingPayload{payload(3, "")}},
			field: "nic",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(newMemRepository(tc.trip), nil)
			_, err := svc.UpdateTripBookings(context.Background(), tc.trip.ID, tc.req)

			var invalid *ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, invalid.Fields, tc.field)
		})
	}
}

func TestUpdateTripBookingsStandardLayoutAcceptsSeat50(t *testing.T) {
	trip := newTrip(seats.LayoutStandard)
	svc := newTestService(newMemRepository(trip), nil)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		NIC:         "C",
		BookedSeats: []BookingPayload{payload(50, "C")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SeatCount)
}

func TestUpdateTripBookingsPublishFailureDoesNotFailWrite(t *testing.T) {
	trip := newTrip(seats.LayoutStandard)
	pub := &recordingPublisher{err: errors.New("kafka down")}
	svc := newTestService(newMemRepository(trip), pub)

	resp, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		NIC:         "C",
		BookedSeats: []BookingPayload{payload(1, "C")},
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, resp.Status)
	assert.Len(t, pub.events, 1)
}

func TestUpdateTripBookingsUnknownTrip(t *testing.T) {
	svc := newTestService(newMemRepository(), nil)
	_, err := svc.UpdateTripBookings(context.Background(), uuid.New(), UpdateTripBookingsRequest{
		NIC:         "C",
		BookedSeats: []BookingPayload{payload(1, "C")},
	})
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestGetTripIsCachedAndInvalidatedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	trip := newTrip(seats.LayoutStandard)
	repo := newMemRepository(trip)
	svc := NewService(repo, cache.NewService(client), nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	_, err = svc.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads)

	_, err = svc.GetSeatMap(ctx, trip.ID, SeatMapQuery{})
	require.NoError(t, err)

	_, err = svc.UpdateTripBookings(ctx, trip.ID, UpdateTripBookingsRequest{
		NIC:         "C",
		BookedSeats: []BookingPayload{payload(8, "C")},
	})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	fresh, err := svc.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
	assert.Equal(t, map[string][]int{"C": {8}}, seatsByNIC(fresh.BookedSeats))
}

func TestGetSeatMapCacheKeyOmitsNIC(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	trip := newTrip(seats.LayoutStandard, held(3, "901234567V", uuid.New()))
	svc := NewService(newMemRepository(trip), cache.NewService(client), nil, ServiceConfig{})

	_, err := svc.GetSeatMap(context.Background(), trip.ID, SeatMapQuery{NIC: "901234567v", Edit: true})
	require.NoError(t, err)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, key := range keys {
		assert.NotContains(t, strings.ToUpper(key), "901234567V")
	}
}

func TestGetSeatMapEditModeStartsFromViewerSeats(t *testing.T) {
	bOrder := uuid.New()
	trip := newTrip(seats.LayoutStandard, held(3, "B", bOrder), held(9, "B", bOrder), held(12, "A", uuid.New()))
	svc := newTestService(newMemRepository(trip), nil)

	seatMap, err := svc.GetSeatMap(context.Background(), trip.ID, SeatMapQuery{NIC: " b ", Edit: true})
	require.NoError(t, err)

	states := map[int]seats.ViewState{}
	for _, row := range seatMap.Rows {
		for _, cell := range row {
			states[cell.Seat] = cell.State
			assert.Equal(t, cell.State.Togglable(), cell.Togglable)
		}
	}
	assert.Len(t, states, 50)
	assert.Equal(t, seats.StateSelected, states[3])
	assert.Equal(t, seats.StateSelected, states[9])
	assert.Equal(t, seats.StateHeldByOther, states[12])
	assert.Equal(t, seats.StateAvailable, states[1])
	assert.Equal(t, []int{3, 9}, seatMap.ViewerSeats)
	assert.Equal(t, 2, seatMap.AisleAfter)

	selected := "9"
	seatMap, err = svc.GetSeatMap(context.Background(), trip.ID, SeatMapQuery{NIC: "B", Edit: true, Selected: &selected})
	require.NoError(t, err)
	assert.Equal(t, 1, seatMap.Counts[seats.StateSelected])
	assert.Equal(t, 1, seatMap.Counts[seats.StateHeldByViewer])
	assert.Equal(t, 1, seatMap.Counts[seats.StateHeldByOther])
}

func TestGetSeatMapRejectsBadSelection(t *testing.T) {
	trip := newTrip(seats.LayoutStandard)
	svc := newTestService(newMemRepository(trip), nil)

	bad := "1,x"
	_, err := svc.GetSeatMap(context.Background(), trip.ID, SeatMapQuery{Selected: &bad})
	var invalid *ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestSearchTripsSummaries(t *testing.T) {
	trip := newTrip(seats.LayoutCompact, held(1, "A", uuid.New()))
	svc := newTestService(newMemRepository(trip), nil)

	result, err := svc.SearchTrips(context.Background(), TripSearchQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Trips, 1)
	assert.Equal(t, 48, result.Trips[0].SeatsTotal)
	assert.Equal(t, 47, result.Trips[0].SeatsAvailable)
	assert.Equal(t, 1, result.Pagination.TotalPages)
}

func TestGetLayout(t *testing.T) {
	svc := newTestService(newMemRepository(), nil)

	layout, err := svc.GetLayout(seats.LayoutCompact)
	require.NoError(t, err)
	assert.Equal(t, 48, layout.Capacity)
	assert.Len(t, layout.Rows, 4)

	_, err = svc.GetLayout("double-decker")
	assert.ErrorIs(t, err, seats.ErrUnknownLayout)
}

func TestGetTripOrders(t *testing.T) {
	trip := newTrip(seats.LayoutStandard)
	svc := newTestService(newMemRepository(trip), nil)

	_, err := svc.UpdateTripBookings(context.Background(), trip.ID, UpdateTripBookingsRequest{
		NIC:         "C",
		BookedSeats: []BookingPayload{payload(1, "C"), payload(2, "C")},
	})
	require.NoError(t, err)

	orders, err := svc.GetTripOrders(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 2, orders[0].SeatCount)
	assert.Equal(t, "Pettah", orders[0].PickUpLocation)

	_, err = svc.GetTripOrders(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func mustLayout(t *testing.T, name string) *seats.Layout {
	t.Helper()
	layout, err := seats.Lookup(name)
	require.NoError(t, err)
	return layout
}
