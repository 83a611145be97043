package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"busline/internal/notifications"
	"busline/internal/seats"
	"busline/internal/shared/constants"
	"busline/pkg/cache"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

// Service interface defines the contract for trip and booking business logic
type Service interface {
	SearchTrips(ctx context.Context, query TripSearchQuery) (*TripListResponse, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (*TripResponse, error)
	UpdateTripBookings(ctx context.Context, tripID uuid.UUID, req UpdateTripBookingsRequest) (*UpdateTripBookingsResponse, error)
	GetSeatMap(ctx context.Context, tripID uuid.UUID, query SeatMapQuery) (*SeatMapResponse, error)
	GetLayout(name string) (*LayoutResponse, error)
	GetOrder(ctx context.Context, bookingID uuid.UUID) (*OrderResponse, error)
	GetTripOrders(ctx context.Context, tripID uuid.UUID) ([]OrderResponse, error)
}

// EventPublisher is the part of the notifications producer the service needs
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event *notifications.BookingEvent) error
}

// ServiceConfig carries the tunables read from config
type ServiceConfig struct {
	DefaultLayout string
	TripTTL       time.Duration
	SeatMapTTL    time.Duration
	SearchTTL     time.Duration
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.DefaultLayout == "" {
		c.DefaultLayout = seats.LayoutStandard
	}
	if c.TripTTL <= 0 {
		c.TripTTL = constants.TTL_TRIP_DETAIL
	}
	if c.SeatMapTTL <= 0 {
		c.SeatMapTTL = constants.TTL_SEAT_MAP
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = constants.TTL_TRIPS_SEARCH
	}
	return c
}

type service struct {
	repo      Repository
	cache     cache.Service
	publisher EventPublisher
	cfg       ServiceConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a trip service. cacheService and publisher may be nil.
func NewService(repo Repository, cacheService cache.Service, publisher EventPublisher, cfg ServiceConfig) Service {
	return &service{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		log:       logger.GetDefault(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SearchTrips(ctx context.Context, query TripSearchQuery) (*TripListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	var result TripListResponse
	key := constants.BuildTripSearchKey(query.Origin, query.Destination, query.Date, query.Page, query.Limit)
	err := s.cached(ctx, key, s.cfg.SearchTTL, &result, func() (interface{}, error) {
		trips, total, err := s.repo.SearchTrips(ctx, query)
		if err != nil {
			return nil, err
		}

		summaries := make([]TripSummary, 0, len(trips))
		for i := range trips {
			summary, err := s.summarize(&trips[i])
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, summary)
		}

		return &TripListResponse{
			Trips: summaries,
			Pagination: PaginationResponse{
				Page:       query.Page,
				Limit:      query.Limit,
				Total:      total,
				TotalPages: int(math.Ceil(float64(total) / float64(query.Limit))),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) summarize(trip *Trip) (TripSummary, error) {
	layout, err := s.layoutFor(trip.SeatLayout)
	if err != nil {
		return TripSummary{}, err
	}
	taken := 0
	for _, b := range trip.BookedSeats {
		if layout.IsValidSeat(seats.Number(b.SeatNumber)) {
			taken++
		}
	}
	return TripSummary{
		ID:             trip.ID.String(),
		Origin:         trip.Origin,
		Destination:    trip.Destination,
		StartTime:      trip.StartsAt,
		EndTime:        trip.EndsAt,
		BusNumber:      trip.BusNumber,
		Price:          trip.Price,
		SeatLayout:     layout.Name(),
		SeatsTotal:     layout.Capacity(),
		SeatsAvailable: layout.Capacity() - taken,
	}, nil
}

func (s *service) GetTrip(ctx context.Context, tripID uuid.UUID) (*TripResponse, error) {
	var result TripResponse
	err := s.cached(ctx, constants.BuildTripDetailKey(tripID.String()), s.cfg.TripTTL, &result, func() (interface{}, error) {
		trip, err := s.repo.GetTripByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		resp := toTripResponse(trip)
		if resp.SeatLayout == "" {
			resp.SeatLayout = s.cfg.DefaultLayout
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTripBookings replaces the submitter's seats on the trip with the
// seats in req that carry the submitter's NIC. Other passengers' seats are
// taken from the locked database state, never from the request.
func (s *service) UpdateTripBookings(ctx context.Context, tripID uuid.UUID, req UpdateTripBookingsRequest) (*UpdateTripBookingsResponse, error) {
	nic := seats.NormalizeNIC(req.NIC)
	if nic == "" {
		return nil, newValidationError("nic", "is required")
	}

	trip, change, err := s.repo.ReplaceBookings(ctx, tripID, func(trip *Trip) (*BookingChange, error) {
		layout, err := s.layoutFor(trip.SeatLayout)
		if err != nil {
			return nil, err
		}
		return mergeBookings(layout, trip, req, s.now())
	})
	if err != nil {
		var conflict *SeatConflictError
		if errors.As(err, &conflict) {
			s.log.LogSeatConflict(ctx, tripID.String(), nic, conflict.Seats)
		}
		return nil, err
	}

	order := change.Order
	if req.TotalTicketPrice > 0 && req.TotalTicketPrice != order.TotalTicketPrice {
		s.log.WithTripID(tripID.String()).WarnContext(ctx, "client ticket total differs from server total",
			"client_total", req.TotalTicketPrice,
			"server_total", order.TotalTicketPrice,
		)
	}

	s.invalidate(ctx, tripID)

	seatNumbers := bookingSeats(change.Bookings)
	eventType := notifications.BookingEventUpdated
	switch {
	case order.IsCancelled():
		eventType = notifications.BookingEventCancelled
		s.log.LogBookingCancelled(ctx, order.ID.String(), tripID.String(), nic)
	case len(change.Previous) == 0:
		eventType = notifications.BookingEventConfirmed
		s.log.LogBookingCreated(ctx, order.ID.String(), tripID.String(), nic, seatNumbers)
	default:
		s.log.LogBookingUpdated(ctx, order.ID.String(), tripID.String(), nic, seatNumbers)
	}
	s.publish(ctx, eventType, trip, change)

	tripResp := toTripResponse(trip)
	return &UpdateTripBookingsResponse{
		Trip:             tripResp,
		BookingID:        order.ID.String(),
		Status:           order.Status,
		SeatCount:        order.SeatCount,
		TotalTicketPrice: order.TotalTicketPrice,
	}, nil
}

// mergeBookings decides the submitter's new seat set against the locked trip
func mergeBookings(layout *seats.Layout, trip *Trip, req UpdateTripBookingsRequest, now time.Time) (*BookingChange, error) {
	nic := seats.NormalizeNIC(req.NIC)

	var previous []Booking
	heldByOthers := make(map[int]struct{})
	for _, b := range trip.BookedSeats {
		if seats.NormalizeNIC(b.NIC) == nic {
			previous = append(previous, b)
		} else {
			heldByOthers[b.SeatNumber] = struct{}{}
		}
	}

	var own []BookingPayload
	fields := make(map[string]string)
	seen := make(map[int]struct{})
	var conflicts []int
	for i, p := range req.BookedSeats {
		if seats.NormalizeNIC(p.NIC) != nic {
			continue
		}
		field := fmt.Sprintf("booked_seats[%d].seat_number", i)
		if !layout.IsValidSeat(seats.Number(p.SeatNumber)) {
			fields[field] = fmt.Sprintf("seat %d is not on layout %s", p.SeatNumber, layout.Name())
			continue
		}
		if _, dup := seen[p.SeatNumber]; dup {
			fields[field] = fmt.Sprintf("seat %d is listed twice", p.SeatNumber)
			continue
		}
		seen[p.SeatNumber] = struct{}{}
		if _, taken := heldByOthers[p.SeatNumber]; taken {
			conflicts = append(conflicts, p.SeatNumber)
		}
		own = append(own, p)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if len(conflicts) > 0 {
		sort.Ints(conflicts)
		return nil, &SeatConflictError{Seats: conflicts}
	}
	if len(own) == 0 && len(previous) == 0 {
		return nil, newValidationError("booked_seats", "at least one seat must be selected")
	}

	bookingID, err := resolveBookingID(previous, req.BookingID)
	if err != nil {
		return nil, err
	}

	bookings := make([]Booking, 0, len(own))
	for _, p := range own {
		bookings = append(bookings, Booking{
			ID:                  uuid.New(),
			TripID:              trip.ID,
			SeatNumber:          p.SeatNumber,
			BookingID:           bookingID,
			NIC:                 nic,
			PassengerName:       strings.TrimSpace(p.PassengerName),
			ContactNo:           strings.TrimSpace(p.ContactNo),
			Email:               strings.TrimSpace(p.Email),
			GuardianContact:     strings.TrimSpace(p.GuardianContact),
			PickUpLocation:      p.PickUpLocation,
			DropLocation:        p.DropLocation,
			SpecialInstructions: p.SpecialInstructions,
			CreatedAt:           now,
		})
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].SeatNumber < bookings[j].SeatNumber })

	order := &BookingOrder{
		ID:                 bookingID,
		TripID:             trip.ID,
		NIC:                nic,
		SeatCount:          len(bookings),
		TotalTicketPrice:   trip.Price * float64(len(bookings)),
		PickUpLocation:     req.PickUpLocation,
		DropLocation:       req.DropLocation,
		SpecialInstruction: req.SpecialInstruction,
		Status:             OrderStatusConfirmed,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if len(bookings) > 0 {
		if order.PickUpLocation == "" {
			order.PickUpLocation = bookings[0].PickUpLocation
		}
		if order.DropLocation == "" {
			order.DropLocation = bookings[0].DropLocation
		}
	} else {
		order.Status = OrderStatusCancelled
	}

	return &BookingChange{
		NIC:      nic,
		Previous: previous,
		Bookings: bookings,
		Order:    order,
	}, nil
}

// resolveBookingID keeps the passenger's current booking id, or mints one
func resolveBookingID(previous []Booking, requested string) (uuid.UUID, error) {
	if len(previous) == 0 {
		return uuid.New(), nil
	}
	current := previous[0].BookingID
	if requested != "" {
		id, err := uuid.Parse(requested)
		if err != nil || id != current {
			return uuid.Nil, newValidationError("booking_id", "does not match the passenger's booking on this trip")
		}
	}
	return current, nil
}

func (s *service) GetSeatMap(ctx context.Context, tripID uuid.UUID, query SeatMapQuery) (*SeatMapResponse, error) {
	var selected []seats.Number
	if query.Selected != nil {
		parsed, err := parseSeatList(*query.Selected)
		if err != nil {
			return nil, err
		}
		selected = parsed
	}

	viewer := seats.NewViewer(query.NIC)
	selectedKey := "default"
	if query.Selected != nil {
		selectedKey = numbersKey(selected)
	}
	key := constants.BuildSeatMapKey(tripID.String(), viewer.NIC, query.Edit, selectedKey)

	var result SeatMapResponse
	err := s.cached(ctx, key, s.cfg.SeatMapTTL, &result, func() (interface{}, error) {
		trip, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}
		layout, err := s.layoutFor(trip.SeatLayout)
		if err != nil {
			return nil, err
		}

		claims := make([]seats.Claim, len(trip.BookedSeats))
		for i, b := range trip.BookedSeats {
			claims[i] = seats.Claim{Seat: seats.Number(b.SeatNumber), NIC: b.NIC}
		}
		board := seats.NewBoard(layout, claims, viewer, query.Edit)

		// an edit session starts from the viewer's own seats
		initial := selected
		if query.Selected == nil {
			initial = board.ViewerSeats()
		}
		status := seats.NewSelection(board, initial...).Status()

		rows := layout.DisplayRows()
		cells := make([][]SeatCell, len(rows))
		for r, row := range rows {
			cells[r] = make([]SeatCell, len(row))
			for c, seat := range row {
				state := status[seat]
				cells[r][c] = SeatCell{Seat: int(seat), State: state, Togglable: state.Togglable()}
			}
		}

		counts := make(map[seats.ViewState]int)
		for _, state := range []seats.ViewState{seats.StateAvailable, seats.StateSelected, seats.StateHeldByViewer, seats.StateHeldByOther} {
			counts[state] = status.Count(state)
		}

		return &SeatMapResponse{
			TripID:      trip.ID,
			Layout:      layout.Name(),
			AisleAfter:  layout.AisleAfter(),
			EditMode:    query.Edit,
			Rows:        cells,
			Counts:      counts,
			ViewerSeats: numbersToInts(board.ViewerSeats()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) GetLayout(name string) (*LayoutResponse, error) {
	layout, err := seats.Lookup(name)
	if err != nil {
		return nil, err
	}
	rows := layout.DisplayRows()
	out := make([][]int, len(rows))
	for i, row := range rows {
		out[i] = numbersToInts(row)
	}
	return &LayoutResponse{
		Name:       layout.Name(),
		AisleAfter: layout.AisleAfter(),
		Capacity:   layout.Capacity(),
		Rows:       out,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, bookingID uuid.UUID) (*OrderResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *service) GetTripOrders(ctx context.Context, tripID uuid.UUID) ([]OrderResponse, error) {
	if _, err := s.repo.GetTripByID(ctx, tripID); err != nil {
		return nil, err
	}
	orders, err := s.repo.GetOrdersByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out, nil
}

func (s *service) layoutFor(name string) (*seats.Layout, error) {
	if name == "" {
		name = s.cfg.DefaultLayout
	}
	layout, err := seats.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("trip layout: %w", err)
	}
	return layout, nil
}

// cached reads through the cache when one is configured
func (s *service) cached(ctx context.Context, key string, ttl time.Duration, dest interface{}, fetch func() (interface{}, error)) error {
	if s.cache == nil {
		data, err := fetch()
		if err != nil {
			return err
		}
		return assign(dest, data)
	}
	return s.cache.GetOrSet(ctx, key, ttl, fetch, dest)
}

func assign(dest, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *service) invalidate(ctx context.Context, tripID uuid.UUID) {
	if s.cache == nil {
		return
	}
	id := tripID.String()
	if err := s.cache.Delete(ctx, constants.BuildTripDetailKey(id)); err != nil {
		s.log.WithError(err).WarnContext(ctx, "failed to invalidate trip cache", "trip_id", id)
	}
	for _, pattern := range []string{constants.BuildSeatMapPattern(id), constants.PATTERN_INVALIDATE_TRIPS_SEARCH} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.log.WithError(err).WarnContext(ctx, "failed to invalidate cache pattern", "pattern", pattern)
		}
	}
}

// publish runs after commit; a failure never fails the write
func (s *service) publish(ctx context.Context, eventType notifications.BookingEventType, trip *Trip, change *BookingChange) {
	if s.publisher == nil {
		return
	}
	event := notifications.NewBookingEvent(eventType, change.Order.ID, trip.ID, change.NIC,
		bookingSeats(change.Bookings), change.Order.TotalTicketPrice)

	contact := change.Bookings
	if len(contact) == 0 {
		contact = change.Previous
	}
	if len(contact) > 0 {
		event.WithPassenger(contact[0].PassengerName, contact[0].Email)
	}

	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		s.log.WithError(err).ErrorContext(ctx, "failed to publish booking event",
			"type", string(eventType),
			"booking_id", change.Order.ID.String(),
		)
	}
}

// parseSeatList reads "1,2,14"
func parseSeatList(raw string) ([]seats.Number, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []seats.Number{}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]seats.Number, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, newValidationError("selected", "must be a comma separated list of seat numbers")
		}
		out = append(out, seats.Number(n))
	}
	return out, nil
}

func numbersToInts(in []seats.Number) []int {
	out := make([]int, len(in))
	for i, n := range in {
		out[i] = int(n)
	}
	return out
}

func numbersKey(in []seats.Number) string {
	ints := numbersToInts(in)
	sort.Ints(ints)
	parts := make([]string, len(ints))
	for i, n := range ints {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
