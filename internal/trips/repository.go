package trips

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingChange is what a merge decided for one passenger on a locked trip
type BookingChange struct {
	NIC      string
	Previous []Booking // the passenger's bookings before the write
	Bookings []Booking // the passenger's bookings after the write
	Order    *BookingOrder
}

// MergeFunc runs inside the write transaction against the locked trip
type MergeFunc func(trip *Trip) (*BookingChange, error)

type Repository interface {
	CreateTrip(ctx context.Context, trip *Trip) error
	GetTripByID(ctx context.Context, id uuid.UUID) (*Trip, error)
	SearchTrips(ctx context.Context, query TripSearchQuery) ([]Trip, int64, error)

	// ReplaceBookings locks the trip row, hands the trip with its current
	// bookings to merge and persists the resulting change.
	ReplaceBookings(ctx context.Context, tripID uuid.UUID, merge MergeFunc) (*Trip, *BookingChange, error)

	GetOrderByID(ctx context.Context, id uuid.UUID) (*BookingOrder, error)
	GetOrdersByTripID(ctx context.Context, tripID uuid.UUID) ([]BookingOrder, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTrip(ctx context.Context, trip *Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("BookedSeats").Create(trip).Error
}

func (r *repository) GetTripByID(ctx context.Context, id uuid.UUID) (*Trip, error) {
	var trip Trip
	err := r.db.WithContext(ctx).
		Preload("BookedSeats", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat_number ASC")
		}).
		Where("id = ?", id).
		First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

func (r *repository) SearchTrips(ctx context.Context, query TripSearchQuery) ([]Trip, int64, error) {
	var trips []Trip
	var total int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	base := r.db.WithContext(ctx).Model(&Trip{})
	if query.Origin != "" {
		base = base.Where("LOWER(origin) = ?", strings.ToLower(query.Origin))
	}
	if query.Destination != "" {
		base = base.Where("LOWER(destination) = ?", strings.ToLower(query.Destination))
	}
	if query.Date != "" {
		day, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			return nil, 0, newValidationError("date", "must be YYYY-MM-DD")
		}
		base = base.Where("starts_at >= ? AND starts_at < ?", day, day.AddDate(0, 0, 1))
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	err := base.
		Preload("BookedSeats").
		Order("starts_at ASC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&trips).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search trips: %w", err)
	}

	return trips, total, nil
}

func (r *repository) ReplaceBookings(ctx context.Context, tripID uuid.UUID, merge MergeFunc) (*Trip, *BookingChange, error) {
	var trip Trip
	var change *BookingChange

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the trip row so writes to one trip are serialized
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tripID).
			First(&trip).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		// 2. Current bookings, read under the lock
		if err := tx.Where("trip_id = ?", tripID).Order("seat_number ASC").Find(&trip.BookedSeats).Error; err != nil {
			return fmt.Errorf("failed to load bookings: %w", err)
		}

		change, err = merge(&trip)
		if err != nil {
			return err
		}

		// 3. Replace the passenger's seats
		if err := tx.Where("trip_id = ? AND nic = ?", tripID, change.NIC).Delete(&Booking{}).Error; err != nil {
			return fmt.Errorf("failed to clear bookings: %w", err)
		}
		if len(change.Bookings) > 0 {
			if err := tx.Create(&change.Bookings).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &SeatConflictError{Seats: bookingSeats(change.Bookings)}
				}
				return fmt.Errorf("failed to create bookings: %w", err)
			}
		}

		// 4. Upsert the order
		if change.Order != nil {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"seat_count", "total_ticket_price", "pick_up_location", "drop_location", "special_instruction", "status", "updated_at"}),
			}).Create(change.Order).Error
			if err != nil {
				return fmt.Errorf("failed to save booking order: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	trip.BookedSeats = mergedView(trip.BookedSeats, change)
	return &trip, change, nil
}

func (r *repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*BookingOrder, error) {
	var order BookingOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get booking order: %w", err)
	}
	return &order, nil
}

func (r *repository) GetOrdersByTripID(ctx context.Context, tripID uuid.UUID) ([]BookingOrder, error) {
	var orders []BookingOrder
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get booking orders: %w", err)
	}
	return orders, nil
}

// mergedView is the trip's booking list after change, sorted by seat
func mergedView(current []Booking, change *BookingChange) []Booking {
	out := make([]Booking, 0, len(current)+len(change.Bookings))
	for _, b := range current {
		if b.NIC != change.NIC {
			out = append(out, b)
		}
	}
	out = append(out, change.Bookings...)
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}

func bookingSeats(bookings []Booking) []int {
	out := make([]int, len(bookings))
	for i, b := range bookings {
		out[i] = b.SeatNumber
	}
	sort.Ints(out)
	return out
}
