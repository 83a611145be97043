package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"busline/internal/seats"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/trips"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db      *database.DB
	repo    trips.Repository
	service trips.Service
}

func main() {
	fmt.Println("🌱 Starting busline database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := trips.NewRepository(db.PostgreSQL)
	seeder := &Seeder{
		db:   db,
		repo: repo,
		// no cache or publisher: seeding must not emit booking events
		service: trips.NewService(repo, nil, nil, trips.ServiceConfig{DefaultLayout: cfg.Seats.DefaultLayout}),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")
}

// CleanDatabase truncates all tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"booking_orders",
		"bookings",
		"trips",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll creates a week of trips and books a few seats through the same
// merge path the API uses
func (s *Seeder) SeedAll(ctx context.Context) error {
	created, err := s.SeedTrips(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed trips: %w", err)
	}
	if err := s.SeedBookings(ctx, created); err != nil {
		return fmt.Errorf("failed to seed bookings: %w", err)
	}

	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

type route struct {
	origin      string
	destination string
	hours       int
	price       float64
	layout      string
}

var routes = []route{
	{"Colombo", "Kandy", 3, 1200, seats.LayoutStandard},
	{"Colombo", "Galle", 2, 950, seats.LayoutStandard},
	{"Kandy", "Jaffna", 7, 2600, seats.LayoutCompact},
	{"Galle", "Matara", 1, 400, seats.LayoutCompact},
}

// SeedTrips creates one morning and one evening run per route for the next seven days
func (s *Seeder) SeedTrips(ctx context.Context) ([]*trips.Trip, error) {
	fmt.Println("  🚌 Seeding trips...")

	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	var created []*trips.Trip
	for d := 0; d < 7; d++ {
		for i, r := range routes {
			for _, departure := range []int{6, 18} {
				starts := day.AddDate(0, 0, d).Add(time.Duration(departure) * time.Hour)
				trip := &trips.Trip{
					Origin:      r.origin,
					Destination: r.destination,
					StartsAt:    starts,
					EndsAt:      starts.Add(time.Duration(r.hours) * time.Hour),
					BusNumber:   fmt.Sprintf("NC-%04d", 1000+i*10+departure),
					Price:       r.price,
					SeatLayout:  r.layout,
				}
				if err := s.repo.CreateTrip(ctx, trip); err != nil {
					return nil, fmt.Errorf("failed to create trip %s-%s: %w", r.origin, r.destination, err)
				}
				created = append(created, trip)
			}
		}
	}

	fmt.Printf("    ✅ Created %d trips\n", len(created))
	return created, nil
}

type passenger struct {
	name    string
	nic     string
	contact string
	email   string
	seats   []int
}

var passengers = []passenger{
	{"Kamal Perera", "199012345678", "+94771234567", "kamal@example.com", []int{1, 2}},
	{"Nimali Silva", "901234567V", "+94712345678", "nimali@example.com", []int{5}},
	{"Ruwan Jayasinghe", "N1234567", "+94761234567", "ruwan@example.com", []int{12, 13, 14}},
}

// SeedBookings books the same passengers onto every first-day trip
func (s *Seeder) SeedBookings(ctx context.Context, created []*trips.Trip) error {
	fmt.Println("  🎫 Seeding bookings...")

	count := 0
	for _, trip := range created[:len(routes)*2] {
		for _, p := range passengers {
			req := trips.UpdateTripBookingsRequest{NIC: p.nic}
			for _, seat := range p.seats {
				req.BookedSeats = append(req.BookedSeats, trips.BookingPayload{
					PassengerName:  p.name,
					ContactNo:      p.contact,
					Email:          p.email,
					PickUpLocation: trip.Origin,
					DropLocation:   trip.Destination,
					NIC:            p.nic,
					SeatNumber:     seat,
				})
			}
			req.TotalTicketPrice = trip.Price * float64(len(p.seats))

			res, err := s.service.UpdateTripBookings(ctx, trip.ID, req)
			if err != nil {
				return fmt.Errorf("failed to book %s on trip %s: %w", p.name, trip.ID, err)
			}
			count++
			fmt.Printf("    ✅ Booked %s seats %v on %s→%s (%s)\n", p.name, p.seats, trip.Origin, trip.Destination, res.BookingID)
		}
	}

	fmt.Printf("    ✅ Created %d booking orders\n", count)
	return nil
}
