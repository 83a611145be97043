package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"busline/internal/reservation"
	"busline/internal/seats"

	"github.com/joho/godotenv"
)

type options struct {
	api     string
	tripID  string
	nic     string
	edit    bool
	clear   bool
	toggle  string
	yes     bool
	timeout time.Duration
	form    reservation.PassengerForm
}

func main() {
	_ = godotenv.Load()

	opts := parseFlags(os.Args[1:])
	if opts.tripID == "" {
		fmt.Fprintln(os.Stderr, "bookctl: -trip is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bookctl:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) options {
	var o options
	fs := flag.NewFlagSet("bookctl", flag.ExitOnError)
	fs.StringVar(&o.api, "api", envOr("BUSLINE_API_URL", "http://localhost:8080/api/v1"), "trips API base URL")
	fs.StringVar(&o.tripID, "trip", "", "trip id")
	fs.StringVar(&o.nic, "nic", "", "passenger NIC; with -edit, the booking to edit")
	fs.BoolVar(&o.edit, "edit", false, "edit the existing booking of -nic")
	fs.BoolVar(&o.clear, "clear", false, "clear the selection before toggling")
	fs.StringVar(&o.toggle, "seats", "", "comma separated seats to toggle, e.g. 6,7")
	fs.BoolVar(&o.yes, "yes", false, "confirm a cancellation without asking")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")
	fs.StringVar(&o.form.PassengerName, "name", "", "passenger name")
	fs.StringVar(&o.form.ContactNo, "contact", "", "contact number")
	fs.StringVar(&o.form.Email, "email", "", "email address")
	fs.StringVar(&o.form.GuardianContact, "guardian", "", "guardian contact number")
	fs.StringVar(&o.form.PickUpLocation, "pickup", "", "pick up location")
	fs.StringVar(&o.form.DropLocation, "drop", "", "drop location")
	fs.StringVar(&o.form.SpecialInstructions, "note", "", "special instructions")
	_ = fs.Parse(args)

	o.form.NIC = o.nic
	return o
}

func run(ctx context.Context, o options, in io.Reader, out io.Writer) error {
	mode := reservation.ModeNew
	viewer := seats.NewViewer("")
	if o.edit {
		mode = reservation.ModeEdit
		viewer = seats.NewViewer(o.nic)
	}

	gateway := reservation.NewHTTPGateway(o.api, nil)
	session, err := reservation.Load(ctx, gateway, o.tripID, viewer, mode,
		reservation.WithConfirmer(stdinConfirmer(in, out, o.yes)))
	if err != nil {
		return err
	}

	if o.clear {
		session.Clear()
	}
	toggles, err := parseSeats(o.toggle)
	if err != nil {
		return err
	}
	for _, seat := range toggles {
		if !session.Toggle(seat) {
			fmt.Fprintf(out, "seat %d cannot be selected (%s)\n", seat, session.Status()[seat])
		}
	}

	printBoard(out, session)

	// flags given on the command line override the booking on file
	result, err := session.Submit(ctx, session.Form().Merge(o.form))
	if err != nil {
		return explain(out, err)
	}

	if result.Cancelled {
		fmt.Fprintf(out, "booking %s cancelled\n", result.BookingID)
		return nil
	}
	fmt.Fprintf(out, "booking %s confirmed, total %.2f\n", result.BookingID, result.TotalTicketPrice)
	return nil
}

func explain(out io.Writer, err error) error {
	var rerr *reservation.Error
	switch {
	case errors.Is(err, reservation.ErrCancellationDeclined):
		fmt.Fprintln(out, "cancellation not confirmed, nothing was changed")
		return nil
	case errors.As(err, &rerr) && rerr.Kind == reservation.KindSeatConflict:
		fmt.Fprintf(out, "seats %v were just booked by someone else\n", rerr.Seats)
	case errors.As(err, &rerr) && rerr.Kind == reservation.KindValidation:
		for field, msg := range rerr.Fields {
			fmt.Fprintf(out, "  %s %s\n", field, msg)
		}
	}
	return err
}

func stdinConfirmer(in io.Reader, out io.Writer, yes bool) reservation.Confirmer {
	return reservation.ConfirmFunc(func(ctx context.Context, own []seats.Number) (bool, error) {
		if yes {
			return true, nil
		}
		fmt.Fprintf(out, "this cancels your booking for seats %v, continue? [y/N] ", own)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}

func printBoard(out io.Writer, s *reservation.Session) {
	status := s.Status()
	layout := s.Board().Layout()
	marks := map[seats.ViewState]string{
		seats.StateAvailable:    " ",
		seats.StateSelected:     "*",
		seats.StateHeldByViewer: "o",
		seats.StateHeldByOther:  "x",
	}

	fmt.Fprintf(out, "trip %s (%s)\n", s.TripID(), layout.Name())
	for i, row := range layout.DisplayRows() {
		if i == layout.AisleAfter() {
			fmt.Fprintln(out)
		}
		var b strings.Builder
		for _, seat := range row {
			fmt.Fprintf(&b, "[%2d%s]", int(seat), marks[status[seat]])
		}
		fmt.Fprintln(out, b.String())
	}
	fmt.Fprintf(out, "selected: %v\n", s.Selection())
}

func parseSeats(raw string) ([]seats.Number, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []seats.Number
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid seat %q", part)
		}
		out = append(out, seats.Number(n))
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
