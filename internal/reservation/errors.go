package reservation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"busline/internal/seats"
)

// Kind classifies a failed submission
type Kind string

const (
	KindValidation   Kind = "validation"
	KindSeatConflict Kind = "seat_conflict"
	KindBackend      Kind = "backend"
)

var (
	ErrLocalValidation = errors.New("reservation: invalid submission")
	ErrSeatConflict    = errors.New("reservation: seats booked by someone else")
	ErrBackend         = errors.New("reservation: backend request failed")

	ErrCancellationDeclined = errors.New("reservation: cancellation not confirmed")
	ErrSubmissionInFlight   = errors.New("reservation: a submission is already in flight")
)

// Error is returned by Submit and Load. Match it with errors.Is against the
// Err* sentinels or errors.As to read the details.
type Error struct {
	Kind   Kind
	Detail string
	// Seats lists conflicting seats for KindSeatConflict
	Seats []seats.Number
	// Fields maps form fields to messages
	Fields map[string]string
	// Snapshot is the trip as re-fetched after a backend conflict, when available
	Snapshot *Trip
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s %s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrLocalValidation:
		return e.Kind == KindValidation
	case ErrSeatConflict:
		return e.Kind == KindSeatConflict
	case ErrBackend:
		return e.Kind == KindBackend
	}
	return false
}

func validationError(detail string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Detail: detail, Fields: fields}
}

func conflictError(conflicts []seats.Number, snapshot *Trip, cause error) *Error {
	parts := make([]string, len(conflicts))
	for i, s := range conflicts {
		parts[i] = fmt.Sprint(int(s))
	}
	return &Error{
		Kind:     KindSeatConflict,
		Detail:   "seats " + strings.Join(parts, ", ") + " are booked by someone else, choose differently",
		Seats:    conflicts,
		Snapshot: snapshot,
		Err:      cause,
	}
}

func backendError(detail string, cause error) *Error {
	return &Error{Kind: KindBackend, Detail: detail, Err: cause}
}
