package trips

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrInvalidTripID  = errors.New("invalid trip id")
	ErrInvalidOrderID = errors.New("invalid booking id")
	ErrOrderNotFound  = errors.New("booking order not found")
)

// SeatConflictError reports seats that another passenger holds
type SeatConflictError struct {
	Seats []int
}

func (e *SeatConflictError) Error() string {
	if len(e.Seats) == 0 {
		return "seats already booked by another passenger"
	}
	parts := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		parts[i] = strconv.Itoa(s)
	}
	return "seats already booked by another passenger: " + strings.Join(parts, ", ")
}

// ValidationError maps request fields to what is wrong with them
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: fmt.Sprintf(format, args...)}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
