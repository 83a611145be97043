package seats

import (
	"errors"
	"fmt"
	"sort"
)

// Number identifies a seat within a bus layout
type Number int

// Layout names known to the application
const (
	LayoutStandard = "standard-50"
	LayoutCompact  = "compact-48"
)

var (
	ErrUnknownLayout = errors.New("unknown seat layout")
	ErrInvalidLayout = errors.New("invalid seat layout")
)

// Layout is an immutable arrangement of seat numbers into display rows.
// Rows before AisleAfter are drawn on one side of the aisle, the rest on the other.
type Layout struct {
	name       string
	rows       [][]Number
	aisleAfter int
	seats      []Number
	index      map[Number]struct{}
}

// NewLayout validates and builds a layout. Seat numbers must be positive and unique.
func NewLayout(name string, aisleAfter int, rows ...[]Number) (*Layout, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidLayout)
	}
	if aisleAfter < 0 || aisleAfter > len(rows) {
		return nil, fmt.Errorf("%w: aisle position %d outside %d rows", ErrInvalidLayout, aisleAfter, len(rows))
	}

	l := &Layout{
		name:       name,
		aisleAfter: aisleAfter,
		index:      make(map[Number]struct{}),
	}

	for _, row := range rows {
		copied := make([]Number, len(row))
		for i, n := range row {
			if n <= 0 {
				return nil, fmt.Errorf("%w: seat number %d must be positive", ErrInvalidLayout, n)
			}
			if _, dup := l.index[n]; dup {
				return nil, fmt.Errorf("%w: seat %d appears twice", ErrInvalidLayout, n)
			}
			l.index[n] = struct{}{}
			copied[i] = n
		}
		l.rows = append(l.rows, copied)
		l.seats = append(l.seats, copied...)
	}

	sort.Slice(l.seats, func(i, j int) bool { return l.seats[i] < l.seats[j] })
	return l, nil
}

func (l *Layout) Name() string {
	return l.name
}

func (l *Layout) AisleAfter() int {
	return l.aisleAfter
}

// IsValidSeat reports whether n is a seat of this layout
func (l *Layout) IsValidSeat(n Number) bool {
	_, ok := l.index[n]
	return ok
}

// Seats returns every seat number in ascending order
func (l *Layout) Seats() []Number {
	out := make([]Number, len(l.seats))
	copy(out, l.seats)
	return out
}

func (l *Layout) Capacity() int {
	return len(l.seats)
}

// DisplayRows returns a copy of the rows in display order
func (l *Layout) DisplayRows() [][]Number {
	out := make([][]Number, len(l.rows))
	for i, row := range l.rows {
		out[i] = make([]Number, len(row))
		copy(out[i], row)
	}
	return out
}

// Seats run across the bus four at a time, so row r holds r, r+4, r+8, ...
// The standard bus adds seats 49 and 50 to the back of rows 3 and 4.
func benchRows(benches int, extra map[int][]Number) [][]Number {
	rows := make([][]Number, 4)
	for b := 0; b < benches; b++ {
		for r := 0; r < 4; r++ {
			rows[r] = append(rows[r], Number(b*4+r+1))
		}
	}
	for r, seats := range extra {
		rows[r] = append(rows[r], seats...)
	}
	return rows
}

var registry = map[string]*Layout{}

func init() {
	register(LayoutStandard, benchRows(12, map[int][]Number{2: {49}, 3: {50}}))
	register(LayoutCompact, benchRows(12, nil))
}

func register(name string, rows [][]Number) {
	l, err := NewLayout(name, 2, rows...)
	if err != nil {
		panic(err)
	}
	registry[name] = l
}

// Lookup returns the named layout
func Lookup(name string) (*Layout, error) {
	l, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return l, nil
}

// Standard returns the 50 seat layout used by the booking screen
func Standard() *Layout {
	return registry[LayoutStandard]
}

// Compact returns the 48 seat layout used by the edit-from-email flow
func Compact() *Layout {
	return registry[LayoutCompact]
}

// LayoutNames lists every registered layout name in sorted order
func LayoutNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
