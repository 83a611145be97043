package seats

import (
	"sort"
	"strings"
)

// ViewState is the derived, never persisted, state of one seat for one viewer
type ViewState string

const (
	StateAvailable    ViewState = "available"
	StateSelected     ViewState = "selected"
	StateHeldByViewer ViewState = "held-by-current-user"
	StateHeldByOther  ViewState = "held-by-other"
)

// Togglable reports whether a click on a seat in this state may change the selection
func (s ViewState) Togglable() bool {
	return s != StateHeldByOther
}

func (s ViewState) String() string {
	return string(s)
}

// Claim is an existing booking reduced to the seat it occupies and who holds it
type Claim struct {
	Seat Number
	NIC  string
}

// NormalizeNIC trims and upper-cases an identity number so "123456789v" and
// " 123456789V" refer to the same passenger.
func NormalizeNIC(nic string) string {
	return strings.ToUpper(strings.TrimSpace(nic))
}

// Viewer is the identity the seat map is rendered for
type Viewer struct {
	NIC string
}

func NewViewer(nic string) Viewer {
	return Viewer{NIC: NormalizeNIC(nic)}
}

func (v Viewer) IsAnonymous() bool {
	return NormalizeNIC(v.NIC) == ""
}

// Owns reports whether the claim belongs to this viewer. Anonymous viewers own nothing.
func (v Viewer) Owns(c Claim) bool {
	return !v.IsAnonymous() && NormalizeNIC(c.NIC) == NormalizeNIC(v.NIC)
}

// StatusMap holds one state per seat of a layout
type StatusMap map[Number]ViewState

// Count returns how many seats are in the given state
func (m StatusMap) Count(state ViewState) int {
	n := 0
	for _, s := range m {
		if s == state {
			n++
		}
	}
	return n
}

// SeatsIn returns the seats in the given state, ascending
func (m StatusMap) SeatsIn(state ViewState) []Number {
	var out []Number
	for seat, s := range m {
		if s == state {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Board is the read snapshot a seat map is computed from: a layout, the
// bookings loaded for the trip, the viewer and whether this is an edit session.
type Board struct {
	layout   *Layout
	claims   []Claim
	viewer   Viewer
	editMode bool
}

func NewBoard(layout *Layout, claims []Claim, viewer Viewer, editMode bool) *Board {
	copied := make([]Claim, len(claims))
	copy(copied, claims)
	return &Board{
		layout:   layout,
		claims:   copied,
		viewer:   viewer,
		editMode: editMode,
	}
}

func (b *Board) Layout() *Layout {
	return b.layout
}

func (b *Board) Viewer() Viewer {
	return b.viewer
}

func (b *Board) EditMode() bool {
	return b.editMode
}

// ViewerSeats returns the layout seats already held by the viewer, ascending.
// Outside edit mode the viewer holds nothing.
func (b *Board) ViewerSeats() []Number {
	if !b.editMode {
		return nil
	}
	seen := make(map[Number]struct{})
	var out []Number
	for _, c := range b.claims {
		if !b.viewer.Owns(c) || !b.layout.IsValidSeat(c.Seat) {
			continue
		}
		if _, dup := seen[c.Seat]; dup {
			continue
		}
		seen[c.Seat] = struct{}{}
		out = append(out, c.Seat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StateOf resolves a single seat against the given selection
func (b *Board) StateOf(seat Number, selected func(Number) bool) ViewState {
	if selected != nil && selected(seat) {
		return StateSelected
	}

	ownedByViewer, heldByOther := false, false
	for _, c := range b.claims {
		if c.Seat != seat {
			continue
		}
		if b.editMode && b.viewer.Owns(c) {
			ownedByViewer = true
		} else {
			heldByOther = true
		}
	}

	switch {
	case ownedByViewer:
		return StateHeldByViewer
	case heldByOther:
		return StateHeldByOther
	default:
		return StateAvailable
	}
}

// Resolve computes the state of every seat in the layout from scratch
func (b *Board) Resolve(selection []Number) StatusMap {
	chosen := make(map[Number]struct{}, len(selection))
	for _, n := range selection {
		chosen[n] = struct{}{}
	}
	isSelected := func(n Number) bool {
		_, ok := chosen[n]
		return ok
	}

	out := make(StatusMap, b.layout.Capacity())
	for _, seat := range b.layout.Seats() {
		out[seat] = b.StateOf(seat, isSelected)
	}
	return out
}

// Resolve is the one-shot form of Board.Resolve
func Resolve(layout *Layout, claims []Claim, viewer Viewer, selection []Number, editMode bool) StatusMap {
	return NewBoard(layout, claims, viewer, editMode).Resolve(selection)
}
