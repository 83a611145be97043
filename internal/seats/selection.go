package seats

import "sort"

// Selection is the uncommitted, ascending set of seats chosen in one editing session
type Selection struct {
	board *Board
	seats []Number
}

// NewSelection starts a selection over board. Initial seats that are not
// selectable on the board are dropped.
func NewSelection(board *Board, initial ...Number) *Selection {
	s := &Selection{board: board}
	for _, n := range initial {
		if !s.Contains(n) && s.selectable(n) {
			s.seats = append(s.seats, n)
		}
	}
	s.sort()
	return s
}

// Toggle adds or removes seat. Seats outside the layout or held by another
// passenger are ignored. It reports whether the selection changed.
func (s *Selection) Toggle(seat Number) bool {
	if i := s.indexOf(seat); i >= 0 {
		s.seats = append(s.seats[:i], s.seats[i+1:]...)
		return true
	}
	if !s.selectable(seat) {
		return false
	}
	s.seats = append(s.seats, seat)
	s.sort()
	return true
}

// Clear empties the selection unconditionally
func (s *Selection) Clear() {
	s.seats = nil
}

// Seats returns a copy of the selected seats, ascending
func (s *Selection) Seats() []Number {
	out := make([]Number, len(s.seats))
	copy(out, s.seats)
	return out
}

func (s *Selection) Len() int {
	return len(s.seats)
}

func (s *Selection) IsEmpty() bool {
	return len(s.seats) == 0
}

func (s *Selection) Contains(seat Number) bool {
	return s.indexOf(seat) >= 0
}

// Status resolves the whole board against the current selection
func (s *Selection) Status() StatusMap {
	return s.board.Resolve(s.seats)
}

func (s *Selection) Board() *Board {
	return s.board
}

func (s *Selection) selectable(seat Number) bool {
	if !s.board.layout.IsValidSeat(seat) {
		return false
	}
	return s.board.StateOf(seat, s.Contains).Togglable()
}

func (s *Selection) indexOf(seat Number) int {
	for i, n := range s.seats {
		if n == seat {
			return i
		}
	}
	return -1
}

func (s *Selection) sort() {
	sort.Slice(s.seats, func(i, j int) bool { return s.seats[i] < s.seats[j] })
}
