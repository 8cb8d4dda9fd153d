// Package ring plans the black block transport around the eight block circles
// and encodes it into ring opcodes.
package ring

import (
	"fmt"

	"github.com/wricardo/blockbingo/game/board"
)

// Track is a cyclic visiting order of the block circles starting at circle 1.
type Track [board.NumCircles]board.CircleID

var (
	// Inner visits the ring counter-clockwise
	Inner = Track{1, 4, 6, 7, 8, 5, 3, 2}
	// Outer visits the ring clockwise
	Outer = Track{1, 2, 3, 5, 8, 7, 6, 4}
)

func (t Track) index(id board.CircleID) int {
	for i, c := range t {
		if c == id {
			return i
		}
	}
	return -1
}

// SubsetOfTracks returns the circles of track strictly after start up to and
// including goal, wrapping around the end of the track. It reports false when
// either endpoint is not on the track. start == goal yields an empty subset.
func SubsetOfTracks(start, goal board.CircleID, track Track) ([]board.CircleID, bool) {
	si, gi := track.index(start), track.index(goal)
	if si < 0 || gi < 0 {
		return nil, false
	}

	n := len(track)
	steps := (gi - si + n) % n
	subset := make([]board.CircleID, 0, steps)
	for i := 1; i <= steps; i++ {
		subset = append(subset, track[(si+i)%n])
	}
	return subset, true
}

// Route is an ordered list of block circles, entry first.
type Route []board.CircleID

// Positions maps the route to block grid positions
func (r Route) Positions() ([]board.Position, error) {
	out := make([]board.Position, len(r))
	for i, id := range r {
		p, err := board.CirclePosition(id)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Coords maps the route to doubled board coordinates
func (r Route) Coords() ([]board.Coord, error) {
	positions, err := r.Positions()
	if err != nil {
		return nil, err
	}
	out := make([]board.Coord, len(positions))
	for i, p := range positions {
		out[i] = p.Coord()
	}
	return out, nil
}

// Solver chooses the ring route that fetches the black block and carries it to
// the bonus circle without passing the color block.
type Solver struct {
	course board.Course
	bonus  board.CircleID
	black  board.CircleID
	color  board.CircleID
}

// NewSolver creates a solver for one round
func NewSolver(course board.Course, bonus, black, color board.CircleID) (*Solver, error) {
	for _, id := range []board.CircleID{bonus, black, color} {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: block circle %d", board.ErrInvalidIdentifier, id)
		}
	}
	return &Solver{course: course, bonus: bonus, black: black, color: color}, nil
}

// FromBoard creates a solver from the circles recorded on a board
func FromBoard(b *board.Board) (*Solver, error) {
	return NewSolver(b.Course(), b.Bonus(), b.BlackCircle(), b.ColorCircle())
}

// Entries returns the default and fallback entry circles of a course
func Entries(course board.Course) (board.CircleID, board.CircleID) {
	if course == board.Right {
		return 5, 8
	}
	return 4, 6
}

// Enter picks the circle the robot enters the ring at. The fallback replaces
// the default when the color block sits on the default, and always when the
// fallback holds the black block.
func (s *Solver) Enter() board.CircleID {
	enter, fallback := Entries(s.course)
	if enter == s.color {
		enter = fallback
	}
	if fallback == s.black {
		enter = fallback
	}
	return enter
}

// CatchPath returns the circles after entry up to the black block
func (s *Solver) CatchPath(entry board.CircleID) []board.CircleID {
	path, _ := SubsetOfTracks(entry, s.black, Inner)
	if contains(path, s.color) {
		path, _ = SubsetOfTracks(entry, s.black, Outer)
	}
	return path
}

// BonusPath returns the circles after the black circle up to the bonus circle
func (s *Solver) BonusPath() []board.CircleID {
	path, _ := SubsetOfTracks(s.black, s.bonus, Inner)
	outer, _ := SubsetOfTracks(s.black, s.bonus, Outer)

	if contains(withoutGoal(path), s.color) {
		return outer
	}
	if !contains(withoutGoal(outer), s.color) && len(outer) < len(path) {
		return outer
	}
	return path
}

// Solve returns the full ring route: entry, catch path and bonus path
func (s *Solver) Solve() Route {
	entry := s.Enter()
	route := Route{entry}
	route = append(route, s.CatchPath(entry)...)
	return append(route, s.BonusPath()...)
}

func withoutGoal(path []board.CircleID) []board.CircleID {
	if len(path) == 0 {
		return path
	}
	return path[:len(path)-1]
}

func contains(path []board.CircleID, id board.CircleID) bool {
	for _, c := range path {
		if c == id {
			return true
		}
	}
	return false
}
