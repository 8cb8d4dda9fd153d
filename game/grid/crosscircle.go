package grid

import (
	"fmt"
	"sort"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
)

// bingoLines are the single bingo lines through the outer circles
var bingoLines = [4][3]board.CircleID{
	{1, 2, 3},
	{3, 5, 8},
	{6, 7, 8},
	{1, 4, 6},
}

// CrossCircleSolver plans a whole bingo combination on the heavy graph, one
// pickup and one delivery leg per circle.
type CrossCircleSolver struct {
	board *board.Board
}

// Leg is one searched route with its encoded instructions
type Leg struct {
	Kind   string         `json:"kind"`
	Circle board.CircleID `json:"circle"`
	Route  *Route         `json:"route"`
	Steps  []command.Step `json:"steps"`
}

// BingoSolution is the result of SolveBingo
type BingoSolution struct {
	Circles []board.CircleID `json:"circles"`
	Legs    []Leg            `json:"legs"`
	Steps   []command.Step   `json:"steps"`
	Cost    int              `json:"cost"`
	Final   board.Pose       `json:"final"`
}

// NewCrossCircleSolver creates a solver that mutates b as blocks are delivered
func NewCrossCircleSolver(b *board.Board) *CrossCircleSolver {
	return &CrossCircleSolver{board: b}
}

// SelectBingo returns the circles to fill so that first completes two bingo
// lines. A circle on a single line borrows the other line through that line's
// first circle. The result is sorted and excludes first.
func (s *CrossCircleSolver) SelectBingo(first board.CircleID) ([]board.CircleID, error) {
	if !first.Valid() {
		return nil, fmt.Errorf("%w: block circle %d", board.ErrInvalidIdentifier, first)
	}

	selected := map[int]bool{}
	var circles []board.CircleID
	for i, line := range bingoLines {
		if lineHas(line, first) {
			selected[i] = true
			circles = append(circles, line[:]...)
		}
	}
	if len(selected) == 1 {
		pivot := circles[0]
		for i, line := range bingoLines {
			if !selected[i] && lineHas(line, pivot) {
				circles = append(circles, line[:]...)
			}
		}
	}

	seen := map[board.CircleID]bool{first: true}
	var out []board.CircleID
	for _, id := range circles {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func lineHas(line [3]board.CircleID, id board.CircleID) bool {
	return line[0] == id || line[1] == id || line[2] == id
}

// GoalFor returns the delivery point of a block circle: the midpoint on its left
func GoalFor(id board.CircleID) (board.Coord, error) {
	c, err := board.CircleCoord(id)
	if err != nil {
		return board.Coord{}, err
	}
	return c.Add(0, -1), nil
}

// SelectBlock picks the block of the given color to fetch. Only the first two
// matching blocks in row-major order are considered; the nearer one wins and
// a tie goes to the second.
func (s *CrossCircleSolver) SelectBlock(color board.Color, from board.Coord) (board.Coord, bool) {
	var candidates []board.Coord
	for _, c := range s.board.OpenBlocks() {
		if s.board.BlockAt(c) == color {
			candidates = append(candidates, c)
		}
	}

	switch len(candidates) {
	case 0:
		return board.Coord{}, false
	case 1:
		return candidates[0], true
	}
	if board.ManhattanDistance(from, candidates[0]) < board.ManhattanDistance(from, candidates[1]) {
		return candidates[0], true
	}
	return candidates[1], true
}

// SolveBingo fetches a block for every circle of the bingo selected by first
// and carries it to the circle's delivery point. Circles that already hold a
// color block are skipped.
func (s *CrossCircleSolver) SolveBingo(first board.CircleID, pose board.Pose) (*BingoSolution, error) {
	circles, err := s.SelectBingo(first)
	if err != nil {
		return nil, err
	}

	sol := &BingoSolution{Circles: circles}
	for _, circle := range circles {
		if occ, _ := s.board.Occupancy(circle); occ == board.HoldsColor {
			continue
		}
		color, err := s.board.ColorOf(circle)
		if err != nil {
			return nil, err
		}
		block, ok := s.SelectBlock(color, pose.Coord)
		if !ok {
			return nil, fmt.Errorf("%w: no %s block left for circle %d", board.ErrInvalidState, color, circle)
		}
		goal, err := GoalFor(circle)
		if err != nil {
			return nil, err
		}

		if pose, err = s.leg(sol, "pickup", circle, pose, block); err != nil {
			return nil, err
		}
		if pose, err = s.leg(sol, "delivery", circle, pose, goal); err != nil {
			return nil, err
		}

		s.board.MoveBlock(block)
		if err := s.board.Fill(circle, color); err != nil {
			return nil, err
		}
	}

	sol.Final = pose
	return sol, nil
}

func (s *CrossCircleSolver) leg(sol *BingoSolution, kind string, circle board.CircleID, pose board.Pose, goal board.Coord) (board.Pose, error) {
	route, err := Search(Heavy, s.board, pose, goal, HeavyCost, HalfManhattan)
	if err != nil {
		return pose, err
	}
	steps, heading, err := RouteToCommands(route.Path, pose.Heading)
	if err != nil {
		return pose, err
	}

	sol.Legs = append(sol.Legs, Leg{Kind: kind, Circle: circle, Route: route, Steps: steps})
	sol.Steps = append(sol.Steps, steps...)
	sol.Cost += route.Cost
	return board.Pose{Coord: goal, Heading: heading}, nil
}

// RouteToCommands encodes a heavy route: a spin of any eighth-turn before each
// move when the heading changes, then u for a line move or v for a diagonal.
func RouteToCommands(path []board.Coord, heading board.Heading) ([]command.Step, board.Heading, error) {
	b := command.NewBuilder()
	for i := 1; i < len(path); i++ {
		next, err := HeadingBetween(path[i-1], path[i])
		if err != nil {
			return nil, heading, err
		}
		if spin, ok := command.SpinFor(heading.Rotation(next)); ok {
			b.PushOp(spin)
		}
		if next.Cardinal() {
			b.PushOp(command.MoveNode)
		} else {
			b.PushOp(command.MoveDiagonal)
		}
		heading = next
	}
	return b.Steps(), heading, nil
}
