package grid

import (
	"fmt"

	"github.com/wricardo/blockbingo/game/board"
)

// CostFunc prices the move src -> dst for a robot that arrived at src facing
// heading.
type CostFunc func(b *board.Board, src, dst board.Coord, heading board.Heading) (int, error)

// Heuristic estimates the remaining cost from c to goal. It must never
// overestimate.
type Heuristic func(c, goal board.Coord) int

const (
	costStraight        = 1
	costStraightBlocked = 4
	costTurn90          = 2
	costTurn180         = 1
	costTurn180Blocked  = 5
)

// HeadingBetween returns the heading of a single move from src to dst
func HeadingBetween(src, dst board.Coord) (board.Heading, error) {
	return board.StepHeading(src, dst)
}

// MovingCost is the rotation-aware cost on the compact graph. Driving past a
// block and turning around on one are the expensive moves.
func MovingCost(b *board.Board, src, dst board.Coord, heading board.Heading) (int, error) {
	next, err := HeadingBetween(src, dst)
	if err != nil {
		return 0, err
	}
	if !heading.Cardinal() || !next.Cardinal() {
		return 0, fmt.Errorf("%w: %s -> %s facing %s leaves the black lines", board.ErrInvalidGeometry, src, dst, heading)
	}

	hasBlock := b.IsOpen(src)
	switch heading.Rotation(next) {
	case 0:
		if hasBlock {
			return costStraightBlocked, nil
		}
		return costStraight, nil
	case 4:
		if hasBlock {
			return costTurn180Blocked, nil
		}
		return costTurn180, nil
	default:
		return costTurn90, nil
	}
}

// heavyCosts is indexed by the absolute rotation in eighth-turns
var heavyCosts = [5]int{1, 2, 3, 4, 5}

// HeavyCost prices a move by how far the robot has to rotate first
func HeavyCost(_ *board.Board, src, dst board.Coord, heading board.Heading) (int, error) {
	next, err := HeadingBetween(src, dst)
	if err != nil {
		return 0, err
	}
	rot := heading.Rotation(next)
	if rot < 0 {
		rot = -rot
	}
	return heavyCosts[rot], nil
}

// Manhattan is the compact graph heuristic
func Manhattan(c, goal board.Coord) int {
	return board.ManhattanDistance(c, goal)
}

// HalfManhattan is the heavy graph heuristic. A diagonal move closes two units
// of Manhattan distance for a cost of at least one.
func HalfManhattan(c, goal board.Coord) int {
	return (board.ManhattanDistance(c, goal) + 1) / 2
}
