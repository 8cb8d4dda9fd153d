package command

import (
	"fmt"

	"github.com/wricardo/blockbingo/game/board"
)

// Synthesizer encodes cross circle routes into instructions. It reads the
// board's open set to decide whether the robot passes a block at each node.
type Synthesizer struct {
	board   *board.Board
	builder *Builder
}

// NewSynthesizer creates a synthesizer writing into a fresh builder
func NewSynthesizer(b *board.Board) *Synthesizer {
	return &Synthesizer{board: b, builder: NewBuilder()}
}

// Builder returns the builder holding the emitted instructions
func (s *Synthesizer) Builder() *Builder {
	return s.builder
}

// Steps returns the emitted instructions
func (s *Synthesizer) Steps() []Step {
	return s.builder.Steps()
}

// Convert encodes a route driven from the given heading and returns the
// heading on arrival at the last node.
func (s *Synthesizer) Convert(heading board.Heading, route []board.Coord) (board.Heading, error) {
	var err error
	for i := 1; i < len(route); i++ {
		src, dst := route[i-1], route[i]
		hasBlock := s.board.IsOpen(src)

		if i == 1 {
			if heading, err = s.Spin(src, dst, heading); err != nil {
				return heading, err
			}
		}
		if heading, err = s.Straight(src, dst, heading, hasBlock); err != nil {
			return heading, err
		}
	}
	return heading, nil
}

// Spin turns the robot in place toward dst before the first move
func (s *Synthesizer) Spin(src, dst board.Coord, heading board.Heading) (board.Heading, error) {
	next, err := lineHeading(src, dst)
	if err != nil {
		return heading, err
	}
	return s.face(heading, next)
}

// Straight encodes one move along the current heading, delegating to Turn
// when the move changes direction.
func (s *Synthesizer) Straight(src, dst board.Coord, heading board.Heading, hasBlock bool) (board.Heading, error) {
	next, err := lineHeading(src, dst)
	if err != nil {
		return heading, err
	}
	if next != heading {
		return s.Turn(src, dst, heading, hasBlock)
	}

	s.builder.Push(Step{Op: MoveNode, Half: true})
	if hasBlock {
		if err := s.straightDetour(src, dst); err != nil {
			return heading, err
		}
	}
	return heading, nil
}

// Turn rewrites the move into src as a turn toward dst
func (s *Synthesizer) Turn(src, dst board.Coord, heading board.Heading, hasBlock bool) (board.Heading, error) {
	next, err := lineHeading(src, dst)
	if err != nil {
		return heading, err
	}

	var op Opcode
	switch heading.Rotation(next) {
	case 2:
		op = TurnRight90
		if hasBlock {
			op = TurnRight90Block
		}
	case -2:
		op = TurnLeft90
		if hasBlock {
			op = TurnLeft90Block
		}
	case 4:
		return s.turn180(src, dst, heading, hasBlock)
	default:
		return heading, fmt.Errorf("%w: cannot turn from %s to %s at %s", board.ErrSynthesis, heading, next, src)
	}

	if err := s.builder.ReplaceLast(Step{Op: op}); err != nil {
		return heading, err
	}
	return next, nil
}

func (s *Synthesizer) turn180(src, dst board.Coord, heading board.Heading, hasBlock bool) (board.Heading, error) {
	if hasBlock {
		return s.turn180Detour(src, dst)
	}
	s.builder.PushOp(Turn180)
	return heading.Opposite(), nil
}

// turn180Detour moves the half turn in front of the last instruction so the
// spin survives the detour rewrite.
func (s *Synthesizer) turn180Detour(src, dst board.Coord) (board.Heading, error) {
	next, err := lineHeading(src, dst)
	if err != nil {
		return next, err
	}

	top, ok := s.builder.Pop()
	s.builder.PushOp(Spin180)
	if ok {
		s.builder.Push(top)
	}

	s.builder.Push(Step{Op: MoveNode, Half: true})
	if err := s.straightDetour(src, dst); err != nil {
		return next, err
	}
	return next, nil
}

// straightDetour replaces the last move with a detour around the block on src.
// The side depends on whether src is inside the grid or on its right/bottom edge.
func (s *Synthesizer) straightDetour(src, dst board.Coord) error {
	northOrEast := dst.Row < src.Row || dst.Col > src.Col
	interior := src.Row < board.Size-1 && src.Col < board.Size-1

	op := StraightDetourLeft
	if interior == northOrEast {
		op = StraightDetourRight
	}
	return s.builder.ReplaceLast(Step{Op: op, Half: true})
}

// Put encodes placing the carried block from src into the block circle at dst
// and returns the heading after the put.
func (s *Synthesizer) Put(src, dst board.Coord, heading board.Heading) (board.Heading, error) {
	if _, ok := board.CircleAt(dst); !ok {
		return heading, fmt.Errorf("%w: %s is not a block circle", board.ErrInvalidGeometry, dst)
	}

	dr, dc := src.Row-dst.Row, src.Col-dst.Col
	var err error
	switch {
	case dr == -1 && dc == -1:
		// top-left cross circle
		heading, err = s.quickPut(heading, board.North, board.East, QuickPutRight, board.South, QuickPutLeft)
	case dr == -1 && dc == 1:
		// top-right cross circle
		heading, err = s.quickPut(heading, board.East, board.South, QuickPutRight, board.West, QuickPutLeft)
	case dr == 1 && dc == -1:
		// bottom-left cross circle
		heading, err = s.quickPut(heading, board.West, board.North, QuickPutRight, board.East, QuickPutLeft)
	case dr == 1 && dc == 1:
		// bottom-right cross circle
		heading, err = s.quickPut(heading, board.North, board.North, QuickPutLeft, board.West, QuickPutRight)
	case dr == -1 && dc == 0:
		heading, err = s.midpointPut(heading, board.South)
	case dr == 1 && dc == 0:
		heading, err = s.midpointPut(heading, board.North)
	case dr == 0 && dc == -1:
		heading, err = s.midpointPut(heading, board.East)
	case dr == 0 && dc == 1:
		heading, err = s.midpointPut(heading, board.West)
	default:
		return heading, fmt.Errorf("%w: %s is not next to block circle %s", board.ErrInvalidGeometry, src, dst)
	}
	return heading, err
}

// quickPut handles a put from a corner cross circle. A robot facing first, or
// a quarter turn clockwise from it, puts with firstOp after facing firstFace.
// Any other cardinal heading faces otherFace and puts with otherOp.
func (s *Synthesizer) quickPut(heading, first, firstFace board.Heading, firstOp Opcode, otherFace board.Heading, otherOp Opcode) (board.Heading, error) {
	if !heading.Cardinal() {
		return heading, fmt.Errorf("%w: cannot put while facing %s", board.ErrSynthesis, heading)
	}

	face, op := otherFace, otherOp
	if heading == first || heading == (first+2).Normalize() {
		face, op = firstFace, firstOp
	}

	heading, err := s.face(heading, face)
	if err != nil {
		return heading, err
	}
	s.builder.PushOp(op)
	return heading, nil
}

func (s *Synthesizer) midpointPut(heading, face board.Heading) (board.Heading, error) {
	heading, err := s.face(heading, face)
	if err != nil {
		return heading, err
	}
	s.builder.PushOp(Put)
	return heading, nil
}

// face spins in place from heading to target
func (s *Synthesizer) face(heading, target board.Heading) (board.Heading, error) {
	switch heading.Rotation(target) {
	case 0:
		return heading, nil
	case 2:
		s.builder.PushOp(SpinRight)
	case -2:
		s.builder.PushOp(SpinLeft)
	case 4:
		s.builder.PushOp(Spin180)
	default:
		return heading, fmt.Errorf("%w: cannot spin from %s to %s", board.ErrSynthesis, heading, target)
	}
	return target, nil
}

// lineHeading returns the heading of a move along a black line
func lineHeading(src, dst board.Coord) (board.Heading, error) {
	h, err := board.StepHeading(src, dst)
	if err != nil {
		return h, err
	}
	if !h.Cardinal() {
		return h, fmt.Errorf("%w: %s -> %s leaves the black lines", board.ErrInvalidGeometry, src, dst)
	}
	return h, nil
}
