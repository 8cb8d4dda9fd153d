package ring

import (
	"fmt"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
)

// EntryOpcode returns the opcode entering the ring at the given circle
func EntryOpcode(course board.Course, entry board.CircleID) (command.Opcode, error) {
	switch {
	case course == board.Left && entry == 4:
		return command.EnterL4, nil
	case course == board.Left && entry == 6:
		return command.EnterL6, nil
	case course == board.Right && entry == 5:
		return command.EnterR5, nil
	case course == board.Right && entry == 8:
		return command.EnterR8, nil
	}
	return 0, fmt.Errorf("%w: circle %d is not an entry of the %s course", board.ErrInvalidGeometry, entry, course)
}

// InitialHeading is the robot heading when it enters the ring
func InitialHeading(course board.Course) board.Heading {
	if course == board.Right {
		return board.West
	}
	return board.East
}

// Encode turns a ring route into opcodes: the entry, a spin and a circle move
// per step, then the put on the bonus circle. It returns the heading after the
// last move.
func Encode(course board.Course, route Route) ([]command.Step, board.Heading, error) {
	heading := InitialHeading(course)
	if len(route) == 0 {
		return nil, heading, fmt.Errorf("%w: empty ring route", board.ErrInvalidGeometry)
	}

	entry, err := EntryOpcode(course, route[0])
	if err != nil {
		return nil, heading, err
	}

	positions, err := route.Positions()
	if err != nil {
		return nil, heading, err
	}

	b := command.NewBuilder()
	b.PushOp(entry)
	for i := 1; i < len(positions); i++ {
		src, dst := positions[i-1], positions[i]
		if board.ManhattanDistance(board.Coord(src), board.Coord(dst)) != 1 {
			return nil, heading, fmt.Errorf("%w: circle %d -> %d is not a ring step", board.ErrInvalidGeometry, route[i-1], route[i])
		}
		next, err := board.StepHeading(board.Coord(src), board.Coord(dst))
		if err != nil {
			return nil, heading, err
		}

		switch heading.Rotation(next) {
		case 0:
		case 2:
			b.PushOp(command.SpinRight)
		case -2:
			b.PushOp(command.SpinLeft)
		case 4:
			b.PushOp(command.Spin180)
		default:
			return nil, heading, fmt.Errorf("%w: cannot spin from %s to %s", board.ErrSynthesis, heading, next)
		}
		b.PushOp(command.Straight)
		heading = next
	}
	b.PushOp(command.Put)

	return b.Steps(), heading, nil
}
