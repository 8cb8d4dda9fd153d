package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/blockbingo/game/board"
)

// Opcode is one instruction of the robot command alphabet. The byte value is
// what goes over the serial link.
type Opcode byte

const (
	EnterL4             Opcode = 'a'
	EnterL6             Opcode = 'b'
	EnterR5             Opcode = 'w'
	EnterR8             Opcode = 'x'
	Straight            Opcode = 'c'
	SpinRight           Opcode = 'd'
	SpinLeft            Opcode = 'e'
	Spin180             Opcode = 'f'
	Put                 Opcode = 'g'
	StraightDetourRight Opcode = 'h'
	StraightDetourLeft  Opcode = 'i'
	TurnRight90Block    Opcode = 'j'
	TurnRight90         Opcode = 'k'
	TurnLeft90Block     Opcode = 'l'
	TurnLeft90          Opcode = 'm'
	Turn180             Opcode = 'n'
	PrepareToPut        Opcode = 'o'
	StraightStraight    Opcode = 'p'
	MoveNode            Opcode = 'u'
	QuickPutRight       Opcode = 'y'
	QuickPutLeft        Opcode = 'z'

	// Rotations and moves used by the cross circle solver
	SpinRight45  Opcode = 'q'
	SpinLeft45   Opcode = 'r'
	SpinRight135 Opcode = 's'
	SpinLeft135  Opcode = 't'
	MoveDiagonal Opcode = 'v'
)

var descriptions = map[Opcode]string{
	EnterL4:             "enter the block circles at circle 4",
	EnterL6:             "enter the block circles at circle 6",
	EnterR5:             "enter the block circles at circle 5",
	EnterR8:             "enter the block circles at circle 8",
	Straight:            "move to the next block circle",
	SpinRight:           "spin 90 degrees right",
	SpinLeft:            "spin 90 degrees left",
	Spin180:             "spin 180 degrees",
	Put:                 "put the block from the midpoint of the line",
	StraightDetourRight: "go straight detouring right around the block",
	StraightDetourLeft:  "go straight detouring left around the block",
	TurnRight90Block:    "turn 90 degrees right (with block)",
	TurnRight90:         "turn 90 degrees right (without block)",
	TurnLeft90Block:     "turn 90 degrees left (with block)",
	TurnLeft90:          "turn 90 degrees left (without block)",
	Turn180:             "turn 180 degrees and go straight (without block)",
	PrepareToPut:        "go straight from the block circle to the midpoint of the line",
	StraightStraight:    "move two block circles ahead",
	MoveNode:            "move between cross circles",
	QuickPutRight:       "turn right from the cross circle and put the block",
	QuickPutLeft:        "turn left from the cross circle and put the block",
	SpinRight45:         "spin 45 degrees right",
	SpinLeft45:          "spin 45 degrees left",
	SpinRight135:        "spin 135 degrees right",
	SpinLeft135:         "spin 135 degrees left",
	MoveDiagonal:        "move diagonally between midpoints",
}

// spin opcodes keyed by signed eighth-turns
var spins = map[int]Opcode{
	1:  SpinRight45,
	2:  SpinRight,
	3:  SpinRight135,
	4:  Spin180,
	-1: SpinLeft45,
	-2: SpinLeft,
	-3: SpinLeft135,
}

// String returns the opcode symbol
func (op Opcode) String() string {
	return string(rune(op))
}

// MarshalText implements encoding.TextMarshaler
func (op Opcode) MarshalText() ([]byte, error) {
	return []byte{byte(op)}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (op *Opcode) UnmarshalText(text []byte) error {
	if len(text) != 1 || !Opcode(text[0]).Valid() {
		return fmt.Errorf("%w: unknown opcode %q", board.ErrInvalidIdentifier, string(text))
	}
	*op = Opcode(text[0])
	return nil
}

// Valid reports whether op belongs to the alphabet
func (op Opcode) Valid() bool {
	_, ok := descriptions[op]
	return ok
}

// IsSpin reports whether op rotates the robot in place
func (op Opcode) IsSpin() bool {
	_, ok := SpinRotation(op)
	return ok
}

// SpinRotation returns the signed eighth-turns of a spin opcode
func SpinRotation(op Opcode) (int, bool) {
	for rot, spin := range spins {
		if spin == op {
			return rot, true
		}
	}
	return 0, false
}

// SpinFor returns the spin opcode rotating by the given eighth-turns. Zero and
// full turns have no opcode.
func SpinFor(eighths int) (Opcode, bool) {
	rot := board.Heading(0).Rotation(board.Heading(eighths))
	if rot == 0 {
		return 0, false
	}
	return spins[rot], true
}

// Translate returns the operator-facing description of an opcode
func Translate(op Opcode) (string, error) {
	desc, ok := descriptions[op]
	if !ok {
		return "", fmt.Errorf("%w: unknown opcode %q", board.ErrInvalidIdentifier, rune(op))
	}
	return desc, nil
}

// Table returns the full translation table sorted by opcode
func Table() []Translation {
	entries := make([]Translation, 0, len(descriptions))
	for op, desc := range descriptions {
		entries = append(entries, Translation{Opcode: op.String(), Description: desc})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Opcode < entries[j].Opcode
	})
	return entries
}

// Parse reads an instruction string. Opcodes may be separated by whitespace or
// written back to back.
func Parse(s string) ([]Step, error) {
	var steps []Step
	for _, r := range strings.Join(strings.Fields(s), "") {
		op := Opcode(r)
		if r > 0x7f || !op.Valid() {
			return nil, fmt.Errorf("%w: unknown opcode %q", board.ErrInvalidIdentifier, r)
		}
		steps = append(steps, Step{Op: op})
	}
	return steps, nil
}
