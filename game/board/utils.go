package board

import (
	"fmt"
	"strconv"
	"strings"
)

// ManhattanDistance calculates the Manhattan distance between two coordinates
func ManhattanDistance(from, to Coord) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// ParseKey resolves a named point: b1..b8 for block circles, c00..c33 for cross
// circles (4x4 index) and mRC for midpoints in doubled coordinates.
func ParseKey(key string) (Coord, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if len(key) < 2 {
		return Coord{}, fmt.Errorf("%w: key %q", ErrInvalidIdentifier, key)
	}

	switch key[0] {
	case 'b':
		n, err := strconv.Atoi(key[1:])
		if err != nil {
			return Coord{}, fmt.Errorf("%w: key %q", ErrInvalidIdentifier, key)
		}
		return CircleCoord(CircleID(n))
	case 'c', 'm':
		if len(key) != 3 {
			return Coord{}, fmt.Errorf("%w: key %q", ErrInvalidIdentifier, key)
		}
		row, col := int(key[1]-'0'), int(key[2]-'0')
		if key[0] == 'c' {
			if row < 0 || row >= CrossSize || col < 0 || col >= CrossSize {
				return Coord{}, fmt.Errorf("%w: cross circle %q", ErrInvalidIdentifier, key)
			}
			return Cross(row, col), nil
		}
		c := Coord{Row: row, Col: col}
		if !c.IsMidpoint() {
			return Coord{}, fmt.Errorf("%w: midpoint %q", ErrInvalidIdentifier, key)
		}
		return c, nil
	}
	return Coord{}, fmt.Errorf("%w: key %q", ErrInvalidIdentifier, key)
}

// CircleSnapshot is the serializable state of one block circle.
type CircleSnapshot struct {
	ID        CircleID  `json:"id"`
	Color     Color     `json:"color"`
	Occupancy Occupancy `json:"occupancy"`
	Block     Color     `json:"block"`
}

// Snapshot is the serializable state of a board.
type Snapshot struct {
	Course  Course           `json:"course"`
	Bonus   CircleID         `json:"bonus"`
	Black   CircleID         `json:"black"`
	Color   CircleID         `json:"color"`
	Circles []CircleSnapshot `json:"circles"`
	Blocks  map[string]Color `json:"blocks"`
}

// Snapshot captures the current board state
func (b *Board) Snapshot() *Snapshot {
	s := &Snapshot{
		Course: b.course,
		Bonus:  b.bonus,
		Black:  b.black,
		Color:  b.color,
		Blocks: make(map[string]Color),
	}
	for i := 0; i < NumCircles; i++ {
		id := CircleID(i + 1)
		occ, block := b.Occupancy(id)
		s.Circles = append(s.Circles, CircleSnapshot{
			ID:        id,
			Color:     courseColors[b.course][i],
			Occupancy: occ,
			Block:     block,
		})
	}
	for _, c := range b.OpenBlocks() {
		s.Blocks[c.Key()] = b.BlockAt(c)
	}
	return s
}

// StepHeading returns the heading of a single step from src to dst. Steps may be
// orthogonal or diagonal but must move exactly one unit along each changed axis.
func StepHeading(src, dst Coord) (Heading, error) {
	dr, dc := dst.Row-src.Row, dst.Col-src.Col
	if dr < -1 || dr > 1 || dc < -1 || dc > 1 || (dr == 0 && dc == 0) {
		return North, fmt.Errorf("%w: %s -> %s is not a unit step", ErrInvalidGeometry, src, dst)
	}
	switch {
	case dc == 0 && dr < 0:
		return North, nil
	case dc > 0 && dr < 0:
		return NorthEast, nil
	case dc > 0 && dr == 0:
		return East, nil
	case dc > 0 && dr > 0:
		return SouthEast, nil
	case dc == 0 && dr > 0:
		return South, nil
	case dc < 0 && dr > 0:
		return SouthWest, nil
	case dc < 0 && dr == 0:
		return West, nil
	default:
		return NorthWest, nil
	}
}
