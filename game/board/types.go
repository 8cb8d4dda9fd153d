package board

import (
	"fmt"
	"strings"
)

// Color is the color of a block, a block circle or a cross circle.
type Color int

const (
	None Color = iota
	Red
	Blue
	Yellow
	Green
	Black
)

var colorNames = [...]string{"none", "red", "blue", "yellow", "green", "black"}

// String returns the lowercase color name
func (c Color) String() string {
	if c < None || c > Black {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// Letter returns the one-letter form used in board dumps and notation
func (c Color) Letter() string {
	switch c {
	case Red:
		return "R"
	case Blue:
		return "B"
	case Yellow:
		return "Y"
	case Green:
		return "G"
	case Black:
		return "K"
	default:
		return "."
	}
}

// ParseColor parses a color name or its one-letter form
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-", ".":
		return None, nil
	case "red", "r":
		return Red, nil
	case "blue", "b":
		return Blue, nil
	case "yellow", "y":
		return Yellow, nil
	case "green", "g":
		return Green, nil
	case "black", "k":
		return Black, nil
	}
	return None, fmt.Errorf("%w: unknown color %q", ErrInvalidIdentifier, s)
}

// MarshalText implements encoding.TextMarshaler
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Course selects one of the two mirrored board layouts.
type Course int

const (
	Left Course = iota
	Right
)

// String returns "left" or "right"
func (c Course) String() string {
	if c == Right {
		return "right"
	}
	return "left"
}

// ParseCourse parses "left"/"l" or "right"/"r"
func ParseCourse(s string) (Course, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, fmt.Errorf("%w: unknown course %q", ErrInvalidIdentifier, s)
}

// MarshalText implements encoding.TextMarshaler
func (c Course) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Course) UnmarshalText(text []byte) error {
	parsed, err := ParseCourse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CircleID identifies a block circle, 1 through 8.
type CircleID int

// Valid reports whether the id names one of the eight block circles
func (id CircleID) Valid() bool {
	return id >= 1 && id <= 8
}

// Position is a cell of the 3x3 block circle grid. The center cell has no circle.
type Position struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Coord is a point of the board scaled by two: cross circles sit on (even, even),
// midpoints on mixed parity and block circles on (odd, odd).
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

const (
	// Size is the number of rows and columns of the doubled board
	Size = 7
	// CrossSize is the number of cross circles per row and column
	CrossSize = 4
	// NumCircles is the number of block circles
	NumCircles = 8
)

// Cross returns the doubled coordinate of cross circle (row, col) of the 4x4 grid
func Cross(row, col int) Coord {
	return Coord{Row: 2 * row, Col: 2 * col}
}

// Coord returns the doubled coordinate of the block circle at p
func (p Position) Coord() Coord {
	return Coord{Row: 2*p.Row + 1, Col: 2*p.Col + 1}
}

// InBounds reports whether c lies on the 7x7 board
func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// IsCross reports whether c is a cross circle
func (c Coord) IsCross() bool {
	return c.InBounds() && c.Row%2 == 0 && c.Col%2 == 0
}

// IsMidpoint reports whether c lies halfway between two cross circles
func (c Coord) IsMidpoint() bool {
	return c.InBounds() && (c.Row+c.Col)%2 == 1
}

// IsCircle reports whether c is a block circle footprint (including the empty center)
func (c Coord) IsCircle() bool {
	return c.InBounds() && c.Row%2 == 1 && c.Col%2 == 1
}

// Traversable reports whether the robot may stand on c
func (c Coord) Traversable() bool {
	return c.IsCross() || c.IsMidpoint()
}

// Add returns c shifted by (dr, dc)
func (c Coord) Add(dr, dc int) Coord {
	return Coord{Row: c.Row + dr, Col: c.Col + dc}
}

// String formats the coordinate as (row,col)
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Key returns the named key of a cross circle (c00..c33) or midpoint (m01..m65)
func (c Coord) Key() string {
	if c.IsCross() {
		return fmt.Sprintf("c%d%d", c.Row/2, c.Col/2)
	}
	return fmt.Sprintf("m%d%d", c.Row, c.Col)
}

// Heading is one of eight compass directions, 0 = north, counted clockwise in 45 degree steps.
type Heading int

const (
	North Heading = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var headingNames = [...]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// String returns the compass name of the heading
func (h Heading) String() string {
	return headingNames[h.Normalize()]
}

// Normalize folds h into 0..7
func (h Heading) Normalize() Heading {
	return ((h % 8) + 8) % 8
}

// Cardinal reports whether h is one of north, east, south or west
func (h Heading) Cardinal() bool {
	return h.Normalize()%2 == 0
}

// Opposite returns the heading rotated by 180 degrees
func (h Heading) Opposite() Heading {
	return (h + 4).Normalize()
}

// Rotation returns the signed eighth-turns from h to next in -3..4, positive clockwise.
// A half turn is always reported as +4.
func (h Heading) Rotation(next Heading) int {
	d := int((next - h).Normalize())
	if d > 4 {
		d -= 8
	}
	return d
}

// Delta returns the (row, col) unit step of h
func (h Heading) Delta() (int, int) {
	switch h.Normalize() {
	case North:
		return -1, 0
	case NorthEast:
		return -1, 1
	case East:
		return 0, 1
	case SouthEast:
		return 1, 1
	case South:
		return 1, 0
	case SouthWest:
		return 1, -1
	case West:
		return 0, -1
	default:
		return -1, -1
	}
}

// ParseHeading parses a compass name, its abbreviation (n, ne, e, ...) or a number 0..7
func ParseHeading(s string) (Heading, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	abbrev := []string{"n", "ne", "e", "se", "s", "sw", "w", "nw"}
	for i := range headingNames {
		if s == headingNames[i] || s == abbrev[i] || s == fmt.Sprint(i) {
			return Heading(i), nil
		}
	}
	return North, fmt.Errorf("%w: unknown heading %q", ErrInvalidIdentifier, s)
}

// MarshalText implements encoding.TextMarshaler
func (h Heading) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Pose is the robot's coordinate and heading.
type Pose struct {
	Coord   Coord   `json:"coord" yaml:"coord"`
	Heading Heading `json:"heading" yaml:"heading"`
}

// Occupancy is the state of a block circle.
type Occupancy int

const (
	Empty Occupancy = iota
	HoldsBlack
	HoldsColor
	Vacated
)

// String returns the occupancy name
func (o Occupancy) String() string {
	switch o {
	case HoldsBlack:
		return "black"
	case HoldsColor:
		return "color"
	case Vacated:
		return "vacated"
	default:
		return "empty"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Occupancy) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Occupancy) UnmarshalText(text []byte) error {
	for _, candidate := range []Occupancy{Empty, HoldsBlack, HoldsColor, Vacated} {
		if string(text) == candidate.String() {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: unknown occupancy %q", ErrInvalidIdentifier, string(text))
}
