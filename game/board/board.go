package board

import (
	"fmt"
	"sort"
	"strings"
)

var circlePositions = [NumCircles]Position{
	{0, 0}, {0, 1}, {0, 2},
	{1, 0}, {1, 2},
	{2, 0}, {2, 1}, {2, 2},
}

var courseColors = map[Course][NumCircles]Color{
	Left:  {Yellow, Green, Red, Blue, Yellow, Green, Red, Blue},
	Right: {Red, Green, Yellow, Yellow, Blue, Blue, Red, Green},
}

// Layout is the recognized state of the field at the start of a round.
type Layout struct {
	Course Course
	Bonus  CircleID
	Black  CircleID
	Color  CircleID
	// ColorBlock is the color of the block already standing on the color circle.
	// None means the circle's own color.
	ColorBlock Color
	Blocks     map[Coord]Color
}

type circleState struct {
	black   bool
	color   Color
	vacated bool
}

// Board is the coordinate model of one round: fixed geometry plus the mutable
// occupancy of block circles and the open set of uncollected blocks.
type Board struct {
	course Course
	bonus  CircleID
	black  CircleID
	color  CircleID

	circles [NumCircles]circleState
	blocks  [Size][Size]Color
}

// New creates a board from a recognized layout
func New(layout Layout) (*Board, error) {
	for _, id := range []CircleID{layout.Bonus, layout.Black, layout.Color} {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: block circle %d", ErrInvalidIdentifier, id)
		}
	}
	if layout.Course != Left && layout.Course != Right {
		return nil, fmt.Errorf("%w: course %d", ErrInvalidIdentifier, layout.Course)
	}
	if layout.Bonus == layout.Black {
		return nil, fmt.Errorf("%w: bonus circle %d also holds the black block", ErrInvalidState, layout.Bonus)
	}
	if layout.Black == layout.Color {
		return nil, fmt.Errorf("%w: circle %d holds both the black and the color block", ErrInvalidState, layout.Black)
	}

	b := &Board{
		course: layout.Course,
		bonus:  layout.Bonus,
		black:  layout.Black,
		color:  layout.Color,
	}

	colorBlock := layout.ColorBlock
	if colorBlock == None {
		colorBlock = courseColors[layout.Course][layout.Color-1]
	}
	b.circles[layout.Black-1].black = true
	b.circles[layout.Color-1].color = colorBlock

	for c, color := range layout.Blocks {
		if err := b.PlaceBlock(c, color); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Course returns the active course layout
func (b *Board) Course() Course { return b.course }

// Bonus returns the bonus circle
func (b *Board) Bonus() CircleID { return b.bonus }

// BlackCircle returns the circle that held the black block at the start of the round
func (b *Board) BlackCircle() CircleID { return b.black }

// ColorCircle returns the circle holding the initial color block
func (b *Board) ColorCircle() CircleID { return b.color }

// Get returns the position of a block circle in the 3x3 grid
func (b *Board) Get(id CircleID) (Position, error) {
	return CirclePosition(id)
}

// CirclePosition returns the position of a block circle in the 3x3 grid
func CirclePosition(id CircleID) (Position, error) {
	if !id.Valid() {
		return Position{}, fmt.Errorf("%w: block circle %d", ErrInvalidIdentifier, id)
	}
	return circlePositions[id-1], nil
}

// CircleCoord returns the doubled coordinate of a block circle
func CircleCoord(id CircleID) (Coord, error) {
	p, err := CirclePosition(id)
	if err != nil {
		return Coord{}, err
	}
	return p.Coord(), nil
}

// CircleAt returns the block circle sitting on c
func CircleAt(c Coord) (CircleID, bool) {
	for i, p := range circlePositions {
		if p.Coord() == c {
			return CircleID(i + 1), true
		}
	}
	return 0, false
}

// CircleColors returns the fixed circle colors of a course, indexed by id-1
func CircleColors(course Course) [NumCircles]Color {
	return courseColors[course]
}

// ColorOf returns the fixed color of a block circle on the active course
func (b *Board) ColorOf(id CircleID) (Color, error) {
	if !id.Valid() {
		return None, fmt.Errorf("%w: block circle %d", ErrInvalidIdentifier, id)
	}
	return courseColors[b.course][id-1], nil
}

// CrossColor returns the printed quadrant color of a cross circle
func CrossColor(c Coord) Color {
	if !c.IsCross() {
		return None
	}
	top := c.Row < Size/2
	left := c.Col < Size/2
	switch {
	case top && left:
		return Red
	case top:
		return Blue
	case left:
		return Yellow
	default:
		return Green
	}
}

// Occupancy reports what a block circle holds and the color of its color block
func (b *Board) Occupancy(id CircleID) (Occupancy, Color) {
	if !id.Valid() {
		return Empty, None
	}
	s := b.circles[id-1]
	switch {
	case s.color != None:
		return HoldsColor, s.color
	case s.black:
		return HoldsBlack, Black
	case s.vacated:
		return Vacated, None
	}
	return Empty, None
}

// Fill records that a block of the given color was placed on a block circle.
// A circle takes at most one black and one color block per round.
func (b *Board) Fill(id CircleID, color Color) error {
	if !id.Valid() {
		return fmt.Errorf("%w: block circle %d", ErrInvalidIdentifier, id)
	}
	s := &b.circles[id-1]
	switch {
	case color == None:
		return fmt.Errorf("%w: cannot fill circle %d with no block", ErrInvalidState, id)
	case color == Black:
		if s.black {
			return fmt.Errorf("%w: circle %d already holds the black block", ErrInvalidState, id)
		}
		s.black = true
	default:
		if s.color != None {
			return fmt.Errorf("%w: circle %d already holds a %s block", ErrInvalidState, id, s.color)
		}
		s.color = color
	}
	return nil
}

// Vacate records that the black block left its circle
func (b *Board) Vacate(id CircleID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: block circle %d", ErrInvalidIdentifier, id)
	}
	s := &b.circles[id-1]
	if !s.black {
		return fmt.Errorf("%w: circle %d holds no black block", ErrInvalidState, id)
	}
	s.black = false
	s.vacated = true
	return nil
}

// CircleToPlace returns where a block of the given color belongs: the lowest
// numbered circle of that color still without a color block, or the bonus circle
// for black. It reports false when no circle is left.
func (b *Board) CircleToPlace(color Color) (CircleID, bool) {
	if color == Black {
		if b.circles[b.bonus-1].black {
			return 0, false
		}
		return b.bonus, true
	}
	if color == None {
		return 0, false
	}
	for i, c := range courseColors[b.course] {
		if c == color && b.circles[i].color == None {
			return CircleID(i + 1), true
		}
	}
	return 0, false
}

// PlaceBlock puts a block on a cross circle or midpoint during setup.
// Placing None removes the block.
func (b *Board) PlaceBlock(c Coord, color Color) error {
	if !c.Traversable() {
		return fmt.Errorf("%w: %s is not a cross circle or midpoint", ErrInvalidIdentifier, c)
	}
	b.blocks[c.Row][c.Col] = color
	return nil
}

// BlockAt returns the color of the uncollected block on c, None if there is none
func (b *Board) BlockAt(c Coord) Color {
	if !c.InBounds() {
		return None
	}
	return b.blocks[c.Row][c.Col]
}

// IsOpen reports whether c still holds an uncollected block
func (b *Board) IsOpen(c Coord) bool {
	return b.BlockAt(c) != None
}

// OpenBlocks returns every coordinate holding an uncollected block in row-major order
func (b *Board) OpenBlocks() []Coord {
	var open []Coord
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b.blocks[r][c] != None {
				open = append(open, Coord{Row: r, Col: c})
			}
		}
	}
	return open
}

// MoveBlock marks the block on c as collected. It does nothing when c holds no block.
func (b *Board) MoveBlock(c Coord) {
	if !c.InBounds() {
		return
	}
	b.blocks[c.Row][c.Col] = None
}

// NearestBlock returns the open block closest to from whose color is listed in
// colors, together with the index of the matching color. Ties keep row-major order.
func (b *Board) NearestBlock(from Coord, colors []Color) (Coord, int, bool) {
	open := b.OpenBlocks()
	sort.SliceStable(open, func(i, j int) bool {
		return ManhattanDistance(from, open[i]) < ManhattanDistance(from, open[j])
	})

	for _, c := range open {
		for i, color := range colors {
			if b.blocks[c.Row][c.Col] == color {
				return c, i, true
			}
		}
	}
	return Coord{}, -1, false
}

var deliveryOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// DeliveryNode returns the free point around a block circle nearest to from
func (b *Board) DeliveryNode(from Coord, id CircleID) (Coord, error) {
	center, err := CircleCoord(id)
	if err != nil {
		return Coord{}, err
	}

	best := Coord{}
	bestDistance := -1
	for _, off := range deliveryOffsets {
		c := center.Add(off[0], off[1])
		if b.IsOpen(c) {
			continue
		}
		d := ManhattanDistance(from, c)
		if bestDistance == -1 || d < bestDistance {
			best, bestDistance = c, d
		}
	}
	if bestDistance == -1 {
		return Coord{}, fmt.Errorf("%w: every point around circle %d holds a block", ErrInvalidState, id)
	}
	return best, nil
}

// String renders the doubled board, one row per line. Blocks show as color
// letters, block circles as their id.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			coord := Coord{Row: r, Col: c}
			switch {
			case b.blocks[r][c] != None:
				sb.WriteString(b.blocks[r][c].Letter())
			case coord.IsCross():
				sb.WriteByte('+')
			case coord.IsMidpoint() && r%2 == 0:
				sb.WriteByte('-')
			case coord.IsMidpoint():
				sb.WriteByte('|')
			default:
				if id, ok := CircleAt(coord); ok {
					sb.WriteString(fmt.Sprint(int(id)))
				} else {
					sb.WriteByte(' ')
				}
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
