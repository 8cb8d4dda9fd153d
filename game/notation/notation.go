// Package notation reads rounds written as short statements, one per
// recognized fact:
//
//	course left; bonus 6; black 3; color 5; tier single;
//	start 6 1 south;
//	block c00 red; block c30 yellow; block m14 blue;
//
// Block keys are cross circles (c00..c33) or midpoints in doubled coordinates
// (m01..m65). Go style comments are skipped.
package notation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/rules"
)

// Notation errors
var (
	ErrSyntax    = errors.New("notation syntax error")
	ErrDuplicate = errors.New("duplicate statement")
	ErrMissing   = errors.New("missing statement")
)

// Document is a parsed notation text
type Document struct {
	Statements []*Statement `parser:"@@*"`
}

// Statement is one fact about the round
type Statement struct {
	Pos lexer.Position

	Course     *string `parser:"  'course' @Ident ';'"`
	Bonus      *int    `parser:"| 'bonus' @Int ';'"`
	Black      *int    `parser:"| 'black' @Int ';'"`
	ColorBlock *string `parser:"| 'color_block' @Ident ';'"`
	Color      *int    `parser:"| 'color' @Int ';'"`
	Tier       *string `parser:"| 'tier' @Ident ';'"`
	Start      *Start  `parser:"| 'start' @@ ';'"`
	Block      *Block  `parser:"| 'block' @@ ';'"`
}

// Start is the robot pose in doubled coordinates
type Start struct {
	Row     int    `parser:"@Int"`
	Col     int    `parser:"@Int"`
	Heading string `parser:"@Ident"`
}

// Block is a color block on a cross circle or midpoint
type Block struct {
	Key   string `parser:"@Ident"`
	Color string `parser:"@Ident"`
}

var parser = participle.MustBuild[Document]()

// ParseDocument parses notation text without interpreting it
func ParseDocument(name, data string) (*Document, error) {
	doc, err := parser.ParseString(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return doc, nil
}

// Parse reads a round from notation text
func Parse(data string) (*planner.Round, error) {
	doc, err := ParseDocument("round", data)
	if err != nil {
		return nil, err
	}
	return doc.Round()
}

// Round interprets the statements. Course and tier default to left and
// single; bonus, black and color are required. Each statement kind and each
// block key may appear once.
func (d *Document) Round() (*planner.Round, error) {
	round := &planner.Round{Blocks: make(map[string]board.Color)}
	seen := map[string]bool{}

	once := func(s *Statement, kind string) error {
		if seen[kind] {
			return fmt.Errorf("%w: %s at %s", ErrDuplicate, kind, s.Pos)
		}
		seen[kind] = true
		return nil
	}

	for _, s := range d.Statements {
		var err error
		switch {
		case s.Course != nil:
			if err = once(s, "course"); err == nil {
				round.Course, err = board.ParseCourse(*s.Course)
			}
		case s.Bonus != nil:
			if err = once(s, "bonus"); err == nil {
				round.Bonus = board.CircleID(*s.Bonus)
			}
		case s.Black != nil:
			if err = once(s, "black"); err == nil {
				round.Black = board.CircleID(*s.Black)
			}
		case s.Color != nil:
			if err = once(s, "color"); err == nil {
				round.Color = board.CircleID(*s.Color)
			}
		case s.ColorBlock != nil:
			if err = once(s, "color_block"); err == nil {
				round.ColorBlock, err = board.ParseColor(*s.ColorBlock)
			}
		case s.Tier != nil:
			if err = once(s, "tier"); err == nil {
				round.Tier, err = rules.ParseTier(*s.Tier)
			}
		case s.Start != nil:
			if err = once(s, "start"); err == nil {
				var h board.Heading
				if h, err = board.ParseHeading(s.Start.Heading); err == nil {
					round.Start = &board.Pose{Coord: board.Coord{Row: s.Start.Row, Col: s.Start.Col}, Heading: h}
				}
			}
		case s.Block != nil:
			key := strings.ToLower(s.Block.Key)
			if err = once(s, "block "+key); err == nil {
				round.Blocks[key], err = board.ParseColor(s.Block.Color)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.Pos.Line, err)
		}
	}

	for _, kind := range []string{"bonus", "black", "color"} {
		if !seen[kind] {
			return nil, fmt.Errorf("%w: %s", ErrMissing, kind)
		}
	}
	return round, nil
}

// Format writes a round in notation, blocks sorted by key
func Format(r planner.Round) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "course %s;\nbonus %d;\nblack %d;\ncolor %d;\n", r.Course, r.Bonus, r.Black, r.Color)
	if r.ColorBlock != board.None {
		fmt.Fprintf(&sb, "color_block %s;\n", r.ColorBlock)
	}
	fmt.Fprintf(&sb, "tier %s;\n", r.Tier)
	if r.Start != nil {
		fmt.Fprintf(&sb, "start %d %d %s;\n", r.Start.Coord.Row, r.Start.Coord.Col, r.Start.Heading)
	}

	for _, k := range r.BlockKeys() {
		fmt.Fprintf(&sb, "block %s %s;\n", k, r.Blocks[k])
	}
	return sb.String()
}
