package planner

import (
	"fmt"
	"sort"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/rules"
)

// Round is the recognized field at the start of a round plus the bingo tier
// to aim for. Blocks are keyed by cross circle (c00..c33) or midpoint (mRC).
type Round struct {
	Course     board.Course           `json:"course" yaml:"course"`
	Bonus      board.CircleID         `json:"bonus" yaml:"bonus"`
	Black      board.CircleID         `json:"black" yaml:"black"`
	Color      board.CircleID         `json:"color" yaml:"color"`
	ColorBlock board.Color            `json:"color_block,omitempty" yaml:"color_block,omitempty"`
	Tier       rules.Tier             `json:"tier" yaml:"tier"`
	Blocks     map[string]board.Color `json:"blocks" yaml:"blocks"`
	Start      *board.Pose            `json:"start,omitempty" yaml:"start,omitempty"`
}

// Layout resolves the block keys into a board layout
func (r Round) Layout() (board.Layout, error) {
	layout := board.Layout{
		Course:     r.Course,
		Bonus:      r.Bonus,
		Black:      r.Black,
		Color:      r.Color,
		ColorBlock: r.ColorBlock,
		Blocks:     make(map[board.Coord]board.Color, len(r.Blocks)),
	}
	for key, color := range r.Blocks {
		c, err := board.ParseKey(key)
		if err != nil {
			return board.Layout{}, err
		}
		if !c.Traversable() {
			return board.Layout{}, fmt.Errorf("%w: block %q is not on a cross circle or midpoint", board.ErrInvalidIdentifier, key)
		}
		if color == board.Black {
			return board.Layout{}, fmt.Errorf("%w: black block on %q, the black block starts in the ring", board.ErrInvalidState, key)
		}
		layout.Blocks[c] = color
	}
	return layout, nil
}

// Board builds the coordinate model of the round
func (r Round) Board() (*board.Board, error) {
	layout, err := r.Layout()
	if err != nil {
		return nil, err
	}
	return board.New(layout)
}

// BlockKeys returns the block keys in sorted order
func (r Round) BlockKeys() []string {
	keys := make([]string, 0, len(r.Blocks))
	for k := range r.Blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
