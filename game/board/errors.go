package board

import "errors"

// Planning errors shared by every component that works on a Board.
var (
	// ErrInvalidIdentifier reports a circle id, key or enum value out of range
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidGeometry reports a move that is not a unit step or a malformed route
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrSearchExhausted reports a goal that the path search could not reach
	ErrSearchExhausted = errors.New("search exhausted")
	// ErrSynthesis reports a heading change the command encoder cannot express
	ErrSynthesis = errors.New("synthesis error")
	// ErrInvalidState reports a board or rule book state that breaks the game rules
	ErrInvalidState = errors.New("invalid state")
)
