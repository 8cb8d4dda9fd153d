package command

import (
	"fmt"
	"strings"

	"github.com/wricardo/blockbingo/game/board"
)

// Step is one emitted instruction. Half marks a move that covers only half of
// a line, from a cross circle to a midpoint or back.
type Step struct {
	Op   Opcode `json:"op"`
	Half bool   `json:"half,omitempty"`
}

// String returns the opcode symbol of the step
func (s Step) String() string {
	return s.Op.String()
}

// Builder accumulates instructions. Transitions that rewrite earlier output go
// through ReplaceLast and Pop so every rewrite is explicit.
type Builder struct {
	steps []Step
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Push appends a step. A spin pushed right after another spin is folded into
// one spin with the net rotation, so two spins never follow each other.
func (b *Builder) Push(s Step) {
	rot, isSpin := SpinRotation(s.Op)
	if isSpin && len(b.steps) > 0 {
		prev, prevSpin := SpinRotation(b.steps[len(b.steps)-1].Op)
		if prevSpin {
			b.steps = b.steps[:len(b.steps)-1]
			if op, ok := SpinFor(prev + rot); ok {
				b.steps = append(b.steps, Step{Op: op})
			}
			return
		}
	}
	b.steps = append(b.steps, s)
}

// PushOp appends a full step with the given opcode
func (b *Builder) PushOp(op Opcode) {
	b.Push(Step{Op: op})
}

// ReplaceLast overwrites the most recent step
func (b *Builder) ReplaceLast(s Step) error {
	if len(b.steps) == 0 {
		return fmt.Errorf("%w: no instruction to rewrite with %q", board.ErrSynthesis, s.Op)
	}
	b.steps[len(b.steps)-1] = s
	return nil
}

// Pop removes and returns the most recent step
func (b *Builder) Pop() (Step, bool) {
	if len(b.steps) == 0 {
		return Step{}, false
	}
	s := b.steps[len(b.steps)-1]
	b.steps = b.steps[:len(b.steps)-1]
	return s, true
}

// Last returns the most recent step
func (b *Builder) Last() (Step, bool) {
	if len(b.steps) == 0 {
		return Step{}, false
	}
	return b.steps[len(b.steps)-1], true
}

// Len returns the number of steps
func (b *Builder) Len() int {
	return len(b.steps)
}

// Steps returns a copy of the accumulated steps
func (b *Builder) Steps() []Step {
	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	return out
}

// Compact merges each pair of adjacent half-line moves into one full move.
// Full moves are never merged, so compacting twice changes nothing.
func Compact(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for i := 0; i < len(steps); i++ {
		s := steps[i]
		if s.Op == MoveNode && s.Half && i+1 < len(steps) && steps[i+1].Op == MoveNode && steps[i+1].Half {
			out = append(out, Step{Op: MoveNode})
			i++
			continue
		}
		out = append(out, s)
	}
	return out
}

// Format renders steps as space separated opcodes
func Format(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.Op.String()
	}
	return strings.Join(parts, " ")
}

// Bytes encodes steps one byte per opcode, followed by the optional terminator
func Bytes(steps []Step, terminator ...byte) []byte {
	out := make([]byte, 0, len(steps)+len(terminator))
	for _, s := range steps {
		out = append(out, byte(s.Op))
	}
	return append(out, terminator...)
}

// Translation is one opcode with its description, for operator logs.
type Translation struct {
	Opcode      string `json:"opcode"`
	Description string `json:"description"`
}

// TranslateAll describes every step in order
func TranslateAll(steps []Step) ([]Translation, error) {
	out := make([]Translation, 0, len(steps))
	for _, s := range steps {
		desc, err := Translate(s.Op)
		if err != nil {
			return nil, err
		}
		out = append(out, Translation{Opcode: s.Op.String(), Description: desc})
	}
	return out, nil
}
