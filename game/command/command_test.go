package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/wricardo/blockbingo/game/board"
)

func createTestBoard(t *testing.T, blocks map[board.Coord]board.Color) *board.Board {
	t.Helper()
	b, err := board.New(board.Layout{
		Course: board.Left,
		Bonus:  6,
		Black:  3,
		Color:  5,
		Blocks: blocks,
	})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	return b
}

func route(coords ...[2]int) []board.Coord {
	out := make([]board.Coord, len(coords))
	for i, c := range coords {
		out[i] = board.Coord{Row: c[0], Col: c[1]}
	}
	return out
}

func half(op Opcode) Step { return Step{Op: op, Half: true} }
func full(op Opcode) Step { return Step{Op: op} }

func assertSteps(t *testing.T, got, want []Step) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Step %d: expected %+v, got %+v (all: %v)", i, want[i], got[i], got)
		}
	}
}

func TestBuilderMergesSpins(t *testing.T) {
	tests := []struct {
		name string
		push []Opcode
		want []Step
	}{
		{"single spin", []Opcode{SpinRight}, []Step{full(SpinRight)}},
		{"right then half turn", []Opcode{SpinRight, Spin180}, []Step{full(SpinLeft)}},
		{"spins cancel", []Opcode{SpinRight, SpinLeft}, []Step{}},
		{"two rights", []Opcode{SpinRight, SpinRight}, []Step{full(Spin180)}},
		{"move between spins", []Opcode{SpinRight, MoveNode, SpinLeft}, []Step{full(SpinRight), full(MoveNode), full(SpinLeft)}},
		{"45 degree spins", []Opcode{SpinRight45, SpinRight}, []Step{full(SpinRight135)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			for _, op := range tt.push {
				b.PushOp(op)
			}
			assertSteps(t, b.Steps(), tt.want)
		})
	}
}

func TestBuilderReplaceAndPop(t *testing.T) {
	b := NewBuilder()
	if err := b.ReplaceLast(full(TurnRight90)); !errors.Is(err, board.ErrSynthesis) {
		t.Errorf("Expected ErrSynthesis on empty builder, got %v", err)
	}
	if _, ok := b.Pop(); ok {
		t.Error("Expected Pop on empty builder to fail")
	}

	b.Push(half(MoveNode))
	if err := b.ReplaceLast(full(TurnLeft90)); err != nil {
		t.Fatalf("ReplaceLast failed: %v", err)
	}
	last, ok := b.Last()
	if !ok || last != full(TurnLeft90) {
		t.Errorf("Expected last step m, got %v", last)
	}
	if b.Len() != 1 {
		t.Errorf("Expected 1 step, got %d", b.Len())
	}
}

func TestCompact(t *testing.T) {
	steps := []Step{half(MoveNode), half(MoveNode), half(MoveNode), full(TurnRight90), half(MoveNode), half(StraightDetourRight), full(MoveNode), full(MoveNode)}
	want := []Step{full(MoveNode), half(MoveNode), full(TurnRight90), half(MoveNode), half(StraightDetourRight), full(MoveNode), full(MoveNode)}

	once := Compact(steps)
	assertSteps(t, once, want)
	assertSteps(t, Compact(once), once)
}

func TestParseAndFormat(t *testing.T) {
	steps, err := Parse("a e c\td cc")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := Format(steps); got != "a e c d c c" {
		t.Errorf("Expected %q, got %q", "a e c d c c", got)
	}
	if got := string(Bytes(steps, '\n')); got != "aecdcc\n" {
		t.Errorf("Expected %q, got %q", "aecdcc\n", got)
	}

	for _, bad := range []string{"a b 9", "A", "é"} {
		if _, err := Parse(bad); !errors.Is(err, board.ErrInvalidIdentifier) {
			t.Errorf("Parse(%q): expected ErrInvalidIdentifier, got %v", bad, err)
		}
	}
}

func TestTranslate(t *testing.T) {
	desc, err := Translate(Put)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if desc != "put the block from the midpoint of the line" {
		t.Errorf("Unexpected description %q", desc)
	}
	if _, err := Translate('Q'); !errors.Is(err, board.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}

	table := Table()
	if len(table) != len(descriptions) {
		t.Fatalf("Expected %d entries, got %d", len(descriptions), len(table))
	}
	if table[0].Opcode != "a" || table[len(table)-1].Opcode != "z" {
		t.Errorf("Expected table sorted a..z, got %s..%s", table[0].Opcode, table[len(table)-1].Opcode)
	}
}

func TestStepJSON(t *testing.T) {
	data, err := json.Marshal([]Step{half(MoveNode), full(Put)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `[{"op":"u","half":true},{"op":"g"}]` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	assertSteps(t, steps, []Step{half(MoveNode), full(Put)})
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name        string
		blocks      map[board.Coord]board.Color
		heading     board.Heading
		route       []board.Coord
		want        []Step
		wantHeading board.Heading
	}{
		{
			name:        "straight line",
			heading:     board.North,
			route:       route([2]int{6, 0}, [2]int{5, 0}, [2]int{4, 0}),
			want:        []Step{half(MoveNode), half(MoveNode)},
			wantHeading: board.North,
		},
		{
			name:        "spin right before the first move",
			heading:     board.West,
			route:       route([2]int{6, 0}, [2]int{5, 0}),
			want:        []Step{full(SpinRight), half(MoveNode)},
			wantHeading: board.North,
		},
		{
			name:        "right turn at a cross circle",
			heading:     board.North,
			route:       route([2]int{2, 0}, [2]int{1, 0}, [2]int{0, 0}, [2]int{0, 1}),
			want:        []Step{half(MoveNode), full(TurnRight90)},
			wantHeading: board.East,
		},
		{
			name:        "right turn with a block on the corner",
			blocks:      map[board.Coord]board.Color{{Row: 2, Col: 0}: board.Red},
			heading:     board.North,
			route:       route([2]int{4, 0}, [2]int{3, 0}, [2]int{2, 0}, [2]int{2, 1}),
			want:        []Step{half(MoveNode), full(TurnRight90Block)},
			wantHeading: board.East,
		},
		{
			name:        "detour from an interior node",
			blocks:      map[board.Coord]board.Color{{Row: 4, Col: 0}: board.Red},
			heading:     board.North,
			route:       route([2]int{4, 0}, [2]int{3, 0}),
			want:        []Step{half(StraightDetourRight)},
			wantHeading: board.North,
		},
		{
			name:        "detour from the bottom edge",
			blocks:      map[board.Coord]board.Color{{Row: 6, Col: 0}: board.Red},
			heading:     board.North,
			route:       route([2]int{6, 0}, [2]int{5, 0}),
			want:        []Step{half(StraightDetourLeft)},
			wantHeading: board.North,
		},
		{
			name:        "detour westward from an interior node",
			blocks:      map[board.Coord]board.Color{{Row: 2, Col: 2}: board.Red},
			heading:     board.West,
			route:       route([2]int{2, 2}, [2]int{2, 1}),
			want:        []Step{half(StraightDetourLeft)},
			wantHeading: board.West,
		},
		{
			name:        "turn around without a block",
			heading:     board.East,
			route:       route([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 0}),
			want:        []Step{half(MoveNode), full(Turn180)},
			wantHeading: board.West,
		},
		{
			name:        "turn around on a block",
			blocks:      map[board.Coord]board.Color{{Row: 0, Col: 1}: board.Red},
			heading:     board.East,
			route:       route([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 0}),
			want:        []Step{full(Spin180), half(MoveNode), half(StraightDetourLeft)},
			wantHeading: board.West,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(createTestBoard(t, tt.blocks))
			heading, err := s.Convert(tt.heading, tt.route)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if heading != tt.wantHeading {
				t.Errorf("Expected heading %s, got %s", tt.wantHeading, heading)
			}
			assertSteps(t, s.Steps(), tt.want)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	b := createTestBoard(t, nil)

	if _, err := NewSynthesizer(b).Convert(board.North, route([2]int{6, 0}, [2]int{4, 0})); !errors.Is(err, board.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry for a two-unit move, got %v", err)
	}
	if _, err := NewSynthesizer(b).Convert(board.North, route([2]int{0, 1}, [2]int{1, 2})); !errors.Is(err, board.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry for a diagonal move, got %v", err)
	}
	if _, err := NewSynthesizer(b).Convert(board.NorthEast, route([2]int{0, 0}, [2]int{0, 1})); !errors.Is(err, board.ErrSynthesis) {
		t.Errorf("Expected ErrSynthesis for a 45 degree spin, got %v", err)
	}
}

// Turn-and-advance opcodes (k, m, ...) may repeat on zig-zag routes; only
// in-place spins are merged.
func TestConvertNeverEmitsConsecutiveSpinsOnly(t *testing.T) {
	blocks := map[board.Coord]board.Color{
		{Row: 0, Col: 1}: board.Red,
		{Row: 2, Col: 2}: board.Blue,
		{Row: 4, Col: 4}: board.Green,
	}
	routes := [][]board.Coord{
		route([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{2, 1}, [2]int{2, 2}, [2]int{3, 2}),
		route([2]int{6, 6}, [2]int{5, 6}, [2]int{4, 6}, [2]int{4, 5}, [2]int{4, 4}, [2]int{4, 3}, [2]int{4, 4}, [2]int{3, 4}),
		route([2]int{2, 2}, [2]int{2, 3}, [2]int{2, 2}, [2]int{2, 1}, [2]int{2, 0}, [2]int{3, 0}, [2]int{4, 0}),
	}

	for _, heading := range []board.Heading{board.North, board.East, board.South, board.West} {
		for i, r := range routes {
			s := NewSynthesizer(createTestBoard(t, blocks))
			if _, err := s.Convert(heading, r); err != nil {
				t.Fatalf("route %d from %s: %v", i, heading, err)
			}
			steps := Compact(s.Steps())
			for j := 1; j < len(steps); j++ {
				if steps[j-1].Op.IsSpin() && steps[j].Op.IsSpin() {
					t.Errorf("route %d from %s: consecutive spins %s %s in %s", i, heading, steps[j-1], steps[j], Format(steps))
				}
			}
			if got := Compact(steps); Format(got) != Format(steps) {
				t.Errorf("route %d from %s: compaction not idempotent: %s vs %s", i, heading, Format(steps), Format(got))
			}
		}
	}
}

func TestPut(t *testing.T) {
	circle1 := board.Coord{Row: 1, Col: 1}

	tests := []struct {
		name        string
		src         board.Coord
		heading     board.Heading
		want        []Step
		wantHeading board.Heading
	}{
		{"top-left facing north", board.Coord{Row: 0, Col: 0}, board.North, []Step{full(SpinRight), full(QuickPutRight)}, board.East},
		{"top-left facing east", board.Coord{Row: 0, Col: 0}, board.East, []Step{full(QuickPutRight)}, board.East},
		{"top-left facing west", board.Coord{Row: 0, Col: 0}, board.West, []Step{full(SpinLeft), full(QuickPutLeft)}, board.South},
		{"top-right facing south", board.Coord{Row: 0, Col: 2}, board.South, []Step{full(QuickPutRight)}, board.South},
		{"top-right facing north", board.Coord{Row: 0, Col: 2}, board.North, []Step{full(SpinLeft), full(QuickPutLeft)}, board.West},
		{"bottom-left facing west", board.Coord{Row: 2, Col: 0}, board.West, []Step{full(SpinRight), full(QuickPutRight)}, board.North},
		{"bottom-left facing south", board.Coord{Row: 2, Col: 0}, board.South, []Step{full(SpinLeft), full(QuickPutLeft)}, board.East},
		{"bottom-right facing east", board.Coord{Row: 2, Col: 2}, board.East, []Step{full(SpinLeft), full(QuickPutLeft)}, board.North},
		{"bottom-right facing south", board.Coord{Row: 2, Col: 2}, board.South, []Step{full(SpinRight), full(QuickPutRight)}, board.West},
		{"top midpoint", board.Coord{Row: 0, Col: 1}, board.South, []Step{full(Put)}, board.South},
		{"bottom midpoint", board.Coord{Row: 2, Col: 1}, board.South, []Step{full(Spin180), full(Put)}, board.North},
		{"left midpoint", board.Coord{Row: 1, Col: 0}, board.North, []Step{full(SpinRight), full(Put)}, board.East},
		{"right midpoint", board.Coord{Row: 1, Col: 2}, board.North, []Step{full(SpinLeft), full(Put)}, board.West},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(createTestBoard(t, nil))
			heading, err := s.Put(tt.src, circle1, tt.heading)
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if heading != tt.wantHeading {
				t.Errorf("Expected heading %s, got %s", tt.wantHeading, heading)
			}
			assertSteps(t, s.Steps(), tt.want)
		})
	}
}

func TestPutErrors(t *testing.T) {
	s := NewSynthesizer(createTestBoard(t, nil))

	if _, err := s.Put(board.Coord{Row: 0, Col: 0}, board.Coord{Row: 0, Col: 2}, board.North); !errors.Is(err, board.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry for a cross circle target, got %v", err)
	}
	if _, err := s.Put(board.Coord{Row: 4, Col: 0}, board.Coord{Row: 1, Col: 1}, board.North); !errors.Is(err, board.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry for a distant source, got %v", err)
	}
	if _, err := s.Put(board.Coord{Row: 0, Col: 0}, board.Coord{Row: 1, Col: 1}, board.NorthEast); !errors.Is(err, board.ErrSynthesis) {
		t.Errorf("Expected ErrSynthesis for a diagonal heading, got %v", err)
	}
	if s.Builder().Len() != 0 {
		t.Errorf("Expected no emitted steps, got %v", s.Steps())
	}
}
