// Command analyze prints quick, human-readable heuristics about the course
// files in the project's courses directory. It shows the board, the quota
// circles with the nearest block of their color, and the ring route and
// opcode statistics of a trial plan.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/config"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/rules"
)

// opcodeCount is the number of times an opcode appears in a plan
type opcodeCount struct {
	Op    command.Opcode
	Count int
}

// quotaReach is the nearest block of a quota circle's color
type quotaReach struct {
	Circle   board.CircleID
	Color    board.Color
	Block    string
	Distance int
}

func main() {
	dir := "courses"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := courseFiles(dir)
	if err != nil {
		fmt.Printf("Error reading courses: %v\n", err)
		os.Exit(1)
	}

	for _, path := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(path))
		if err := analyzeCourse(os.Stdout, path); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func courseFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, e := range config.Extensions {
			if ext == e {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeCourse(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	course, err := config.ParseCourse(data, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("parsing course: %w", err)
	}
	round := course.Round

	name := course.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	fmt.Fprintf(w, "Name: %s\n", name)
	fmt.Fprintf(w, "Course: %s, tier %s\n", round.Course, round.Tier)
	fmt.Fprintf(w, "Circles: bonus %d, black %d, color %d\n", round.Bonus, round.Black, round.Color)

	b, err := round.Board()
	if err != nil {
		return fmt.Errorf("building board: %w", err)
	}
	fmt.Fprintf(w, "\n%s\n", b.String())

	quota, err := rules.SelectQuota(round.Tier, round.Color)
	if err != nil {
		return fmt.Errorf("selecting quota: %w", err)
	}
	fmt.Fprintf(w, "Quota: %v\n", quota)
	for _, r := range reachQuota(round, quota) {
		if r.Block == "" {
			fmt.Fprintf(w, "  circle %d (%s): NO %s BLOCK\n", r.Circle, r.Color, strings.ToUpper(r.Color.String()))
			continue
		}
		fmt.Fprintf(w, "  circle %d (%s): nearest block %s, distance %d\n", r.Circle, r.Color, r.Block, r.Distance)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	plan, err := planner.New().Plan(ctx, round)
	if err != nil {
		fmt.Fprintf(w, "\nTrial plan: FAILED (%v)\n", err)
		return nil
	}

	fmt.Fprintf(w, "\nRing route: %v\n", plan.Ring)
	fmt.Fprintf(w, "Legs: %d, cost %d\n", len(plan.Legs), plan.Cost)
	for _, leg := range plan.Legs {
		fmt.Fprintf(w, "  %-8s circle %d (%s): cost %d\n", leg.Kind, leg.Circle, leg.Color, leg.Route.Cost)
	}
	fmt.Fprintf(w, "Opcodes: %d\n", len(plan.Steps))
	for _, c := range opcodeCounts(plan.Steps) {
		desc, _ := command.Translate(c.Op)
		fmt.Fprintf(w, "  %s x%-3d %s\n", c.Op, c.Count, desc)
	}
	return nil
}

// reachQuota finds, for each quota circle, the closest block of the circle's
// color by Manhattan distance on the doubled grid
func reachQuota(round planner.Round, quota []board.CircleID) []quotaReach {
	colors := board.CircleColors(round.Course)

	keys := make([]string, 0, len(round.Blocks))
	for k := range round.Blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]quotaReach, 0, len(quota))
	for _, id := range quota {
		r := quotaReach{Circle: id, Color: colors[id-1], Distance: -1}
		target, err := board.CircleCoord(id)
		if err != nil {
			out = append(out, r)
			continue
		}
		for _, k := range keys {
			if round.Blocks[k] != r.Color {
				continue
			}
			c, err := board.ParseKey(k)
			if err != nil {
				continue
			}
			if d := board.ManhattanDistance(c, target); r.Block == "" || d < r.Distance {
				r.Block, r.Distance = k, d
			}
		}
		out = append(out, r)
	}
	return out
}

// opcodeCounts tallies the opcodes of a plan, most frequent first
func opcodeCounts(steps []command.Step) []opcodeCount {
	counts := make(map[command.Opcode]int)
	for _, s := range steps {
		counts[s.Op]++
	}
	out := make([]opcodeCount, 0, len(counts))
	for op, n := range counts {
		out = append(out, opcodeCount{Op: op, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Op < out[j].Op
	})
	return out
}
