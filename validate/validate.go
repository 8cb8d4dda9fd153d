// Command validate checks the course files in the ../courses directory. It
// checks:
//   - Syntax of the YAML, JSON or notation document
//   - The course schema (circle ids, colors, block keys, tier)
//   - Board consistency: distinct bonus and black circles, blocks on cross
//     circles or midpoints, a bingo of the tier through the color circle
//   - Plannability: a trial plan reaches every block it needs
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

	"github.com/wricardo/blockbingo/game/config"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/rules"
	"github.com/wricardo/blockbingo/game/service"
)

// planTimeout bounds the trial plan of one course
const planTimeout = 10 * time.Second

// report is the outcome for one course file. Notes describe a valid course.
type report struct {
	File     string
	Problems []string
	Notes    []string
}

func (r *report) Valid() bool { return len(r.Problems) == 0 }

func (r *report) fail(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

func (r *report) note(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// checkCourse parses a course file and trial plans it
func checkCourse(path string) report {
	r := report{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		r.fail("Failed to read file: %v", err)
		return r
	}
	course, err := config.ParseCourse(data, filepath.Ext(path))
	if err != nil {
		r.fail("%v", err)
		return r
	}
	if course.Name == "" {
		course.Name = strings.TrimSuffix(r.File, filepath.Ext(r.File))
	}

	summary, err := trialPlan(course)
	if err != nil {
		r.fail("Trial plan failed: %v", err)
		return r
	}

	quota, _ := rules.SelectQuota(course.Tier, course.Color)
	r.note("Name: %s", course.Name)
	r.note("Course: %s", course.Course)
	r.note("Circles: bonus %d, black %d, color %d", course.Bonus, course.Black, course.Color)
	r.note("Tier: %s, quota %v", course.Tier, quota)
	r.note("Blocks: %d", len(course.Blocks))
	r.note("%s", summary)
	return r
}

// trialPlan plans the course once. Any planning error, such as a quota color
// with no block left on the field, makes the course invalid.
func trialPlan(course *service.Course) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
	defer cancel()

	plan, err := planner.New().Plan(ctx, course.Round)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Trial plan: %d legs, cost %d, %d opcodes", len(plan.Legs), plan.Cost, len(plan.Steps)), nil
}

// courseFiles lists the course files of dir in name order
func courseFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range config.Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// printReports writes one block per file and returns the invalid count
func printReports(w io.Writer, reports []report) int {
	invalid := 0
	for _, r := range reports {
		if r.Valid() {
			fmt.Fprintf(w, "✓ %s\n", r.File)
			for _, n := range r.Notes {
				fmt.Fprintf(w, "    %s\n", n)
			}
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", r.File)
		for _, p := range r.Problems {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}
	fmt.Fprintf(w, "\n%d of %d courses valid\n", len(reports)-invalid, len(reports))
	return invalid
}

// main validates every course file of ../courses, or of the directory given
// as the first argument, and exits non-zero if any is invalid
func main() {
	dir := "../courses"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := courseFiles(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(2)
	}

	reports := make([]report, 0, len(files))
	for _, f := range files {
		reports = append(reports, checkCourse(f))
	}
	if printReports(os.Stdout, reports) > 0 {
		os.Exit(1)
	}
}
