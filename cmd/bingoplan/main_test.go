package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/game/session"
)

const goldenCourse = `name: golden
course: left
bonus: 6
black: 3
color: 5
tier: single
blocks:
  c30: red
  c33: blue
`

const goldenCommands = "a e c d c c f c c e c c g d u d i u k u u z u k u u f i e g"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// run executes the CLI with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(context.Background(), append([]string{"bingoplan"}, args...))
	return buf.String(), err
}

func TestPlanCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "golden.yaml", goldenCourse)

	t.Run("text", func(t *testing.T) {
		out, err := run(t, "plan", path)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		for _, want := range []string{"Course:   golden (left)", "Kind:     plan", "Legs:     4", "Cost:     24", "Opcodes:  30", "Commands: " + goldenCommands} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "plan", "--format", "json", path)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		var plan struct {
			Commands string `json:"commands"`
			Cost     int    `json:"cost"`
		}
		if err := json.Unmarshal([]byte(out), &plan); err != nil {
			t.Fatalf("Expected JSON output: %v\n%s", err, out)
		}
		if plan.Commands != goldenCommands || plan.Cost != 24 {
			t.Errorf("Unexpected plan %+v", plan)
		}
	})

	t.Run("wire", func(t *testing.T) {
		out, err := run(t, "plan", "-f", "wire", path)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		lines := strings.Fields(out)
		if len(lines) != 1 {
			t.Fatalf("Expected one frame, got %v", lines)
		}
		if !strings.HasPrefix(lines[0], "011e61") {
			t.Errorf("Expected a 30 byte commands frame, got %s", lines[0])
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := run(t, "plan", "--format", "xml", path); err == nil {
			t.Error("Expected an error for an unknown format")
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		if _, err := run(t, "plan"); err == nil {
			t.Error("Expected an error without a course file")
		}
	})
}

func TestPlanCommandBingo(t *testing.T) {
	content := goldenCourse + "  c00: yellow\n  c03: green\n"
	path := writeFile(t, t.TempDir(), "bingo.yaml", content)

	out, err := run(t, "plan", "--bingo", path)
	if err != nil {
		t.Fatalf("plan --bingo failed: %v", err)
	}
	if !strings.Contains(out, "Kind:     bingo") || !strings.Contains(out, "Legs:     8") {
		t.Errorf("Expected an 8 leg bingo plan, got:\n%s", out)
	}
	if !strings.Contains(out, "Commands: a e c d c c f c c e c c g ") {
		t.Errorf("Expected the ring commands first, got:\n%s", out)
	}
}

func TestPlanAndHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "golden.yaml", goldenCourse)
	db := filepath.Join(dir, "history.db")

	if _, err := run(t, "plan", "--record", db, path); err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	out, err := run(t, "history", "--db", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "Plans: 1 (achieved 1) across 0 sessions, average cost 24.0") {
		t.Errorf("Unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, goldenCommands) {
		t.Errorf("Expected the recorded commands, got:\n%s", out)
	}

	if _, err := run(t, "history", "--db", filepath.Join(dir, "missing.db")); err == nil {
		t.Error("Expected an error for a missing database")
	}
}

func TestTranslateCommand(t *testing.T) {
	out, err := run(t, "translate", "a e", "c")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 translations, got:\n%s", out)
	}
	for i, op := range []string{"a", "e", "c"} {
		fields := strings.Fields(lines[i])
		if len(fields) < 3 || fields[1] != op {
			t.Errorf("Line %d: expected opcode %s, got %q", i, op, lines[i])
		}
	}

	table, err := run(t, "translate")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(table), "\n")); n <= 3 {
		t.Errorf("Expected the full table, got %d lines", n)
	}

	if _, err := run(t, "translate", "a!"); err == nil {
		t.Error("Expected an error for an unknown opcode")
	}
}

func TestCoursesCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "golden.yaml", goldenCourse)
	writeFile(t, dir, "broken.yaml", "course: sideways\n")

	out, err := run(t, "courses", "--dir", dir)
	if err != nil {
		t.Fatalf("courses failed: %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("Expected a header line, got:\n%s", out)
	}
	if !strings.Contains(out, "golden") || strings.Contains(out, "broken") {
		t.Errorf("Expected only the valid course, got:\n%s", out)
	}

	if _, err := run(t, "courses", "--dir", filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "golden.yaml", goldenCourse)
	unplannable := writeFile(t, dir, "short.yaml", strings.Replace(goldenCourse, "  c33: blue\n", "", 1))

	out, err := run(t, "validate", good)
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ "+good) {
		t.Errorf("Expected %s to pass, got:\n%s", good, out)
	}

	out, err = run(t, "validate", good, unplannable)
	if !errors.Is(err, errInvalidCourses) {
		t.Errorf("Expected errInvalidCourses, got %v", err)
	}
	if !strings.Contains(out, "✗ "+unplannable) {
		t.Errorf("Expected %s to fail, got:\n%s", unplannable, out)
	}

	if _, err := run(t, "validate"); err == nil {
		t.Error("Expected an error without files")
	}
}

func TestNotationCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "golden.yaml", goldenCourse)

	out, err := run(t, "notation", path)
	if err != nil {
		t.Fatalf("notation failed: %v", err)
	}

	again := writeFile(t, t.TempDir(), "golden.round", out)
	replanned, err := run(t, "plan", again)
	if err != nil {
		t.Fatalf("Expected the notation to plan: %v\n%s", err, out)
	}
	if !strings.Contains(replanned, "Cost:     24") {
		t.Errorf("Expected the same plan from notation, got:\n%s", replanned)
	}
}

func TestJournalCommand(t *testing.T) {
	dir := t.TempDir()
	j := session.NewJournal(dir, "plans")
	for i, id := range []string{"p1", "p2"} {
		entry := struct {
			Record *service.PlanRecord `json:"record"`
		}{&service.PlanRecord{ID: id, Kind: "plan", Cost: 20 + i, Commands: "a e", CreatedAt: time.Now()}}
		if err := j.Write(entry); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	files, err := j.Files()
	if err != nil || len(files) == 0 {
		t.Fatalf("Expected a journal file, got %v (%v)", files, err)
	}

	out, err := run(t, "journal", files[0])
	if err != nil {
		t.Fatalf("journal failed: %v", err)
	}
	for _, want := range []string{"p1 plan cost 20: a e", "p2 plan cost 21: a e", "2 records"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}
