// Command bingoplan plans Block Bingo rounds from the command line. It reads
// course files (YAML, JSON or round notation), prints plans and opcode
// translations, and inspects the plan history database and journal.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/config"
	"github.com/wricardo/blockbingo/game/notation"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/game/session"
	"github.com/wricardo/blockbingo/logging"
	"github.com/wricardo/blockbingo/transport/wire"
)

var errInvalidCourses = errors.New("invalid courses")

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bingoplan",
		Usage: "plan Block Bingo rounds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warning",
				Usage: "log level (debug, info, warning, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.Setup(cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			planCommand(),
			translateCommand(),
			coursesCommand(),
			validateCommand(),
			notationCommand(),
			historyCommand(),
			journalCommand(),
		},
	}
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// loadCourse reads a course file, naming it after the file when unnamed
func loadCourse(path string) (*service.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	course, err := config.ParseCourse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if course.Name == "" {
		course.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return course, nil
}

func courseArg(cmd *cli.Command) (*service.Course, error) {
	if cmd.NArg() != 1 {
		return nil, fmt.Errorf("expected one course file")
	}
	return loadCourse(cmd.Args().First())
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "plan the round of a course file",
		ArgsUsage: "<course-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "output format: text, json, wire"},
			&cli.BoolFlag{Name: "bingo", Usage: "run the cross circle solver instead of the quota planner"},
			&cli.IntFlag{Name: "first", Usage: "block circle the bingo goes through (0 uses the color circle)"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "planning time limit"},
			&cli.StringFlag{Name: "record", Usage: "history database to record the plan in", Sources: cli.EnvVars("HISTORY_DB")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			course, err := courseArg(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			rec := &service.PlanRecord{ID: uuid.NewString(), Kind: "plan", CreatedAt: time.Now()}
			var steps []command.Step
			var result any

			if cmd.Bool("bingo") {
				plan, err := planner.New().PlanBingo(ctx, course.Round, board.CircleID(int(cmd.Int("first"))))
				if err != nil {
					return err
				}
				rec.Kind, rec.Commands, rec.Cost, rec.Legs, rec.Achieved = "bingo", plan.Commands, plan.Bingo.Cost, len(plan.Bingo.Legs), true
				steps, result = plan.Steps, plan
			} else {
				plan, err := planner.New().Plan(ctx, course.Round)
				if err != nil {
					return err
				}
				rec.Commands, rec.Cost, rec.Legs, rec.Achieved = plan.Commands, plan.Cost, len(plan.Legs), plan.Achieved
				steps, result = plan.Steps, plan
			}

			if path := cmd.String("record"); path != "" {
				store, err := session.OpenHistoryStore(path)
				if err != nil {
					return fmt.Errorf("failed to open history store: %w", err)
				}
				defer store.Close()
				if err := store.Record(ctx, rec); err != nil {
					return fmt.Errorf("failed to record plan: %w", err)
				}
			}

			w := out(cmd)
			switch cmd.String("format") {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case "wire":
				for _, f := range wire.Split(steps) {
					b, err := f.MarshalBinary()
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\n", hex.EncodeToString(b))
				}
				return nil
			case "text":
				fmt.Fprintf(w, "Course:   %s (%s)\n", course.Name, course.Round.Course)
				fmt.Fprintf(w, "Kind:     %s\n", rec.Kind)
				fmt.Fprintf(w, "Legs:     %d\n", rec.Legs)
				fmt.Fprintf(w, "Cost:     %d\n", rec.Cost)
				fmt.Fprintf(w, "Opcodes:  %d\n", len(steps))
				fmt.Fprintf(w, "Commands: %s\n", rec.Commands)
				return nil
			default:
				return fmt.Errorf("unknown format %q", cmd.String("format"))
			}
		},
	}
}

func translateCommand() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "describe each opcode of an instruction string, or the whole table",
		ArgsUsage: "[commands]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var translations []command.Translation
			if cmd.NArg() == 0 {
				translations = command.Table()
			} else {
				steps, err := command.Parse(strings.Join(cmd.Args().Slice(), " "))
				if err != nil {
					return err
				}
				if translations, err = command.TranslateAll(steps); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			for i, t := range translations {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, t.Opcode, t.Description)
			}
			return tw.Flush()
		},
	}
}

func coursesCommand() *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "list the course files of a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "courses", Usage: "course directory", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}
			infos, err := manager.ListCourses()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOURSE\tTIER\tBLOCKS\tDESCRIPTION")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", info.CourseID, info.Course, info.Tier, info.Blocks, info.Description)
			}
			return tw.Flush()
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check that course files parse and plan",
		ArgsUsage: "<course-file>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("expected at least one course file")
			}
			w := out(cmd)
			invalid := 0
			for _, path := range cmd.Args().Slice() {
				if err := validateFile(ctx, path); err != nil {
					invalid++
					fmt.Fprintf(w, "✗ %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(w, "✓ %s\n", path)
			}
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidCourses, invalid, cmd.NArg())
			}
			return nil
		},
	}
}

func validateFile(ctx context.Context, path string) error {
	course, err := loadCourse(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = planner.New().Plan(ctx, course.Round)
	return err
}

func notationCommand() *cli.Command {
	return &cli.Command{
		Name:      "notation",
		Usage:     "print a course file in round notation",
		ArgsUsage: "<course-file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			course, err := courseArg(cmd)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out(cmd), notation.Format(course.Round))
			return err
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "summarize the plan history database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "data/history.db", Usage: "history database", Sources: cli.EnvVars("HISTORY_DB")},
			&cli.StringFlag{Name: "session", Usage: "only list plans of this session"},
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "number of recent plans to list"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("db")
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("history database: %w", err)
			}
			store, err := session.OpenHistoryStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Summarize(ctx)
			if err != nil {
				return err
			}
			var plans []*service.PlanRecord
			if id := cmd.String("session"); id != "" {
				plans, err = store.BySession(ctx, id)
			} else {
				plans, err = store.Recent(ctx, int(cmd.Int("limit")))
			}
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "Plans: %d (achieved %d) across %d sessions, average cost %.1f\n",
				summary.Plans, summary.Achieved, summary.Sessions, summary.AvgCost)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, p := range plans {
				fmt.Fprintf(tw, "%s\t%s\t%s\tcost %d\t%d legs\t%s\n",
					p.CreatedAt.Format(time.RFC3339), p.Kind, p.SessionID, p.Cost, p.Legs, p.Commands)
			}
			return tw.Flush()
		},
	}
}

func journalCommand() *cli.Command {
	return &cli.Command{
		Name:      "journal",
		Usage:     "print the plan records of a journal file",
		ArgsUsage: "<file.jsonl.zst>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected one journal file")
			}
			lines, err := session.ReadJournal(cmd.Args().First())
			if err != nil {
				return err
			}

			w := out(cmd)
			for _, line := range lines {
				var entry struct {
					Record service.PlanRecord `json:"record"`
				}
				if err := json.Unmarshal(line, &entry); err != nil {
					return err
				}
				rec := entry.Record
				fmt.Fprintf(w, "%s %s cost %d: %s\n", rec.ID, rec.Kind, rec.Cost, rec.Commands)
			}
			fmt.Fprintf(w, "%d records\n", len(lines))
			return nil
		},
	}
}
