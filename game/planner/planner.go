// Package planner runs a whole round: the ring route for the black block, then
// pickup and delivery legs over the cross circles until the quota is met.
package planner

import (
	"context"
	"fmt"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/grid"
	"github.com/wricardo/blockbingo/game/ring"
	"github.com/wricardo/blockbingo/game/rules"
	"github.com/wricardo/blockbingo/logging"
)

var log = logging.MustGetLogger("planner")

// Leg is one planned route over the cross circles
type Leg struct {
	Kind   string         `json:"kind"`
	Circle board.CircleID `json:"circle"`
	Color  board.Color    `json:"color"`
	Route  *grid.Route    `json:"route"`
}

// Plan is the result of planning a round
type Plan struct {
	Round        Round                 `json:"round"`
	Ring         ring.Route            `json:"ring"`
	RingSteps    []command.Step        `json:"ring_steps"`
	Legs         []Leg                 `json:"legs"`
	Steps        []command.Step        `json:"steps"`
	Commands     string                `json:"commands"`
	Translations []command.Translation `json:"translations"`
	Achieved     bool                  `json:"achieved"`
	Cost         int                   `json:"cost"`
	Final        board.Pose            `json:"final"`
	Board        *board.Snapshot       `json:"board"`
}

// Bytes returns the opcodes one byte each, followed by the optional terminator
func (p *Plan) Bytes(terminator ...byte) []byte {
	return command.Bytes(p.Steps, terminator...)
}

// BingoPlan is the result of planning a round with the cross circle solver
type BingoPlan struct {
	Round     Round               `json:"round"`
	Ring      ring.Route          `json:"ring"`
	RingSteps []command.Step      `json:"ring_steps"`
	Bingo     *grid.BingoSolution `json:"bingo"`
	Steps     []command.Step      `json:"steps"`
	Commands  string              `json:"commands"`
	Board     *board.Snapshot     `json:"board"`
}

// Planner plans rounds. It holds no state between rounds.
type Planner struct{}

// New creates a planner
func New() *Planner {
	return &Planner{}
}

// ringPhase solves and encodes the black block transport and records it on
// the board. It returns the pose the grid phase starts from.
func (p *Planner) ringPhase(round Round, b *board.Board) (ring.Route, []command.Step, board.Pose, error) {
	solver, err := ring.FromBoard(b)
	if err != nil {
		return nil, nil, board.Pose{}, err
	}
	route := solver.Solve()
	steps, heading, err := ring.Encode(b.Course(), route)
	if err != nil {
		return nil, nil, board.Pose{}, err
	}
	log.Debugf("ring route %v: %s", route, command.Format(steps))

	if err := b.Fill(b.Bonus(), board.Black); err != nil {
		return nil, nil, board.Pose{}, err
	}
	if err := b.Vacate(b.BlackCircle()); err != nil {
		return nil, nil, board.Pose{}, err
	}

	if round.Start != nil {
		return route, steps, *round.Start, nil
	}
	start, err := StartPose(b.Bonus(), heading)
	if err != nil {
		return nil, nil, board.Pose{}, err
	}
	return route, steps, start, nil
}

// StartPose is the pose after leaving the bonus circle: the midpoint ahead of
// it, keeping the last ring heading.
func StartPose(bonus board.CircleID, heading board.Heading) (board.Pose, error) {
	c, err := board.CircleCoord(bonus)
	if err != nil {
		return board.Pose{}, err
	}
	if !heading.Cardinal() {
		return board.Pose{}, fmt.Errorf("%w: ring ended facing %s", board.ErrInvalidGeometry, heading)
	}
	dr, dc := heading.Delta()
	return board.Pose{Coord: c.Add(dr, dc), Heading: heading}, nil
}

// Plan runs the ring phase and then delivers a color block to every circle of
// the quota, nearest block first.
func (p *Planner) Plan(ctx context.Context, round Round) (*Plan, error) {
	b, err := round.Board()
	if err != nil {
		return nil, err
	}
	rb, err := rules.New(round.Tier, round.Color)
	if err != nil {
		return nil, err
	}

	ringRoute, ringSteps, pose, err := p.ringPhase(round, b)
	if err != nil {
		return nil, err
	}
	rb.PutBlackBlock()

	plan := &Plan{Round: round, Ring: ringRoute, RingSteps: ringSteps}
	syn := command.NewSynthesizer(b)

	for len(rb.Quota()) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quota := rb.Quota()
		colors := make([]board.Color, len(quota))
		for i, id := range quota {
			if colors[i], err = b.ColorOf(id); err != nil {
				return nil, err
			}
		}

		pickup, idx, ok := b.NearestBlock(pose.Coord, colors)
		if !ok {
			return nil, fmt.Errorf("%w: no block left for circles %v", board.ErrInvalidState, quota)
		}
		circle, color := quota[idx], colors[idx]
		delivery, err := b.DeliveryNode(pickup, circle)
		if err != nil {
			return nil, err
		}
		circleCoord, err := board.CircleCoord(circle)
		if err != nil {
			return nil, err
		}
		log.Debugf("circle %d (%s): pickup %s, delivery %s", circle, color, pickup, delivery)

		heading := pose.Heading
		for _, leg := range []struct {
			kind string
			goal board.Coord
		}{{"pickup", pickup}, {"delivery", delivery}} {
			route, err := grid.Plan(b, board.Pose{Coord: pose.Coord, Heading: heading}, leg.goal)
			if err != nil {
				return nil, fmt.Errorf("%s leg for circle %d: %w", leg.kind, circle, err)
			}
			if heading, err = syn.Convert(heading, route.Path); err != nil {
				return nil, fmt.Errorf("%s leg for circle %d: %w", leg.kind, circle, err)
			}
			plan.Legs = append(plan.Legs, Leg{Kind: leg.kind, Circle: circle, Color: color, Route: route})
			plan.Cost += route.Cost
			pose = board.Pose{Coord: leg.goal, Heading: heading}
		}

		if heading, err = syn.Put(delivery, circleCoord, heading); err != nil {
			return nil, err
		}
		b.MoveBlock(pickup)
		if err := b.Fill(circle, color); err != nil {
			return nil, err
		}
		if err := rb.PutColorBlock(idx); err != nil {
			return nil, err
		}
		pose = board.Pose{Coord: delivery, Heading: heading}
	}

	plan.Steps = append(append([]command.Step{}, ringSteps...), command.Compact(syn.Steps())...)
	plan.Commands = command.Format(plan.Steps)
	if plan.Translations, err = command.TranslateAll(plan.Steps); err != nil {
		return nil, err
	}
	plan.Achieved = rb.Achieved()
	plan.Final = pose
	plan.Board = b.Snapshot()

	log.Debugf("planned %d legs at cost %d: %s", len(plan.Legs), plan.Cost, plan.Commands)
	return plan, nil
}

// PlanBingo runs the ring phase and then the cross circle solver for the bingo
// through first. A zero first uses the color circle.
func (p *Planner) PlanBingo(ctx context.Context, round Round, first board.CircleID) (*BingoPlan, error) {
	b, err := round.Board()
	if err != nil {
		return nil, err
	}
	if first == 0 {
		first = round.Color
	}

	ringRoute, ringSteps, pose, err := p.ringPhase(round, b)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sol, err := grid.NewCrossCircleSolver(b).SolveBingo(first, pose)
	if err != nil {
		return nil, err
	}

	steps := append(append([]command.Step{}, ringSteps...), sol.Steps...)
	log.Debugf("bingo through circle %d: %d legs at cost %d", first, len(sol.Legs), sol.Cost)
	return &BingoPlan{
		Round:     round,
		Ring:      ringRoute,
		RingSteps: ringSteps,
		Bingo:     sol,
		Steps:     steps,
		Commands:  command.Format(steps),
		Board:     b.Snapshot(),
	}, nil
}
