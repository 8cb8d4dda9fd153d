package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/wricardo/blockbingo/game/board"
)

// Route is a searched path, start first, with its cost and the heading on
// arrival at the goal.
type Route struct {
	Path    []board.Coord `json:"path"`
	Cost    int           `json:"cost"`
	Heading board.Heading `json:"heading"`
}

// Start returns the first node of the route
func (r *Route) Start() board.Coord {
	return r.Path[0]
}

// Goal returns the last node of the route
func (r *Route) Goal() board.Coord {
	return r.Path[len(r.Path)-1]
}

const headings = 8

// sink joins every state on the goal node, so the goal can be reached with
// any heading
const sink = int64(board.Size * board.Size * headings)

// tieBreak orders open states of equal f by discovery. Its total stays below
// one so it never outweighs a unit of cost.
const tieBreak = 1e-9

// stateGraph is the (node, heading) graph of one search. Edges are priced
// lazily by the cost function as A* expands states.
type stateGraph struct {
	g       *Graph
	b       *board.Board
	goal    board.Coord
	cost    CostFunc
	weights map[[2]int64]float64
	err     error
}

func stateID(c board.Coord, h board.Heading) int64 {
	return int64((c.Row*board.Size+c.Col)*headings) + int64(h.Normalize())
}

func stateOf(id int64) (board.Coord, board.Heading) {
	cell := int(id / headings)
	return board.Coord{Row: cell / board.Size, Col: cell % board.Size}, board.Heading(id % headings)
}

// From lists the states one move away. A state on the goal only leads to the
// sink, and nodes holding an uncollected block are skipped unless they are
// the goal.
func (s *stateGraph) From(id int64) graph.Nodes {
	if id == sink || s.err != nil {
		return graph.Empty
	}
	from, heading := stateOf(id)
	if from == s.goal {
		s.weights[[2]int64{id, sink}] = 0
		return iterator.NewOrderedNodes([]graph.Node{simple.Node(sink)})
	}

	var next []graph.Node
	for _, to := range s.g.Neighbors(from) {
		if s.b.IsOpen(to) && to != s.goal {
			continue
		}
		step, err := s.cost(s.b, from, to, heading)
		if err != nil {
			s.err = err
			return graph.Empty
		}
		arrival, err := HeadingBetween(from, to)
		if err != nil {
			s.err = err
			return graph.Empty
		}
		nid := stateID(to, arrival)
		s.weights[[2]int64{id, nid}] = float64(step)
		next = append(next, simple.Node(nid))
	}
	return iterator.NewOrderedNodes(next)
}

// Edge returns the priced edge between two expanded states
func (s *stateGraph) Edge(uid, vid int64) graph.Edge {
	w, ok := s.weights[[2]int64{uid, vid}]
	if !ok {
		return nil
	}
	return simple.WeightedEdge{F: simple.Node(uid), T: simple.Node(vid), W: w}
}

// Weight returns the cost of the move uid -> vid
func (s *stateGraph) Weight(uid, vid int64) (float64, bool) {
	if uid == vid {
		return 0, true
	}
	w, ok := s.weights[[2]int64{uid, vid}]
	return w, ok
}

// Search runs A* over (node, heading) states from the start pose to goal.
// Nodes holding an uncollected block are skipped unless they are the goal.
// States of equal estimate are expanded in the order they were found.
func Search(g *Graph, b *board.Board, start board.Pose, goal board.Coord, cost CostFunc, h Heuristic) (*Route, error) {
	if !g.Contains(start.Coord) {
		return nil, fmt.Errorf("%w: start %s is not a %s graph node", board.ErrInvalidGeometry, start.Coord, g.name)
	}
	if !g.Contains(goal) {
		return nil, fmt.Errorf("%w: goal %s is not a %s graph node", board.ErrInvalidGeometry, goal, g.name)
	}

	states := &stateGraph{g: g, b: b, goal: goal, cost: cost, weights: make(map[[2]int64]float64)}
	found := 0
	estimate := func(x, _ graph.Node) float64 {
		found++
		if x.ID() == sink {
			return float64(found) * tieBreak
		}
		c, _ := stateOf(x.ID())
		return float64(h(c, goal)) + float64(found)*tieBreak
	}

	shortest, _ := path.AStar(simple.Node(stateID(start.Coord, start.Heading)), simple.Node(sink), states, estimate)
	if states.err != nil {
		return nil, states.err
	}
	nodes, weight := shortest.To(sink)
	if len(nodes) < 2 || math.IsInf(weight, 1) {
		return nil, fmt.Errorf("%w: no route from %s to %s", board.ErrSearchExhausted, start.Coord, goal)
	}

	route := &Route{Cost: int(math.Round(weight))}
	for _, n := range nodes[:len(nodes)-1] {
		c, heading := stateOf(n.ID())
		route.Path = append(route.Path, c)
		route.Heading = heading
	}
	return route, nil
}

// RouteCost recomputes the cost of driving path from the given heading. It
// checks every move against the graph.
func RouteCost(g *Graph, b *board.Board, heading board.Heading, path []board.Coord, cost CostFunc) (int, error) {
	total := 0
	for i := 1; i < len(path); i++ {
		src, dst := path[i-1], path[i]
		if !g.Adjacent(src, dst) {
			return 0, fmt.Errorf("%w: %s -> %s is not a %s graph edge", board.ErrInvalidGeometry, src, dst, g.name)
		}
		step, err := cost(b, src, dst, heading)
		if err != nil {
			return 0, err
		}
		total += step
		if heading, err = HeadingBetween(src, dst); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Plan finds the cheapest compact route from the robot pose to goal
func Plan(b *board.Board, from board.Pose, goal board.Coord) (*Route, error) {
	return Search(Compact, b, from, goal, MovingCost, Manhattan)
}
