// Package grid searches the cross circle grid. Nodes are cross circles and the
// midpoints between them on the doubled 7x7 board; block circle footprints are
// never part of a graph.
package grid

import (
	"github.com/wricardo/blockbingo/game/board"
)

const maxNeighbors = 6

type node struct {
	adj [maxNeighbors]board.Coord
	n   int
}

// Graph is a fixed 7x7 node arena. Each node keeps its neighbors in a fixed
// size list built once at init.
type Graph struct {
	name  string
	nodes [board.Size][board.Size]node
}

var (
	orthogonal = [4][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}
	diagonal   = [4][2]int{{-1, 1}, {1, 1}, {1, -1}, {-1, -1}}
)

var (
	// Compact links every node to its orthogonal half-step neighbors
	Compact = buildGraph("compact", false)
	// Heavy adds diagonal links between midpoints around a block circle
	Heavy = buildGraph("heavy", true)
)

func buildGraph(name string, diagonals bool) *Graph {
	g := &Graph{name: name}
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			from := board.Coord{Row: r, Col: c}
			if !from.Traversable() {
				continue
			}
			nd := &g.nodes[r][c]
			for _, d := range orthogonal {
				to := from.Add(d[0], d[1])
				if to.Traversable() {
					nd.adj[nd.n] = to
					nd.n++
				}
			}
			if !diagonals || !from.IsMidpoint() {
				continue
			}
			for _, d := range diagonal {
				to := from.Add(d[0], d[1])
				if to.IsMidpoint() {
					nd.adj[nd.n] = to
					nd.n++
				}
			}
		}
	}
	return g
}

// Name returns the graph name
func (g *Graph) Name() string {
	return g.name
}

// Contains reports whether c is a node of the graph
func (g *Graph) Contains(c board.Coord) bool {
	return c.Traversable()
}

// Neighbors returns the nodes adjacent to c: north, east, south, west, then
// the diagonals clockwise from north-east.
func (g *Graph) Neighbors(c board.Coord) []board.Coord {
	if !g.Contains(c) {
		return nil
	}
	nd := &g.nodes[c.Row][c.Col]
	return nd.adj[:nd.n:nd.n]
}

// Adjacent reports whether a move from src to dst follows an edge
func (g *Graph) Adjacent(src, dst board.Coord) bool {
	for _, n := range g.Neighbors(src) {
		if n == dst {
			return true
		}
	}
	return false
}
