package graph

import (
	"container/heap"

	"github.com/cxd309/race-engine/internal/geom"
)

// Search defaults.
const (
	DefaultMaxExpansions = 50
	DefaultPathLength    = 10
	DefaultMinExpansions = 10
	DefaultChainHorizon  = 15

	progressCost = 100.0
	laneCost     = 15.0
)

// SearchOptions bounds a Search call. Zero values select the defaults.
type SearchOptions struct {
	// Speed is the one-tick collision radius: a node within Speed of any
	// obstacle is never entered.
	Speed     float64
	Obstacles []geom.Vector2D

	MaxExpansions int
	PathLength    int
	MinExpansions int
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = DefaultMaxExpansions
	}
	if o.PathLength <= 0 {
		o.PathLength = DefaultPathLength
	}
	if o.MinExpansions <= 0 {
		o.MinExpansions = DefaultMinExpansions
	}
	return o
}

func (o SearchOptions) blocked(p geom.Vector2D) bool {
	for _, ob := range o.Obstacles {
		if ob.Distance(p) < o.Speed {
			return true
		}
	}
	return false
}

type searchNode struct {
	node   Node
	g, f   float64
	delta  float64 // forward progress covered since the start node
	depth  int     // nodes on the path including the start
	parent *searchNode
	index  int
}

func (s *searchNode) route() []Node {
	out := make([]Node, s.depth)
	for cur := s; cur != nil; cur = cur.parent {
		out[cur.depth-1] = cur.node
	}
	return out
}

// frontier is a min-heap on f. Ties prefer more forward progress, then the
// lower node ID, so results are deterministic.
type frontier []*searchNode

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].f != f[j].f {
		return f[i].f < f[j].f
	}
	if f[i].delta != f[j].delta {
		return f[i].delta > f[j].delta
	}
	return f[i].node.ID < f[j].node.ID
}
func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}
func (f *frontier) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*f)
	*f = append(*f, n)
}
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

// Search runs a bounded best-first search forward from start. Step cost is
// progressDelta·100 + laneDelta·15 and the heuristic is (1 − progress covered)·100.
//
// Once MinExpansions nodes have been expanded, the first path reaching
// PathLength nodes is returned, truncated to PathLength. When the expansion
// budget runs out, the lowest-f frontier node's path is returned instead. The
// result starts with start; nil means nothing beyond start is reachable.
func (g *Grid) Search(start Node, opts SearchOptions) []Node {
	opts = opts.withDefaults()

	open := &frontier{}
	bestG := map[NodeID]float64{start.ID: 0}
	closed := make(map[NodeID]bool)
	root := &searchNode{node: start, f: progressCost, depth: 1}
	heap.Push(open, root)
	deepest := root

	for expansions := 0; open.Len() > 0 && expansions < opts.MaxExpansions; {
		cur := heap.Pop(open).(*searchNode)
		if closed[cur.node.ID] {
			continue
		}
		closed[cur.node.ID] = true
		expansions++

		for _, nb := range g.Neighbors(cur.node) {
			if closed[nb.ID] || opts.blocked(nb.Loc) {
				continue
			}
			step := geom.ForwardDelta(cur.node.Progress, nb.Progress)
			delta := cur.delta + step
			if step <= 0 || delta >= 1 {
				continue
			}
			cost := cur.g + step*progressCost + float64(abs(nb.Lane-cur.node.Lane))*laneCost
			if prev, seen := bestG[nb.ID]; seen && prev <= cost {
				continue
			}
			bestG[nb.ID] = cost
			child := &searchNode{
				node:   nb,
				g:      cost,
				f:      cost + (1-delta)*progressCost,
				delta:  delta,
				depth:  cur.depth + 1,
				parent: cur,
			}
			heap.Push(open, child)
			if child.depth > deepest.depth {
				deepest = child
			}
		}

		if expansions >= opts.MinExpansions && deepest.depth >= opts.PathLength {
			return deepest.route()[:opts.PathLength]
		}
	}

	best := deepest
	for open.Len() > 0 {
		n := heap.Pop(open).(*searchNode)
		if !closed[n.node.ID] {
			best = n
			break
		}
	}
	if best.depth < 2 {
		return nil
	}
	return best.route()
}

// LaneChooser picks the lane for the next node of a greedy chain given the
// chain's current tail.
type LaneChooser func(tail Node, step int) int

// ExtendLaneChain greedily follows FindPostNode from start for up to horizon
// steps, asking next for the lane of each step. It stops early when a lane has
// no post node. The result starts with start.
func (g *Grid) ExtendLaneChain(start Node, horizon int, next LaneChooser) []Node {
	if horizon <= 0 {
		horizon = DefaultChainHorizon
	}
	route := make([]Node, 1, horizon+1)
	route[0] = start
	tail := start
	for step := 0; step < horizon; step++ {
		lane := g.ClampLane(next(tail, step))
		post, ok := g.FindPostNode(lane, tail.Progress)
		if !ok {
			break
		}
		route = append(route, post)
		tail = post
	}
	return route
}
