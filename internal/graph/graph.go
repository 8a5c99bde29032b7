// Package graph provides the precomputed node grid laid over a track and the
// path searches that run on it.
//
// Nodes are sampled once per track along every lane, deduplicated where
// segment joins produce coincident samples, and filed both into a spatial hash
// (for dedup and nearest-node lookups) and into a [progress bucket][lane]
// index for ordered progress queries. The grid is read-only after NewGrid and
// safe to share between agents.
package graph

import (
	"fmt"
	"math"
	"sort"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/track"
)

// NodeID indexes Grid.nodes.
type NodeID = int

// dedupFactor scales the node resolution into the minimum same-lane spacing.
const dedupFactor = 0.85

// Node is a discretised track-relative sample point. Progress is global loop
// progress in [0, 1).
type Node struct {
	ID       NodeID        `json:"node_id"`
	Loc      geom.Vector2D `json:"loc"`
	Segment  int           `json:"segment"`
	Lane     int           `json:"lane"`
	Progress float64       `json:"progress"`
}

// Config controls grid density.
type Config struct {
	Lanes          int     `json:"lanes" yaml:"lanes"`
	NodeResolution float64 `json:"node_resolution" yaml:"node_resolution"` // target spacing along the rail
	Buckets        int     `json:"buckets" yaml:"buckets"`
}

// DefaultConfig returns 10 lanes, one node every 10 units, and 10 progress buckets.
func DefaultConfig() Config {
	return Config{Lanes: 10, NodeResolution: 10, Buckets: 10}
}

type cellKey struct{ x, y int }

// Grid is the lane × progress node index over one track.
type Grid struct {
	cfg       Config
	track     *track.Track
	laneWidth float64
	nodes     []Node
	buckets   [][][]NodeID // [bucket][lane], each sorted by progress
	cells     map[cellKey][]NodeID
}

// NewGrid samples t into a node grid. An invalid config is an error.
func NewGrid(t *track.Track, cfg Config) (*Grid, error) {
	if cfg.Lanes < 1 {
		return nil, fmt.Errorf("grid needs at least one lane, got %d", cfg.Lanes)
	}
	if cfg.NodeResolution <= 0 {
		return nil, fmt.Errorf("grid node resolution must be positive, got %v", cfg.NodeResolution)
	}
	if cfg.Buckets < 1 {
		return nil, fmt.Errorf("grid needs at least one progress bucket, got %d", cfg.Buckets)
	}

	g := &Grid{
		cfg:       cfg,
		track:     t,
		laneWidth: t.Width() / float64(cfg.Lanes),
		buckets:   make([][][]NodeID, cfg.Buckets),
		cells:     make(map[cellKey][]NodeID),
	}
	for b := range g.buckets {
		g.buckets[b] = make([][]NodeID, cfg.Lanes)
	}

	for i := 0; i < t.SegmentCount(); i++ {
		seg := t.Segment(i)
		steps := int(math.Max(1, math.Floor(seg.Length()/cfg.NodeResolution)))
		for lane := 0; lane < cfg.Lanes; lane++ {
			offset := g.LaneOffset(lane)
			for k := 0; k <= steps; k++ {
				local := float64(k) / float64(steps)
				g.addNode(Node{
					Loc:      seg.PointAt(local, offset),
					Segment:  i,
					Lane:     lane,
					Progress: geom.Wrap01(t.CumulativeProgress(i) + local*t.SegmentShare(i)),
				})
			}
		}
	}

	for b := range g.buckets {
		for lane := range g.buckets[b] {
			ids := g.buckets[b][lane]
			sort.Slice(ids, func(x, y int) bool {
				return g.nodes[ids[x]].Progress < g.nodes[ids[y]].Progress
			})
		}
	}
	return g, nil
}

func (g *Grid) cellOf(p geom.Vector2D) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / g.cfg.NodeResolution)),
		y: int(math.Floor(p.Y / g.cfg.NodeResolution)),
	}
}

// addNode files n unless a node of the same lane already sits within
// dedupFactor × resolution in the same or an adjacent cell.
func (g *Grid) addNode(n Node) bool {
	minDist := dedupFactor * g.cfg.NodeResolution
	c := g.cellOf(n.Loc)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, id := range g.cells[cellKey{c.x + dx, c.y + dy}] {
				other := g.nodes[id]
				if other.Lane == n.Lane && other.Loc.Distance(n.Loc) < minDist {
					return false
				}
			}
		}
	}
	n.ID = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.cells[c] = append(g.cells[c], n.ID)
	b := g.bucketOf(n.Progress)
	g.buckets[b][n.Lane] = append(g.buckets[b][n.Lane], n.ID)
	return true
}

func (g *Grid) Config() Config            { return g.cfg }
func (g *Grid) Track() *track.Track      { return g.track }
func (g *Grid) LaneCount() int           { return g.cfg.Lanes }
func (g *Grid) LaneWidth() float64       { return g.laneWidth }
func (g *Grid) Len() int                 { return len(g.nodes) }
func (g *Grid) Node(id NodeID) Node      { return g.nodes[id] }
func (g *Grid) Nodes() []Node            { return append([]Node(nil), g.nodes...) }
func (g *Grid) MidLane() float64         { return float64(g.cfg.Lanes-1) / 2 }
func (g *Grid) ValidLane(lane int) bool  { return lane >= 0 && lane < g.cfg.Lanes }
func (g *Grid) ClampLane(lane int) int   { return geom.ClampInt(lane, 0, g.cfg.Lanes-1) }

// LaneOffset returns the lateral offset from the rail of lane's centre line.
func (g *Grid) LaneOffset(lane int) float64 {
	return (float64(lane) + 0.5) * g.laneWidth
}

// LaneAt maps a lateral offset from the rail onto a lane index, clamped to the
// grid.
func (g *Grid) LaneAt(offset float64) int {
	return g.ClampLane(int(math.Floor(offset / g.laneWidth)))
}

func (g *Grid) bucketOf(p float64) int {
	return geom.ClampInt(int(geom.Wrap01(p)*float64(g.cfg.Buckets)), 0, g.cfg.Buckets-1)
}

func (g *Grid) mustLane(lane int) {
	if !g.ValidLane(lane) {
		panic(fmt.Sprintf("graph: lane %d outside grid of %d lanes", lane, g.cfg.Lanes))
	}
}

// BucketNodes returns the nodes of one lane inside one progress bucket,
// ordered by progress. Out-of-range indices panic.
func (g *Grid) BucketNodes(bucket, lane int) []Node {
	if bucket < 0 || bucket >= g.cfg.Buckets {
		panic(fmt.Sprintf("graph: bucket %d outside grid of %d buckets", bucket, g.cfg.Buckets))
	}
	g.mustLane(lane)
	ids := g.buckets[bucket][lane]
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// LaneNodes returns every node of lane ordered by progress.
func (g *Grid) LaneNodes(lane int) []Node {
	g.mustLane(lane)
	var out []Node
	for b := 0; b < g.cfg.Buckets; b++ {
		for _, id := range g.buckets[b][lane] {
			out = append(out, g.nodes[id])
		}
	}
	return out
}

// FindPostNode returns the nearest node of lane strictly after progress p,
// wrapping around the loop. The boolean is false only for an empty lane.
func (g *Grid) FindPostNode(lane int, p float64) (Node, bool) {
	g.mustLane(lane)
	p = geom.Wrap01(p)
	b := g.bucketOf(p)
	ids := g.buckets[b][lane]
	i := sort.Search(len(ids), func(i int) bool { return g.nodes[ids[i]].Progress > p })
	if i < len(ids) {
		return g.nodes[ids[i]], true
	}
	for step := 1; step <= g.cfg.Buckets; step++ {
		if ids := g.buckets[(b+step)%g.cfg.Buckets][lane]; len(ids) > 0 {
			return g.nodes[ids[0]], true
		}
	}
	return Node{}, false
}

// FindPrevNode returns the nearest node of lane strictly before progress p,
// wrapping around the loop. The boolean is false only for an empty lane.
func (g *Grid) FindPrevNode(lane int, p float64) (Node, bool) {
	g.mustLane(lane)
	p = geom.Wrap01(p)
	b := g.bucketOf(p)
	ids := g.buckets[b][lane]
	i := sort.Search(len(ids), func(i int) bool { return g.nodes[ids[i]].Progress >= p })
	if i > 0 {
		return g.nodes[ids[i-1]], true
	}
	n := g.cfg.Buckets
	for step := 1; step <= n; step++ {
		if ids := g.buckets[((b-step)%n+n)%n][lane]; len(ids) > 0 {
			return g.nodes[ids[len(ids)-1]], true
		}
	}
	return Node{}, false
}

// GateNodes returns, per lane, the node at progress 0 where the race starts.
func (g *Grid) GateNodes() []Node {
	gates := make([]Node, g.cfg.Lanes)
	for lane := range gates {
		// Bucket 0 is sorted, so its first node is the lane's lowest progress.
		if ids := g.buckets[0][lane]; len(ids) > 0 {
			gates[lane] = g.nodes[ids[0]]
			continue
		}
		gates[lane], _ = g.FindPostNode(lane, 0)
	}
	return gates
}

// NearestNode returns the node closest to pos, searching the spatial hash in
// growing rings around pos's cell.
func (g *Grid) NearestNode(pos geom.Vector2D) (Node, bool) {
	if len(g.nodes) == 0 {
		return Node{}, false
	}
	c := g.cellOf(pos)
	maxRing := int(math.Ceil(g.track.Width()/g.cfg.NodeResolution)) + 2
	best, bestDist := -1, math.Inf(1)
	for ring := 0; ring <= maxRing; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if max(abs(dx), abs(dy)) != ring {
					continue
				}
				for _, id := range g.cells[cellKey{c.x + dx, c.y + dy}] {
					if d := g.nodes[id].Loc.Distance(pos); d < bestDist {
						best, bestDist = id, d
					}
				}
			}
		}
		// Anything in a further ring is at least ring × resolution away.
		if best >= 0 && bestDist <= float64(ring)*g.cfg.NodeResolution {
			return g.nodes[best], true
		}
	}
	if best >= 0 {
		return g.nodes[best], true
	}
	for _, n := range g.nodes {
		if d := n.Loc.Distance(pos); d < bestDist {
			best, bestDist = n.ID, d
		}
	}
	return g.nodes[best], true
}

// Neighbors returns the next node forward in n's lane and in each adjacent lane.
func (g *Grid) Neighbors(n Node) []Node {
	out := make([]Node, 0, 3)
	for dl := -1; dl <= 1; dl++ {
		lane := n.Lane + dl
		if !g.ValidLane(lane) {
			continue
		}
		if post, ok := g.FindPostNode(lane, n.Progress); ok {
			out = append(out, post)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
