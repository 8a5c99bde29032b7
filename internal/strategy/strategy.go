// Package strategy decides lane changes. Safety reasons (collision avoidance,
// pressure relief) are always evaluated before attack reasons (corner
// distance reduction, traffic overtakes, basic inward moves), and each reason
// carries a fixed urgency so callers can arbitrate.
package strategy

import (
	"math"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/perception"
	"github.com/cxd309/race-engine/internal/track"
)

// Reason tags why a lane change was requested.
type Reason string

const (
	ReasonNone      Reason = "none"
	ReasonCollision Reason = "collision_avoidance"
	ReasonPressure  Reason = "pressure_relief"
	ReasonCorner    Reason = "corner_distance_reduction"
	ReasonTraffic   Reason = "traffic_overtake"
	ReasonInward    Reason = "basic_inward_move"
)

// Category groups reasons. Safety outranks Attack.
type Category string

const (
	CategoryNone   Category = "none"
	CategorySafety Category = "safety"
	CategoryAttack Category = "attack"
)

// Urgency bands per reason.
const (
	UrgencyNone      = 0
	UrgencyInward    = 30
	UrgencyTraffic   = 60
	UrgencyCorner    = 70
	UrgencyPressure  = 80
	UrgencyCollision = 100
)

const (
	collisionSearchOffsets = 3
	pressureCount          = 3
	pressureShift          = 2
	cornerShift            = 2
	trafficRangeFactor     = 2.0
	trafficSlowerRatio     = 0.9
	inwardSearchOffsets    = 2
	laneDeltaCostFactor    = 0.1
)

// Decision is the outcome of one lane evaluation.
type Decision struct {
	ShouldChange bool   `json:"should_change"`
	TargetLane   int    `json:"target_lane"`
	Reason       Reason `json:"reason"`
	Urgency      int    `json:"urgency"`
}

// Category returns the category of d's reason.
func (d Decision) Category() Category {
	switch d.Reason {
	case ReasonCollision, ReasonPressure:
		return CategorySafety
	case ReasonCorner, ReasonTraffic, ReasonInward:
		return CategoryAttack
	default:
		return CategoryNone
	}
}

// Keep returns the no-change decision for lane.
func Keep(lane int) Decision {
	return Decision{TargetLane: lane, Reason: ReasonNone, Urgency: UrgencyNone}
}

func change(lane int, r Reason, urgency int) Decision {
	return Decision{ShouldChange: true, TargetLane: lane, Reason: r, Urgency: urgency}
}

// Input is the part of one horse's state the strategy looks at.
type Input struct {
	Pos       geom.Vector2D
	Lane      int
	Speed     float64
	Segment   int
	Neighbors []perception.Neighbor
}

// Strategy evaluates lane changes over one grid.
type Strategy struct {
	grid  *graph.Grid
	track *track.Track
}

// New returns a strategy over g.
func New(g *graph.Grid) *Strategy {
	return &Strategy{grid: g, track: g.Track()}
}

// Decide returns the most urgent applicable lane change, or Keep.
func (s *Strategy) Decide(in Input) Decision {
	if d, ok := s.safety(in); ok {
		return d
	}
	if d, ok := s.attack(in); ok {
		return d
	}
	return Keep(in.Lane)
}

func (s *Strategy) safety(in Input) (Decision, bool) {
	if d, ok := s.collision(in); ok {
		return d, true
	}
	return s.pressure(in)
}

func (s *Strategy) attack(in Input) (Decision, bool) {
	if d, ok := s.corner(in); ok {
		return d, true
	}
	if d, ok := s.traffic(in); ok {
		return d, true
	}
	return s.inward(in)
}

// within returns the neighbors closer than the horse's speed.
func within(in Input) []perception.Neighbor {
	var out []perception.Neighbor
	for _, n := range in.Neighbors {
		if n.Distance < in.Speed {
			out = append(out, n)
		}
	}
	return out
}

// laneClear reports whether no neighbor on lane is within speed.
func laneClear(in Input, lane int) bool {
	for _, n := range in.Neighbors {
		if n.Lane == lane && n.Distance < in.Speed {
			return false
		}
	}
	return true
}

func (s *Strategy) collision(in Input) (Decision, bool) {
	if len(within(in)) == 0 {
		return Decision{}, false
	}
	for k := 1; k <= collisionSearchOffsets; k++ {
		for _, lane := range [2]int{in.Lane - k, in.Lane + k} {
			if s.grid.ValidLane(lane) && laneClear(in, lane) {
				return change(lane, ReasonCollision, UrgencyCollision), true
			}
		}
	}
	return Decision{}, false
}

func (s *Strategy) pressure(in Input) (Decision, bool) {
	near := within(in)
	if len(near) < pressureCount {
		return Decision{}, false
	}
	inner, outer := 0, 0
	for _, n := range near {
		switch {
		case n.Lane < in.Lane:
			inner++
		case n.Lane > in.Lane:
			outer++
		}
	}
	var dir int
	switch {
	case inner < outer:
		dir = -1
	case outer < inner:
		dir = 1
	case float64(in.Lane) < s.grid.MidLane():
		dir = -1
	default:
		dir = 1
	}
	lane := s.grid.ClampLane(in.Lane + dir*pressureShift)
	if lane == in.Lane {
		return Decision{}, false
	}
	return change(lane, ReasonPressure, UrgencyPressure), true
}

func (s *Strategy) corner(in Input) (Decision, bool) {
	next := s.track.Segment(s.track.NextIndex(in.Segment))
	if next.Type() != track.SegmentCorner || float64(in.Lane) <= s.grid.MidLane() {
		return Decision{}, false
	}
	lane := s.grid.ClampLane(in.Lane - cornerShift)
	return change(lane, ReasonCorner, UrgencyCorner), true
}

func (s *Strategy) traffic(in Input) (Decision, bool) {
	blocked := false
	for _, n := range in.Neighbors {
		if n.Lane == in.Lane && n.Ahead > 0 && n.Distance < trafficRangeFactor*in.Speed &&
			n.Speed <= trafficSlowerRatio*in.Speed {
			blocked = true
			break
		}
	}
	if !blocked {
		return Decision{}, false
	}
	dir := 1
	if float64(in.Lane) > s.grid.MidLane() {
		dir = -1
	}
	lane := in.Lane + dir
	if !s.grid.ValidLane(lane) {
		lane = in.Lane - dir
	}
	if !s.grid.ValidLane(lane) {
		return Decision{}, false
	}
	return change(lane, ReasonTraffic, UrgencyTraffic), true
}

// inward scores each clear lane within two of the current one by the distance
// to its node at the start of the next segment plus a lane-change penalty.
func (s *Strategy) inward(in Input) (Decision, bool) {
	nextStart := s.track.CumulativeProgress(s.track.NextIndex(in.Segment))
	deltas := []int{0}
	for k := 1; k <= inwardSearchOffsets; k++ {
		deltas = append(deltas, -k, k)
	}
	best, bestCost := in.Lane, math.Inf(1)
	for _, delta := range deltas {
		lane := in.Lane + delta
		if !s.grid.ValidLane(lane) || !laneClear(in, lane) {
			continue
		}
		node, ok := s.grid.FindPostNode(lane, nextStart-geom.Epsilon)
		if !ok {
			continue
		}
		cost := node.Loc.Distance(in.Pos) + math.Abs(float64(delta))*in.Speed*laneDeltaCostFactor
		if cost < bestCost {
			best, bestCost = lane, cost
		}
	}
	if best == in.Lane {
		return Decision{}, false
	}
	return change(best, ReasonInward, UrgencyInward), true
}

// Chooser returns a lane chooser for graph.ExtendLaneChain that moves one lane
// per step from the chain's tail toward d's target lane.
func Chooser(d Decision) graph.LaneChooser {
	return func(tail graph.Node, _ int) int {
		switch {
		case tail.Lane < d.TargetLane:
			return tail.Lane + 1
		case tail.Lane > d.TargetLane:
			return tail.Lane - 1
		default:
			return tail.Lane
		}
	}
}
