// Package engine implements the race simulation loop.
//
// The race advances in whole ticks. Each tick has two passes:
//
//  1. Decision pass - every running horse perceives a frozen snapshot of the
//     field from the previous tick, analyses its situation, picks a lane,
//     plans a route over the node grid, runs its behavior state and driving
//     mode, and integrates its own motion. A horse only mutates itself, so
//     horses are processed in parallel.
//
//  2. Ranking pass - ranks are recomputed from the new distances and the
//     tick's snapshot row is recorded.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cxd309/race-engine/internal/behavior"
	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/kinematics"
	"github.com/cxd309/race-engine/internal/logging"
	"github.com/cxd309/race-engine/internal/perception"
	"github.com/cxd309/race-engine/internal/strategy"
	"github.com/cxd309/race-engine/internal/track"
)

// Race construction errors.
var (
	ErrNoHorses       = errors.New("race has no horses")
	ErrTooManyHorses  = errors.New("more horses than gate lanes")
	ErrDuplicateHorse = errors.New("duplicate horse id")
)

const (
	minLookahead    = 8.0
	lookaheadFactor = 3.0
)

// NewRace constructs a Race from a RaceInput, building the track and node
// grid and placing each horse at its gate.
func NewRace(input RaceInput) (*Race, error) {
	input = input.withDefaults()

	t, err := track.Build(input.Track)
	if err != nil {
		return nil, fmt.Errorf("building track: %w", err)
	}
	g, err := graph.NewGrid(t, input.Grid)
	if err != nil {
		return nil, fmt.Errorf("building node grid: %w", err)
	}

	switch {
	case len(input.Horses) == 0:
		return nil, ErrNoHorses
	case len(input.Horses) > g.LaneCount():
		return nil, fmt.Errorf("%w: %d horses, %d lanes", ErrTooManyHorses, len(input.Horses), g.LaneCount())
	}

	meta := input.Meta
	if meta.RaceDistance <= 0 {
		meta.RaceDistance = t.TotalLength()
	}

	rng := rand.New(rand.NewPCG(meta.Seed, meta.Seed^0x9e3779b97f4a7c15))
	gates := g.GateNodes()
	heading := t.Segment(0).StartHeading()
	seen := make(map[horse.ID]bool, len(input.Horses))
	runners := make([]*runner, 0, len(input.Horses))
	for i, h := range input.Horses {
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("horse %d: %w", i, err)
		}
		if seen[h.ID] {
			return nil, fmt.Errorf("%w %q", ErrDuplicateHorse, h.ID)
		}
		seen[h.ID] = true

		if h.Jitter > 0 {
			h.MaxSpeed *= 1 + h.Jitter*(2*rng.Float64()-1)
		}
		gate := gates[i]
		sim, err := horse.NewSimHorse(h, gate.Loc, heading, gate.Lane)
		if err != nil {
			return nil, fmt.Errorf("creating horse %q: %w", h.ID, err)
		}
		runners = append(runners, &runner{
			h:          sim,
			machine:    behavior.NewMachine(logging.New("behavior")),
			model:      kinematics.ConstantAcceleration{AAcc: h.MaxAcceleration, VMaxVal: h.MaxSpeed},
			targetLane: gate.Lane,
		})
	}

	return &Race{
		meta:  meta,
		track: t,
		grid:  g,
		sensor: perception.NewSensor(t, g, perception.Config{
			FineAvoidance: meta.FineAvoidance,
			SenseRange:    meta.SenseRange,
			RaceDistance:  meta.RaceDistance,
		}),
		lanes:   strategy.New(g),
		runners: runners,
		log:     logging.New("engine"),
	}, nil
}

// Track returns the race's track.
func (r *Race) Track() *track.Track { return r.track }

// Grid returns the race's node grid.
func (r *Race) Grid() *graph.Grid { return r.grid }

// Meta returns the resolved run parameters.
func (r *Race) Meta() RaceMeta { return r.meta }

// Tick returns the number of ticks run so far.
func (r *Race) Tick() int { return r.tick }

// Run executes the race until every horse has finished or MaxTicks is
// reached, and returns the log.
func (r *Race) Run(ctx context.Context) (RaceLog, error) {
	log := RaceLog{Meta: r.meta}
	r.log.Info("race started",
		slog.String("race", r.meta.RaceID),
		slog.Int("horses", len(r.runners)),
		slog.Float64("distance", r.meta.RaceDistance))

	for r.tick < r.meta.MaxTicks && !r.allFinished() {
		if err := ctx.Err(); err != nil {
			return RaceLog{}, err
		}
		row, err := r.Step(ctx)
		if err != nil {
			return RaceLog{}, fmt.Errorf("at tick %d: %w", r.tick, err)
		}
		log.Output = append(log.Output, row)
	}

	log.Results = r.Results()
	r.log.Info("race finished",
		slog.String("race", r.meta.RaceID),
		slog.Int("ticks", r.tick),
		slog.Int("finished", r.finishedCount()))
	return log, nil
}

// Step advances the race by one tick and returns the resulting log row.
func (r *Race) Step(ctx context.Context) (RaceLogRow, error) {
	r.tick++

	// Every horse decides against the same frozen field.
	field := r.Snapshots()

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(r.meta.Workers)
	for _, rn := range r.runners {
		if rn.h.Finished || rn.h.Halted {
			continue
		}
		eg.Go(func() error { return r.advance(rn, field) })
	}
	if err := eg.Wait(); err != nil {
		return RaceLogRow{}, err
	}

	r.assignRanks()
	return RaceLogRow{Tick: r.tick, Horses: r.Snapshots()}, nil
}

// advance runs one horse's decision pipeline and motion for the current tick.
func (r *Race) advance(rn *runner, field []horse.Snapshot) error {
	h := rn.h
	snap := r.sensor.Perceive(h, field)
	an := perception.Analyze(snap, r.grid.LaneCount())
	h.Lane = snap.Lane
	h.RiskLevel = an.Risk

	decision := r.lanes.Decide(strategy.Input{
		Pos:       h.Pos,
		Lane:      snap.Lane,
		Speed:     h.Speed,
		Segment:   h.Segment,
		Neighbors: snap.Neighbors,
	})
	if decision.TargetLane != rn.targetLane {
		r.log.Debug("lane target",
			slog.String("horse", h.ID),
			slog.Int("tick", r.tick),
			slog.Int("from", rn.targetLane),
			slog.Int("to", decision.TargetLane),
			slog.String("reason", string(decision.Reason)),
			slog.Int("urgency", decision.Urgency))
		rn.targetLane = decision.TargetLane
	}

	aim, hasAim := aimPoint(h, r.plan(h, snap, decision))
	cmd, err := rn.machine.Update(&behavior.Context{
		Tick:       r.tick,
		Horse:      h,
		Perception: snap,
		Analysis:   an,
		Rays:       r.sensor.Rays(),
		Aim:        aim,
		HasAim:     hasAim,
	})
	if err != nil {
		h.Halt()
		return err
	}
	h.Behavior = rn.machine.State()

	mode, err := behavior.SelectMode(h.Mode, behavior.ModeInput{
		Progress:     snap.Progress,
		Rank:         snap.Rank,
		FieldSize:    len(field),
		Gap:          nearestGap(snap),
		StaminaRatio: snap.StaminaRatio,
		Behavior:     h.Behavior,
	})
	if err != nil {
		h.Halt()
		return fmt.Errorf("horse %q: %w", h.ID, err)
	}
	if mode != h.Mode {
		r.log.Debug("driving mode",
			slog.String("horse", h.ID),
			slog.Int("tick", r.tick),
			slog.String("from", string(h.Mode)),
			slog.String("to", string(mode)))
		h.Mode = mode
	}

	cmd.Target.SpeedCap = behavior.SpeedCap(h.MaxSpeed, mode, cmd.SpeedFactor,
		snap.NearestIn(perception.SectorFront), snap.StaminaRatio)
	res := kinematics.Integrate(rn.model,
		kinematics.State{Pos: h.Pos, Heading: h.Heading, Speed: h.Speed},
		sensing(snap), cmd.Target)

	h.Pos = res.Pos
	h.Heading = res.Heading
	h.Speed = res.Speed
	h.Acceleration = res.Acceleration
	h.ConsumeStamina(behavior.StaminaCost(mode, h.Speed, h.MaxSpeed))
	h.UpdateTrackPosition(r.track)

	if h.Distance >= r.meta.RaceDistance {
		h.Finished = true
		h.FinishTick = r.tick
		r.log.Info("horse finished",
			slog.String("horse", h.ID),
			slog.Int("tick", r.tick),
			slog.Float64("distance", h.Distance))
	}
	return nil
}

// plan builds the horse's route from the node just behind it. Overtakes and
// corner entries get the bounded search; everything else follows the greedy
// lane chain toward the decided lane.
func (r *Race) plan(h *horse.SimHorse, snap perception.Snapshot, d strategy.Decision) []graph.Node {
	start, ok := r.grid.FindPrevNode(snap.Lane, h.Progress)
	if !ok {
		return nil
	}
	if h.Behavior == horse.StateOvertaking || d.Reason == strategy.ReasonCorner {
		obstacles := make([]geom.Vector2D, 0, len(snap.Neighbors))
		for _, n := range snap.Neighbors {
			obstacles = append(obstacles, n.Pos)
		}
		route := r.grid.Search(start, graph.SearchOptions{Speed: h.Speed, Obstacles: obstacles})
		if len(route) > 1 {
			return route
		}
	}
	return r.grid.ExtendLaneChain(start, graph.DefaultChainHorizon, strategy.Chooser(d))
}

// aimPoint picks the first route node far enough ahead to steer toward.
func aimPoint(h *horse.SimHorse, route []graph.Node) (geom.Vector2D, bool) {
	if len(route) < 2 {
		return geom.Vector2D{}, false
	}
	lookahead := math.Max(minLookahead, lookaheadFactor*h.Speed)
	for _, n := range route[1:] {
		if n.Loc.Distance(h.Pos) >= lookahead {
			return n.Loc, true
		}
	}
	return route[len(route)-1].Loc, true
}

func sensing(s perception.Snapshot) kinematics.Sensing {
	return kinematics.Sensing{
		Closest:      s.MinWallDistance(),
		Farthest:     s.FarthestWallDistance(),
		TrackTangent: s.Tangent.Angle(),
		FarTangent:   s.FarTangent.Angle(),
		HasFarHit:    s.HasHit,
	}
}

func nearestGap(s perception.Snapshot) float64 {
	gap := math.Inf(1)
	for _, n := range s.Neighbors {
		gap = math.Min(gap, n.Distance)
	}
	return gap
}

// Snapshots returns the current public state of every horse in roster order.
func (r *Race) Snapshots() []horse.Snapshot {
	out := make([]horse.Snapshot, len(r.runners))
	for i, rn := range r.runners {
		out[i] = rn.h.Snapshot()
	}
	return out
}

func (r *Race) assignRanks() {
	field := r.Snapshots()
	for _, rn := range r.runners {
		rn.h.Rank = horse.Rank(rn.h.Distance, field)
	}
}

func (r *Race) allFinished() bool {
	return r.finishedCount() == len(r.runners)
}

func (r *Race) finishedCount() int {
	n := 0
	for _, rn := range r.runners {
		if rn.h.Finished {
			n++
		}
	}
	return n
}

// Results returns the standings: finishers by finishing tick, then the rest
// by distance covered.
func (r *Race) Results() []Result {
	res := make([]Result, len(r.runners))
	for i, rn := range r.runners {
		res[i] = Result{
			ID:         rn.h.ID,
			Name:       rn.h.Name,
			Distance:   rn.h.Distance,
			Finished:   rn.h.Finished,
			FinishTick: rn.h.FinishTick,
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished && a.FinishTick != b.FinishTick {
			return a.FinishTick < b.FinishTick
		}
		return a.Distance > b.Distance
	})
	for i := range res {
		res[i].Position = i + 1
	}
	return res
}

// RunJSON is the entry point shared by the CLI and WASM targets. It accepts a
// JSON-encoded RaceInput, runs the race, and returns a JSON-encoded RaceLog.
func RunJSON(jsonInput string) (string, error) {
	var input RaceInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	race, err := NewRace(input)
	if err != nil {
		return "", err
	}

	raceLog, err := race.Run(context.Background())
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(raceLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
