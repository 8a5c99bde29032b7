package engine

import (
	"log/slog"
	"runtime"

	"github.com/cxd309/race-engine/internal/behavior"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/kinematics"
	"github.com/cxd309/race-engine/internal/perception"
	"github.com/cxd309/race-engine/internal/strategy"
	"github.com/cxd309/race-engine/internal/track"
)

// DefaultMaxTicks bounds a race whose input leaves max_ticks unset.
const DefaultMaxTicks = 2000

// RaceMeta holds the identity and run parameters for a race.
type RaceMeta struct {
	RaceID   string `json:"race_id" yaml:"race_id"`
	MaxTicks int    `json:"max_ticks" yaml:"max_ticks"`
	Seed     uint64 `json:"seed" yaml:"seed"` // seeds stat jitter
	// Workers bounds how many horses decide in parallel within a tick.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// RaceDistance is the finishing distance; one lap when zero.
	RaceDistance  float64 `json:"race_distance,omitempty" yaml:"race_distance,omitempty"`
	FineAvoidance bool    `json:"fine_avoidance,omitempty" yaml:"fine_avoidance,omitempty"`
	SenseRange    float64 `json:"sense_range,omitempty" yaml:"sense_range,omitempty"`
}

// RaceInput is the JSON/YAML-serialisable input to the engine.
type RaceInput struct {
	Meta   RaceMeta      `json:"race_meta" yaml:"race_meta"`
	Track  track.Pattern `json:"track" yaml:"track"`
	Grid   graph.Config  `json:"grid" yaml:"grid"`
	Horses []horse.Horse `json:"horses" yaml:"horses"`
}

// withDefaults fills unset run parameters. RaceDistance is resolved once the
// track is built.
func (in RaceInput) withDefaults() RaceInput {
	if in.Meta.MaxTicks <= 0 {
		in.Meta.MaxTicks = DefaultMaxTicks
	}
	if in.Meta.Workers <= 0 {
		in.Meta.Workers = runtime.GOMAXPROCS(0)
	}
	def := graph.DefaultConfig()
	if in.Grid.Lanes <= 0 {
		in.Grid.Lanes = def.Lanes
	}
	if in.Grid.NodeResolution <= 0 {
		in.Grid.NodeResolution = def.NodeResolution
	}
	if in.Grid.Buckets <= 0 {
		in.Grid.Buckets = def.Buckets
	}
	return in
}

// RaceLogRow is the state of every horse after one tick.
type RaceLogRow struct {
	Tick   int              `json:"tick"`
	Horses []horse.Snapshot `json:"horses"`
}

// Result is one line of the final standings.
type Result struct {
	Position   int      `json:"position"`
	ID         horse.ID `json:"horse_id"`
	Name       string   `json:"name,omitempty"`
	Distance   float64  `json:"distance"`
	Finished   bool     `json:"finished"`
	FinishTick int      `json:"finish_tick,omitempty"`
}

// RaceLog is the complete output of a race.
type RaceLog struct {
	Meta    RaceMeta     `json:"race_meta"`
	Output  []RaceLogRow `json:"output"`
	Results []Result     `json:"results"`
}

// runner is one horse together with its private decision state.
type runner struct {
	h          *horse.SimHorse
	machine    *behavior.Machine
	model      kinematics.MotionModel
	targetLane int
}

// Race simulation engine state.
type Race struct {
	meta    RaceMeta
	track   *track.Track
	grid    *graph.Grid
	sensor  *perception.Sensor
	lanes   *strategy.Strategy
	runners []*runner
	tick    int
	log     *slog.Logger
}
