// Package horse defines the race agents: the static roster entry, the live
// SimHorse state mutated once per tick, and the Snapshot exposed to loggers
// and renderers.
package horse

import (
	"errors"
	"fmt"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/track"
)

// ID is a unique string identifier for a horse.
type ID = string

// BehaviorState is the persistent steering state of a horse.
type BehaviorState string

const (
	StateMaintainingPace BehaviorState = "maintaining_pace"
	StateOvertaking      BehaviorState = "overtaking"
	StateBlocked         BehaviorState = "blocked"
)

// DrivingMode is the tactical speed/stamina envelope chosen each tick.
type DrivingMode string

const (
	ModeMaintainingPace DrivingMode = "maintaining_pace"
	ModeOvertaking      DrivingMode = "overtaking"
	ModePositioning     DrivingMode = "positioning"
	ModeConserving      DrivingMode = "conserving"
	ModeLastSpurt       DrivingMode = "last_spurt"
)

// ErrInvalidHorse is returned for roster entries with unusable stats.
var ErrInvalidHorse = errors.New("invalid horse")

// Horse holds the static parameters of one runner.
type Horse struct {
	ID              ID      `json:"horse_id" yaml:"horse_id"`
	Name            string  `json:"name,omitempty" yaml:"name,omitempty"`
	MaxSpeed        float64 `json:"max_speed" yaml:"max_speed"`               // units per tick
	MaxAcceleration float64 `json:"max_acceleration" yaml:"max_acceleration"` // units per tick²
	MaxStamina      float64 `json:"stamina" yaml:"stamina"`
	// Jitter is the fraction by which MaxSpeed may be randomly perturbed at
	// race start, e.g. 0.05 for ±5%. Zero keeps stats exact.
	Jitter float64 `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

// Validate reports unusable stats.
func (h Horse) Validate() error {
	switch {
	case h.ID == "":
		return fmt.Errorf("%w: missing horse_id", ErrInvalidHorse)
	case h.MaxSpeed <= 0:
		return fmt.Errorf("%w %q: max_speed must be positive", ErrInvalidHorse, h.ID)
	case h.MaxAcceleration <= 0:
		return fmt.Errorf("%w %q: max_acceleration must be positive", ErrInvalidHorse, h.ID)
	case h.MaxStamina <= 0:
		return fmt.Errorf("%w %q: stamina must be positive", ErrInvalidHorse, h.ID)
	case h.Jitter < 0 || h.Jitter >= 1:
		return fmt.Errorf("%w %q: jitter must be in [0, 1)", ErrInvalidHorse, h.ID)
	}
	return nil
}

// SimHorse is a Horse enriched with live race state. Only its own update step
// mutates it; other horses see it through Snapshot.
type SimHorse struct {
	Horse
	Pos          geom.Vector2D `json:"pos"`
	Heading      float64       `json:"heading"` // radians
	Speed        float64       `json:"speed"`
	Acceleration float64       `json:"acceleration"`
	Stamina      float64       `json:"stamina_left"`
	Lane         int           `json:"lane"`
	Segment      int           `json:"segment"`
	Lap          int           `json:"lap"`
	Progress     float64       `json:"progress"` // loop progress in [0, 1)
	Distance     float64       `json:"distance"`
	RiskLevel    float64       `json:"risk_level"`
	Rank         int           `json:"rank"`
	Finished     bool          `json:"finished"`
	FinishTick   int           `json:"finish_tick,omitempty"`
	Behavior     BehaviorState `json:"behavior"`
	Mode         DrivingMode   `json:"mode"`
	Halted       bool          `json:"halted,omitempty"`
}

// NewSimHorse places h at a gate position facing heading.
func NewSimHorse(h Horse, gate geom.Vector2D, heading float64, lane int) (*SimHorse, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &SimHorse{
		Horse:    h,
		Pos:      gate,
		Heading:  heading,
		Stamina:  h.MaxStamina,
		Lane:     lane,
		Rank:     1,
		Behavior: StateMaintainingPace,
		Mode:     ModePositioning,
	}, nil
}

// StaminaRatio returns remaining stamina as a fraction of MaxStamina.
func (s *SimHorse) StaminaRatio() float64 {
	return geom.Clamp(s.Stamina/s.MaxStamina, 0, 1)
}

// ConsumeStamina removes amount (negative amounts recover), keeping stamina
// within [0, MaxStamina].
func (s *SimHorse) ConsumeStamina(amount float64) {
	s.Stamina = geom.Clamp(s.Stamina-amount, 0, s.MaxStamina)
}

// Halt stops the horse in place.
func (s *SimHorse) Halt() {
	s.Speed = 0
	s.Acceleration = 0
	s.Halted = true
}

// UpdateTrackPosition advances the segment index past any segment end the
// horse has crossed and recomputes loop progress and total distance.
func (s *SimHorse) UpdateTrackPosition(t *track.Track) {
	seg, wrapped := t.Advance(s.Segment, s.Pos)
	if wrapped {
		s.Lap++
	}
	s.Segment = seg
	s.Progress = t.GlobalProgress(seg, s.Pos)
	s.Distance = (float64(s.Lap) + s.Progress) * t.TotalLength()
}

// Snapshot is a point-in-time, read-only view of a horse.
type Snapshot struct {
	ID           ID            `json:"horse_id"`
	Pos          geom.Vector2D `json:"pos"`
	Heading      float64       `json:"heading"`
	Speed        float64       `json:"speed"`
	Distance     float64       `json:"distance"`
	Progress     float64       `json:"progress"`
	Lane         int           `json:"lane"`
	Segment      int           `json:"segment"`
	Rank         int           `json:"rank"`
	StaminaRatio float64       `json:"stamina_ratio"`
	Finished     bool          `json:"finished"`
	Behavior     BehaviorState `json:"behavior"`
	Mode         DrivingMode   `json:"mode"`
}

// Snapshot returns the horse's current public state.
func (s *SimHorse) Snapshot() Snapshot {
	return Snapshot{
		ID:           s.ID,
		Pos:          s.Pos,
		Heading:      s.Heading,
		Speed:        s.Speed,
		Distance:     s.Distance,
		Progress:     s.Progress,
		Lane:         s.Lane,
		Segment:      s.Segment,
		Rank:         s.Rank,
		StaminaRatio: s.StaminaRatio(),
		Finished:     s.Finished,
		Behavior:     s.Behavior,
		Mode:         s.Mode,
	}
}

// Rank returns 1 + the number of snapshots with strictly greater distance.
func Rank(distance float64, field []Snapshot) int {
	rank := 1
	for _, o := range field {
		if o.Distance > distance {
			rank++
		}
	}
	return rank
}
