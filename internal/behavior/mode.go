package behavior

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxd309/race-engine/internal/horse"
)

// ErrNoDrivingMode is returned when no driving mode may follow the current one.
var ErrNoDrivingMode = errors.New("no driving mode available")

// Envelope is a driving mode's speed and stamina-consumption multipliers.
type Envelope struct {
	Speed   float64
	Stamina float64
}

var envelopes = map[horse.DrivingMode]Envelope{
	horse.ModeMaintainingPace: {Speed: 0.85, Stamina: 1.0},
	horse.ModeOvertaking:      {Speed: 0.95, Stamina: 1.5},
	horse.ModePositioning:     {Speed: 0.8, Stamina: 0.9},
	horse.ModeConserving:      {Speed: 0.65, Stamina: 0.7},
	horse.ModeLastSpurt:       {Speed: 1.0, Stamina: 2.0},
}

var allModes = []horse.DrivingMode{
	horse.ModeMaintainingPace,
	horse.ModeOvertaking,
	horse.ModePositioning,
	horse.ModeConserving,
	horse.ModeLastSpurt,
}

// transitions lists the modes that may follow each mode. The first entry is
// the fallback when the preferred mode is not permitted.
var transitions = map[horse.DrivingMode][]horse.DrivingMode{
	horse.ModeMaintainingPace: allModes,
	horse.ModeOvertaking:      allModes,
	horse.ModePositioning:     allModes,
	horse.ModeConserving:      allModes,
	horse.ModeLastSpurt:       {horse.ModeLastSpurt, horse.ModeConserving},
}

// EnvelopeOf returns m's multipliers.
func EnvelopeOf(m horse.DrivingMode) (Envelope, bool) {
	e, ok := envelopes[m]
	return e, ok
}

// Allowed returns the modes that may follow from.
func Allowed(from horse.DrivingMode) []horse.DrivingMode {
	return append([]horse.DrivingMode(nil), transitions[from]...)
}

const (
	spurtFrom         = 0.85
	spurtMinStamina   = 0.25
	exhaustedBelow    = 0.15
	positioningUntil  = 0.25
	crowdedGap        = 10.0
	chaseMinStamina   = 0.6
	staminaBaseCost   = 0.05
	conservingRecover = 0.02
	exhaustedSpeedCap = 0.5
)

// ModeInput is what the selector looks at.
type ModeInput struct {
	Progress     float64
	Rank         int
	FieldSize    int
	Gap          float64 // distance to the nearest horse; +Inf when alone
	StaminaRatio float64
	Behavior     horse.BehaviorState
}

// preferred picks a mode from the race situation alone.
func preferred(in ModeInput) horse.DrivingMode {
	switch {
	case in.StaminaRatio < exhaustedBelow:
		return horse.ModeConserving
	case in.Progress >= spurtFrom && in.StaminaRatio > spurtMinStamina:
		return horse.ModeLastSpurt
	case in.Behavior == horse.StateOvertaking:
		return horse.ModeOvertaking
	case in.Progress < positioningUntil || in.Gap < crowdedGap:
		return horse.ModePositioning
	case in.Rank > (in.FieldSize+1)/2 && in.StaminaRatio > chaseMinStamina:
		return horse.ModeOvertaking
	default:
		return horse.ModeMaintainingPace
	}
}

// SelectMode returns the next driving mode after current. Once LastSpurt is
// active only LastSpurt or Conserving can follow.
func SelectMode(current horse.DrivingMode, in ModeInput) (horse.DrivingMode, error) {
	allowed := transitions[current]
	if len(allowed) == 0 {
		return "", fmt.Errorf("%w after %q", ErrNoDrivingMode, current)
	}
	want := preferred(in)
	for _, m := range allowed {
		if m == want {
			return m, nil
		}
	}
	return allowed[0], nil
}

// ObstructionCap returns the fraction of max speed allowed with a horse front
// units ahead: 20% under 8, 30% under 15, 60% under 30, otherwise no cap.
func ObstructionCap(front float64) float64 {
	switch {
	case front < 8:
		return 0.2
	case front < 15:
		return 0.3
	case front < 30:
		return 0.6
	default:
		return 1
	}
}

// SpeedCap combines the mode envelope, the state's speed factor, the front
// obstruction cap and exhaustion into one speed limit.
func SpeedCap(maxSpeed float64, mode horse.DrivingMode, factor, front, staminaRatio float64) float64 {
	e, ok := envelopes[mode]
	if !ok {
		e = Envelope{Speed: 1, Stamina: 1}
	}
	limit := maxSpeed * e.Speed * factor
	limit = math.Min(limit, maxSpeed*ObstructionCap(front))
	if staminaRatio <= 0 {
		limit = math.Min(limit, maxSpeed*exhaustedSpeedCap)
	}
	return limit
}

// StaminaCost returns the stamina spent in one tick at speed: 0.05 × the
// speed fraction × the mode's multiplier, less the Conserving recovery.
func StaminaCost(mode horse.DrivingMode, speed, maxSpeed float64) float64 {
	e, ok := envelopes[mode]
	if !ok || maxSpeed <= 0 {
		return 0
	}
	cost := staminaBaseCost * speed / maxSpeed * e.Stamina
	if mode == horse.ModeConserving {
		cost -= conservingRecover
	}
	return cost
}
