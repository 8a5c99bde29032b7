package perception

import (
	"github.com/cxd309/race-engine/internal/horse"
)

// Phase is the stage of the race by progress.
type Phase string

const (
	PhaseEarly  Phase = "early"
	PhaseMiddle Phase = "middle"
	PhaseLate   Phase = "late"
	PhaseFinal  Phase = "final"
)

// PhaseOf maps race progress onto a phase: early below 25%, middle below 75%,
// late below 90%, final from there.
func PhaseOf(progress float64) Phase {
	switch {
	case progress < 0.25:
		return PhaseEarly
	case progress < 0.75:
		return PhaseMiddle
	case progress < 0.9:
		return PhaseLate
	default:
		return PhaseFinal
	}
}

const (
	wallRiskRange   = 20.0
	wallRiskWeight  = 0.5
	frontRiskRange  = 15.0
	frontRisk       = 0.3
	lowStaminaRisk  = 0.2
	lowStaminaRatio = 0.2

	overtakeFrontRange = 30.0
	overtakeLeftClear  = 20.0
	sideClearance      = 25.0

	emergencyRisk       = 0.8
	criticalStamina     = 0.1
	conserveStamina     = 0.3
	highStamina         = 0.7
	poorRank            = 5
	lateRankForOvertake = 3
	opportunityStamina  = 0.4
)

// Analysis is the per-tick situation summary derived from a Snapshot.
type Analysis struct {
	Phase        Phase
	Risk         float64
	CanOvertake  bool
	CanMoveInner bool
	CanMoveOuter bool
	Recommended  horse.BehaviorState
}

// Analyze derives phase, risk, opportunities and the recommended behavior
// state. laneCount bounds the inner/outer opportunity checks.
func Analyze(s Snapshot, laneCount int) Analysis {
	a := Analysis{Phase: PhaseOf(s.Progress)}
	a.Risk = riskOf(s)

	front := s.NearestIn(SectorFront)
	a.CanOvertake = front <= overtakeFrontRange && s.NearestIn(SectorLeft) > overtakeLeftClear
	// Lanes grow outward, so the outside is on the left of travel.
	a.CanMoveInner = s.Lane > 0 && s.NearestIn(SectorRight, SectorFrontRight) > sideClearance
	a.CanMoveOuter = s.Lane < laneCount-1 && s.NearestIn(SectorLeft, SectorFrontLeft) > sideClearance

	a.Recommended = recommend(a, s)
	return a
}

func riskOf(s Snapshot) float64 {
	risk := 0.0
	if wall := s.MinWallDistance(); wall < wallRiskRange {
		risk += (wallRiskRange - wall) / wallRiskRange * wallRiskWeight
	}
	if s.NearestIn(SectorFront) < frontRiskRange {
		risk += frontRisk
	}
	if s.StaminaRatio < lowStaminaRatio {
		risk += lowStaminaRisk
	}
	if risk > 1 {
		return 1
	}
	return risk
}

// recommend resolves the behavior state in order: emergencies, the phase
// default, stamina overrides, then overtaking opportunities.
func recommend(a Analysis, s Snapshot) horse.BehaviorState {
	if a.Risk > emergencyRisk {
		return horse.StateBlocked
	}
	if s.StaminaRatio < criticalStamina {
		return horse.StateMaintainingPace
	}

	state := horse.StateMaintainingPace
	switch a.Phase {
	case PhaseLate:
		if s.Rank > lateRankForOvertake {
			state = horse.StateOvertaking
		}
	case PhaseFinal:
		state = horse.StateOvertaking
	}

	if s.StaminaRatio < conserveStamina && a.Phase != PhaseFinal {
		state = horse.StateMaintainingPace
	} else if s.StaminaRatio > highStamina && s.Rank > poorRank && state == horse.StateMaintainingPace {
		state = horse.StateOvertaking
	}

	if s.StaminaRatio > opportunityStamina && a.Phase != PhaseEarly && a.CanOvertake {
		state = horse.StateOvertaking
	}
	return state
}
