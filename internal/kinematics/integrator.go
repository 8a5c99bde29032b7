package kinematics

import (
	"math"

	"github.com/cxd309/race-engine/internal/geom"
)

const (
	safeDistanceFactor = 1.5 // safe distance = speed × 1.5
	riskRangeFactor    = 1.2 // a ray contributes risk inside 1.2 × safe distance

	lowRisk  = 0.3
	highRisk = 0.7

	lowRiskTangentBlend  = 0.3
	lowRiskFarBlend      = 0.2
	midRiskTangentBlend  = 0.7
	fullThrottleRiskBand = 0.2
)

// SafeDistance returns the clearance a runner wants at the given speed.
func SafeDistance(speed float64) float64 { return speed * safeDistanceFactor }

// RiskTerm returns one ray's contribution max(0, 1 − hit/(1.2 × safe)),
// clamped into [0, 1]. A missing hit (+Inf) contributes nothing.
func RiskTerm(hit, safe float64) float64 {
	if safe <= 0 {
		if hit <= 0 {
			return 1
		}
		return 0
	}
	return geom.Clamp(1-hit/(riskRangeFactor*safe), 0, 1)
}

// RiskWeight sums the closest and farthest ray terms at speed and clamps the
// result into [0, 1].
func RiskWeight(closest, farthest, speed float64) float64 {
	safe := SafeDistance(speed)
	return geom.Clamp(RiskTerm(closest, safe)+RiskTerm(farthest, safe), 0, 1)
}

// Sensing is the slice of perception the integrator needs.
type Sensing struct {
	Closest  float64 // nearest boundary hit distance; +Inf when nothing was hit
	Farthest float64 // farthest boundary hit distance; +Inf when nothing was hit

	TrackTangent float64 // heading of the track tangent at the runner
	FarTangent   float64 // heading of the track tangent at the farthest hit
	HasFarHit    bool
}

// Target is what the active behavior state asks of the integrator this tick.
type Target struct {
	Point    geom.Vector2D
	HasPoint bool

	// SpeedCap bounds speed for this tick on top of VMax; 0 means no cap.
	SpeedCap float64
	// AccelScale scales the computed acceleration; 0 means 1.
	AccelScale float64
	// HeadingBlend, when in (0, 1), turns only that fraction of the way from
	// the current heading toward the computed heading.
	HeadingBlend float64
}

// State is the kinematic part of a runner.
type State struct {
	Pos     geom.Vector2D
	Heading float64
	Speed   float64
}

// Result is the outcome of one integration step.
type Result struct {
	State
	Acceleration float64
	Risk         float64
	Displacement geom.Vector2D
}

// TargetHeading blends the heading toward the target point with the track
// tangent according to risk: below 0.3 it also leans 20% toward the tangent
// at the farthest ray hit, below 0.7 it is 70% tangent, above that it is the
// pure tangent.
func TargetHeading(pos geom.Vector2D, risk float64, s Sensing, tgt Target) float64 {
	aim := s.TrackTangent
	if tgt.HasPoint {
		if d := tgt.Point.Sub(pos); !d.IsZero() {
			aim = d.Angle()
		}
	}
	switch {
	case risk < lowRisk:
		h := geom.BlendAngle(aim, s.TrackTangent, lowRiskTangentBlend)
		if s.HasFarHit {
			h = geom.BlendAngle(h, s.FarTangent, lowRiskFarBlend)
		}
		return h
	case risk < highRisk:
		return geom.BlendAngle(aim, s.TrackTangent, midRiskTangentBlend)
	default:
		return s.TrackTangent
	}
}

// Acceleration maps risk onto an acceleration: braking at −aMax×risk above
// 0.7, full aMax below 0.2, and aMax×(1−risk) in between.
func Acceleration(risk, aMax float64) float64 {
	switch {
	case risk > highRisk:
		return -aMax * risk
	case risk < fullThrottleRiskBand:
		return aMax
	default:
		return aMax * (1 - risk)
	}
}

// Integrate advances st by one tick. The runner moves speed units along the
// chosen heading, which then becomes its stored heading.
func Integrate(m MotionModel, st State, s Sensing, tgt Target) Result {
	risk := RiskWeight(s.Closest, s.Farthest, st.Speed)

	heading := TargetHeading(st.Pos, risk, s, tgt)
	if tgt.HeadingBlend > 0 && tgt.HeadingBlend < 1 {
		heading = geom.BlendAngle(st.Heading, heading, tgt.HeadingBlend)
	}

	accel := Acceleration(risk, m.AMax())
	if tgt.AccelScale > 0 {
		accel *= tgt.AccelScale
	}
	speed := m.Step(st.Speed, accel, tgt.SpeedCap)

	disp := geom.FromAngle(heading).Scale(speed)
	return Result{
		State: State{
			Pos:     st.Pos.Add(disp),
			Heading: math.Atan2(math.Sin(heading), math.Cos(heading)),
			Speed:   speed,
		},
		Acceleration: accel,
		Risk:         risk,
		Displacement: disp,
	}
}
