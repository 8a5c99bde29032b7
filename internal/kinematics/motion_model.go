// Package kinematics turns steering decisions into motion: the MotionModel
// envelope of a runner, the ray-cast risk weight, the heading blend and the
// per-tick integrator.
//
// Adding a new physics model only requires implementing MotionModel; the
// integrator and the race engine never need to change.
package kinematics

// MotionModel is the speed/acceleration contract every runner model satisfies.
// Distances are in track units and time in ticks.
type MotionModel interface {
	// VMax returns the runner's top speed (units per tick).
	VMax() float64

	// AMax returns the runner's maximum acceleration magnitude (units per tick²).
	AMax() float64

	// Step applies accel to v for one tick and clamps the result into
	// [0, min(VMax, vCap)]. A non-positive vCap means no extra cap.
	Step(v, accel, vCap float64) float64
}
