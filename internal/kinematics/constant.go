package kinematics

import "math"

// ConstantModelName is the discriminator string for the Constant model.
const ConstantModelName = "constant"

// ConstantAcceleration implements MotionModel with a fixed top speed and a
// fixed acceleration bound. This is the default and simplest model.
type ConstantAcceleration struct {
	AAcc    float64 `json:"a_acc" yaml:"a_acc"` // units per tick²
	VMaxVal float64 `json:"v_max" yaml:"v_max"` // units per tick
}

func (c ConstantAcceleration) VMax() float64 { return c.VMaxVal }
func (c ConstantAcceleration) AMax() float64 { return c.AAcc }

func (c ConstantAcceleration) Step(v, accel, vCap float64) float64 {
	limit := c.VMaxVal
	if vCap > 0 && vCap < limit {
		limit = vCap
	}
	return math.Max(0, math.Min(v+accel, limit))
}
