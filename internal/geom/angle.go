package geom

import "math"

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// NormalizeAngle maps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		a = 0
	}
	return a
}

// AngleDiff returns the signed shortest rotation from a to b, in (-π, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(b-a, TwoPi)
	if d <= -math.Pi {
		d += TwoPi
	}
	if d > math.Pi {
		d -= TwoPi
	}
	return d
}

// BlendAngle rotates a toward b by fraction w of the shortest arc between them.
// w=0 returns a, w=1 returns b.
func BlendAngle(a, b, w float64) float64 {
	return a + AngleDiff(a, b)*w
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Wrap01 maps a fractional progress value into [0, 1).
func Wrap01(p float64) float64 {
	p = math.Mod(p, 1)
	if p < 0 {
		p++
	}
	if p >= 1 {
		p = 0
	}
	return p
}

// ForwardDelta returns how far forward (in [0, 1)) progress b lies from a on a
// circular [0, 1) axis.
func ForwardDelta(a, b float64) float64 { return Wrap01(b - a) }
