// Package geom provides the plane geometry shared by the track, the node grid
// and the agents: vectors, angle arithmetic and ray intersection tests.
package geom

import "math"

// Epsilon is the tolerance used for degenerate-geometry checks.
const Epsilon = 1e-9

// Vector2D is a point or direction in track coordinates.
type Vector2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vec is shorthand for Vector2D{x, y}.
func Vec(x, y float64) Vector2D { return Vector2D{X: x, Y: y} }

// FromAngle returns the unit vector pointing along heading a (radians).
func FromAngle(a float64) Vector2D { return Vector2D{X: math.Cos(a), Y: math.Sin(a)} }

func (v Vector2D) Add(o Vector2D) Vector2D { return Vector2D{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vector2D) Sub(o Vector2D) Vector2D { return Vector2D{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vector2D) Scale(f float64) Vector2D {
	return Vector2D{X: v.X * f, Y: v.Y * f}
}

func (v Vector2D) Dot(o Vector2D) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vector2D) Cross(o Vector2D) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vector2D) Length() float64        { return math.Hypot(v.X, v.Y) }
func (v Vector2D) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y }

// Distance returns the Euclidean distance between v and o.
func (v Vector2D) Distance(o Vector2D) float64 { return v.Sub(o).Length() }

// Normalize returns the unit vector of v, or the zero vector if v is degenerate.
func (v Vector2D) Normalize() Vector2D {
	l := v.Length()
	if l < Epsilon {
		return Vector2D{}
	}
	return Vector2D{X: v.X / l, Y: v.Y / l}
}

// Angle returns the heading of v in radians, in (-π, π].
func (v Vector2D) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Perp returns v rotated by +90°, the left-hand perpendicular.
func (v Vector2D) Perp() Vector2D { return Vector2D{X: -v.Y, Y: v.X} }

// Rotate returns v rotated by a radians.
func (v Vector2D) Rotate(a float64) Vector2D {
	s, c := math.Sincos(a)
	return Vector2D{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// IsZero reports whether v is (numerically) the zero vector.
func (v Vector2D) IsZero() bool { return v.LengthSquared() < Epsilon*Epsilon }

// IsFinite reports whether both components are finite numbers.
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
