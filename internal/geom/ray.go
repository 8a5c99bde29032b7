package geom

import "math"

// Ray is a half-line from Origin along Dir. Dir need not be normalised, but
// distances reported by the intersection helpers are only Euclidean when it is.
type Ray struct {
	Origin Vector2D
	Dir    Vector2D
}

// IntersectSegment returns the ray parameter t ≥ 0 at which r crosses the
// segment a→b, and whether it does. Parallel segments never intersect.
func (r Ray) IntersectSegment(a, b Vector2D) (float64, bool) {
	s := b.Sub(a)
	denom := r.Dir.Cross(s)
	if math.Abs(denom) < Epsilon {
		return 0, false
	}
	ao := a.Sub(r.Origin)
	t := ao.Cross(s) / denom
	u := ao.Cross(r.Dir) / denom
	if t < 0 || u < -Epsilon || u > 1+Epsilon {
		return 0, false
	}
	return t, true
}

// IntersectCircle returns the ray parameters t ≥ 0 at which r crosses the
// circle, nearest first. The second return value is the number of valid roots.
func (r Ray) IntersectCircle(center Vector2D, radius float64) ([2]float64, int) {
	var out [2]float64
	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	if a < Epsilon {
		return out, 0
	}
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return out, 0
	}
	sq := math.Sqrt(disc)
	n := 0
	for _, t := range [2]float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t >= 0 {
			out[n] = t
			n++
		}
	}
	return out, n
}

// At returns the point at parameter t along r.
func (r Ray) At(t float64) Vector2D { return r.Origin.Add(r.Dir.Scale(t)) }
