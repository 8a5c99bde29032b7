package track

import (
	"fmt"
	"math"

	"github.com/cxd309/race-engine/internal/geom"
)

// centrifugalFactor scales speed²/radius into the outward course effect.
const centrifugalFactor = 0.18

// Corner is a circular arc. Angle is the signed sweep: positive turns left
// (counter-clockwise), negative turns right.
type Corner struct {
	start, end   geom.Vector2D
	center       geom.Vector2D
	radius       float64
	angle        float64
	startAngle   float64 // polar angle of start around center, [0, 2π)
	endAngle     float64 // polar angle of end around center, [0, 2π)
	startHeading float64
	length       float64
}

// NewCorner builds an arc that leaves start along startHeading and sweeps the
// signed angle (radians) around a circle of the given radius.
func NewCorner(start geom.Vector2D, startHeading, radius, angle float64) (*Corner, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: corner radius %v", ErrInvalidSegment, radius)
	}
	if math.Abs(angle) < geom.Epsilon || math.Abs(angle) > geom.TwoPi {
		return nil, fmt.Errorf("%w: corner sweep %v rad", ErrInvalidSegment, angle)
	}
	sign := math.Copysign(1, angle)
	center := start.Add(geom.FromAngle(startHeading).Perp().Scale(radius * sign))
	startAngle := geom.NormalizeAngle(start.Sub(center).Angle())
	endAngle := geom.NormalizeAngle(startAngle + angle)
	return &Corner{
		start:        start,
		end:          center.Add(geom.FromAngle(endAngle).Scale(radius)),
		center:       center,
		radius:       radius,
		angle:        angle,
		startAngle:   startAngle,
		endAngle:     endAngle,
		startHeading: startHeading,
		length:       math.Abs(radius * angle),
	}, nil
}

func (c *Corner) Type() SegmentType     { return SegmentCorner }
func (c *Corner) Start() geom.Vector2D  { return c.start }
func (c *Corner) End() geom.Vector2D    { return c.end }
func (c *Corner) Length() float64       { return c.length }
func (c *Corner) StartHeading() float64 { return c.startHeading }
func (c *Corner) EndHeading() float64   { return c.startHeading + c.angle }

func (c *Corner) Center() geom.Vector2D { return c.center }
func (c *Corner) Radius() float64       { return c.radius }
func (c *Corner) Angle() float64        { return c.angle }
func (c *Corner) StartAngle() float64   { return c.startAngle }
func (c *Corner) EndAngle() float64     { return c.endAngle }

func (c *Corner) sign() float64 { return math.Copysign(1, c.angle) }

// radial returns the unit vector from the center toward pos. At the center it
// falls back to the start direction.
func (c *Corner) radial(pos geom.Vector2D) geom.Vector2D {
	r := pos.Sub(c.center).Normalize()
	if r.IsZero() {
		return geom.FromAngle(c.startAngle)
	}
	return r
}

func (c *Corner) TangentAt(pos geom.Vector2D) geom.Vector2D {
	return c.radial(pos).Perp().Scale(c.sign())
}

func (c *Corner) OrthoAt(pos geom.Vector2D) geom.Vector2D {
	return c.TangentAt(pos).Perp()
}

// swept returns the angle consumed from startAngle to pos in the direction of
// travel, in [0, 2π).
func (c *Corner) swept(pos geom.Vector2D) float64 {
	theta := pos.Sub(c.center).Angle()
	if c.angle > 0 {
		return geom.NormalizeAngle(theta - c.startAngle)
	}
	return geom.NormalizeAngle(c.startAngle - theta)
}

// ProgressAt returns the fraction of the sweep consumed at pos, clamped into
// [0, 1]. Points outside the angular span snap to the nearer end.
func (c *Corner) ProgressAt(pos geom.Vector2D) float64 {
	span := math.Abs(c.angle)
	s := c.swept(pos)
	if s > span {
		if geom.TwoPi-s < s-span {
			return 0
		}
		return 1
	}
	return geom.Clamp(s/span, 0, 1)
}

func (c *Corner) OffsetAt(pos geom.Vector2D) float64 {
	return (pos.Distance(c.center) - c.radius) * -c.sign()
}

func (c *Corner) PointAt(t, offset float64) geom.Vector2D {
	r := c.radius - c.sign()*offset
	return c.center.Add(geom.FromAngle(c.startAngle + c.angle*t).Scale(r))
}

func (c *Corner) IsEndAt(pos geom.Vector2D, tolerance float64) bool {
	return isEndByProgress(c, pos, tolerance)
}

// RaycastBoundary intersects the ray with the arc concentric to the rail at
// widthOffset, restricted to the corner's angular span. The nearer valid root
// wins.
func (c *Corner) RaycastBoundary(origin, dir geom.Vector2D, widthOffset float64) (geom.Vector2D, bool) {
	r := c.radius - c.sign()*widthOffset
	if r <= 0 {
		return geom.Vector2D{}, false
	}
	ray := geom.Ray{Origin: origin, Dir: dir.Normalize()}
	roots, n := ray.IntersectCircle(c.center, r)
	span := math.Abs(c.angle)
	for i := 0; i < n; i++ {
		p := ray.At(roots[i])
		if c.swept(p) <= span+geom.Epsilon {
			return p, true
		}
	}
	return geom.Vector2D{}, false
}

// CourseEffect returns the centrifugal push at pos: magnitude
// 0.18·speed²/radius, directed away from the center.
func (c *Corner) CourseEffect(pos geom.Vector2D, speed float64) geom.Vector2D {
	return c.radial(pos).Scale(centrifugalFactor * speed * speed / c.radius)
}

// IsInner reports whether pos lies outside the arc radius, the side the
// overtaking logic treats as the passing lane.
func (c *Corner) IsInner(pos geom.Vector2D) bool {
	return pos.Distance(c.center) > c.radius
}
