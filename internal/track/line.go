package track

import (
	"fmt"
	"math"

	"github.com/cxd309/race-engine/internal/geom"
)

// Line is a straight segment. Its tangent is constant along its length.
type Line struct {
	start, end geom.Vector2D
	dir        geom.Vector2D // unit start→end
	length     float64
}

// NewLine builds a straight segment from start to end.
func NewLine(start, end geom.Vector2D) (*Line, error) {
	l := end.Sub(start).Length()
	if l < geom.Epsilon || !start.IsFinite() || !end.IsFinite() {
		return nil, fmt.Errorf("%w: line from %v to %v has no length", ErrInvalidSegment, start, end)
	}
	return &Line{start: start, end: end, dir: end.Sub(start).Normalize(), length: l}, nil
}

func (l *Line) Type() SegmentType     { return SegmentLine }
func (l *Line) Start() geom.Vector2D  { return l.start }
func (l *Line) End() geom.Vector2D    { return l.end }
func (l *Line) Length() float64       { return l.length }
func (l *Line) StartHeading() float64 { return l.dir.Angle() }
func (l *Line) EndHeading() float64   { return l.dir.Angle() }

func (l *Line) TangentAt(geom.Vector2D) geom.Vector2D { return l.dir }
func (l *Line) OrthoAt(geom.Vector2D) geom.Vector2D   { return l.dir.Perp() }

// ProgressAt projects pos onto start→end. It is clamped at 0 but not at 1, so
// callers can detect overrun past the end.
func (l *Line) ProgressAt(pos geom.Vector2D) float64 {
	p := pos.Sub(l.start).Dot(l.dir) / l.length
	return math.Max(0, p)
}

func (l *Line) OffsetAt(pos geom.Vector2D) float64 {
	return pos.Sub(l.start).Dot(l.dir.Perp())
}

func (l *Line) PointAt(t, offset float64) geom.Vector2D {
	return l.start.Add(l.dir.Scale(l.length * t)).Add(l.dir.Perp().Scale(offset))
}

func (l *Line) IsEndAt(pos geom.Vector2D, tolerance float64) bool {
	return isEndByProgress(l, pos, tolerance)
}

// RaycastBoundary intersects the ray with the rail shifted by widthOffset
// along the ortho vector, limited to the segment's extent.
func (l *Line) RaycastBoundary(origin, dir geom.Vector2D, widthOffset float64) (geom.Vector2D, bool) {
	shift := l.dir.Perp().Scale(widthOffset)
	r := geom.Ray{Origin: origin, Dir: dir.Normalize()}
	t, ok := r.IntersectSegment(l.start.Add(shift), l.end.Add(shift))
	if !ok {
		return geom.Vector2D{}, false
	}
	return r.At(t), true
}

// CourseEffect is zero on a straight.
func (l *Line) CourseEffect(geom.Vector2D, float64) geom.Vector2D { return geom.Vector2D{} }
