// Package track models the race course: an ordered, closed loop of straight
// and curved segments with progress, tangent and boundary ray-cast queries.
//
// Each segment's own geometry is the inner rail. Lateral offsets are measured
// along the left-hand perpendicular of the direction of travel (OrthoAt), so
// lane 0 hugs the rail and higher lanes sit further out.
package track

import (
	"errors"

	"github.com/cxd309/race-engine/internal/geom"
)

// SegmentType classifies a segment.
type SegmentType string

const (
	SegmentLine   SegmentType = "line"
	SegmentCorner SegmentType = "corner"
)

var (
	// ErrNotClosed is returned when a pattern's last segment does not end where
	// the first one starts.
	ErrNotClosed = errors.New("track does not close")
	// ErrUnsupportedSegment is returned for an unknown segment type.
	ErrUnsupportedSegment = errors.New("unsupported segment type")
	// ErrInvalidSegment is returned for degenerate segment parameters.
	ErrInvalidSegment = errors.New("invalid segment")
)

// Segment is the capability set shared by every piece of track geometry.
// Length is fixed at construction.
type Segment interface {
	Type() SegmentType
	Start() geom.Vector2D
	End() geom.Vector2D
	Length() float64

	// StartHeading and EndHeading are the travel headings at each end, in radians.
	StartHeading() float64
	EndHeading() float64

	// TangentAt returns the unit direction of travel at the point closest to pos.
	TangentAt(pos geom.Vector2D) geom.Vector2D
	// ProgressAt returns how far along the segment pos lies, 0 at Start.
	ProgressAt(pos geom.Vector2D) float64
	// OrthoAt returns the left-hand unit perpendicular to TangentAt(pos).
	OrthoAt(pos geom.Vector2D) geom.Vector2D
	// OffsetAt returns the signed lateral distance of pos from the rail along OrthoAt.
	OffsetAt(pos geom.Vector2D) float64
	// PointAt returns the point at local progress t, offset laterally along OrthoAt.
	PointAt(t, offset float64) geom.Vector2D
	// IsEndAt reports whether pos has reached the end of the segment.
	IsEndAt(pos geom.Vector2D, tolerance float64) bool
	// RaycastBoundary intersects a ray with the boundary running parallel to the
	// rail at widthOffset. The boolean is false when the ray misses.
	RaycastBoundary(origin, dir geom.Vector2D, widthOffset float64) (geom.Vector2D, bool)
	// CourseEffect returns the lateral force the geometry exerts at pos for a
	// given speed.
	CourseEffect(pos geom.Vector2D, speed float64) geom.Vector2D
}

// endTolerance is the default distance tolerance used by IsEndAt callers.
const endTolerance = 1e-6

// isEndByProgress is shared by both segment kinds: pos has reached the end once
// the distance left along the segment is within tolerance.
func isEndByProgress(s Segment, pos geom.Vector2D, tolerance float64) bool {
	remaining := (1 - s.ProgressAt(pos)) * s.Length()
	return remaining <= tolerance
}
