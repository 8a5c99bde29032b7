package track

import (
	"fmt"
	"math"

	"github.com/cxd309/race-engine/internal/geom"
)

// Track is an immutable closed loop of segments. Segment i covers the global
// progress range [cumulative[i], cumulative[i+1]).
type Track struct {
	segments    []Segment
	cumulative  []float64 // fraction of totalLength before each segment
	totalLength float64
	width       float64
}

// closureTolerance returns the maximum gap allowed between joined endpoints.
func closureTolerance(total float64) float64 {
	return 1e-6 * math.Max(1, total)
}

// New validates and wraps an ordered segment list. Consecutive segments must
// share endpoints and the last must end where the first starts.
func New(width float64, segments []Segment) (*Track, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidSegment)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: track width %v", ErrInvalidSegment, width)
	}

	total := 0.0
	for _, s := range segments {
		total += s.Length()
	}
	tol := closureTolerance(total)

	for i := 1; i < len(segments); i++ {
		if gap := segments[i-1].End().Distance(segments[i].Start()); gap > tol {
			return nil, fmt.Errorf("%w: segment %d ends %.6g away from segment %d", ErrNotClosed, i-1, gap, i)
		}
	}
	if gap := segments[len(segments)-1].End().Distance(segments[0].Start()); gap > tol {
		return nil, fmt.Errorf("%w: loop gap %.6g between last and first segment", ErrNotClosed, gap)
	}

	t := &Track{
		segments:    append([]Segment(nil), segments...),
		cumulative:  make([]float64, len(segments)),
		totalLength: total,
		width:       width,
	}
	acc := 0.0
	for i, s := range segments {
		t.cumulative[i] = acc / total
		acc += s.Length()
	}
	return t, nil
}

func (t *Track) TotalLength() float64 { return t.totalLength }
func (t *Track) Width() float64       { return t.width }

// SegmentCount returns the number of segments in the loop.
func (t *Track) SegmentCount() int { return len(t.segments) }

// Segment returns segment i, wrapping around the loop.
func (t *Track) Segment(i int) Segment { return t.segments[t.wrap(i)] }

// Segments returns a copy of the ordered segment list.
func (t *Track) Segments() []Segment { return append([]Segment(nil), t.segments...) }

// NextIndex returns the index of the segment after i.
func (t *Track) NextIndex(i int) int { return t.wrap(i + 1) }

// CumulativeProgress returns the global progress at which segment i starts.
func (t *Track) CumulativeProgress(i int) float64 { return t.cumulative[t.wrap(i)] }

// SegmentShare returns segment i's fraction of the total length.
func (t *Track) SegmentShare(i int) float64 { return t.Segment(i).Length() / t.totalLength }

func (t *Track) wrap(i int) int {
	n := len(t.segments)
	return ((i % n) + n) % n
}

// GlobalProgress converts a position on segment seg into loop progress in [0, 1).
func (t *Track) GlobalProgress(seg int, pos geom.Vector2D) float64 {
	s := t.Segment(seg)
	local := math.Min(s.ProgressAt(pos), 1)
	return geom.Wrap01(t.CumulativeProgress(seg) + local*t.SegmentShare(seg))
}

// SegmentAtProgress returns the index of the segment covering global progress p.
func (t *Track) SegmentAtProgress(p float64) int {
	p = geom.Wrap01(p)
	for i := len(t.cumulative) - 1; i >= 0; i-- {
		if p >= t.cumulative[i] {
			return i
		}
	}
	return 0
}

// Advance moves the segment index forward while pos sits at the end of the
// current segment. wrapped reports whether the loop start was crossed.
func (t *Track) Advance(seg int, pos geom.Vector2D) (next int, wrapped bool) {
	next = t.wrap(seg)
	for range t.segments {
		if !t.segments[next].IsEndAt(pos, endTolerance) {
			break
		}
		next = t.NextIndex(next)
		if next == 0 {
			wrapped = true
		}
	}
	return next, wrapped
}

// TrackPoints samples the rail uniformly by arc length. Each segment receives
// a share of the resolution proportional to its length.
func (t *Track) TrackPoints(resolution int) []geom.Vector2D {
	if resolution <= 0 {
		return nil
	}
	points := make([]geom.Vector2D, 0, resolution+len(t.segments))
	for i, s := range t.segments {
		n := int(math.Round(float64(resolution) * t.SegmentShare(i)))
		if n < 1 {
			n = 1
		}
		for k := 0; k < n; k++ {
			points = append(points, s.PointAt(float64(k)/float64(n), 0))
		}
	}
	return points
}
