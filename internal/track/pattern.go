package track

import (
	"fmt"
	"math"

	"github.com/cxd309/race-engine/internal/geom"
)

// SegmentSpec is one entry of a track pattern. Lines use Length; corners use
// Radius and Angle (degrees, positive turns left).
type SegmentSpec struct {
	Type   SegmentType `json:"type" yaml:"type"`
	Length float64     `json:"length,omitempty" yaml:"length,omitempty"`
	Radius float64     `json:"radius,omitempty" yaml:"radius,omitempty"`
	Angle  float64     `json:"angle,omitempty" yaml:"angle,omitempty"`
}

// Pattern is the serialisable description of a track, as produced by a track
// generator. Heading is in degrees.
type Pattern struct {
	Start    geom.Vector2D `json:"start" yaml:"start"`
	Heading  float64       `json:"heading" yaml:"heading"`
	Width    float64       `json:"width" yaml:"width"`
	Segments []SegmentSpec `json:"segments" yaml:"segments"`
}

// Build chains the pattern's segments from its start point and heading and
// returns the closed track. A pattern that does not close is a configuration
// error.
func Build(p Pattern) (*Track, error) {
	pos := p.Start
	heading := geom.Radians(p.Heading)
	segments := make([]Segment, 0, len(p.Segments))

	for i, spec := range p.Segments {
		var (
			seg Segment
			err error
		)
		switch spec.Type {
		case SegmentLine:
			seg, err = NewLine(pos, pos.Add(geom.FromAngle(heading).Scale(spec.Length)))
		case SegmentCorner:
			seg, err = NewCorner(pos, heading, spec.Radius, geom.Radians(spec.Angle))
		default:
			err = fmt.Errorf("%w %q", ErrUnsupportedSegment, spec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		segments = append(segments, seg)
		pos = seg.End()
		heading = seg.EndHeading()
	}

	return New(p.Width, segments)
}

// OvalPattern describes a clockwise oval: a straight heading east from the
// origin, a 180° right-hand corner, the back straight and a closing corner.
func OvalPattern(straight, radius, width float64) Pattern {
	return Pattern{
		Start:   geom.Vec(0, 0),
		Heading: 0,
		Width:   width,
		Segments: []SegmentSpec{
			{Type: SegmentLine, Length: straight},
			{Type: SegmentCorner, Radius: radius, Angle: -180},
			{Type: SegmentLine, Length: straight},
			{Type: SegmentCorner, Radius: radius, Angle: -180},
		},
	}
}

// Oval builds the pattern returned by OvalPattern.
func Oval(straight, radius, width float64) (*Track, error) {
	return Build(OvalPattern(straight, radius, width))
}

// OvalForLength returns an oval whose straights and corners each take a
// quarter of totalLength.
func OvalForLength(totalLength, width float64) (*Track, error) {
	straight := totalLength / 4
	return Oval(straight, straight/math.Pi, width)
}
