// Package perception builds each horse's per-tick view of the race: boundary
// ray casts against the track, nearby horses bucketed by direction sector, and
// the race position figures (progress, rank, lane). Analyze then derives the
// situation summary that drives lane and behavior decisions.
package perception

import (
	"math"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/track"
)

// Sector is a direction bucket relative to a horse's heading.
type Sector int

const (
	SectorFront Sector = iota
	SectorFrontLeft
	SectorFrontRight
	SectorLeft
	SectorRight
	sectorCount

	// SectorBehind marks horses outside every forward/side sector.
	SectorBehind Sector = -1
)

var sectorNames = [sectorCount]string{"front", "front_left", "front_right", "left", "right"}

func (s Sector) String() string {
	if s < 0 || s >= sectorCount {
		return "behind"
	}
	return sectorNames[s]
}

// Boundary identifies which track edge a ray hit.
type Boundary string

const (
	BoundaryInner Boundary = "inner"
	BoundaryOuter Boundary = "outer"
)

// Config tunes the sensor.
type Config struct {
	// FineAvoidance adds the ±22.5° rays.
	FineAvoidance bool `json:"fine_avoidance" yaml:"fine_avoidance"`
	// SenseRange limits how far away other horses are noticed.
	SenseRange float64 `json:"sense_range" yaml:"sense_range"`
	// RaceDistance is the distance at which a horse finishes.
	RaceDistance float64 `json:"race_distance" yaml:"race_distance"`
}

// DefaultSenseRange is used when Config.SenseRange is zero.
const DefaultSenseRange = 80

var (
	baseRays = []float64{0, geom.Radians(45), geom.Radians(-45), geom.Radians(90), geom.Radians(-90)}
	fineRays = []float64{geom.Radians(22.5), geom.Radians(-22.5)}
)

// RayHit is the nearest boundary intersection along one ray.
type RayHit struct {
	Angle    float64       `json:"angle"` // relative to heading, radians
	Distance float64       `json:"distance"`
	Point    geom.Vector2D `json:"point"`
	Segment  int           `json:"segment"`
	Boundary Boundary      `json:"boundary"`
}

// Neighbor is another horse as seen from the perceiving horse.
type Neighbor struct {
	ID       horse.ID
	Pos      geom.Vector2D
	Distance float64 // Euclidean
	Ahead    float64 // race distance ahead of the perceiving horse; negative when behind
	Angle    float64 // bearing relative to heading
	Sector   Sector
	Lane     int
	Speed    float64
}

// SectorReading is the nearest horse in one sector.
type SectorReading struct {
	Present  bool
	ID       horse.ID
	Distance float64
	Lane     int
	Speed    float64
}

// Snapshot is one horse's perception for one tick.
type Snapshot struct {
	Self horse.Snapshot

	Hits     []RayHit
	Closest  RayHit
	Farthest RayHit
	HasHit   bool

	Sectors   [sectorCount]SectorReading
	Neighbors []Neighbor

	Progress     float64 // race progress, distance / race distance, clamped to 1
	Rank         int
	Lane         int
	Offset       float64 // lateral distance from the rail
	StaminaRatio float64

	Tangent      geom.Vector2D
	FarTangent   geom.Vector2D
	CourseEffect geom.Vector2D
}

// Sector returns the reading for s.
func (s Snapshot) Sector(sec Sector) SectorReading { return s.Sectors[sec] }

// MinWallDistance returns the closest boundary hit, or +Inf when no ray hit.
func (s Snapshot) MinWallDistance() float64 {
	if !s.HasHit {
		return math.Inf(1)
	}
	return s.Closest.Distance
}

// FarthestWallDistance returns the farthest boundary hit, or +Inf when no ray hit.
func (s Snapshot) FarthestWallDistance() float64 {
	if !s.HasHit {
		return math.Inf(1)
	}
	return s.Farthest.Distance
}

// Sensor casts rays against a track and scans the field.
type Sensor struct {
	track *track.Track
	grid  *graph.Grid
	cfg   Config
	rays  []float64
}

// NewSensor returns a sensor over t, using g's lane layout.
func NewSensor(t *track.Track, g *graph.Grid, cfg Config) *Sensor {
	if cfg.SenseRange <= 0 {
		cfg.SenseRange = DefaultSenseRange
	}
	if cfg.RaceDistance <= 0 {
		cfg.RaceDistance = t.TotalLength()
	}
	rays := append([]float64(nil), baseRays...)
	if cfg.FineAvoidance {
		rays = append(rays, fineRays...)
	}
	return &Sensor{track: t, grid: g, cfg: cfg, rays: rays}
}

// Rays returns the relative ray angles the sensor casts.
func (s *Sensor) Rays() []float64 { return append([]float64(nil), s.rays...) }

// RaceDistance returns the finishing distance.
func (s *Sensor) RaceDistance() float64 { return s.cfg.RaceDistance }

// Perceive builds self's snapshot from the frozen field of the previous tick.
// field may include self; it is skipped by ID.
func (s *Sensor) Perceive(self *horse.SimHorse, field []horse.Snapshot) Snapshot {
	seg := s.track.Segment(self.Segment)
	offset := seg.OffsetAt(self.Pos)
	snap := Snapshot{
		Self:         self.Snapshot(),
		Progress:     geom.Clamp(self.Distance/s.cfg.RaceDistance, 0, 1),
		Rank:         horse.Rank(self.Distance, field),
		Lane:         s.grid.LaneAt(offset),
		Offset:       offset,
		StaminaRatio: self.StaminaRatio(),
		Tangent:      seg.TangentAt(self.Pos),
		CourseEffect: seg.CourseEffect(self.Pos, self.Speed),
	}
	s.castRays(self, &snap)
	s.scanField(self, field, &snap)
	return snap
}

func (s *Sensor) castRays(self *horse.SimHorse, snap *Snapshot) {
	segs := [2]int{self.Segment, s.track.NextIndex(self.Segment)}
	boundaries := [2]struct {
		offset float64
		kind   Boundary
	}{{0, BoundaryInner}, {s.track.Width(), BoundaryOuter}}

	for _, rel := range s.rays {
		dir := geom.FromAngle(self.Heading + rel)
		best := RayHit{Angle: rel, Distance: math.Inf(1)}
		for _, si := range segs {
			seg := s.track.Segment(si)
			for _, b := range boundaries {
				p, ok := seg.RaycastBoundary(self.Pos, dir, b.offset)
				if !ok {
					continue
				}
				if d := p.Distance(self.Pos); d < best.Distance {
					best = RayHit{Angle: rel, Distance: d, Point: p, Segment: si, Boundary: b.kind}
				}
			}
		}
		if math.IsInf(best.Distance, 1) {
			continue
		}
		snap.Hits = append(snap.Hits, best)
		if !snap.HasHit || best.Distance < snap.Closest.Distance {
			snap.Closest = best
		}
		if !snap.HasHit || best.Distance > snap.Farthest.Distance {
			snap.Farthest = best
		}
		snap.HasHit = true
	}
	if snap.HasHit {
		snap.FarTangent = s.track.Segment(snap.Farthest.Segment).TangentAt(snap.Farthest.Point)
	}
}

// SectorOf buckets a bearing relative to heading. Positive bearings are to
// the left.
func SectorOf(rel float64) Sector {
	a := math.Abs(rel)
	switch {
	case a <= geom.Radians(22.5):
		return SectorFront
	case a <= geom.Radians(67.5):
		if rel > 0 {
			return SectorFrontLeft
		}
		return SectorFrontRight
	case a <= geom.Radians(135):
		if rel > 0 {
			return SectorLeft
		}
		return SectorRight
	default:
		return SectorBehind
	}
}

func (s *Sensor) scanField(self *horse.SimHorse, field []horse.Snapshot, snap *Snapshot) {
	for _, o := range field {
		if o.ID == self.ID || o.Finished {
			continue
		}
		rel := o.Pos.Sub(self.Pos)
		d := rel.Length()
		if d > s.cfg.SenseRange {
			continue
		}
		bearing := 0.0
		if d > geom.Epsilon {
			bearing = geom.AngleDiff(self.Heading, rel.Angle())
		}
		n := Neighbor{
			ID:       o.ID,
			Pos:      o.Pos,
			Distance: d,
			Ahead:    o.Distance - self.Distance,
			Angle:    bearing,
			Sector:   SectorOf(bearing),
			Lane:     o.Lane,
			Speed:    o.Speed,
		}
		snap.Neighbors = append(snap.Neighbors, n)
		if n.Sector == SectorBehind {
			continue
		}
		r := &snap.Sectors[n.Sector]
		if !r.Present || d < r.Distance {
			*r = SectorReading{Present: true, ID: o.ID, Distance: d, Lane: o.Lane, Speed: o.Speed}
		}
	}
}

// NearestIn returns the distance to the nearest horse in any of secs, or +Inf.
func (s Snapshot) NearestIn(secs ...Sector) float64 {
	best := math.Inf(1)
	for _, sec := range secs {
		if r := s.Sectors[sec]; r.Present && r.Distance < best {
			best = r.Distance
		}
	}
	return best
}
