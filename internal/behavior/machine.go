// Package behavior holds the two per-horse decision axes composed every tick:
// the persistent steering state machine (MaintainingPace, Overtaking,
// Blocked) and the driving-mode selector that sets the speed and stamina
// envelope.
package behavior

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/kinematics"
	"github.com/cxd309/race-engine/internal/perception"
)

// ErrNoSafeDirection is returned when every sensed direction is walled in.
var ErrNoSafeDirection = errors.New("no safe direction")

// Context is everything a state sees on one tick. Horse is the deciding
// horse; the rest of the field is only visible through Perception.
type Context struct {
	Tick       int
	Horse      *horse.SimHorse
	Perception perception.Snapshot
	Analysis   perception.Analysis
	Rays       []float64

	// Aim is the planned point to steer toward. Without it the horse follows
	// the track tangent.
	Aim    geom.Vector2D
	HasAim bool
}

// Command is what the active state asks of the integrator this tick.
type Command struct {
	Target kinematics.Target
	// SpeedFactor scales the driving-mode speed envelope.
	SpeedFactor float64
}

// State is one behavior state. Execute returns the tick's command and, when
// the state hands over, the next state.
type State interface {
	Name() horse.BehaviorState
	Enter(m *Machine, c *Context)
	Execute(m *Machine, c *Context) (Command, State)
	Exit(m *Machine, c *Context)
}

// Machine runs one horse's behavior states.
type Machine struct {
	current State
	// reentry holds, per state, the first tick at which it may be entered again.
	reentry map[horse.BehaviorState]int
	log     *slog.Logger
}

// NewMachine returns a machine in MaintainingPace.
func NewMachine(log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		current: maintaining{},
		reentry: make(map[horse.BehaviorState]int),
		log:     log,
	}
}

// State returns the active state's name.
func (m *Machine) State() horse.BehaviorState { return m.current.Name() }

// CanEnter reports whether s is off cooldown at tick.
func (m *Machine) CanEnter(s horse.BehaviorState, tick int) bool {
	return tick >= m.reentry[s]
}

func (m *Machine) cooldown(s horse.BehaviorState, from, ticks int) {
	m.reentry[s] = from + ticks
}

// StartOvertaking switches to Overtaking against target. It is refused while
// Overtaking is on cooldown.
func (m *Machine) StartOvertaking(target horse.ID, c *Context) bool {
	if !m.CanEnter(horse.StateOvertaking, c.Tick) {
		return false
	}
	m.transition(&overtaking{target: target}, c)
	return true
}

func (m *Machine) transition(next State, c *Context) {
	from := m.current
	from.Exit(m, c)
	m.current = next
	next.Enter(m, c)
	m.log.Debug("behavior transition",
		slog.String("horse", c.Horse.ID),
		slog.Int("tick", c.Tick),
		slog.String("from", string(from.Name())),
		slog.String("to", string(next.Name())))
}

// Update runs one tick: it enters Blocked when the analysis calls for it,
// executes the active state and applies any hand-over. A horse with no safe
// direction gets ErrNoSafeDirection and must be halted by the caller.
func (m *Machine) Update(c *Context) (Command, error) {
	if _, err := SafeDirections(c.Rays, c.Perception.Hits); err != nil {
		return Command{}, fmt.Errorf("horse %q at tick %d: %w", c.Horse.ID, c.Tick, err)
	}
	if c.Analysis.Recommended == horse.StateBlocked &&
		m.current.Name() != horse.StateBlocked && m.CanEnter(horse.StateBlocked, c.Tick) {
		m.transition(&blocked{}, c)
	}
	cmd, next := m.current.Execute(m, c)
	if next != nil {
		m.transition(next, c)
	}
	return cmd, nil
}

// MinClearance is the boundary distance a ray direction needs to count as safe.
const MinClearance = 0.25

// SafeDirections returns the ray angles whose boundary hit, if any, is
// farther than MinClearance.
func SafeDirections(rays []float64, hits []perception.RayHit) ([]float64, error) {
	blockedAt := make(map[float64]bool, len(hits))
	for _, h := range hits {
		if h.Distance <= MinClearance {
			blockedAt[h.Angle] = true
		}
	}
	var safe []float64
	for _, r := range rays {
		if !blockedAt[r] {
			safe = append(safe, r)
		}
	}
	if len(safe) == 0 {
		return nil, ErrNoSafeDirection
	}
	return safe, nil
}
