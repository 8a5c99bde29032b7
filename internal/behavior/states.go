package behavior

import (
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/kinematics"
	"github.com/cxd309/race-engine/internal/perception"
)

const (
	overtakeProbeRange   = 30.0
	overtakeLoseRange    = 60.0
	overtakeTickBudget   = 150
	overtakeCooldown     = 200
	overtakeMinStamina   = 20.0
	overtakeSpeedBoost   = 1.1
	overtakeAccelBoost   = 1.2
	blockedFrames        = 5
	blockedAccelScale    = 0.3
	blockedHeadingBlend  = 0.2
	paceRiskSpeedPenalty = 0.5
)

// pace is the MaintainingPace command: follow the plan with a speed target
// lowered by risk.
func pace(c *Context) Command {
	return Command{
		Target:      kinematics.Target{Point: c.Aim, HasPoint: c.HasAim},
		SpeedFactor: 1 - paceRiskSpeedPenalty*c.Analysis.Risk,
	}
}

type maintaining struct{}

func (maintaining) Name() horse.BehaviorState { return horse.StateMaintainingPace }
func (maintaining) Enter(*Machine, *Context)  {}
func (maintaining) Exit(*Machine, *Context)   {}

// Execute steers at pace and, when a closable horse is ahead and Overtaking
// is off cooldown, hands over to Overtaking after this tick's move.
func (maintaining) Execute(m *Machine, c *Context) (Command, State) {
	cmd := pace(c)
	front := c.Perception.Sector(perception.SectorFront)
	if !front.Present || front.Distance > overtakeProbeRange || c.Horse.Stamina < overtakeMinStamina {
		return cmd, nil
	}
	closing := c.Horse.Speed - front.Speed
	if closing <= 0 && c.Analysis.Recommended != horse.StateOvertaking {
		return cmd, nil
	}
	if !m.CanEnter(horse.StateOvertaking, c.Tick) {
		return cmd, nil
	}
	return cmd, &overtaking{target: front.ID}
}

type overtaking struct {
	target horse.ID
	ticks  int
}

func (*overtaking) Name() horse.BehaviorState { return horse.StateOvertaking }

func (o *overtaking) Enter(*Machine, *Context) { o.ticks = 0 }

func (o *overtaking) Exit(m *Machine, c *Context) {
	m.cooldown(horse.StateOvertaking, c.Tick, overtakeCooldown)
}

func (o *overtaking) Execute(_ *Machine, c *Context) (Command, State) {
	o.ticks++
	if o.done(c) {
		return pace(c), maintaining{}
	}
	return Command{
		Target: kinematics.Target{
			Point:      c.Aim,
			HasPoint:   c.HasAim,
			AccelScale: overtakeAccelBoost,
		},
		SpeedFactor: overtakeSpeedBoost,
	}, nil
}

// done reports whether the overtake is over: out of time, out of stamina,
// target passed, or target lost.
func (o *overtaking) done(c *Context) bool {
	if o.ticks > overtakeTickBudget || c.Horse.Stamina < overtakeMinStamina {
		return true
	}
	for _, n := range c.Perception.Neighbors {
		if n.ID == o.target {
			return n.Ahead < 0 || n.Distance > overtakeLoseRange
		}
	}
	return true
}

type blocked struct {
	frames int
}

func (*blocked) Name() horse.BehaviorState  { return horse.StateBlocked }
func (b *blocked) Enter(*Machine, *Context) { b.frames = 0 }
func (*blocked) Exit(*Machine, *Context)    {}

func (b *blocked) Execute(_ *Machine, c *Context) (Command, State) {
	if c.Analysis.Recommended != horse.StateBlocked {
		return pace(c), maintaining{}
	}
	b.frames++
	cmd := Command{
		Target: kinematics.Target{
			Point:        c.Aim,
			HasPoint:     c.HasAim,
			AccelScale:   blockedAccelScale,
			HeadingBlend: blockedHeadingBlend,
		},
		SpeedFactor: 1,
	}
	if b.frames >= blockedFrames {
		return cmd, maintaining{}
	}
	return cmd, nil
}
