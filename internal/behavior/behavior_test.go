package behavior

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/perception"
)

var testRays = []float64{0, geom.Radians(45), geom.Radians(-45), geom.Radians(90), geom.Radians(-90)}

func newTestMachine() *Machine {
	return NewMachine(slog.New(slog.DiscardHandler))
}

// chasing returns a context where "rival" sits 25 units ahead and slower,
// which always qualifies for an overtake and is never passed.
func chasing(t *testing.T, tick int) *Context {
	t.Helper()
	h, err := horse.NewSimHorse(horse.Horse{ID: "chaser", MaxSpeed: 4, MaxAcceleration: 0.2, MaxStamina: 100}, geom.Vec(0, 0), 0, 3)
	require.NoError(t, err)
	h.Speed = 3

	snap := perception.Snapshot{
		Neighbors: []perception.Neighbor{
			{ID: "rival", Distance: 25, Ahead: 25, Sector: perception.SectorFront, Speed: 1},
		},
	}
	snap.Sectors[perception.SectorFront] = perception.SectorReading{Present: true, ID: "rival", Distance: 25, Speed: 1}

	return &Context{
		Tick:       tick,
		Horse:      h,
		Perception: snap,
		Analysis:   perception.Analysis{Recommended: horse.StateMaintainingPace},
		Rays:       testRays,
		Aim:        geom.Vec(10, 0),
		HasAim:     true,
	}
}

func TestOvertakingBudgetAndCooldown(t *testing.T) {
	m := newTestMachine()
	require.True(t, m.StartOvertaking("rival", chasing(t, 0)))
	require.Equal(t, horse.StateOvertaking, m.State())

	for tick := 1; tick <= 150; tick++ {
		cmd, err := m.Update(chasing(t, tick))
		require.NoError(t, err)
		require.Equal(t, horse.StateOvertaking, m.State(), "tick %d", tick)
		assert.Greater(t, cmd.SpeedFactor, 1.0)
	}

	_, err := m.Update(chasing(t, 151))
	require.NoError(t, err)
	assert.Equal(t, horse.StateMaintainingPace, m.State(), "the 151st overtaking tick exceeds the budget")

	for tick := 152; tick < 351; tick++ {
		_, err := m.Update(chasing(t, tick))
		require.NoError(t, err)
		require.Equal(t, horse.StateMaintainingPace, m.State(), "re-entered on cooldown at tick %d", tick)
	}
	assert.False(t, m.StartOvertaking("rival", chasing(t, 300)))

	_, err = m.Update(chasing(t, 351))
	require.NoError(t, err)
	assert.Equal(t, horse.StateOvertaking, m.State(), "cooldown over")
}

func TestOvertakingEndsWhenTargetPassedOrLost(t *testing.T) {
	cases := map[string]func(c *Context){
		"passed": func(c *Context) { c.Perception.Neighbors[0].Ahead = -1 },
		"lost":   func(c *Context) { c.Perception.Neighbors[0].Distance = 61 },
		"gone":   func(c *Context) { c.Perception.Neighbors = nil },
		"tired":  func(c *Context) { c.Horse.Stamina = 19 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := newTestMachine()
			require.True(t, m.StartOvertaking("rival", chasing(t, 0)))
			c := chasing(t, 1)
			mutate(c)
			_, err := m.Update(c)
			require.NoError(t, err)
			assert.Equal(t, horse.StateMaintainingPace, m.State())
			assert.False(t, m.CanEnter(horse.StateOvertaking, 2))
		})
	}
}

func TestMaintainingPaceProbesFront(t *testing.T) {
	m := newTestMachine()
	c := chasing(t, 10)
	c.Analysis.Risk = 0.4

	cmd, err := m.Update(c)
	require.NoError(t, err)
	assert.Equal(t, horse.StateOvertaking, m.State())
	// The hand-over happens after this tick's pace steering.
	assert.InDelta(t, 0.8, cmd.SpeedFactor, 1e-12)
	assert.True(t, cmd.Target.HasPoint)
	assert.Equal(t, 0.0, cmd.Target.AccelScale)

	// A faster horse ahead is not worth chasing.
	m = newTestMachine()
	c = chasing(t, 10)
	c.Perception.Sectors[perception.SectorFront].Speed = 5
	_, err = m.Update(c)
	require.NoError(t, err)
	assert.Equal(t, horse.StateMaintainingPace, m.State())
}

func TestBlockedLifecycle(t *testing.T) {
	m := newTestMachine()
	for tick := 1; tick <= 5; tick++ {
		c := chasing(t, tick)
		c.Perception.Sectors[perception.SectorFront] = perception.SectorReading{}
		c.Analysis.Recommended = horse.StateBlocked
		cmd, err := m.Update(c)
		require.NoError(t, err)
		assert.Equal(t, 0.3, cmd.Target.AccelScale)
		assert.Equal(t, 0.2, cmd.Target.HeadingBlend)
		if tick < 5 {
			assert.Equal(t, horse.StateBlocked, m.State(), "tick %d", tick)
		}
	}
	assert.Equal(t, horse.StateMaintainingPace, m.State(), "auto-revert after five frames")

	c := chasing(t, 6)
	c.Perception.Sectors[perception.SectorFront] = perception.SectorReading{}
	c.Analysis.Recommended = horse.StateBlocked
	_, err := m.Update(c)
	require.NoError(t, err)
	require.Equal(t, horse.StateBlocked, m.State())

	c = chasing(t, 7)
	c.Perception.Sectors[perception.SectorFront] = perception.SectorReading{}
	cmd, err := m.Update(c)
	require.NoError(t, err)
	assert.Equal(t, horse.StateMaintainingPace, m.State(), "reverts as soon as Blocked is no longer recommended")
	assert.Equal(t, 0.0, cmd.Target.HeadingBlend)
}

func TestNoSafeDirection(t *testing.T) {
	var hits []perception.RayHit
	for _, r := range testRays {
		hits = append(hits, perception.RayHit{Angle: r, Distance: 0.1})
	}
	_, err := SafeDirections(testRays, hits)
	assert.ErrorIs(t, err, ErrNoSafeDirection)

	c := chasing(t, 1)
	c.Perception.Hits = hits
	_, err = newTestMachine().Update(c)
	assert.ErrorIs(t, err, ErrNoSafeDirection)

	safe, err := SafeDirections(testRays, hits[1:])
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, safe)
}

func TestSelectMode(t *testing.T) {
	cases := []struct {
		name    string
		current horse.DrivingMode
		in      ModeInput
		want    horse.DrivingMode
	}{
		{"start", horse.ModePositioning, ModeInput{Progress: 0.1, StaminaRatio: 1, Rank: 1, FieldSize: 8, Gap: math.Inf(1)}, horse.ModePositioning},
		{"cruise", horse.ModePositioning, ModeInput{Progress: 0.5, StaminaRatio: 0.9, Rank: 2, FieldSize: 8, Gap: 20}, horse.ModeMaintainingPace},
		{"crowded", horse.ModeMaintainingPace, ModeInput{Progress: 0.5, StaminaRatio: 0.9, Rank: 2, FieldSize: 8, Gap: 5}, horse.ModePositioning},
		{"chasing", horse.ModeMaintainingPace, ModeInput{Progress: 0.5, StaminaRatio: 0.9, Rank: 7, FieldSize: 8, Gap: 20}, horse.ModeOvertaking},
		{"overtaking state", horse.ModeMaintainingPace, ModeInput{Progress: 0.5, StaminaRatio: 0.5, Rank: 2, FieldSize: 8, Gap: 20, Behavior: horse.StateOvertaking}, horse.ModeOvertaking},
		{"spurt", horse.ModeMaintainingPace, ModeInput{Progress: 0.9, StaminaRatio: 0.5, Rank: 2, FieldSize: 8, Gap: 20}, horse.ModeLastSpurt},
		{"exhausted", horse.ModeMaintainingPace, ModeInput{Progress: 0.5, StaminaRatio: 0.1, Rank: 2, FieldSize: 8, Gap: 20}, horse.ModeConserving},
		{"spurt holds", horse.ModeLastSpurt, ModeInput{Progress: 0.95, StaminaRatio: 0.2, Rank: 2, FieldSize: 8, Gap: 5}, horse.ModeLastSpurt},
		{"spurt spent", horse.ModeLastSpurt, ModeInput{Progress: 0.95, StaminaRatio: 0.1, Rank: 2, FieldSize: 8, Gap: 20}, horse.ModeConserving},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectMode(tc.current, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLastSpurtOnlyYieldsToConserving(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	behaviors := []horse.BehaviorState{horse.StateMaintainingPace, horse.StateOvertaking, horse.StateBlocked}

	mode := horse.ModePositioning
	for i := 0; i < 5000; i++ {
		in := ModeInput{
			Progress:     rng.Float64(),
			Rank:         1 + rng.IntN(8),
			FieldSize:    8,
			Gap:          rng.Float64() * 50,
			StaminaRatio: rng.Float64(),
			Behavior:     behaviors[rng.IntN(len(behaviors))],
		}
		next, err := SelectMode(mode, in)
		require.NoError(t, err)
		if mode == horse.ModeLastSpurt {
			require.Contains(t, []horse.DrivingMode{horse.ModeLastSpurt, horse.ModeConserving}, next, "step %d", i)
		}
		mode = next
	}
}

func TestSelectModeUnknownCurrent(t *testing.T) {
	_, err := SelectMode("sprinting", ModeInput{})
	assert.ErrorIs(t, err, ErrNoDrivingMode)
}

func TestSpeedEnvelope(t *testing.T) {
	assert.Equal(t, 0.2, ObstructionCap(7.9))
	assert.Equal(t, 0.3, ObstructionCap(8))
	assert.Equal(t, 0.6, ObstructionCap(29))
	assert.Equal(t, 1.0, ObstructionCap(math.Inf(1)))

	assert.InDelta(t, 4*0.65, SpeedCap(4, horse.ModeConserving, 1, math.Inf(1), 1), 1e-12)
	assert.InDelta(t, 4*0.2, SpeedCap(4, horse.ModeLastSpurt, 1, 5, 1), 1e-12)
	assert.InDelta(t, 2, SpeedCap(4, horse.ModeLastSpurt, 1, math.Inf(1), 0), 1e-12)

	e, ok := EnvelopeOf(horse.ModeLastSpurt)
	require.True(t, ok)
	assert.Equal(t, Envelope{Speed: 1, Stamina: 2}, e)
	assert.Equal(t, []horse.DrivingMode{horse.ModeLastSpurt, horse.ModeConserving}, Allowed(horse.ModeLastSpurt))
}

func TestStaminaCost(t *testing.T) {
	assert.InDelta(t, 0.05*0.5*2, StaminaCost(horse.ModeLastSpurt, 2, 4), 1e-12)
	assert.InDelta(t, 0.05*0.5*0.7-0.02, StaminaCost(horse.ModeConserving, 2, 4), 1e-12)
	assert.Less(t, StaminaCost(horse.ModeConserving, 0, 4), 0.0, "standing still recovers")
}
