package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/track"
)

func ovalInput(n, ticks int) RaceInput {
	horses := make([]horse.Horse, n)
	for i := range horses {
		horses[i] = horse.Horse{
			ID:              fmt.Sprintf("h%d", i+1),
			MaxSpeed:        4,
			MaxAcceleration: 0.2,
			MaxStamina:      100,
		}
	}
	return RaceInput{
		Meta:   RaceMeta{RaceID: "oval", MaxTicks: ticks, Seed: 3},
		Track:  track.OvalPattern(250, 250/math.Pi, 60),
		Grid:   graph.DefaultConfig(),
		Horses: horses,
	}
}

func runRace(t *testing.T, in RaceInput) RaceLog {
	t.Helper()
	race, err := NewRace(in)
	require.NoError(t, err)
	raceLog, err := race.Run(context.Background())
	require.NoError(t, err)
	return raceLog
}

func TestEightHorseOval(t *testing.T) {
	raceLog := runRace(t, ovalInput(8, 500))
	require.NotEmpty(t, raceLog.Output)
	assert.InDelta(t, 1000, raceLog.Meta.RaceDistance, 1e-9)

	firstReached := map[horse.ID]int{}
	finishedAt := map[horse.ID]int{}
	for _, row := range raceLog.Output {
		require.Len(t, row.Horses, 8)
		for _, h := range row.Horses {
			if _, ok := firstReached[h.ID]; !ok && h.Distance >= 1000 {
				firstReached[h.ID] = row.Tick
			}
			if _, ok := finishedAt[h.ID]; !ok && h.Finished {
				finishedAt[h.ID] = row.Tick
			}
			for _, o := range row.Horses {
				if o.Distance > h.Distance {
					require.Greater(t, h.Rank, o.Rank, "tick %d: %s ranked above %s", row.Tick, h.ID, o.ID)
				}
			}
		}
	}
	assert.NotEmpty(t, finishedAt, "nobody finished a 1000-unit lap in 500 ticks")
	assert.Equal(t, firstReached, finishedAt, "finish flag set exactly at the first tick past the line")

	for _, r := range raceLog.Results {
		if r.Finished {
			assert.Equal(t, finishedAt[r.ID], r.FinishTick)
		}
		assert.Positive(t, r.Distance, r.ID)
	}
}

func TestFinishedHorsesAreFrozen(t *testing.T) {
	raceLog := runRace(t, ovalInput(4, 500))
	last := map[horse.ID]horse.Snapshot{}
	for _, row := range raceLog.Output {
		for _, h := range row.Horses {
			if prev, ok := last[h.ID]; ok && prev.Finished {
				require.Equal(t, prev.Pos, h.Pos, "%s moved after finishing", h.ID)
				require.True(t, h.Finished)
			}
			last[h.ID] = h
		}
	}
}

func TestRaceIsDeterministic(t *testing.T) {
	in := ovalInput(8, 120)
	in.Horses[2].Jitter = 0.1
	in.Horses[5].Jitter = 0.1

	first := runRace(t, in)
	in.Meta.Workers = 1
	second := runRace(t, in)
	if diff := cmp.Diff(first.Output, second.Output); diff != "" {
		t.Errorf("same seed gave different races (-first +second):\n%s", diff)
	}
}

func TestSeedChangesJitter(t *testing.T) {
	in := ovalInput(2, 1)
	in.Horses[0].Jitter = 0.2

	a, err := NewRace(in)
	require.NoError(t, err)
	in.Meta.Seed = 99
	b, err := NewRace(in)
	require.NoError(t, err)

	sa, sb := a.runners[0].h.MaxSpeed, b.runners[0].h.MaxSpeed
	assert.NotEqual(t, sa, sb)
	assert.InDelta(t, 4, sa, 0.8)
	assert.Equal(t, 4.0, a.runners[1].h.MaxSpeed, "no jitter, no change")
}

func TestNewRaceGates(t *testing.T) {
	race, err := NewRace(ovalInput(3, 0))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTicks, race.Meta().MaxTicks)
	assert.Positive(t, race.Meta().Workers)
	for i, rn := range race.runners {
		assert.Equal(t, i, rn.h.Lane)
		assert.InDelta(t, 0, rn.h.Pos.X, 1e-9)
		assert.InDelta(t, race.Grid().LaneOffset(i), rn.h.Pos.Y, 1e-9)
		assert.Equal(t, horse.ModePositioning, rn.h.Mode)
	}
}

func TestNewRaceErrors(t *testing.T) {
	extra := horse.Horse{ID: "extra", MaxSpeed: 1, MaxAcceleration: 1, MaxStamina: 1}
	cases := []struct {
		name   string
		mutate func(*RaceInput)
		want   error
	}{
		{"no horses", func(in *RaceInput) { in.Horses = nil }, ErrNoHorses},
		{"too many", func(in *RaceInput) { in.Horses = append(in.Horses, extra) }, ErrTooManyHorses},
		{"duplicate", func(in *RaceInput) { in.Horses[1].ID = "h1" }, ErrDuplicateHorse},
		{"invalid", func(in *RaceInput) { in.Horses[0].MaxSpeed = 0 }, horse.ErrInvalidHorse},
		{"open track", func(in *RaceInput) { in.Track.Segments = in.Track.Segments[:3] }, track.ErrNotClosed},
		{"bad segment", func(in *RaceInput) { in.Track.Segments[0].Type = "spiral" }, track.ErrUnsupportedSegment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := ovalInput(10, 10)
			tc.mutate(&in)
			_, err := NewRace(in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	race, err := NewRace(ovalInput(2, 100))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = race.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, race.Tick())
}

func TestResultsOrder(t *testing.T) {
	race, err := NewRace(ovalInput(3, 10))
	require.NoError(t, err)
	h1, h2, h3 := race.runners[0].h, race.runners[1].h, race.runners[2].h
	h1.Distance, h2.Distance, h3.Distance = 900, 1000, 1001
	h2.Finished, h2.FinishTick = true, 250
	h3.Finished, h3.FinishTick = true, 251

	got := race.Results()
	ids := []horse.ID{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []horse.ID{"h2", "h3", "h1"}, ids)
	assert.Equal(t, 3, got[2].Position)
}

func TestRunJSON(t *testing.T) {
	data, err := json.Marshal(ovalInput(2, 15))
	require.NoError(t, err)

	out, err := RunJSON(string(data))
	require.NoError(t, err)
	var raceLog RaceLog
	require.NoError(t, json.Unmarshal([]byte(out), &raceLog))
	assert.Len(t, raceLog.Output, 15)
	assert.Equal(t, 15, raceLog.Output[14].Tick)

	_, err = RunJSON("{")
	assert.ErrorContains(t, err, "invalid input JSON")

	_, err = RunJSON(`{"horses": []}`)
	assert.Error(t, err)
}
