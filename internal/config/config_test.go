package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/engine"
	"github.com/cxd309/race-engine/internal/track"
)

func TestLoadFromPathYAMLAndJSONAgree(t *testing.T) {
	fromYAML, err := LoadFromPath(filepath.Join("testdata", "sprint.yaml"))
	require.NoError(t, err)
	fromJSON, err := LoadFromPath(filepath.Join("testdata", "sprint.json"))
	require.NoError(t, err)

	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Errorf("yaml and json configs differ (-json +yaml):\n%s", diff)
	}

	assert.Equal(t, "sprint", fromYAML.Meta.RaceID)
	assert.Equal(t, uint64(42), fromYAML.Meta.Seed)
	require.Len(t, fromYAML.Track.Segments, 4)
	assert.Equal(t, track.SegmentCorner, fromYAML.Track.Segments[1].Type)
	require.Len(t, fromYAML.Horses, 2)
	assert.Equal(t, 0.05, fromYAML.Horses[1].Jitter)

	_, err = engine.NewRace(fromYAML)
	assert.NoError(t, err)
}

func TestLoadDetectsFormatFromContent(t *testing.T) {
	in, err := Load([]byte(`{"race_meta": {"race_id": "x"}}`), "")
	require.NoError(t, err)
	assert.Equal(t, "x", in.Meta.RaceID)

	in, err = Load([]byte("race_meta:\n  race_id: y\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "y", in.Meta.RaceID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("a = 1"), ".toml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load([]byte("{"), ".json")
	assert.Error(t, err)

	_, err = LoadFromPath(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultRoundTripsThroughYAML(t *testing.T) {
	def := Default()
	data, err := Marshal(def, ".yml")
	require.NoError(t, err)

	back, err := Load(data, ".yml")
	require.NoError(t, err)
	if diff := cmp.Diff(def, back); diff != "" {
		t.Errorf("default config changed in yaml (-want +got):\n%s", diff)
	}

	_, err = Marshal(def, ".ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDefaultBuildsOneThousandUnitOval(t *testing.T) {
	race, err := engine.NewRace(Default())
	require.NoError(t, err)
	assert.InDelta(t, 1000, race.Track().TotalLength(), 1e-9)
	assert.Equal(t, 10, race.Grid().LaneCount())
	assert.InDelta(t, 1000, race.Meta().RaceDistance, 1e-9)
}
