package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/config"
	"github.com/cxd309/race-engine/internal/engine"
)

var sprintConfig = filepath.Join("..", "..", "internal", "config", "testdata", "sprint.yaml")

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		runFlags.output, runFlags.table, runFlags.ticks, runFlags.field = "table", "ascii", 0, false
		initFlags.out, initFlags.format = "", "yaml"
		rootFlags.logLevel, rootFlags.logFormat = "warn", "text"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunPrintsStandings(t *testing.T) {
	out, err := execute(t, "", "run", sprintConfig, "--ticks", "40", "--field")
	require.NoError(t, err)
	assert.Contains(t, out, "Race sprint: 40 ticks")
	assert.Contains(t, out, "bolt")
	assert.Contains(t, out, "dash")
	assert.Contains(t, out, "0/2")
}

func TestRunJSONFromStdin(t *testing.T) {
	in := config.Default()
	in.Meta.MaxTicks = 20
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := execute(t, string(data), "run", "--output", "json")
	require.NoError(t, err)

	var raceLog engine.RaceLog
	require.NoError(t, json.Unmarshal([]byte(out), &raceLog))
	assert.Len(t, raceLog.Output, 20)
	assert.Len(t, raceLog.Results, 8)
	assert.Equal(t, "oval-1000", raceLog.Meta.RaceID)
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "", "run", sprintConfig, "--ticks", "1", "--output", "xml")
	assert.ErrorContains(t, err, "unknown output")

	_, err = execute(t, "", "run", sprintConfig, "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestInitWritesLoadableConfig(t *testing.T) {
	out, err := execute(t, "", "init")
	require.NoError(t, err)
	in, err := config.Load([]byte(out), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), in)

	path := filepath.Join(t.TempDir(), "race.json")
	out, err = execute(t, "", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
