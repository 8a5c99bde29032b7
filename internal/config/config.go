// Package config loads race inputs from YAML or JSON files and provides the
// stock eight-horse oval.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cxd309/race-engine/internal/engine"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/track"
)

// ErrUnknownFormat is returned for file extensions other than YAML or JSON.
var ErrUnknownFormat = errors.New("unknown config format")

// LoadFromPath reads a race input file (YAML or JSON). Format is detected by
// extension (.yaml/.yml → YAML, .json → JSON).
func LoadFromPath(path string) (engine.RaceInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.RaceInput{}, fmt.Errorf("read race config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a race input from bytes. ext is the file extension used as a
// format hint; empty means detect from content.
func Load(data []byte, ext string) (engine.RaceInput, error) {
	var in engine.RaceInput
	switch format(data, ext) {
	case "yaml":
		if err := yaml.Unmarshal(data, &in); err != nil {
			return engine.RaceInput{}, fmt.Errorf("parse race config yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &in); err != nil {
			return engine.RaceInput{}, fmt.Errorf("parse race config json: %w", err)
		}
	default:
		return engine.RaceInput{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	return in, nil
}

// Marshal encodes in for a file with extension ext.
func Marshal(in engine.RaceInput, ext string) ([]byte, error) {
	switch format(nil, ext) {
	case "yaml":
		return yaml.Marshal(in)
	case "json":
		return json.MarshalIndent(in, "", "  ")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
}

func format(data []byte, ext string) string {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case "":
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			return "json"
		}
		return "yaml"
	default:
		return ""
	}
}

// Default returns an eight-horse race over one lap of a 1000-unit oval with
// identical runners.
func Default() engine.RaceInput {
	const length, width = 1000.0, 60.0
	straight := length / 4
	horses := make([]horse.Horse, 8)
	for i := range horses {
		horses[i] = horse.Horse{
			ID:              fmt.Sprintf("h%d", i+1),
			Name:            fmt.Sprintf("Runner %d", i+1),
			MaxSpeed:        4,
			MaxAcceleration: 0.2,
			MaxStamina:      100,
		}
	}
	return engine.RaceInput{
		Meta: engine.RaceMeta{
			RaceID:   "oval-1000",
			MaxTicks: 500,
			Seed:     1,
		},
		Track:  track.OvalPattern(straight, straight/math.Pi, width),
		Grid:   graph.DefaultConfig(),
		Horses: horses,
	}
}
