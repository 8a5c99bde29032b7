package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cxd309/race-engine/internal/config"
	"github.com/cxd309/race-engine/internal/engine"
	"github.com/cxd309/race-engine/internal/format"
)

var runFlags struct {
	ticks  int
	seed   uint64
	output string
	table  string
	field  bool
}

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Run a race and print the standings or the full race log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRace,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.ticks, "ticks", 0, "Override max_ticks from the config")
	f.Uint64Var(&runFlags.seed, "seed", 0, "Override the jitter seed from the config")
	f.StringVar(&runFlags.output, "output", "table", "Output: table (standings) or json (full race log)")
	f.StringVar(&runFlags.table, "table-mode", "ascii", "Table rendering: ascii or markdown")
	f.BoolVar(&runFlags.field, "field", false, "Also print the field as of the last tick")
}

func runRace(cmd *cobra.Command, args []string) error {
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if runFlags.ticks > 0 {
		input.Meta.MaxTicks = runFlags.ticks
	}
	if cmd.Flags().Changed("seed") {
		input.Meta.Seed = runFlags.seed
	}

	race, err := engine.NewRace(input)
	if err != nil {
		return fmt.Errorf("create race: %w", err)
	}
	raceLog, err := race.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run race: %w", err)
	}

	out := cmd.OutOrStdout()
	switch runFlags.output {
	case "json":
		return json.NewEncoder(out).Encode(raceLog)
	case "table":
		mode, err := format.ParseMode(runFlags.table)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Race %s: %d ticks\n", raceLog.Meta.RaceID, race.Tick())
		fmt.Fprintln(out, format.Standings(raceLog.Results, mode))
		if runFlags.field && len(raceLog.Output) > 0 {
			fmt.Fprintln(out, format.Field(raceLog.Output[len(raceLog.Output)-1], mode))
		}
		return nil
	default:
		return fmt.Errorf("unknown output %q", runFlags.output)
	}
}

func readInput(cmd *cobra.Command, args []string) (engine.RaceInput, error) {
	if len(args) == 1 {
		return config.LoadFromPath(args[0])
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return engine.RaceInput{}, fmt.Errorf("read stdin: %w", err)
	}
	return config.Load(data, "")
}
