package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cxd309/race-engine/internal/config"
)

var initFlags struct {
	out    string
	format string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the stock eight-horse oval config",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVarP(&initFlags.out, "out", "o", "", "Write to this file instead of stdout; format follows its extension")
	f.StringVar(&initFlags.format, "format", "yaml", "Format when writing to stdout: yaml or json")
}

func runInit(cmd *cobra.Command, _ []string) error {
	ext := "." + initFlags.format
	if initFlags.out != "" {
		ext = filepath.Ext(initFlags.out)
	}
	data, err := config.Marshal(config.Default(), ext)
	if err != nil {
		return err
	}
	if initFlags.out == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(initFlags.out, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initFlags.out)
	return nil
}
