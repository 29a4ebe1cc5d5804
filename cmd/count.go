package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/qresim/estimator/program"
)

var (
	programPath string // Program YAML file
	countSeed   int64  // Seed for measurement outcomes
)

// countCmd runs a program through the logical resource counter
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the logical resources of a gate-stream program",
	Run: func(cmd *cobra.Command, args []string) {
		if programPath == "" {
			logrus.Fatalf("--program is required")
		}
		var seed *int64
		if cmd.Flags().Changed("seed") {
			seed = &countSeed
		}
		if err := runCount(programPath, seed, os.Stdout); err != nil {
			logrus.Fatalf("count failed: %v", err)
		}
	},
}

// runCount prints the resource counts of the program at path as JSON. A nil
// seed uses the program's own seed.
func runCount(path string, seed *int64, w io.Writer) error {
	p, err := program.LoadProgram(path)
	if err != nil {
		return err
	}
	s := p.Seed
	if seed != nil {
		s = *seed
	}
	logrus.Infof("Counting %s (%d instructions, seed=%d)", path, len(p.Instructions), s)

	counts, err := program.Count(p, s)
	if err != nil {
		return fmt.Errorf("running %s: %w", path, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(counts)
}

func init() {
	countCmd.Flags().StringVar(&programPath, "program", "", "Path to the program YAML file")
	countCmd.Flags().Int64Var(&countSeed, "seed", 0, "Seed for measurement outcomes (default: the program's seed)")
	rootCmd.AddCommand(countCmd)
}
