package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hbenedek/dial-a-ride/sim/workload"
)

var (
	generateSpecPath string
	generateOutput   string
	generateSeed     int64
)

// generateCmd writes a random instance in Cordeau format
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random DARP instance in Cordeau format",
	Run: func(cmd *cobra.Command, args []string) {
		if generateSpecPath == "" {
			logrus.Fatalf("--spec is required")
		}
		spec, err := workload.LoadGeneratorSpec(generateSpecPath)
		if err != nil {
			logrus.Fatalf("Failed to load generator spec: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			spec.Seed = generateSeed
		}

		var out io.Writer = os.Stdout
		if generateOutput != "" {
			f, err := os.Create(generateOutput)
			if err != nil {
				logrus.Fatalf("Failed to create output file: %v", err)
			}
			defer f.Close()
			out = f
		}
		if err := writeGenerated(out, spec); err != nil {
			logrus.Fatalf("Generation failed: %v", err)
		}
		if generateOutput != "" {
			logrus.Infof("Wrote %d requests to %s", spec.NbRequests, generateOutput)
		}
	},
}

// writeGenerated generates an instance from spec and writes it with the
// spec's time end as depot horizon.
func writeGenerated(w io.Writer, spec *workload.GeneratorSpec) error {
	inst, err := workload.Generate(spec)
	if err != nil {
		return fmt.Errorf("generating instance: %w", err)
	}
	return workload.WriteCordeau(w, inst, spec.TimeEnd)
}

func init() {
	generateCmd.Flags().StringVar(&generateSpecPath, "spec", "", "Path to a YAML generator spec (required)")
	generateCmd.Flags().StringVar(&generateOutput, "output", "", "Output file (default stdout)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Override the spec's seed")
	rootCmd.AddCommand(generateCmd)
}
