package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hbenedek/dial-a-ride/sim"
	"github.com/hbenedek/dial-a-ride/sim/workload"
)

// RunConfig is the YAML form of the run command's parameters, loaded with --config.
// Flags explicitly set on the command line override file values.
type RunConfig struct {
	Seed        int64                  `yaml:"seed"`
	Dataset     string                 `yaml:"dataset,omitempty"` // Cordeau file; replaces the generator when set
	Policy      string                 `yaml:"policy"`
	Episodes    int                    `yaml:"episodes"`
	TimeEnd     float64                `yaml:"time_end,omitempty"` // 0 = dataset horizon or generator time_end
	MaxStep     int                    `yaml:"max_step"`
	Speed       float64                `yaml:"speed"`
	Trace       bool                   `yaml:"trace,omitempty"`
	ResultsPath string                 `yaml:"results_path,omitempty"`
	Generator   workload.GeneratorSpec `yaml:"generator"`
	Penalties   sim.Penalties          `yaml:"penalties"`
}

// defaultRunConfig returns the values used when neither a file nor a flag sets them.
func defaultRunConfig() RunConfig {
	return RunConfig{
		Seed:     42,
		Policy:   "nearest",
		Episodes: 1,
		MaxStep:  1000,
		Speed:    sim.DefaultSpeed,
		Generator: workload.GeneratorSpec{
			Size:       10,
			NbRequests: 16,
			NbVehicles: 2,
			Capacity:   3,
			TimeEnd:    1440,
		},
		Penalties: sim.DefaultPenalties(),
	}
}

// LoadRunConfig reads a run configuration file over the defaults.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := defaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyFlags copies every flag the user set explicitly into cfg.
func (cfg *RunConfig) applyFlags(flags *pflag.FlagSet, opts *runOptions) {
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("dataset") {
		cfg.Dataset = opts.dataset
	}
	if flags.Changed("policy") {
		cfg.Policy = opts.policy
	}
	if flags.Changed("episodes") {
		cfg.Episodes = opts.episodes
	}
	if flags.Changed("time-end") {
		cfg.TimeEnd = opts.timeEnd
	}
	if flags.Changed("max-step") {
		cfg.MaxStep = opts.maxStep
	}
	if flags.Changed("speed") {
		cfg.Speed = opts.speed
	}
	if flags.Changed("trace") {
		cfg.Trace = opts.trace
	}
	if flags.Changed("results-path") {
		cfg.ResultsPath = opts.resultsPath
	}
	if flags.Changed("size") {
		cfg.Generator.Size = opts.size
	}
	if flags.Changed("nb-requests") {
		cfg.Generator.NbRequests = opts.nbRequests
	}
	if flags.Changed("nb-vehicles") {
		cfg.Generator.NbVehicles = opts.nbVehicles
	}
	if flags.Changed("capacity") {
		cfg.Generator.Capacity = opts.capacity
	}
	if flags.Changed("max-route-duration") {
		cfg.Generator.MaxRouteDuration = opts.maxRouteDuration
	}
	if flags.Changed("max-ride-time") {
		cfg.Generator.MaxRideTime = opts.maxRideTime
	}
	if flags.Changed("window-width") {
		cfg.Generator.WindowWidth = opts.windowWidth
	}
	if flags.Changed("infeasible-penalty") {
		cfg.Penalties.InfeasiblePickup = opts.infeasiblePenalty
	}
}
