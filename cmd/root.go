package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hbenedek/dial-a-ride/sim"
	"github.com/hbenedek/dial-a-ride/sim/policy"
	"github.com/hbenedek/dial-a-ride/sim/trace"
	"github.com/hbenedek/dial-a-ride/sim/workload"
)

// runOptions holds the raw flag values of the run command.
type runOptions struct {
	configPath        string
	seed              int64
	dataset           string
	policy            string
	episodes          int
	timeEnd           float64
	maxStep           int
	speed             float64
	trace             bool
	resultsPath       string
	size              float64
	nbRequests        int
	nbVehicles        int
	capacity          int
	maxRouteDuration  float64
	maxRideTime       float64
	windowWidth       float64
	infeasiblePenalty float64
}

var (
	logLevel string // Log verbosity level
	runOpts  runOptions
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "darp-sim",
	Short: "Discrete-event simulator for the dial-a-ride problem",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// runCmd plays episodes with a reference policy using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run DARP episodes with a reference policy",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := defaultRunConfig()
		if runOpts.configPath != "" {
			loaded, err := LoadRunConfig(runOpts.configPath)
			if err != nil {
				logrus.Fatalf("Failed to load run config: %v", err)
			}
			cfg = *loaded
		}
		cfg.applyFlags(cmd.Flags(), &runOpts)

		if err := runEpisodes(&cfg, cmd.Flags().Changed("nb-requests"), logrus.StandardLogger()); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// loadInstance resolves the episode instance and its end time from cfg.
// A dataset whose request count disagrees with an explicit --nb-requests is rejected.
func loadInstance(cfg *RunConfig, requestsPinned bool) (*sim.Instance, float64, error) {
	if cfg.Dataset == "" {
		gen := cfg.Generator
		gen.Seed = cfg.Seed
		if cfg.TimeEnd > 0 {
			gen.TimeEnd = cfg.TimeEnd
		}
		inst, err := workload.Generate(&gen)
		if err != nil {
			return nil, 0, fmt.Errorf("generating instance: %w", err)
		}
		return inst, gen.TimeEnd, nil
	}

	ds, err := workload.LoadCordeau(cfg.Dataset)
	if err != nil {
		return nil, 0, err
	}
	if requestsPinned && ds.Instance.Size().Requests != cfg.Generator.NbRequests {
		return nil, 0, fmt.Errorf("%w: --nb-requests=%d but %s holds %d requests",
			sim.ErrInstanceMismatch, cfg.Generator.NbRequests, cfg.Dataset, ds.Instance.Size().Requests)
	}
	timeEnd := ds.Horizon
	if cfg.TimeEnd > 0 {
		timeEnd = cfg.TimeEnd
	}
	return ds.Instance, timeEnd, nil
}

// policyRNG returns the stream of the n-th episode: the policy subsystem for
// the first, a dedicated episode subsystem for each later one.
func policyRNG(rng *sim.PartitionedRNG, n int) *rand.Rand {
	if n == 0 {
		return rng.ForSubsystem(sim.SubsystemPolicy)
	}
	return rng.ForSubsystem(sim.SubsystemEpisode(n))
}

// resultsFile returns where episode n of total writes its metrics.
// Single-episode runs use path unchanged.
func resultsFile(path string, n, total int) string {
	if path == "" || total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// runEpisodes plays cfg.Episodes episodes on one instance, resetting in between.
func runEpisodes(cfg *RunConfig, requestsPinned bool, logger logrus.FieldLogger) error {
	if !policy.IsValidPolicy(cfg.Policy) {
		return fmt.Errorf("unknown policy %q; valid policies: %v", cfg.Policy, policy.ValidPolicyNames())
	}
	if cfg.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", cfg.Episodes)
	}
	inst, timeEnd, err := loadInstance(cfg, requestsPinned)
	if err != nil {
		return err
	}

	simCfg := sim.NewConfig(timeEnd, cfg.MaxStep)
	simCfg.Speed = cfg.Speed
	simCfg.Penalties = cfg.Penalties
	simCfg.Trace = cfg.Trace

	runID := uuid.NewString()
	logger = logger.WithField("run", runID)
	s, err := sim.NewSimulator(inst, simCfg, logger)
	if err != nil {
		return err
	}
	size := inst.Size()
	logger.Infof("Starting %d episode(s): %d vehicles, %d requests, time end %v, policy %s, seed %d",
		cfg.Episodes, size.Vehicles, size.Requests, timeEnd, cfg.Policy, cfg.Seed)

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	for n := 0; n < cfg.Episodes; n++ {
		if n > 0 {
			if err := s.Reset(); err != nil {
				return err
			}
		}
		start := time.Now()
		metrics, err := policy.RunEpisode(s, policy.NewPolicy(cfg.Policy, policyRNG(rng, n)))
		if err != nil {
			return fmt.Errorf("episode %d: %w", n, err)
		}
		logger.WithField("episode", n).Infof("Episode finished at t=%v after %d decisions in %v",
			s.Clock, metrics.Decisions, time.Since(start))

		episodeID := fmt.Sprintf("%s/%d", runID, n)
		if err := metrics.SaveResults(episodeID, resultsFile(cfg.ResultsPath, n, cfg.Episodes)); err != nil {
			return err
		}
		if s.Trace != nil {
			summary := trace.Summarize(s.Trace)
			logger.WithField("episode", n).Infof("Trace: %d decisions (%d automatic), %d arrivals, %d infeasible pickups",
				summary.TotalDecisions, summary.AutomaticDecisions, summary.TotalArrivals, summary.InfeasiblePickups)
		}
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags defines the run command's flags on fs, bound to opts.
func registerRunFlags(fs *pflag.FlagSet, opts *runOptions) {
	defaults := defaultRunConfig()
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML run configuration; explicit flags override it")
	fs.Int64Var(&opts.seed, "seed", defaults.Seed, "Seed for instance generation and stochastic policies")
	fs.StringVar(&opts.dataset, "dataset", "", "Path to a Cordeau-format instance (replaces the generator)")
	fs.StringVar(&opts.policy, "policy", defaults.Policy, "Decision policy: "+strings.Join(policy.ValidPolicyNames(), ", "))
	fs.IntVar(&opts.episodes, "episodes", defaults.Episodes, "Number of episodes to play on the instance")
	fs.Float64Var(&opts.timeEnd, "time-end", 0, "Episode end time (0 = dataset horizon or generator time end)")
	fs.IntVar(&opts.maxStep, "max-step", defaults.MaxStep, "Decision count at which an episode terminates")
	fs.Float64Var(&opts.speed, "speed", defaults.Speed, "Vehicle speed in distance units per time unit")
	fs.BoolVar(&opts.trace, "trace", false, "Record decisions and arrivals and log a trace summary")
	fs.StringVar(&opts.resultsPath, "results-path", "", "File to write the metrics JSON to")
	fs.Float64Var(&opts.infeasiblePenalty, "infeasible-penalty", defaults.Penalties.InfeasiblePickup, "Cost added for each refused pickup")

	// Instance generator
	fs.Float64Var(&opts.size, "size", defaults.Generator.Size, "Coordinates are drawn from [-size, size]²")
	fs.IntVar(&opts.nbRequests, "nb-requests", defaults.Generator.NbRequests, "Number of requests (checked against --dataset when set)")
	fs.IntVar(&opts.nbVehicles, "nb-vehicles", defaults.Generator.NbVehicles, "Number of vehicles")
	fs.IntVar(&opts.capacity, "capacity", defaults.Generator.Capacity, "Vehicle capacity")
	fs.Float64Var(&opts.maxRouteDuration, "max-route-duration", 0, "Maximum route duration (0 = unbounded)")
	fs.Float64Var(&opts.maxRideTime, "max-ride-time", 0, "Maximum ride time (0 = unbounded)")
	fs.Float64Var(&opts.windowWidth, "window-width", 0, "Pickup window width (0 = every window spans the episode)")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerRunFlags(runCmd.Flags(), &runOpts)
	rootCmd.AddCommand(runCmd)
}
