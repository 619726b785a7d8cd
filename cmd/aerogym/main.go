package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/flightline/aerogym/internal/analysis"
	"github.com/flightline/aerogym/internal/config"
	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/eval"
	"github.com/flightline/aerogym/internal/experiment"
	"github.com/flightline/aerogym/internal/geom"
	"github.com/flightline/aerogym/internal/metrics"
	"github.com/flightline/aerogym/internal/registry"
	"github.com/flightline/aerogym/internal/sim"
	"github.com/flightline/aerogym/internal/store"
	"github.com/flightline/aerogym/internal/task"
	"github.com/flightline/aerogym/internal/telemetry"
	"github.com/flightline/aerogym/internal/tui"
)

var (
	configFile string
	dbPath     string
	verbose    bool

	preset     string
	episodes   int
	policyName string
	seed       int64
	maxSteps   int

	listLimit int
	maWindow  int
	outPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aerogym",
		Short: "uav episode evaluation and reward shaping lab",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "aerogym.db", "run database path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [environment]",
		Short: "run a policy for a number of episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	runCmd.Flags().IntVar(&episodes, "episodes", 0, "episode count (overrides config)")
	runCmd.Flags().StringVar(&policyName, "policy", "seek", "policy: seek, random or hold")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step cap per episode (overrides environment)")

	watchCmd := &cobra.Command{
		Use:   "watch [environment]",
		Short: "watch episodes live in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchExperiment,
	}
	watchCmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	watchCmd.Flags().IntVar(&episodes, "episodes", 0, "episode count (overrides config)")
	watchCmd.Flags().StringVar(&policyName, "policy", "seek", "policy: seek, random or hold")
	watchCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	watchCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step cap per episode (overrides environment)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum rows")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the learning curve of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maWindow, "window", 5, "moving average window")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run with its episodes and metrics as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")

	envsCmd := &cobra.Command{
		Use:   "envs",
		Short: "list registered environments",
		RunE:  listEnvs,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE:  listPresets,
	}

	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, exportCmd, envsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig resolves the effective configuration: a preset or a config
// file plus environment, then flag overrides, then validation.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if preset != "" {
		if configFile != "" {
			return nil, fmt.Errorf("--preset and --config are mutually exclusive")
		}
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	} else {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	}
	if len(args) > 0 {
		cfg.Task = args[0]
	}
	if cmd.Flags().Changed("episodes") {
		cfg.Episodes = episodes
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func simConfig(cfg *config.Config) sim.Config {
	boxes := make([]sim.Box, 0, len(cfg.Sim.Obstacles))
	for _, o := range cfg.Sim.Obstacles {
		boxes = append(boxes, sim.Box{
			Min: r3.Vec{X: o.XMin, Y: o.YMin, Z: o.ZMin},
			Max: r3.Vec{X: o.XMax, Y: o.YMax, Z: o.ZMax},
		})
	}
	return sim.Config{
		StepDt:          cfg.Sim.StepDt,
		InitialPosition: r3.Vec{X: cfg.Flight.InitX, Y: cfg.Flight.InitY, Z: cfg.Flight.InitZ},
		InitialYaw:      cfg.Flight.InitYaw,
		Obstacles:       boxes,
		NoiseStd:        cfg.Sim.NoiseStd,
		Seed:            cfg.Seed,
	}
}

func taskParams(cfg *config.Config) (task.Params, error) {
	mode, err := geom.ParseDistanceMode(cfg.Goal.OrientationMode)
	if err != nil {
		return task.Params{}, err
	}
	return task.Params{
		Workspace: eval.Workspace{
			X: r1.Interval{Min: cfg.Workspace.XMin, Max: cfg.Workspace.XMax},
			Y: r1.Interval{Min: cfg.Workspace.YMin, Max: cfg.Workspace.YMax},
			Z: r1.Interval{Min: cfg.Workspace.ZMin, Max: cfg.Workspace.ZMax},
		},
		Ground:   eval.GroundLimit{MinHeight: cfg.Workspace.MinHeight},
		Attitude: eval.AttitudeLimits{MaxRoll: cfg.Attitude.MaxRoll, MaxPitch: cfg.Attitude.MaxPitch},
		Goal: eval.Goal{
			Pose: geom.Pose{
				Position:    r3.Vec{X: cfg.Goal.X, Y: cfg.Goal.Y, Z: cfg.Goal.Z},
				Orientation: quat.Number{Real: cfg.Goal.QW, Imag: cfg.Goal.QX, Jmag: cfg.Goal.QY, Kmag: cfg.Goal.QZ},
			},
			Epsilon: cfg.Goal.Epsilon,
			Mode:    mode,
		},
		Rewards: eval.RewardPolicy{
			CloserToPoint:    cfg.Rewards.CloserToPoint,
			CollisionPenalty: cfg.Rewards.CollisionPenalty,
			EndEpisodePoints: cfg.Rewards.EndEpisodePoints,
		},
		Spawn:            r3.Vec{X: cfg.Flight.InitX, Y: cfg.Flight.InitY, Z: cfg.Flight.InitZ},
		SpawnYaw:         cfg.Flight.InitYaw,
		TakeoffAltitude:  cfg.Flight.TakeoffAltitude,
		ActuationRetries: cfg.Flight.ActuationRetries,
		AckTimeout:       cfg.Flight.AckTimeout,
	}, nil
}

func actionBounds(cfg *config.Config) env.ActionBounds {
	return env.ActionBounds{
		Linear:  r1.Interval{Min: -cfg.Flight.MaxSpeed, Max: cfg.Flight.MaxSpeed},
		YawRate: r1.Interval{Min: -cfg.Flight.MaxYawRate, Max: cfg.Flight.MaxYawRate},
	}
}

// buildPolicy picks the scripted policy. Seek aims at the task's effective
// goal, which for the hover environment differs from the configured one.
func buildPolicy(cfg *config.Config, tk env.Task) (experiment.Policy, error) {
	bounds := actionBounds(cfg)
	switch policyName {
	case "seek":
		goal := r3.Vec{X: cfg.Goal.X, Y: cfg.Goal.Y, Z: cfg.Goal.Z}
		if g, ok := tk.(interface{ Goal() eval.Goal }); ok {
			goal = g.Goal().Pose.Position
		}
		return experiment.NewSeek(goal, 0.8, bounds), nil
	case "random":
		return experiment.NewRandom(cfg.Seed, bounds), nil
	case "hold":
		return experiment.NewHold(), nil
	default:
		return nil, fmt.Errorf("unknown policy: %s (want seek, random or hold)", policyName)
	}
}

func storePath(cmd *cobra.Command, cfg *config.Config) string {
	if !cmd.Flags().Changed("db") && cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return dbPath
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend := sim.New(simConfig(cfg), logger.Named("sim"))
	params, err := taskParams(cfg)
	if err != nil {
		return err
	}
	tk, spec, err := registry.New(cfg.Task, backend, params, logger.Named("task"))
	if err != nil {
		return err
	}

	pubs := []env.Publisher{telemetry.NewLogPublisher(logger.Named("telemetry"))}
	if cfg.Telemetry.Enabled {
		np, err := telemetry.NewNATSPublisher(cfg.Telemetry.URL, cfg.Telemetry.Subject, logger.Named("telemetry"))
		if err != nil {
			return err
		}
		defer np.Close()
		pubs = append(pubs, np)
	}

	ctrl, err := env.NewController(tk, backend, backend, telemetry.NewMulti(pubs...), actionBounds(cfg), logger.Named("episode"))
	if err != nil {
		return err
	}
	defer ctrl.Close(context.Background())

	st, err := store.Open(storePath(cmd, cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	pol, err := buildPolicy(cfg, tk)
	if err != nil {
		return err
	}

	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}

	stepCap := spec.MaxSteps
	if cmd.Flags().Changed("max-steps") {
		stepCap = maxSteps
	}
	runner, err := experiment.NewRunner(ctrl, pol, experiment.Options{
		Episodes:   cfg.Episodes,
		MaxSteps:   stepCap,
		Store:      st,
		ConfigYAML: string(snapshot),
		Seed:       cfg.Seed,
		Logger:     logger.Named("runner"),
		OnEpisode: func(s env.Summary) {
			fmt.Printf("episode %3d  reward %8.1f  steps %4d  %s\n", s.Episode, s.Reward, s.Steps, s.Reason)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s with %s policy for %d episodes...\n", cfg.Task, pol.Name(), cfg.Episodes)
	start := time.Now()
	report, err := runner.Run(ctx)
	if err != nil {
		if report == nil {
			return err
		}
		fmt.Printf("interrupted after %d episodes: %v\n", len(report.Episodes), err)
	} else {
		fmt.Printf("completed in %v\n", time.Since(start))
	}
	if report.RunID != "" {
		fmt.Printf("run id: %s\n", report.RunID)
	}

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.3f\n", name, report.Metrics[name])
	}
	return nil
}

func watchExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// Log lines would tear the live view.
	logger := zap.NewNop()

	scfg := simConfig(cfg)
	backend := sim.New(scfg, logger)
	params, err := taskParams(cfg)
	if err != nil {
		return err
	}
	tk, spec, err := registry.New(cfg.Task, backend, params, logger)
	if err != nil {
		return err
	}
	ctrl, err := env.NewController(tk, backend, backend, nil, actionBounds(cfg), logger)
	if err != nil {
		return err
	}
	defer ctrl.Close(context.Background())

	pol, err := buildPolicy(cfg, tk)
	if err != nil {
		return err
	}

	stepCap := spec.MaxSteps
	if cmd.Flags().Changed("max-steps") {
		stepCap = maxSteps
	}
	goal := params.Goal
	if g, ok := tk.(interface{ Goal() eval.Goal }); ok {
		goal = g.Goal()
	}
	return tui.Watch(tui.Options{
		Ctrl:      ctrl,
		Policy:    pol,
		Episodes:  cfg.Episodes,
		MaxSteps:  stepCap,
		Workspace: params.Workspace,
		Goal:      goal,
		Ground:    params.Ground,
		Obstacles: scfg.Obstacles,
	})
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tPOLICY\tSEED\tSTARTED\tSTATUS")
	for _, run := range runs {
		status := "done"
		if run.EndedAt.IsZero() {
			status = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID, run.Task, run.Policy, run.Seed,
			run.StartedAt.Format("2006-01-02 15:04:05"), status)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(args[0])
	if err != nil {
		return err
	}
	rewards, err := st.EpisodeRewards(args[0])
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		return fmt.Errorf("run %s has no episodes", args[0])
	}

	fmt.Printf("run: %s\n", run.ID)
	fmt.Printf("task: %s  policy: %s  episodes: %d\n\n", run.Task, run.Policy, len(rewards))

	fmt.Println(asciigraph.Plot(rewards,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("episode return"),
	))
	fmt.Println()

	if maWindow > 1 && len(rewards) >= maWindow {
		fmt.Println(asciigraph.Plot(analysis.MovingAverage(rewards, maWindow),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("moving average (window %d)", maWindow)),
		))
		fmt.Println()
	}

	mean, std := analysis.Stats(rewards)
	_, slope := analysis.Trend(rewards)
	fmt.Printf("mean return: %.2f\n", mean)
	fmt.Printf("std dev: %.2f\n", std)
	fmt.Printf("trend: %+.3f per episode\n", slope)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := args[0]
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	eps, err := st.Episodes(runID)
	if err != nil {
		return err
	}

	var collected map[string]float64
	if len(eps) > 0 {
		ms := metrics.Standard()
		for _, ep := range eps {
			metrics.ObserveAll(ms, env.Summary{
				Task:    run.Task,
				Episode: ep.Episode,
				Reward:  ep.Reward,
				Steps:   ep.Steps,
				Reason:  ep.Reason,
				Ended:   ep.EndedAt,
			})
		}
		collected = metrics.Collect(ms)
	}

	if outPath != "" {
		if err := st.ExportJSON(outPath, runID, collected); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", runID, outPath)
		return nil
	}
	return st.ExportJSONStdout(runID, collected)
}

func listEnvs(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMAX STEPS")
	for _, spec := range registry.List() {
		fmt.Fprintf(w, "%s\t%d\n", spec.ID, spec.MaxSteps)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTASK\tWORKSPACE\tGOAL\tEPSILON")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		if cfg == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%gx%gx%g\t(%g, %g, %g)\t%g\n",
			name, cfg.Task,
			cfg.Workspace.XMax-cfg.Workspace.XMin,
			cfg.Workspace.YMax-cfg.Workspace.YMin,
			cfg.Workspace.ZMax-cfg.Workspace.ZMin,
			cfg.Goal.X, cfg.Goal.Y, cfg.Goal.Z,
			cfg.Goal.Epsilon)
	}
	return w.Flush()
}
