package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cwbudde/bayesopt/internal/config"
	"github.com/cwbudde/bayesopt/internal/runner"
	"github.com/cwbudde/bayesopt/internal/solver"
)

var (
	configPath    string
	taskName      string
	taskDims      int
	initPoints    int
	iters         int
	trainInterval int
	numSave       int
	nRestarts     int
	policy        string
	acqName       string
	maximizerName string
	seed          int64
	runID         string
	dataDir       string
	storeKind     string
	noCheckpoints bool
	showProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Bayesian optimization",
	Long: `Minimizes a benchmark task, writing the observation trace and checkpoints
to the data directory. Settings come from --config (YAML) and are overridden
by any flag given explicitly.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration")
	runCmd.Flags().StringVar(&taskName, "task", "branin", "Task to minimize (branin, forrester, hartmann3, sphere, constant)")
	runCmd.Flags().IntVar(&taskDims, "dims", 0, "Dimensionality for tasks that take one")
	runCmd.Flags().IntVar(&initPoints, "init", 3, "Number of initial random points")
	runCmd.Flags().IntVar(&iters, "iters", 10, "Number of iterations, initialization included")
	runCmd.Flags().IntVar(&trainInterval, "train-interval", 1, "Retrain the model every N iterations")
	runCmd.Flags().IntVar(&numSave, "save-every", 1, "Checkpoint every N iterations")
	runCmd.Flags().IntVar(&nRestarts, "restarts", 10, "Extra random starts for posterior recommendation")
	runCmd.Flags().StringVar(&policy, "policy", "best-observed", "Incumbent policy (best-observed, multi-restart-posterior, single-start-posterior)")
	runCmd.Flags().StringVar(&acqName, "acquisition", "ei", "Acquisition function (ei, pi, lcb)")
	runCmd.Flags().StringVar(&maximizerName, "maximizer", "mayfly", "Acquisition maximizer (mayfly, random)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run ID (generated when empty)")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for traces and checkpoints")
	runCmd.Flags().StringVar(&storeKind, "store", "fs", "Checkpoint store (fs, sqlite)")
	runCmd.Flags().BoolVar(&noCheckpoints, "no-checkpoints", false, "Disable checkpointing")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar")

	rootCmd.AddCommand(runCmd)
}

// loadRunConfig builds the run configuration: defaults, then the config
// file, then flags the user set explicitly.
func loadRunConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if configPath == "" || flags.Changed("task") {
		cfg.Task.Name = taskName
	}
	if configPath == "" || flags.Changed("dims") {
		cfg.Task.Dims = taskDims
	}
	if flags.Changed("init") {
		cfg.InitPoints = initPoints
	}
	if flags.Changed("iters") {
		cfg.Iterations = iters
	}
	if flags.Changed("train-interval") {
		cfg.TrainInterval = trainInterval
	}
	if flags.Changed("save-every") {
		cfg.NumSave = numSave
	}
	if flags.Changed("restarts") {
		cfg.NRestarts = nRestarts
	}
	if flags.Changed("policy") {
		cfg.Recommendation.Policy = policy
	}
	if flags.Changed("acquisition") {
		cfg.Acquisition.Name = acqName
	}
	if flags.Changed("maximizer") {
		cfg.Maximizer.Name = maximizerName
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if configPath == "" || flags.Changed("data-dir") {
		cfg.Store.Dir = dataDir
	}
	if flags.Changed("store") {
		cfg.Store.Kind = storeKind
	}
	if noCheckpoints {
		cfg.Checkpoints = false
	}

	return cfg, cfg.Validate()
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("Starting optimization",
		"task", cfg.Task.Name,
		"init_points", cfg.InitPoints,
		"iterations", cfg.Iterations,
		"policy", cfg.Recommendation.Policy,
	)

	var progress chan solver.ProgressUpdate
	var progressDone chan struct{}
	if showProgress {
		progress = make(chan solver.ProgressUpdate, 64)
		progressDone = make(chan struct{})
		go renderProgress(evaluationCount(cfg), progress, progressDone)
	}

	result, err := runner.Execute(context.Background(), runner.Options{
		RunID:    runID,
		Config:   cfg,
		Progress: progress,
		Logger:   slog.Default(),
	})

	if progress != nil {
		close(progress)
		<-progressDone
	}

	if err != nil {
		return err
	}

	fmt.Printf("Run %s: incumbent %v (value %.6g) after %d evaluations in %s\n",
		result.RunID,
		result.Incumbent.X,
		result.Incumbent.Value,
		result.Observations.Len(),
		result.Elapsed.Round(time.Millisecond),
	)
	return nil
}

// evaluationCount is the number of objective evaluations of a fresh run.
func evaluationCount(cfg config.RunConfig) int {
	n := cfg.InitPoints
	if cfg.Iterations > 1 {
		n += cfg.Iterations - 1
	}
	return n
}

// renderProgress advances a progress bar for every evaluation until updates
// is closed.
func renderProgress(total int, updates <-chan solver.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("evals"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("initialization"),
	)

	for u := range updates {
		bar.Describe(fmt.Sprintf("%s (best %.4g)", u.Phase, u.IncumbentValue))
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)
}
