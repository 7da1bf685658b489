package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/bayesopt/internal/config"
	"github.com/cwbudde/bayesopt/internal/solver"
	"github.com/cwbudde/bayesopt/internal/store"
)

// Prior holds observations a run continues from.
type Prior struct {
	X [][]float64
	Y []float64

	// Iteration is the last loop iteration already completed; checkpoints of
	// the continued run are numbered after it
	Iteration int
}

// Options configures Execute.
type Options struct {
	// RunID is generated when empty
	RunID  string
	Config config.RunConfig

	// Store receives checkpoints when Config.Checkpoints is set; opened from
	// Config.Store when nil
	Store store.Store

	// DataDir holds run traces; defaults to Config.Store.Dir
	DataDir string

	Prior    *Prior
	Progress chan<- solver.ProgressUpdate
	Logger   *slog.Logger

	// Task overrides the task named in the configuration
	Task solver.Task
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	Incumbent    solver.Incumbent
	Observations solver.Observations
	Elapsed      time.Duration
}

// Execute runs the optimization described by opts.Config and writes the
// observation trace. The trace is written even when the run fails, with
// whatever was observed up to the failure.
//
// ctx is only checked before the run starts: the loop cannot be
// interrupted.
func Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := opts.Config
	validate := cfg.Validate
	if opts.Task != nil {
		validate = cfg.ValidateFields
	}
	if err := validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger = logger.With("runID", runID)

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfg.Store.Dir
	}

	st := opts.Store
	if st == nil && cfg.Checkpoints {
		opened, err := store.NewStore(cfg.Store.Kind, dataDir, cfg.SQLiteFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		defer store.CloseIfSupported(opened)
		st = opened
	}

	var sink solver.CheckpointSink
	if cfg.Checkpoints && st != nil {
		offset := 0
		if opts.Prior != nil {
			offset = opts.Prior.Iteration
		}
		sink = &store.Sink{Store: st, RunID: runID, Config: cfg, Offset: offset}
	}

	s, _, err := Build(cfg, Wiring{
		Checkpoints: sink,
		Logger:      logger,
		Progress:    opts.Progress,
		Task:        opts.Task,
	})
	if err != nil {
		return nil, err
	}

	var priorX [][]float64
	var priorY []float64
	if opts.Prior != nil {
		priorX, priorY = opts.Prior.X, opts.Prior.Y
	}

	logger.Info("Starting run", "task", cfg.Task.Name, "iterations", cfg.Iterations, "prior", len(priorY))
	start := time.Now()
	inc, runErr := s.Run(cfg.Iterations, priorX, priorY)
	elapsed := time.Since(start)

	obs := s.Observations()
	if obs.Len() > 0 {
		appendTrace := opts.Prior != nil
		from := 0
		if appendTrace {
			from = len(priorY)
		}
		if err := store.WriteObservations(dataDir, runID, obs, from, appendTrace); err != nil {
			traceErr := fmt.Errorf("failed to write trace: %w", err)
			if runErr != nil {
				return nil, errors.Join(runErr, traceErr)
			}
			return nil, traceErr
		}
	}

	result := &Result{
		RunID:        runID,
		Incumbent:    inc,
		Observations: obs,
		Elapsed:      elapsed,
	}
	if runErr != nil {
		logger.Error("Run failed", "error", runErr, "observations", obs.Len())
		return result, runErr
	}

	logger.Info("Run completed", "incumbent", inc.X, "value", inc.Value, "elapsed", elapsed)
	return result, nil
}

// ResumeOptions configures Resume.
type ResumeOptions struct {
	RunID string

	// Iterations overrides the iteration count of the checkpointed config
	Iterations int

	Store    store.Store
	DataDir  string
	Progress chan<- solver.ProgressUpdate
	Logger   *slog.Logger
}

// Resume continues a checkpointed run: the trace is fed back as prior
// observations and the run keeps its ID.
func Resume(ctx context.Context, opts ResumeOptions) (*Result, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required to resume")
	}

	cp, err := opts.Store.LoadCheckpoint(opts.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint: %w", err)
	}

	cfg := cp.Config
	if opts.Iterations > 0 {
		cfg.Iterations = opts.Iterations
	}
	if err := cp.IsCompatible(cfg); err != nil {
		return nil, err
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfg.Store.Dir
	}

	x, y, err := store.LoadObservations(dataDir, opts.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("trace of run %s is empty", opts.RunID)
	}

	// the last completed iteration follows from the trace, which may be
	// ahead of the checkpoint when NumSave > 1
	last := len(y) - cfg.InitPoints
	if last < cp.Iteration {
		last = cp.Iteration
	}

	return Execute(ctx, Options{
		RunID:    opts.RunID,
		Config:   cfg,
		Store:    opts.Store,
		DataDir:  dataDir,
		Prior:    &Prior{X: x, Y: y, Iteration: last},
		Progress: opts.Progress,
		Logger:   opts.Logger,
	})
}
