// Package runner turns a RunConfig into a wired solver and executes runs
// with persistence.
package runner

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/bayesopt/internal/acquisition"
	"github.com/cwbudde/bayesopt/internal/config"
	"github.com/cwbudde/bayesopt/internal/maximizer"
	"github.com/cwbudde/bayesopt/internal/model"
	"github.com/cwbudde/bayesopt/internal/recommend"
	"github.com/cwbudde/bayesopt/internal/solver"
	"github.com/cwbudde/bayesopt/internal/task"
)

// Wiring holds the collaborators of a solver that do not come from the
// configuration.
type Wiring struct {
	Checkpoints solver.CheckpointSink
	Logger      *slog.Logger
	Progress    chan<- solver.ProgressUpdate

	// Task overrides the task named in the configuration
	Task solver.Task
}

// Build creates a solver for cfg.
func Build(cfg config.RunConfig, w Wiring) (*solver.Solver, solver.Task, error) {
	t := w.Task
	if t == nil {
		ft, err := task.New(cfg.Task.Name, cfg.Task.Dims)
		if err != nil {
			return nil, nil, err
		}
		t = ft
	}

	gp, err := model.NewGaussianProcess(model.Options{
		Kernel:                  cfg.Model.Kernel,
		LengthScale:             cfg.Model.LengthScale,
		SignalVariance:          cfg.Model.SignalVariance,
		Noise:                   cfg.Model.Noise,
		OptimizeHyperparameters: cfg.Model.OptimizeHyperparameters,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("model: %w", err)
	}

	acq, err := acquisition.New(cfg.Acquisition.Name, acquisition.Params{
		Xi:    cfg.Acquisition.Xi,
		Kappa: cfg.Acquisition.Kappa,
	})
	if err != nil {
		return nil, nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	maxim, err := maximizer.New(cfg.Maximizer.Name, acq, t.Lower(), t.Upper(), maximizer.Options{
		Iterations: cfg.Maximizer.Iterations,
		Population: cfg.Maximizer.Population,
		Candidates: cfg.Maximizer.Candidates,
		Seed:       seed + 1,
	})
	if err != nil {
		return nil, nil, err
	}

	policy, err := solver.ParsePolicy(cfg.Recommendation.Policy)
	if err != nil {
		return nil, nil, err
	}
	rec, err := recommend.New(cfg.Recommendation.Recommender, cfg.Recommendation.Kappa)
	if err != nil {
		return nil, nil, err
	}

	var initializer solver.Initializer
	if cfg.Initializer == "lhs" {
		initializer = solver.LatinHypercube{}
	}

	s, err := solver.New(solver.Config{
		Task:          t,
		Model:         gp,
		Acquisition:   acq,
		Maximizer:     maxim,
		Initializer:   initializer,
		Policy:        policy,
		Recommender:   rec,
		Checkpoints:   w.Checkpoints,
		NumSave:       cfg.NumSave,
		TrainInterval: cfg.TrainInterval,
		NRestarts:     cfg.NRestarts,
		InitPoints:    cfg.InitPoints,
		Rand:          rand.New(rand.NewSource(seed)),
		Logger:        w.Logger,
		Progress:      w.Progress,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, t, nil
}
