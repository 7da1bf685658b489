package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/bayesopt/internal/runner"
	"github.com/cwbudde/bayesopt/internal/solver"
	"github.com/cwbudde/bayesopt/internal/store"
)

// runJob executes a run in the background and publishes its progress.
// checkpointStore may be nil, in which case the run opens the store named in
// its configuration when checkpoints are enabled.
func runJob(ctx context.Context, rm *RunManager, checkpointStore store.Store, dataDir string, runID string) error {
	run, exists := rm.GetRun(runID)
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	if err := ctx.Err(); err != nil {
		markRunCancelled(rm, runID)
		return err
	}

	err := rm.UpdateRun(runID, func(r *Run) {
		r.State = StateRunning
	})
	if err != nil {
		return err
	}

	rm.active.Inc()
	defer rm.active.Dec()

	slog.Info("Starting run", "run_id", runID, "task", run.Config.Task.Name)

	progress := make(chan solver.ProgressUpdate, 64)
	progressDone := make(chan struct{})
	go forwardProgress(rm, runID, run.Config.InitPoints, progress, progressDone)

	result, err := runner.Execute(ctx, runner.Options{
		RunID:    runID,
		Config:   run.Config,
		Store:    checkpointStore,
		DataDir:  dataDir,
		Progress: progress,
		Logger:   slog.Default(),
	})

	// the solver no longer sends once Execute has returned
	close(progress)
	<-progressDone

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markRunCancelled(rm, runID)
		} else {
			markRunFailed(rm, runID, err)
		}
		return err
	}

	endTime := time.Now()
	err = rm.UpdateRun(runID, func(r *Run) {
		r.State = StateCompleted
		r.Incumbent = result.Incumbent.X
		r.IncumbentValue = result.Incumbent.Value
		r.Observations = result.Observations.Len()
		r.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Run completed",
		"run_id", runID,
		"elapsed", result.Elapsed,
		"incumbent", result.Incumbent.X,
		"value", result.Incumbent.Value,
	)

	rm.broadcaster.Broadcast(ProgressEvent{
		RunID:          runID,
		State:          StateCompleted,
		Observations:   result.Observations.Len(),
		Incumbent:      result.Incumbent.X,
		IncumbentValue: result.Incumbent.Value,
		Timestamp:      time.Now(),
	})

	return nil
}

// forwardProgress records solver progress on the run and broadcasts it until
// updates is closed.
func forwardProgress(rm *RunManager, runID string, initPoints int, updates <-chan solver.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	for u := range updates {
		observations := u.Iteration
		if u.Phase == solver.PhaseOptimization {
			observations = initPoints + u.Iteration
		}

		rm.UpdateRun(runID, func(r *Run) {
			r.Phase = u.Phase
			r.Iteration = u.Iteration
			r.Observations = observations
			r.Incumbent = append([]float64(nil), u.Incumbent...)
			r.IncumbentValue = u.IncumbentValue
		})

		rm.broadcaster.Broadcast(ProgressEvent{
			RunID:           runID,
			State:           StateRunning,
			Phase:           u.Phase,
			Iteration:       u.Iteration,
			TotalIterations: u.TotalIterations,
			Observations:    observations,
			Value:           u.Value,
			Incumbent:       u.Incumbent,
			IncumbentValue:  u.IncumbentValue,
			Timestamp:       time.Now(),
		})
	}
}

// markRunFailed marks a run as failed with an error message
func markRunFailed(rm *RunManager, runID string, err error) {
	endTime := time.Now()
	rm.UpdateRun(runID, func(r *Run) {
		r.State = StateFailed
		r.Error = err.Error()
		r.EndTime = &endTime
	})
	slog.Error("Run failed", "run_id", runID, "error", err)

	rm.broadcaster.Broadcast(ProgressEvent{
		RunID:     runID,
		State:     StateFailed,
		Timestamp: endTime,
	})
}

// markRunCancelled marks a run as cancelled
func markRunCancelled(rm *RunManager, runID string) {
	endTime := time.Now()
	rm.UpdateRun(runID, func(r *Run) {
		r.State = StateCancelled
		r.EndTime = &endTime
	})
	slog.Info("Run cancelled", "run_id", runID)

	rm.broadcaster.Broadcast(ProgressEvent{
		RunID:     runID,
		State:     StateCancelled,
		Timestamp: endTime,
	})
}
