package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bayesopt/internal/runner"
	"github.com/cwbudde/bayesopt/internal/store"
)

var (
	resumeIters      int
	resumeDataDir    string
	resumeStoreKind  string
	resumeSQLitePath string
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a run from its checkpoint",
	Long: `Continues a checkpointed run. The recorded observations are fed back as
prior observations and the run keeps its ID; checkpoint iterations continue
from where the run stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Iterations to run (0 = as configured)")
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for traces and checkpoints")
	resumeCmd.Flags().StringVar(&resumeStoreKind, "store", "fs", "Checkpoint store (fs, sqlite)")
	resumeCmd.Flags().StringVar(&resumeSQLitePath, "sqlite-path", "", "SQLite database (default <data-dir>/bayesopt.db)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	id := args[0]

	checkpointStore, err := openStore(resumeStoreKind, resumeDataDir, resumeSQLitePath)
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(checkpointStore)

	slog.Info("Resuming run", "run_id", id, "iterations", resumeIters)

	result, err := runner.Resume(context.Background(), runner.ResumeOptions{
		RunID:      id,
		Iterations: resumeIters,
		Store:      checkpointStore,
		DataDir:    resumeDataDir,
		Logger:     slog.Default(),
	})
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
