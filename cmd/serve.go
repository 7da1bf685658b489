package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bayesopt/internal/server"
	"github.com/cwbudde/bayesopt/internal/store"
)

var (
	serveAddr       string
	serveDataDir    string
	serveStoreKind  string
	serveSQLitePath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the run API: submit runs, list them, query status and follow
progress over server-sent events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data", "Base directory for traces and checkpoints")
	serveCmd.Flags().StringVar(&serveStoreKind, "store", "fs", "Checkpoint store (fs, sqlite)")
	serveCmd.Flags().StringVar(&serveSQLitePath, "sqlite-path", "", "SQLite database (default <data-dir>/bayesopt.db)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	checkpointStore, err := openStore(serveStoreKind, serveDataDir, serveSQLitePath)
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(checkpointStore)

	srv := server.NewServer(serveAddr, checkpointStore, serveDataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
