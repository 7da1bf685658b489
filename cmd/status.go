package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Query server status or a specific run",
	Long: `Queries the server for run status information.
If no run-id is provided, lists all runs.
If run-id is provided, shows detailed status for that run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// runSummary mirrors the fields of the server's run and status responses
// that the CLI prints.
type runSummary struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Config struct {
		Task struct {
			Name string `json:"name"`
			Dims int    `json:"dims"`
		} `json:"task"`
		InitPoints  int `json:"initPoints"`
		Iterations  int `json:"iterations"`
		Acquisition struct {
			Name string `json:"name"`
		} `json:"acquisition"`
		Recommendation struct {
			Policy string `json:"policy"`
		} `json:"recommendation"`
	} `json:"config"`
	Phase          string    `json:"phase"`
	Iteration      int       `json:"iteration"`
	Observations   int       `json:"observations"`
	Incumbent      []float64 `json:"incumbent"`
	IncumbentValue float64   `json:"incumbentValue"`
	Elapsed        float64   `json:"elapsed"`
	Error          string    `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listRuns(fmt.Sprintf("%s/api/v1/runs", serverURL))
	}
	runID := args[0]
	return getRunStatus(fmt.Sprintf("%s/api/v1/runs/%s/status", serverURL, runID), runID)
}

func fetchJSON(url string, v interface{}) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listRuns(url string) error {
	var runs []runSummary
	if _, err := fetchJSON(url, &runs); err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("Found %d run(s):\n\n", len(runs))
	for _, run := range runs {
		fmt.Printf("Run ID: %s\n", run.ID)
		fmt.Printf("  State: %s\n", run.State)
		fmt.Printf("  Task: %s\n", run.Config.Task.Name)
		fmt.Printf("  Observations: %d\n", run.Observations)
		if len(run.Incumbent) > 0 {
			fmt.Printf("  Incumbent: %v (value %.6g)\n", run.Incumbent, run.IncumbentValue)
		}
		fmt.Println()
	}

	return nil
}

func getRunStatus(url, runID string) error {
	var status runSummary
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Run: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Task: %s\n", status.Config.Task.Name)
	if status.Config.Task.Dims > 0 {
		fmt.Printf("  Dimensions: %d\n", status.Config.Task.Dims)
	}
	fmt.Printf("  Initial points: %d\n", status.Config.InitPoints)
	fmt.Printf("  Iterations: %d\n", status.Config.Iterations)
	fmt.Printf("  Acquisition: %s\n", status.Config.Acquisition.Name)
	fmt.Printf("  Policy: %s\n", status.Config.Recommendation.Policy)
	fmt.Println()

	fmt.Println("Progress:")
	if status.Phase != "" {
		fmt.Printf("  Phase: %s (iteration %d)\n", status.Phase, status.Iteration)
	}
	fmt.Printf("  Observations: %d\n", status.Observations)
	if len(status.Incumbent) > 0 {
		fmt.Printf("  Incumbent: %v\n", status.Incumbent)
		fmt.Printf("  Incumbent value: %.6g\n", status.IncumbentValue)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}

	return nil
}
