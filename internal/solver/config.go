package solver

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
)

// Policy selects how the incumbent is computed each iteration.
type Policy int

const (
	// PolicyBestObserved uses the observed point with the lowest value.
	PolicyBestObserved Policy = iota

	// PolicyMultiRestartPosterior runs the Recommender from NRestarts random
	// points plus the best observed point, with gradients enabled.
	PolicyMultiRestartPosterior

	// PolicySingleStartPosterior runs the Recommender from the best observed
	// point only.
	PolicySingleStartPosterior
)

var policyNames = map[Policy]string{
	PolicyBestObserved:          "best-observed",
	PolicyMultiRestartPosterior: "multi-restart-posterior",
	PolicySingleStartPosterior:  "single-start-posterior",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a policy name to a Policy. The empty string selects
// PolicyBestObserved.
func ParsePolicy(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PolicyBestObserved, nil
	}
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown recommendation policy: %s", name)
}

// Config wires the solver to its collaborators. It is read once by New and
// never changes for the lifetime of the Solver.
type Config struct {
	Task        Task
	Model       Model
	Acquisition AcquisitionFunction
	Maximizer   Maximizer

	// Initializer draws the initial design (optional, uniform when nil)
	Initializer Initializer

	// Policy selects the incumbent strategy; the posterior policies require
	// Recommender
	Policy      Policy
	Recommender Recommender

	// Checkpoints receives snapshots every NumSave iterations (optional)
	Checkpoints CheckpointSink
	NumSave     int

	// TrainInterval retrains the model on iterations divisible by it
	TrainInterval int

	// NRestarts is the number of random starts for PolicyMultiRestartPosterior.
	// Zero is valid: only the best observed point is used as a start.
	NRestarts int

	// InitPoints is the size of the initial design drawn by Run
	InitPoints int

	// Seed seeds Rand when Rand is nil; 0 means time-based
	Seed int64
	Rand *rand.Rand

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Progress receives non-blocking updates after every evaluation
	Progress chan<- ProgressUpdate
}

// DefaultConfig returns a configuration with the default cadences; the
// collaborators still have to be set.
func DefaultConfig() Config {
	return Config{
		Policy:        PolicyBestObserved,
		NumSave:       1,
		TrainInterval: 1,
		NRestarts:     10,
		InitPoints:    3,
	}
}

func (c *Config) applyDefaults() {
	if c.NumSave == 0 {
		c.NumSave = 1
	}
	if c.TrainInterval == 0 {
		c.TrainInterval = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	if c.Task == nil {
		return &ConfigError{Field: "Task", Reason: "cannot be nil"}
	}
	if c.Model == nil {
		return &ConfigError{Field: "Model", Reason: "cannot be nil"}
	}
	if c.Acquisition == nil {
		return &ConfigError{Field: "Acquisition", Reason: "cannot be nil"}
	}
	if c.Maximizer == nil {
		return &ConfigError{Field: "Maximizer", Reason: "cannot be nil"}
	}
	if c.NumSave < 0 {
		return &ConfigError{Field: "NumSave", Reason: "must be positive"}
	}
	if c.TrainInterval < 0 {
		return &ConfigError{Field: "TrainInterval", Reason: "must be positive"}
	}
	if c.NRestarts < 0 {
		return &ConfigError{Field: "NRestarts", Reason: "cannot be negative"}
	}
	if c.InitPoints < 0 {
		return &ConfigError{Field: "InitPoints", Reason: "cannot be negative"}
	}

	dims := c.Task.NDims()
	lower, upper := c.Task.Lower(), c.Task.Upper()
	if dims <= 0 {
		return &ConfigError{Field: "Task.NDims", Reason: "must be positive"}
	}
	if len(lower) != dims || len(upper) != dims {
		return &ConfigError{
			Field:  "Task bounds",
			Reason: fmt.Sprintf("length mismatch: expected %d, got lower=%d upper=%d", dims, len(lower), len(upper)),
		}
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return &ConfigError{Field: "Task bounds", Reason: fmt.Sprintf("lower > upper in dimension %d", i)}
		}
	}

	switch c.Policy {
	case PolicyBestObserved:
	case PolicyMultiRestartPosterior, PolicySingleStartPosterior:
		if c.Recommender == nil {
			return &ConfigError{Field: "Recommender", Reason: "is required for policy " + c.Policy.String()}
		}
	default:
		return &ConfigError{Field: "Policy", Reason: "unknown value " + c.Policy.String()}
	}
	return nil
}
