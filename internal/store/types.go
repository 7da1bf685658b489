package store

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/bayesopt/internal/config"
)

// Checkpoint is the persisted state of a run after a loop iteration.
//
// It does not hold the observations themselves: those live in the run's
// trace, which is what a resumed run feeds back to the solver as prior
// observations. The model is retrained from them, so hyperparameters and the
// acquisition value are recorded for inspection only.
type Checkpoint struct {
	// RunID is the unique identifier of the run
	RunID string `json:"runId"`

	// Iteration is the loop iteration the checkpoint was taken after,
	// counted across resumes. Iteration 0 is the end of initialization.
	Iteration int `json:"iteration"`

	// Hyperparameters of the model, when it reports them
	Hyperparameters []float64 `json:"hyperparameters,omitempty"`

	// AcquisitionValue of the point chosen at this iteration; 0 at
	// iteration 0 and absent when the model has no hyperparameters
	AcquisitionValue *float64 `json:"acquisitionValue,omitempty"`

	// Observations is the size of the history at checkpoint time
	Observations int `json:"observations"`

	Timestamp time.Time `json:"timestamp"`

	// Config is the run configuration, needed to rebuild the solver on resume
	Config config.RunConfig `json:"config"`
}

// CheckpointInfo is the listing view of a checkpoint.
type CheckpointInfo struct {
	RunID            string    `json:"runId"`
	Iteration        int       `json:"iteration"`
	Observations     int       `json:"observations"`
	AcquisitionValue *float64  `json:"acquisitionValue,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Task             string    `json:"task"`
	Dims             int       `json:"dims"`
}

// ToInfo converts a full Checkpoint to CheckpointInfo.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:            c.RunID,
		Iteration:        c.Iteration,
		Observations:     c.Observations,
		AcquisitionValue: c.AcquisitionValue,
		Timestamp:        c.Timestamp,
		Task:             c.Config.Task.Name,
		Dims:             c.Config.Task.Dims,
	}
}

// Validate checks that the checkpoint is well formed.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Observations < 0 {
		return &ValidationError{Field: "Observations", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	for i, v := range c.Hyperparameters {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "Hyperparameters", Reason: fmt.Sprintf("value %d is not finite", i)}
		}
	}
	if c.AcquisitionValue != nil && math.IsNaN(*c.AcquisitionValue) {
		return &ValidationError{Field: "AcquisitionValue", Reason: "cannot be NaN"}
	}
	if c.Config.Task.Name == "" {
		return &ValidationError{Field: "Config.Task.Name", Reason: "cannot be empty"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given
// config: the task and its dimensionality must match.
func (c *Checkpoint) IsCompatible(cfg config.RunConfig) error {
	if c.Config.Task.Name != cfg.Task.Name {
		return &CompatibilityError{
			Field:    "Task",
			Expected: c.Config.Task.Name,
			Actual:   cfg.Task.Name,
		}
	}
	if c.Config.Task.Dims != cfg.Task.Dims {
		return &CompatibilityError{
			Field:    "Dims",
			Expected: fmt.Sprintf("%d", c.Config.Task.Dims),
			Actual:   fmt.Sprintf("%d", cfg.Task.Dims),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
