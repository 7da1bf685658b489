package solver

import (
	"errors"
	"fmt"
)

// ErrEmptyObservations is returned when a best-observed point is requested
// from an empty history.
var ErrEmptyObservations = errors.New("no observations recorded")

// ErrModelTraining matches any *ModelTrainingError via errors.Is.
var ErrModelTraining = &ModelTrainingError{}

// ModelTrainingError reports a failed model training call. The run is aborted
// and the original cause is preserved. Iteration is the Run loop iteration
// that failed; it is 0 for ChooseNext calls made outside Run.
type ModelTrainingError struct {
	Iteration int
	Err       error
}

func (e *ModelTrainingError) Error() string {
	return fmt.Sprintf("model training failed at iteration %d: %v", e.Iteration, e.Err)
}

func (e *ModelTrainingError) Unwrap() error {
	return e.Err
}

func (e *ModelTrainingError) Is(target error) bool {
	_, ok := target.(*ModelTrainingError)
	return ok
}

// ErrEvaluation matches any *EvaluationError via errors.Is.
var ErrEvaluation = &EvaluationError{}

// EvaluationError reports a failed task evaluation.
type EvaluationError struct {
	Iteration int
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("task evaluation failed at iteration %d: %v", e.Iteration, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Is(target error) bool {
	_, ok := target.(*EvaluationError)
	return ok
}

// ConfigError represents invalid solver configuration or malformed prior
// observations. It is always returned before the loop starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}
