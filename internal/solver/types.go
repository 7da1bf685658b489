package solver

import (
	"math/rand"
	"time"
)

// Task is the expensive objective being minimized.
type Task interface {
	// Lower returns the per-dimension lower bounds.
	Lower() []float64

	// Upper returns the per-dimension upper bounds.
	Upper() []float64

	// NDims returns the dimensionality of the input space.
	NDims() int

	// Evaluate returns one objective value per row of x.
	Evaluate(x [][]float64) ([]float64, error)
}

// Model is a probabilistic surrogate of the objective trained on observations.
type Model interface {
	Train(x [][]float64, y []float64) error
	Predict(x []float64) (mean, variance float64)
}

// HyperparameterModel is implemented by models that can report their current
// hyperparameters. The second return value is false when none are available
// (e.g. before the first training call).
type HyperparameterModel interface {
	Hyperparameters() ([]float64, bool)
}

// AcquisitionFunction scores candidate points; larger is more promising.
type AcquisitionFunction interface {
	// Update rebinds the acquisition function to the latest model state.
	Update(m Model)

	// Evaluate returns the acquisition value at x.
	Evaluate(x []float64) float64
}

// Maximizer searches the bounded input space for the point maximizing the
// acquisition function it was built around.
type Maximizer interface {
	Maximize() ([]float64, error)
}

// Recommender estimates the incumbent by optimizing the model's posterior,
// starting from the given points.
type Recommender interface {
	Recommend(m Model, lower, upper []float64, starts [][]float64, withGradients bool) ([]float64, float64, error)
}

// CheckpointSink persists per-iteration snapshots. hyperparameters and
// acquisitionValue may be nil.
type CheckpointSink interface {
	SaveIteration(iteration int, hyperparameters []float64, acquisitionValue *float64) error
}

// Initializer draws the initial design. When no Initializer is configured
// the solver samples uniformly within bounds.
type Initializer interface {
	Points(n int, lower, upper []float64, rng *rand.Rand) [][]float64
}

// Observations is the run history. All four slices always have equal length:
// row i of X was evaluated to Y[i], with Overhead[i] spent choosing it and
// EvalTime[i] spent evaluating it.
type Observations struct {
	X        [][]float64     `json:"x"`
	Y        []float64       `json:"y"`
	Overhead []time.Duration `json:"overhead"`
	EvalTime []time.Duration `json:"evalTime"`
}

// Len returns the number of recorded evaluations.
func (o Observations) Len() int {
	return len(o.Y)
}

func (o *Observations) append(x []float64, y float64, overhead, eval time.Duration) {
	o.X = append(o.X, cloneVec(x))
	o.Y = append(o.Y, y)
	o.Overhead = append(o.Overhead, overhead)
	o.EvalTime = append(o.EvalTime, eval)
}

func (o Observations) clone() Observations {
	return Observations{
		X:        cloneRows(o.X),
		Y:        append([]float64(nil), o.Y...),
		Overhead: append([]time.Duration(nil), o.Overhead...),
		EvalTime: append([]time.Duration(nil), o.EvalTime...),
	}
}

// Incumbent is the current best guess and its estimated value.
type Incumbent struct {
	X     []float64 `json:"x"`
	Value float64   `json:"value"`
}

// Progress phases.
const (
	PhaseInitialization = "initialization"
	PhaseOptimization   = "optimization"
)

// ProgressUpdate reports one completed evaluation.
type ProgressUpdate struct {
	// Phase is PhaseInitialization or PhaseOptimization
	Phase string

	// Iteration is the initialization slot or the loop iteration
	Iteration int

	// TotalIterations is the number of slots or loop iterations in this phase
	TotalIterations int

	// Candidate is the point just evaluated
	Candidate []float64

	// Value is the objective value at Candidate
	Value float64

	// Incumbent and IncumbentValue hold the current best guess
	Incumbent      []float64
	IncumbentValue float64

	// Overhead and EvalTime are the timings recorded for this evaluation
	Overhead time.Duration
	EvalTime time.Duration
}
