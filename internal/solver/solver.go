package solver

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Solver runs sequential model-based optimization of a Task. A Solver is
// single-threaded: its methods must not be called concurrently.
type Solver struct {
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand

	obs       Observations
	incumbent Incumbent

	// modelUntrained is true until the first successful Train call
	modelUntrained bool

	// iteration is the loop iteration in progress (0 during initialization)
	iteration int
}

// New validates cfg and creates a Solver.
func New(cfg Config) (*Solver, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rng := cfg.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	return &Solver{
		cfg:            cfg,
		logger:         cfg.Logger,
		rng:            rng,
		modelUntrained: true,
	}, nil
}

// Initialize replaces the history with n points drawn within the task bounds
// and evaluated one at a time. n may be 0, which leaves an empty history.
func (s *Solver) Initialize(n int) error {
	if n < 0 {
		return &ConfigError{Field: "n_init_points", Reason: "cannot be negative"}
	}

	s.iteration = 0
	s.obs = Observations{
		X:        make([][]float64, 0, n),
		Y:        make([]float64, 0, n),
		Overhead: make([]time.Duration, 0, n),
		EvalTime: make([]time.Duration, 0, n),
	}

	lower, upper := s.cfg.Task.Lower(), s.cfg.Task.Upper()

	var (
		design       [][]float64
		designShared time.Duration
	)
	if s.cfg.Initializer != nil && n > 0 {
		start := time.Now()
		design = s.cfg.Initializer.Points(n, lower, upper, s.rng)
		designShared = time.Since(start) / time.Duration(n)
		if len(design) != n {
			return fmt.Errorf("initializer returned %d points, expected %d", len(design), n)
		}
	}

	for i := 0; i < n; i++ {
		var (
			x        []float64
			overhead time.Duration
		)
		if design != nil {
			x = design[i]
			overhead = designShared
		} else {
			start := time.Now()
			x = uniform(lower, upper, s.rng)
			overhead = time.Since(start)
		}
		if len(x) != s.cfg.Task.NDims() {
			return fmt.Errorf("initial point %d has %d dimensions, expected %d", i, len(x), s.cfg.Task.NDims())
		}

		start := time.Now()
		y, err := s.cfg.Task.Evaluate([][]float64{x})
		evalTime := time.Since(start)
		if err != nil {
			return &EvaluationError{Iteration: 0, Err: err}
		}
		if len(y) != 1 {
			return &EvaluationError{Iteration: 0, Err: fmt.Errorf("expected 1 value, got %d", len(y))}
		}

		s.obs.append(x, y[0], overhead, evalTime)

		s.logger.Info("Configuration achieved a performance", "point", i, "value", y[0])
		s.logger.Info("Evaluation of this configuration finished", "point", i, "duration", evalTime)

		s.sendProgress(ProgressUpdate{
			Phase:           PhaseInitialization,
			Iteration:       i + 1,
			TotalIterations: n,
			Candidate:       cloneVec(x),
			Value:           y[0],
			Overhead:        overhead,
			EvalTime:        evalTime,
		})
	}

	return nil
}

// Run executes the optimization loop and returns the final incumbent.
//
// Without prior observations (both nil) the history is initialized with
// Config.InitPoints random points, the incumbent is seeded with the first of
// them and an iteration-0 checkpoint is written. With prior observations the
// history is adopted verbatim with zeroed timings; the incumbent is seeded
// with the best prior point and no iteration-0 checkpoint is written.
//
// Iterations are numbered relative to this call: Run always executes
// iterations 1..numIterations-1, each evaluating one new point, whether or
// not prior observations were supplied.
func (s *Solver) Run(numIterations int, priorX [][]float64, priorY []float64) (Incumbent, error) {
	if numIterations < 0 {
		return Incumbent{}, &ConfigError{Field: "num_iterations", Reason: "cannot be negative"}
	}

	runStart := time.Now()
	defer func() { s.iteration = 0 }()

	if priorX == nil && priorY == nil {
		if s.cfg.InitPoints < 1 {
			return Incumbent{}, &ConfigError{Field: "InitPoints", Reason: "must be positive when no prior observations are given"}
		}
		if err := s.Initialize(s.cfg.InitPoints); err != nil {
			return Incumbent{}, err
		}
		s.incumbent = Incumbent{X: cloneVec(s.obs.X[0]), Value: s.obs.Y[0]}

		if s.cfg.Checkpoints != nil {
			zero := 0.0
			if err := s.cfg.Checkpoints.SaveIteration(0, nil, &zero); err != nil {
				return s.Incumbent(), fmt.Errorf("save checkpoint for iteration 0: %w", err)
			}
		}
	} else {
		if err := s.adopt(priorX, priorY); err != nil {
			return Incumbent{}, err
		}
	}

	for it := 1; it < numIterations; it++ {
		if err := s.step(it, numIterations); err != nil {
			return s.Incumbent(), err
		}
	}

	s.logger.Info("Return incumbent",
		"incumbent", s.incumbent.X,
		"predicted_value", s.incumbent.Value,
		"observations", s.obs.Len(),
		"elapsed", time.Since(runStart),
	)

	return s.Incumbent(), nil
}

// adopt installs caller-supplied observations. Historical timings are
// unknown and recorded as zero.
func (s *Solver) adopt(x [][]float64, y []float64) error {
	if x == nil {
		return &ConfigError{Field: "prior inputs", Reason: "missing while prior values are given"}
	}
	if y == nil {
		return &ConfigError{Field: "prior values", Reason: "missing while prior inputs are given"}
	}
	if len(x) != len(y) {
		return &ConfigError{Field: "prior observations", Reason: fmt.Sprintf("length mismatch: %d inputs, %d values", len(x), len(y))}
	}
	if len(x) == 0 {
		return &ConfigError{Field: "prior observations", Reason: "cannot be empty"}
	}
	dims := s.cfg.Task.NDims()
	for i, row := range x {
		if len(row) != dims {
			return &ConfigError{Field: "prior inputs", Reason: fmt.Sprintf("row %d has %d dimensions, expected %d", i, len(row), dims)}
		}
	}

	s.obs = Observations{
		X:        cloneRows(x),
		Y:        append([]float64(nil), y...),
		Overhead: make([]time.Duration, len(x)),
		EvalTime: make([]time.Duration, len(x)),
	}

	best, err := argmin(s.obs.Y)
	if err != nil {
		return err
	}
	s.incumbent = Incumbent{X: cloneVec(s.obs.X[best]), Value: s.obs.Y[best]}

	s.logger.Info("Adopted prior observations", "count", len(x))
	return nil
}

// step performs one loop iteration: choose, recommend, evaluate, record,
// checkpoint.
func (s *Solver) step(it, total int) error {
	s.iteration = it
	s.logger.Info("Start iteration", "iteration", it)

	start := time.Now()
	doOptimize := it%s.cfg.TrainInterval == 0

	next, err := s.ChooseNext(s.obs.X, s.obs.Y, doOptimize)
	if err != nil {
		return err
	}

	incStart := time.Now()
	if err := s.updateIncumbent(); err != nil {
		return err
	}
	s.logger.Info("New incumbent found",
		"policy", s.cfg.Policy.String(),
		"incumbent", s.incumbent.X,
		"value", s.incumbent.Value,
		"duration", time.Since(incStart),
	)

	overhead := time.Since(start)
	s.logger.Info("Optimization overhead", "iteration", it, "duration", overhead)

	s.logger.Info("Evaluate candidate", "candidate", next[0])
	evalStart := time.Now()
	y, err := s.cfg.Task.Evaluate(next)
	evalTime := time.Since(evalStart)
	if err != nil {
		return &EvaluationError{Iteration: it, Err: err}
	}
	if len(y) != len(next) {
		return &EvaluationError{Iteration: it, Err: fmt.Errorf("expected %d values, got %d", len(next), len(y))}
	}

	// One timing pair per iteration; extra rows of a batch carry zero cost.
	for i := range next {
		if i == 0 {
			s.obs.append(next[i], y[i], overhead, evalTime)
		} else {
			s.obs.append(next[i], y[i], 0, 0)
		}
	}

	s.logger.Info("Configuration achieved a performance", "iteration", it, "value", y[0])
	s.logger.Info("Evaluation of this configuration finished", "iteration", it, "duration", evalTime)

	s.sendProgress(ProgressUpdate{
		Phase:           PhaseOptimization,
		Iteration:       it,
		TotalIterations: total - 1,
		Candidate:       cloneVec(next[0]),
		Value:           y[0],
		Incumbent:       cloneVec(s.incumbent.X),
		IncumbentValue:  s.incumbent.Value,
		Overhead:        overhead,
		EvalTime:        evalTime,
	})

	if s.cfg.Checkpoints != nil && it%s.cfg.NumSave == 0 {
		if err := s.checkpoint(it, next[0]); err != nil {
			return fmt.Errorf("save checkpoint for iteration %d: %w", it, err)
		}
	}

	return nil
}

// ChooseNext proposes the next point(s) to evaluate. When x or y is empty
// the history is (re)initialized and the whole initial design is returned.
// Otherwise the model is retrained if doOptimize is set, the acquisition
// function is rebound to the model and the maximizer proposes exactly one
// point.
func (s *Solver) ChooseNext(x [][]float64, y []float64, doOptimize bool) ([][]float64, error) {
	if len(x) == 0 || len(y) == 0 {
		if err := s.Initialize(s.cfg.InitPoints); err != nil {
			return nil, err
		}
		return cloneRows(s.obs.X), nil
	}

	if doOptimize {
		s.logger.Info("Train model")
		t := time.Now()
		if err := s.cfg.Model.Train(cloneRows(x), append([]float64(nil), y...)); err != nil {
			s.logger.Error("Model could not be trained", "x", x, "y", y, "error", err)
			return nil, &ModelTrainingError{Iteration: s.iteration, Err: err}
		}
		s.modelUntrained = false
		s.logger.Debug("Time to train the model", "duration", time.Since(t))
	}

	s.cfg.Acquisition.Update(s.cfg.Model)

	s.logger.Info("Maximize acquisition function")
	t := time.Now()
	next, err := s.cfg.Maximizer.Maximize()
	if err != nil {
		return nil, fmt.Errorf("maximize acquisition function: %w", err)
	}
	if len(next) != s.cfg.Task.NDims() {
		return nil, fmt.Errorf("maximizer returned %d dimensions, expected %d", len(next), s.cfg.Task.NDims())
	}
	s.logger.Debug("Time to maximize the acquisition function", "duration", time.Since(t))

	return [][]float64{cloneVec(next)}, nil
}

// checkpoint saves hyperparameters and the candidate's acquisition value
// when the model reports hyperparameters, and a bare iteration otherwise.
func (s *Solver) checkpoint(it int, candidate []float64) error {
	if hm, ok := s.cfg.Model.(HyperparameterModel); ok {
		if hp, has := hm.Hyperparameters(); has {
			acq := s.cfg.Acquisition.Evaluate(candidate)
			return s.cfg.Checkpoints.SaveIteration(it, hp, &acq)
		}
	}
	return s.cfg.Checkpoints.SaveIteration(it, nil, nil)
}

func (s *Solver) sendProgress(update ProgressUpdate) {
	if s.cfg.Progress == nil {
		return
	}
	select {
	case s.cfg.Progress <- update:
	default:
		// Skip update if channel is full.
	}
}

// Observations returns a copy of the history.
func (s *Solver) Observations() Observations {
	return s.obs.clone()
}

// Incumbent returns a copy of the current incumbent.
func (s *Solver) Incumbent() Incumbent {
	return Incumbent{X: cloneVec(s.incumbent.X), Value: s.incumbent.Value}
}

// ModelUntrained reports whether the model has never been trained
// successfully.
func (s *Solver) ModelUntrained() bool {
	return s.modelUntrained
}
