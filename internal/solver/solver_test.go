package solver

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(task Task, model Model) Config {
	cfg := DefaultConfig()
	cfg.Task = task
	cfg.Model = model
	cfg.Acquisition = &countingAcquisition{}
	cfg.Maximizer = &randomMaximizer{dims: task.NDims(), rng: rand.New(rand.NewSource(7))}
	cfg.Rand = rand.New(rand.NewSource(42))
	cfg.Logger = quietLogger()
	return cfg
}

func requireAligned(t *testing.T, obs Observations) {
	t.Helper()
	require.Len(t, obs.X, obs.Len())
	require.Len(t, obs.Overhead, obs.Len())
	require.Len(t, obs.EvalTime, obs.Len())
}

func TestInitializeShapes(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7} {
		task := newConstantTask(2, 1.5)
		s, err := New(newTestConfig(task, &recordingModel{}))
		require.NoError(t, err)

		require.NoError(t, s.Initialize(n))

		obs := s.Observations()
		assert.Equal(t, n, obs.Len(), "n=%d", n)
		requireAligned(t, obs)
		for _, row := range obs.X {
			require.Len(t, row, 2)
			for d, v := range row {
				assert.GreaterOrEqual(t, v, task.lower[d])
				assert.LessOrEqual(t, v, task.upper[d])
			}
		}
		assert.Equal(t, n, task.calls, "one evaluation per point")
	}
}

func TestInitializeRejectsNegative(t *testing.T) {
	s, err := New(newTestConfig(newConstantTask(1, 0), &recordingModel{}))
	require.NoError(t, err)

	err = s.Initialize(-1)
	assert.ErrorIs(t, err, &ConfigError{})
}

func TestRunConstantObjective(t *testing.T) {
	task := newConstantTask(1, 5.0)
	cfg := newTestConfig(task, &recordingModel{})
	cfg.InitPoints = 3

	s, err := New(cfg)
	require.NoError(t, err)

	inc, err := s.Run(5, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5.0, inc.Value)
	obs := s.Observations()
	assert.Equal(t, 7, obs.Len())
	requireAligned(t, obs)

	// all values tie, so the first observed point wins
	assert.Equal(t, obs.X[0], inc.X)
}

func TestDefaultIncumbentIsBestObserved(t *testing.T) {
	task := &sumTask{constantTask: *newConstantTask(2, 0)}
	cfg := newTestConfig(task, &recordingModel{})
	cfg.InitPoints = 4

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(6, nil, nil)
	require.NoError(t, err)

	// the incumbent is recomputed before each evaluation; recompute it once
	// more over the full history to compare against the minimum
	require.NoError(t, s.updateIncumbent())
	obs := s.Observations()
	best := 0
	for i, v := range obs.Y {
		if v < obs.Y[best] {
			best = i
		}
	}
	inc := s.Incumbent()
	assert.Equal(t, obs.Y[best], inc.Value)
	assert.Equal(t, obs.X[best], inc.X)
}

func TestCheckpointCadence(t *testing.T) {
	tests := []struct {
		name       string
		numSave    int
		iterations int
		want       []int
	}{
		{name: "every iteration", numSave: 1, iterations: 5, want: []int{0, 1, 2, 3, 4}},
		{name: "every third", numSave: 3, iterations: 8, want: []int{0, 3, 6}},
		{name: "only initialization", numSave: 10, iterations: 4, want: []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			cfg := newTestConfig(newConstantTask(1, 1), &recordingModel{})
			cfg.Checkpoints = sink
			cfg.NumSave = tt.numSave

			s, err := New(cfg)
			require.NoError(t, err)

			_, err = s.Run(tt.iterations, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sink.iterations())
		})
	}
}

func TestCheckpointPayload(t *testing.T) {
	t.Run("model without hyperparameters", func(t *testing.T) {
		sink := &recordingSink{}
		cfg := newTestConfig(newConstantTask(1, 1), &recordingModel{})
		cfg.Checkpoints = sink

		s, err := New(cfg)
		require.NoError(t, err)
		_, err = s.Run(3, nil, nil)
		require.NoError(t, err)

		require.Len(t, sink.saved, 3)
		require.NotNil(t, sink.saved[0].acq)
		assert.Equal(t, 0.0, *sink.saved[0].acq)
		assert.Nil(t, sink.saved[0].hyper)
		for _, saved := range sink.saved[1:] {
			assert.Nil(t, saved.hyper)
			assert.Nil(t, saved.acq)
		}
	})

	t.Run("model with hyperparameters", func(t *testing.T) {
		sink := &recordingSink{}
		model := &hyperModel{recordingModel{hyper: []float64{0.5, 1.0, 1e-3}}}
		cfg := newTestConfig(newConstantTask(1, 1), model)
		cfg.Checkpoints = sink
		cfg.Acquisition = &countingAcquisition{value: 0.75}

		s, err := New(cfg)
		require.NoError(t, err)
		_, err = s.Run(3, nil, nil)
		require.NoError(t, err)

		require.Len(t, sink.saved, 3)
		assert.Nil(t, sink.saved[0].hyper)
		for _, saved := range sink.saved[1:] {
			assert.Equal(t, []float64{0.5, 1.0, 1e-3}, saved.hyper)
			require.NotNil(t, saved.acq)
			assert.Equal(t, 0.75, *saved.acq)
		}
	})
}

func TestRetrainCadence(t *testing.T) {
	tests := []struct {
		name          string
		trainInterval int
		iterations    int
		wantTrains    int
	}{
		{name: "every iteration", trainInterval: 1, iterations: 5, wantTrains: 4},
		{name: "every second", trainInterval: 2, iterations: 7, wantTrains: 3},
		{name: "never reached", trainInterval: 10, iterations: 4, wantTrains: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &recordingModel{}
			acq := &countingAcquisition{}
			cfg := newTestConfig(newConstantTask(1, 1), model)
			cfg.Acquisition = acq
			cfg.TrainInterval = tt.trainInterval

			s, err := New(cfg)
			require.NoError(t, err)
			_, err = s.Run(tt.iterations, nil, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTrains, model.trainCalls)
			assert.Equal(t, tt.iterations-1, acq.updates, "acquisition is rebound every iteration")
			assert.Equal(t, tt.wantTrains == 0, s.ModelUntrained())
		})
	}
}

func TestModelTrainedOnFullHistory(t *testing.T) {
	model := &recordingModel{}
	cfg := newTestConfig(newConstantTask(1, 1), model)
	cfg.InitPoints = 2

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Run(4, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 4}, model.trainSizes)
}

func TestMultiRestartRecommendation(t *testing.T) {
	rec := &startsRecommender{value: -1}
	cfg := newTestConfig(newConstantTask(2, 3), &recordingModel{})
	cfg.Policy = PolicyMultiRestartPosterior
	cfg.Recommender = rec
	cfg.NRestarts = 10

	s, err := New(cfg)
	require.NoError(t, err)
	inc, err := s.Run(4, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.calls)
	for i := range rec.starts {
		assert.Equal(t, 11, rec.starts[i])
		assert.True(t, rec.gradients[i])
	}
	assert.Equal(t, -1.0, inc.Value)
}

func TestMultiRestartAppendsBestObservedStart(t *testing.T) {
	rec := &startsRecommender{value: -1}
	task := &sumTask{constantTask: *newConstantTask(2, 0)}
	cfg := newTestConfig(task, &recordingModel{})
	cfg.Policy = PolicyMultiRestartPosterior
	cfg.Recommender = rec
	cfg.NRestarts = 4

	priorX := [][]float64{{0.5, 0.5}, {0.1, 0.2}, {0.9, 0.3}}
	priorY := []float64{1.0, 0.3, 1.2}

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Run(2, priorX, priorY)
	require.NoError(t, err)

	require.Equal(t, 1, rec.calls)
	assert.Equal(t, []int{5}, rec.starts)
	assert.Equal(t, priorX[1], rec.lastStart)
}

func TestMultiRestartWithZeroRestarts(t *testing.T) {
	rec := &startsRecommender{value: -1}
	cfg := newTestConfig(newConstantTask(2, 3), &recordingModel{})
	cfg.Policy = PolicyMultiRestartPosterior
	cfg.Recommender = rec
	cfg.NRestarts = 0

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Run(2, nil, nil)
	require.NoError(t, err)

	// only the best observed point is used as a start
	assert.Equal(t, []int{1}, rec.starts)
	assert.Equal(t, []bool{true}, rec.gradients)
	assert.Equal(t, s.Observations().X[0], rec.lastStart)
}

func TestNegativeRestartsRejected(t *testing.T) {
	cfg := newTestConfig(newConstantTask(1, 1), &recordingModel{})
	cfg.NRestarts = -1

	_, err := New(cfg)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "NRestarts", ce.Field)
}

func TestSingleStartRecommendation(t *testing.T) {
	rec := &startsRecommender{value: 2.5}
	cfg := newTestConfig(newConstantTask(2, 3), &recordingModel{})
	cfg.Policy = PolicySingleStartPosterior
	cfg.Recommender = rec

	s, err := New(cfg)
	require.NoError(t, err)
	inc, err := s.Run(3, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.calls)
	for i := range rec.starts {
		assert.Equal(t, 1, rec.starts[i])
		assert.False(t, rec.gradients[i])
	}
	assert.Equal(t, 2.5, inc.Value)

	// the single start is the best observed point (all tie: the first)
	assert.Equal(t, s.Observations().X[0], inc.X)
}

func TestModelTrainingFailureAbortsRun(t *testing.T) {
	model := &recordingModel{failOnTrain: 2}
	cfg := newTestConfig(newConstantTask(1, 1), model)
	cfg.InitPoints = 3

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(10, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTraining)

	var mte *ModelTrainingError
	require.True(t, errors.As(err, &mte))
	assert.Equal(t, 2, mte.Iteration)
	assert.EqualError(t, errors.Unwrap(err), "cholesky failed")

	// initial design plus iteration 1
	obs := s.Observations()
	assert.Equal(t, 4, obs.Len())
	requireAligned(t, obs)
}

func TestChooseNextTrainingFailureOutsideRun(t *testing.T) {
	model := &recordingModel{failOnTrain: 2}
	cfg := newTestConfig(newConstantTask(1, 1), model)
	cfg.InitPoints = 3

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Run(10, nil, nil)
	require.ErrorIs(t, err, ErrModelTraining)

	// a later direct call does not report the aborted run's iteration
	model.failOnTrain = 3
	_, err = s.ChooseNext([][]float64{{0.5}}, []float64{1}, true)
	var mte *ModelTrainingError
	require.True(t, errors.As(err, &mte))
	assert.Equal(t, 0, mte.Iteration)
}

func TestEvaluationFailureAbortsRun(t *testing.T) {
	task := newConstantTask(1, 1)
	task.failOnCall = 5
	cfg := newTestConfig(task, &recordingModel{})

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(10, nil, nil)
	assert.ErrorIs(t, err, ErrEvaluation)
	assert.Equal(t, 4, s.Observations().Len())
}

func TestMaximizerFailurePropagates(t *testing.T) {
	cfg := newTestConfig(newConstantTask(1, 1), &recordingModel{})
	cfg.Maximizer = &randomMaximizer{dims: 1, err: errors.New("no candidates")}

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(3, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
	assert.Equal(t, 3, s.Observations().Len())
}

func TestRunWithPriorObservations(t *testing.T) {
	sink := &recordingSink{}
	task := newConstantTask(2, 9)
	cfg := newTestConfig(task, &recordingModel{})
	cfg.Checkpoints = sink

	priorX := [][]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}, {0.7, 0.8}}
	priorY := []float64{4, 1, 3, 1}

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(3, priorX, priorY)
	require.NoError(t, err)

	obs := s.Observations()
	assert.Equal(t, 6, obs.Len())
	requireAligned(t, obs)
	for i := 0; i < 4; i++ {
		assert.Zero(t, obs.Overhead[i])
		assert.Zero(t, obs.EvalTime[i])
	}
	assert.Equal(t, 2, task.calls, "prior points are not re-evaluated")
	assert.Equal(t, []int{1, 2}, sink.iterations())

	// best prior value is 1 (first occurrence at index 1)
	inc := s.Incumbent()
	assert.Equal(t, 1.0, inc.Value)
	assert.Equal(t, []float64{0.3, 0.4}, inc.X)

	// caller slices are not aliased
	priorX[0][0] = 99
	assert.Equal(t, 0.1, s.Observations().X[0][0])
}

func TestRunRejectsMalformedPriors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{name: "inputs without values", x: [][]float64{{0.1}}},
		{name: "values without inputs", y: []float64{1}},
		{name: "length mismatch", x: [][]float64{{0.1}, {0.2}}, y: []float64{1}},
		{name: "wrong dimensionality", x: [][]float64{{0.1, 0.2}}, y: []float64{1}},
		{name: "empty", x: [][]float64{}, y: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newConstantTask(1, 1)
			s, err := New(newTestConfig(task, &recordingModel{}))
			require.NoError(t, err)

			_, err = s.Run(3, tt.x, tt.y)
			assert.ErrorIs(t, err, &ConfigError{})
			assert.Zero(t, task.calls)
		})
	}
}

func TestRunRequiresInitPoints(t *testing.T) {
	cfg := newTestConfig(newConstantTask(1, 1), &recordingModel{})
	cfg.InitPoints = 0

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run(3, nil, nil)
	assert.ErrorIs(t, err, &ConfigError{})
}

func TestChooseNextWithoutObservationsInitializes(t *testing.T) {
	model := &recordingModel{}
	cfg := newTestConfig(newConstantTask(3, 1), model)
	cfg.InitPoints = 4

	s, err := New(cfg)
	require.NoError(t, err)

	next, err := s.ChooseNext(nil, nil, true)
	require.NoError(t, err)
	assert.Len(t, next, 4)
	assert.Zero(t, model.trainCalls)
	assert.Equal(t, 4, s.Observations().Len())
}

func TestChooseNextReturnsSinglePoint(t *testing.T) {
	model := &recordingModel{}
	cfg := newTestConfig(newConstantTask(2, 1), model)

	s, err := New(cfg)
	require.NoError(t, err)

	next, err := s.ChooseNext([][]float64{{0.1, 0.2}}, []float64{3}, false)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Len(t, next[0], 2)
	assert.Zero(t, model.trainCalls)
	assert.True(t, s.ModelUntrained())
}

func TestProgressUpdates(t *testing.T) {
	progress := make(chan ProgressUpdate, 32)
	cfg := newTestConfig(newConstantTask(1, 2), &recordingModel{})
	cfg.Progress = progress

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Run(5, nil, nil)
	require.NoError(t, err)
	close(progress)

	var initUpdates, loopUpdates int
	for u := range progress {
		switch u.Phase {
		case PhaseInitialization:
			initUpdates++
		case PhaseOptimization:
			loopUpdates++
			assert.Equal(t, 4, u.TotalIterations)
		}
	}
	assert.Equal(t, 3, initUpdates)
	assert.Equal(t, 4, loopUpdates)
}

func TestNewValidatesConfig(t *testing.T) {
	base := func() Config {
		return newTestConfig(newConstantTask(1, 1), &recordingModel{})
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing task", mutate: func(c *Config) { c.Task = nil }},
		{name: "missing model", mutate: func(c *Config) { c.Model = nil }},
		{name: "missing maximizer", mutate: func(c *Config) { c.Maximizer = nil }},
		{name: "negative num save", mutate: func(c *Config) { c.NumSave = -1 }},
		{name: "posterior without recommender", mutate: func(c *Config) { c.Policy = PolicyMultiRestartPosterior }},
		{name: "unknown policy", mutate: func(c *Config) { c.Policy = Policy(42) }},
		{name: "inverted bounds", mutate: func(c *Config) {
			task := newConstantTask(1, 1)
			task.lower[0] = 2
			c.Task = task
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, &ConfigError{})
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicyBestObserved, PolicyMultiRestartPosterior, PolicySingleStartPosterior} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBestObserved, got)

	_, err = ParsePolicy("gradient-magic")
	assert.Error(t, err)
}

func TestArgmin(t *testing.T) {
	idx, err := argmin([]float64{3, 1, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = argmin([]float64{})
	assert.ErrorIs(t, err, ErrEmptyObservations)
}

func TestLatinHypercubeStrata(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	lower := []float64{0, -10}
	upper := []float64{1, 10}
	n := 8

	points := LatinHypercube{}.Points(n, lower, upper, rng)
	require.Len(t, points, n)

	for d := range lower {
		seen := make(map[int]bool)
		for _, p := range points {
			u := (p[d] - lower[d]) / (upper[d] - lower[d])
			seen[int(u*float64(n))] = true
		}
		assert.Len(t, seen, n, "dimension %d", d)
	}
}

func TestInitializerTimingSplit(t *testing.T) {
	cfg := newTestConfig(newConstantTask(2, 1), &recordingModel{})
	cfg.Initializer = LatinHypercube{}

	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(5))

	obs := s.Observations()
	assert.Equal(t, 5, obs.Len())
	requireAligned(t, obs)
	for _, d := range obs.Overhead[1:] {
		assert.Equal(t, obs.Overhead[0], d)
	}
}
