package solver

import (
	"errors"
	"math/rand"
)

type constantTask struct {
	lower, upper []float64
	value        float64
	calls        int
	failOnCall   int
}

func newConstantTask(dims int, value float64) *constantTask {
	lower := make([]float64, dims)
	upper := make([]float64, dims)
	for i := range upper {
		upper[i] = 1
	}
	return &constantTask{lower: lower, upper: upper, value: value}
}

func (t *constantTask) Lower() []float64 { return t.lower }
func (t *constantTask) Upper() []float64 { return t.upper }
func (t *constantTask) NDims() int       { return len(t.lower) }

func (t *constantTask) Evaluate(x [][]float64) ([]float64, error) {
	t.calls++
	if t.failOnCall > 0 && t.calls == t.failOnCall {
		return nil, errors.New("objective crashed")
	}
	out := make([]float64, len(x))
	for i := range out {
		out[i] = t.value
	}
	return out, nil
}

// sumTask returns the sum of coordinates, so values differ per point.
type sumTask struct {
	constantTask
}

func (t *sumTask) Evaluate(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		for _, v := range row {
			out[i] += v
		}
	}
	return out, nil
}

type recordingModel struct {
	trainCalls  int
	trainSizes  []int
	failOnTrain int
	hyper       []float64
}

func (m *recordingModel) Train(x [][]float64, y []float64) error {
	m.trainCalls++
	m.trainSizes = append(m.trainSizes, len(x))
	if m.failOnTrain > 0 && m.trainCalls == m.failOnTrain {
		return errors.New("cholesky failed")
	}
	return nil
}

func (m *recordingModel) Predict(x []float64) (float64, float64) {
	return 0, 1
}

type hyperModel struct {
	recordingModel
}

func (m *hyperModel) Hyperparameters() ([]float64, bool) {
	if m.trainCalls == 0 {
		return nil, false
	}
	return m.hyper, true
}

type countingAcquisition struct {
	updates int
	value   float64
}

func (a *countingAcquisition) Update(m Model)               { a.updates++ }
func (a *countingAcquisition) Evaluate(x []float64) float64 { return a.value }

type randomMaximizer struct {
	dims  int
	rng   *rand.Rand
	calls int
	err   error
}

func (m *randomMaximizer) Maximize() ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	x := make([]float64, m.dims)
	for i := range x {
		x[i] = m.rng.Float64()
	}
	return x, nil
}

type startsRecommender struct {
	calls     int
	starts    []int
	gradients []bool
	lastStart []float64
	value     float64
}

func (r *startsRecommender) Recommend(m Model, lower, upper []float64, starts [][]float64, withGradients bool) ([]float64, float64, error) {
	r.calls++
	r.starts = append(r.starts, len(starts))
	r.gradients = append(r.gradients, withGradients)
	r.lastStart = append([]float64(nil), starts[len(starts)-1]...)
	return append([]float64(nil), starts[len(starts)-1]...), r.value, nil
}

type savedIteration struct {
	iteration int
	hyper     []float64
	acq       *float64
}

type recordingSink struct {
	saved []savedIteration
}

func (s *recordingSink) SaveIteration(it int, hp []float64, acq *float64) error {
	s.saved = append(s.saved, savedIteration{iteration: it, hyper: hp, acq: acq})
	return nil
}

func (s *recordingSink) iterations() []int {
	out := make([]int, len(s.saved))
	for i, v := range s.saved {
		out[i] = v.iteration
	}
	return out
}
