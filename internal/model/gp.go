// Package model provides the surrogate models used by the solver.
package model

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var (
	// ErrNoData is returned when Train is called without observations.
	ErrNoData = errors.New("no training data")

	// ErrNotPositiveDefinite is returned when the kernel matrix cannot be
	// factorized even after adding jitter.
	ErrNotPositiveDefinite = errors.New("kernel matrix is not positive definite")
)

const (
	minVariance = 1e-12

	// infeasible is the likelihood penalty for hyperparameters outside the
	// bounds or with a singular kernel matrix
	infeasible = 1e10
)

var jitters = []float64{0, 1e-10, 1e-8, 1e-6, 1e-4}

// log-space bounds for lengthScale, signalVariance, noise
var (
	logLower = [3]float64{math.Log(1e-3), math.Log(1e-3), math.Log(1e-8)}
	logUpper = [3]float64{math.Log(1e3), math.Log(1e3), math.Log(1)}
)

// Options configures a GaussianProcess.
type Options struct {
	Kernel         string
	LengthScale    float64
	SignalVariance float64
	Noise          float64

	// OptimizeHyperparameters fits the hyperparameters on every Train call
	// by maximizing the log marginal likelihood
	OptimizeHyperparameters bool
	MaxFitIterations        int
}

// DefaultOptions returns a Matern 5/2 process with unit scales and small
// noise, fitted on every Train call.
func DefaultOptions() Options {
	return Options{
		Kernel:                  KernelMatern52,
		LengthScale:             1,
		SignalVariance:          1,
		Noise:                   1e-6,
		OptimizeHyperparameters: true,
		MaxFitIterations:        200,
	}
}

// GaussianProcess is a zero-mean Gaussian process regressor on standardized
// targets. It is safe for concurrent use.
type GaussianProcess struct {
	mu sync.RWMutex

	kernel    kernelFunc
	params    [3]float64 // log lengthScale, log signalVariance, log noise
	optimize  bool
	maxFitItr int

	x     [][]float64
	y     *mat.VecDense // standardized
	yMean float64
	yStd  float64
	best  float64

	chol    mat.Cholesky
	alpha   *mat.VecDense
	trained bool
}

// NewGaussianProcess creates an untrained process.
func NewGaussianProcess(opts Options) (*GaussianProcess, error) {
	kernel, err := lookupKernel(opts.Kernel)
	if err != nil {
		return nil, err
	}
	if opts.LengthScale <= 0 || opts.SignalVariance <= 0 || opts.Noise <= 0 {
		return nil, fmt.Errorf("length scale, signal variance and noise must be positive")
	}
	if opts.MaxFitIterations <= 0 {
		opts.MaxFitIterations = 200
	}

	gp := &GaussianProcess{
		kernel:    kernel,
		optimize:  opts.OptimizeHyperparameters,
		maxFitItr: opts.MaxFitIterations,
	}
	gp.params = clampParams([3]float64{
		math.Log(opts.LengthScale),
		math.Log(opts.SignalVariance),
		math.Log(opts.Noise),
	})
	return gp, nil
}

// Train fits the process to x and y, replacing any previous data.
func (gp *GaussianProcess) Train(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrNoData
	}
	if len(x) != len(y) {
		return fmt.Errorf("got %d inputs and %d targets", len(x), len(y))
	}
	dims := len(x[0])
	for i, row := range x {
		if len(row) != dims {
			return fmt.Errorf("row %d has %d dimensions, expected %d", i, len(row), dims)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d contains a non-finite input", i)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return fmt.Errorf("target %d is not finite", i)
		}
	}

	xs := make([][]float64, len(x))
	for i, row := range x {
		xs[i] = append([]float64(nil), row...)
	}
	mean, std := standardize(y)
	ys := mat.NewVecDense(len(y), nil)
	best := y[0]
	for i, v := range y {
		ys.SetVec(i, (v-mean)/std)
		if v < best {
			best = v
		}
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	params := gp.params
	if gp.optimize && len(xs) > 1 {
		params = gp.fit(xs, ys, params)
	}

	f, err := factorize(gp.kernel, xs, ys, params)
	if err != nil {
		return err
	}

	gp.params = params
	gp.x = xs
	gp.y = ys
	gp.yMean = mean
	gp.yStd = std
	gp.best = best
	gp.chol = f.chol
	gp.alpha = f.alpha
	gp.trained = true
	return nil
}

// Predict returns the posterior mean and variance at x. An untrained process
// returns its prior (0, 1).
func (gp *GaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.trained {
		return 0, 1
	}

	ls := math.Exp(gp.params[0])
	sf2 := math.Exp(gp.params[1])

	n := len(gp.x)
	kstar := mat.NewVecDense(n, nil)
	for i, xi := range gp.x {
		kstar.SetVec(i, sf2*gp.kernel(sqDist(x, xi)/(ls*ls)))
	}

	mu := mat.Dot(kstar, gp.alpha)

	var v mat.VecDense
	if err := gp.chol.SolveVecTo(&v, kstar); err != nil {
		return mu*gp.yStd + gp.yMean, sf2 * gp.yStd * gp.yStd
	}
	variance = sf2 - mat.Dot(kstar, &v)
	if variance < minVariance {
		variance = minVariance
	}

	return mu*gp.yStd + gp.yMean, variance * gp.yStd * gp.yStd
}

// Hyperparameters reports [lengthScale, signalVariance, noise] once the
// process has been trained.
func (gp *GaussianProcess) Hyperparameters() ([]float64, bool) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.trained {
		return nil, false
	}
	return []float64{
		math.Exp(gp.params[0]),
		math.Exp(gp.params[1]),
		math.Exp(gp.params[2]),
	}, true
}

// BestObserved returns the lowest training target.
func (gp *GaussianProcess) BestObserved() (float64, bool) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()
	return gp.best, gp.trained
}

// LogMarginalLikelihood of the standardized training targets under the
// current hyperparameters.
func (gp *GaussianProcess) LogMarginalLikelihood() (float64, bool) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.trained {
		return 0, false
	}
	return -negLogLikelihood(&gp.chol, gp.alpha, gp.y), true
}

type factorization struct {
	chol   mat.Cholesky
	alpha  *mat.VecDense
	jitter float64
}

func factorize(kernel kernelFunc, x [][]float64, y *mat.VecDense, params [3]float64) (*factorization, error) {
	ls := math.Exp(params[0])
	sf2 := math.Exp(params[1])
	noise := math.Exp(params[2])

	n := len(x)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.SetSym(i, j, sf2*kernel(sqDist(x[i], x[j])/(ls*ls)))
		}
	}

	for _, jitter := range jitters {
		kj := mat.NewSymDense(n, nil)
		kj.CopySym(k)
		for i := 0; i < n; i++ {
			kj.SetSym(i, i, kj.At(i, i)+noise+jitter)
		}

		f := &factorization{jitter: jitter}
		if !f.chol.Factorize(kj) {
			continue
		}
		f.alpha = mat.NewVecDense(n, nil)
		if err := f.chol.SolveVecTo(f.alpha, y); err != nil {
			continue
		}
		return f, nil
	}
	return nil, ErrNotPositiveDefinite
}

func negLogLikelihood(chol *mat.Cholesky, alpha, y *mat.VecDense) float64 {
	n := float64(y.Len())
	return 0.5*mat.Dot(y, alpha) + 0.5*chol.LogDet() + 0.5*n*math.Log(2*math.Pi)
}

// fit minimizes the negative log marginal likelihood over the log-space
// hyperparameters with Nelder-Mead. The starting point is returned when the
// search does not improve on it.
func (gp *GaussianProcess) fit(x [][]float64, y *mat.VecDense, start [3]float64) [3]float64 {
	objective := func(p []float64) float64 {
		var params [3]float64
		copy(params[:], p)
		if clampParams(params) != params {
			return infeasible
		}
		f, err := factorize(gp.kernel, x, y, params)
		if err != nil {
			return infeasible
		}
		return negLogLikelihood(&f.chol, f.alpha, y)
	}

	initial := objective(start[:])
	// iteration limits come back as errors; the best location is still usable
	result, _ := optimize.Minimize(
		optimize.Problem{Func: objective},
		start[:],
		&optimize.Settings{MajorIterations: gp.maxFitItr},
		&optimize.NelderMead{},
	)
	if result == nil || math.IsInf(result.F, 0) || math.IsNaN(result.F) || result.F >= initial {
		return start
	}

	var out [3]float64
	copy(out[:], result.X)
	return clampParams(out)
}

func clampParams(p [3]float64) [3]float64 {
	for i := range p {
		p[i] = math.Max(logLower[i], math.Min(logUpper[i], p[i]))
	}
	return p
}

func standardize(y []float64) (mean, std float64) {
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for _, v := range y {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(y)))
	if std < 1e-12 {
		std = 1
	}
	return mean, std
}
