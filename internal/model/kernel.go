package model

import (
	"fmt"
	"math"
)

// Kernel names accepted by Options.Kernel.
const (
	KernelRBF      = "rbf"
	KernelMatern52 = "matern52"
)

// kernelFunc evaluates a stationary kernel with unit signal variance from the
// squared distance scaled by the length scale.
type kernelFunc func(scaledSq float64) float64

func rbf(scaledSq float64) float64 {
	return math.Exp(-0.5 * scaledSq)
}

func matern52(scaledSq float64) float64 {
	r := math.Sqrt(scaledSq)
	s5 := math.Sqrt(5) * r
	return (1 + s5 + 5*scaledSq/3) * math.Exp(-s5)
}

func lookupKernel(name string) (kernelFunc, error) {
	switch name {
	case "", KernelMatern52:
		return matern52, nil
	case KernelRBF:
		return rbf, nil
	default:
		return nil, fmt.Errorf("unknown kernel: %s", name)
	}
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
