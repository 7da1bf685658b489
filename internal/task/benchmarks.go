package task

import (
	"fmt"
	"math"
)

func optimum(v float64) *float64 { return &v }

// Branin is the 2-D Branin-Hoo function on [-5,10]x[0,15].
func Branin() *Func {
	return &Func{
		Name: "branin",
		Lo:   []float64{-5, 0},
		Hi:   []float64{10, 15},
		F: func(x []float64) float64 {
			const (
				a = 1
				r = 6
				s = 10
			)
			b := 5.1 / (4 * math.Pi * math.Pi)
			c := 5 / math.Pi
			tt := 1 / (8 * math.Pi)
			y := x[1] - b*x[0]*x[0] + c*x[0] - r
			return a*y*y + s*(1-tt)*math.Cos(x[0]) + s
		},
		Optimum: optimum(0.397887),
	}
}

// Forrester is the 1-D Forrester function on [0,1].
func Forrester() *Func {
	return &Func{
		Name: "forrester",
		Lo:   []float64{0},
		Hi:   []float64{1},
		F: func(x []float64) float64 {
			v := 6*x[0] - 2
			return v * v * math.Sin(12*x[0]-4)
		},
		Optimum: optimum(-6.020740),
	}
}

// Sphere is sum(x_i^2) on [-5,5]^dims.
func Sphere(dims int) (*Func, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("sphere: dims must be positive, got %d", dims)
	}
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for i := range lo {
		lo[i], hi[i] = -5, 5
	}
	return &Func{
		Name: "sphere",
		Lo:   lo,
		Hi:   hi,
		F: func(x []float64) float64 {
			var sum float64
			for _, v := range x {
				sum += v * v
			}
			return sum
		},
		Optimum: optimum(0),
	}, nil
}

var (
	hartmann3Alpha = [4]float64{1.0, 1.2, 3.0, 3.2}
	hartmann3A     = [4][3]float64{
		{3.0, 10, 30},
		{0.1, 10, 35},
		{3.0, 10, 30},
		{0.1, 10, 35},
	}
	hartmann3P = [4][3]float64{
		{0.3689, 0.1170, 0.2673},
		{0.4699, 0.4387, 0.7470},
		{0.1091, 0.8732, 0.5547},
		{0.0381, 0.5743, 0.8828},
	}
)

// Hartmann3 is the 3-D Hartmann function on [0,1]^3.
func Hartmann3() *Func {
	return &Func{
		Name: "hartmann3",
		Lo:   []float64{0, 0, 0},
		Hi:   []float64{1, 1, 1},
		F: func(x []float64) float64 {
			var out float64
			for i := 0; i < 4; i++ {
				var inner float64
				for j := 0; j < 3; j++ {
					d := x[j] - hartmann3P[i][j]
					inner += hartmann3A[i][j] * d * d
				}
				out -= hartmann3Alpha[i] * math.Exp(-inner)
			}
			return out
		},
		Optimum: optimum(-3.86278),
	}
}

// Constant returns value everywhere on [0,1]^dims.
func Constant(dims int, value float64) (*Func, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("constant: dims must be positive, got %d", dims)
	}
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for i := range hi {
		hi[i] = 1
	}
	return &Func{
		Name:    "constant",
		Lo:      lo,
		Hi:      hi,
		F:       func([]float64) float64 { return value },
		Optimum: optimum(value),
	}, nil
}
