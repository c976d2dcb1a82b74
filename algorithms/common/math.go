package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the analysis engines, built on gonum.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance (n-1 denominator) using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// NanMean averages the non-NaN values. Returns NaN when there are none.
func NanMean(data []float64) float64 {
	valid := DropMissing(data)
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// NanStd is the population standard deviation of the non-NaN values.
// Returns NaN when there are none.
func NanStd(data []float64) float64 {
	valid := DropMissing(data)
	if len(valid) == 0 {
		return math.NaN()
	}
	_, v := stat.PopMeanVariance(valid, nil)
	return math.Sqrt(v)
}

// Detrend removes the least-squares line from signal.
// y'[i] = y[i] - (alpha + beta*i)
func Detrend(signal []float64) []float64 {
	out := make([]float64, len(signal))
	if len(signal) == 0 {
		return out
	}
	if len(signal) == 1 {
		return out
	}

	x := make([]float64, len(signal))
	floats.Span(x, 0, float64(len(signal)-1))

	alpha, beta := stat.LinearRegression(x, signal, nil, false)
	for i, v := range signal {
		out[i] = v - (alpha + beta*x[i])
	}

	return out
}

// Trapezoid integrates y over x with the trapezoidal rule.
func Trapezoid(y, x []float64) float64 {
	if len(y) != len(x) || len(y) < 2 {
		return 0.0
	}

	sum := 0.0
	for i := 1; i < len(y); i++ {
		sum += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2.0
	}
	return sum
}

// ArgMax returns the index of the first maximum, or -1 for an empty slice.
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}
