package common

import (
	"math"
)

// Interpolate performs piecewise-linear interpolation of the points (x, y) at xi.
// x must be increasing. Outside [x[0], x[n-1]] the boundary value is held flat.
func Interpolate(x, y []float64, xi float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0.0
	}
	if len(x) == 1 {
		return y[0]
	}

	if xi <= x[0] {
		return y[0]
	}
	if xi >= x[len(x)-1] {
		return y[len(y)-1]
	}

	// Binary search for the interval
	left := 0
	right := len(x) - 1

	for right-left > 1 {
		mid := (left + right) / 2
		if x[mid] <= xi {
			left = mid
		} else {
			right = mid
		}
	}

	t := (xi - x[left]) / (x[right] - x[left])
	return y[left] + t*(y[right]-y[left])
}

// FillMissing returns a copy of signal where every NaN sample is replaced by
// linear interpolation between the nearest valid samples on either side.
// Leading and trailing gaps take the first and last valid value.
// A signal with no valid samples comes back as all zeros.
func FillMissing(signal []float64) []float64 {
	out := make([]float64, len(signal))

	validX := make([]float64, 0, len(signal))
	validY := make([]float64, 0, len(signal))
	for i, v := range signal {
		if !math.IsNaN(v) {
			validX = append(validX, float64(i))
			validY = append(validY, v)
		}
	}

	if len(validX) == 0 {
		return out
	}
	if len(validX) == len(signal) {
		copy(out, signal)
		return out
	}

	for i, v := range signal {
		if math.IsNaN(v) {
			out[i] = Interpolate(validX, validY, float64(i))
		} else {
			out[i] = v
		}
	}

	return out
}

// AllMissing reports whether every sample is NaN. An empty signal counts as missing.
func AllMissing(signal []float64) bool {
	for _, v := range signal {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// CountValid returns the number of non-NaN samples.
func CountValid(signal []float64) int {
	n := 0
	for _, v := range signal {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// DropMissing returns the non-NaN samples in order.
func DropMissing(signal []float64) []float64 {
	out := make([]float64, 0, len(signal))
	for _, v := range signal {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// MissingSeries returns a series of n NaN samples.
func MissingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
