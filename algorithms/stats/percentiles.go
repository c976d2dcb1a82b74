package stats

import (
	"fmt"
	"math"
	"sort"
)

// PercentileMethod represents different methods for calculating percentiles
type PercentileMethod int

const (
	// Linear interpolation between closest ranks (R-7, numpy default)
	Linear PercentileMethod = iota

	// Lower value of the two closest ranks
	Lower

	// Higher value of the two closest ranks
	Higher

	// Midpoint of the two closest ranks
	Midpoint
)

// Percentiles computes percentiles over data that may contain NaN gaps.
// NaN entries are ignored; a slice with no finite values yields NaN.
//
// References:
//   - Hyndman, R.J., Fan, Y. (1996). "Sample Quantiles in Statistical Packages"
//     The American Statistician, 50(4), 361-365
type Percentiles struct {
	method PercentileMethod
}

// NewPercentiles creates a new percentile calculator with linear interpolation
func NewPercentiles() *Percentiles {
	return &Percentiles{method: Linear}
}

// NewPercentilesWithMethod creates a percentile calculator with the given method
func NewPercentilesWithMethod(method PercentileMethod) *Percentiles {
	return &Percentiles{method: method}
}

// CalculatePercentile computes a single percentile value, skipping NaN.
func (p *Percentiles) CalculatePercentile(data []float64, percentile float64) (float64, error) {
	if percentile < 0 || percentile > 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100, got %g", percentile)
	}

	values := sortedFinite(data)
	if len(values) == 0 {
		return math.NaN(), nil
	}

	return p.calculatePercentile(values, percentile), nil
}

// CalculateCustomPercentiles computes several percentiles with one sort.
func (p *Percentiles) CalculateCustomPercentiles(data []float64, percentiles []float64) ([]float64, error) {
	values := sortedFinite(data)
	out := make([]float64, len(percentiles))

	for i, pct := range percentiles {
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("percentile must be between 0 and 100, got %g", pct)
		}
		if len(values) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = p.calculatePercentile(values, pct)
	}

	return out, nil
}

// GetMethodName returns a human-readable name for the method
func (p *Percentiles) GetMethodName() string {
	switch p.method {
	case Linear:
		return "Linear"
	case Lower:
		return "Lower"
	case Higher:
		return "Higher"
	case Midpoint:
		return "Midpoint"
	default:
		return "Unknown"
	}
}

func (p *Percentiles) calculatePercentile(sortedData []float64, percentile float64) float64 {
	n := len(sortedData)
	if n == 1 {
		return sortedData[0]
	}

	// Convert percentile to position on [0, n-1]
	h := float64(n-1) * percentile / 100.0
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))
	if upper >= n {
		upper = n - 1
	}
	if lower >= n {
		lower = n - 1
	}

	switch p.method {
	case Lower:
		return sortedData[lower]
	case Higher:
		return sortedData[upper]
	case Midpoint:
		return (sortedData[lower] + sortedData[upper]) / 2.0
	default:
		if lower == upper {
			return sortedData[lower]
		}
		fraction := h - float64(lower)
		return sortedData[lower] + fraction*(sortedData[upper]-sortedData[lower])
	}
}

func sortedFinite(data []float64) []float64 {
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	return values
}

// NanPercentile is the linear-interpolation percentile of the non-NaN values.
func NanPercentile(data []float64, percentile float64) float64 {
	v, err := NewPercentiles().CalculatePercentile(data, percentile)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ColumnPercentile evaluates a percentile down each column of rows, returning
// one value per column. Rows may have different lengths; missing cells count as NaN.
func ColumnPercentile(rows [][]float64, percentile float64) []float64 {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}

	out := make([]float64, width)
	column := make([]float64, len(rows))
	for j := range width {
		for i, r := range rows {
			if j < len(r) {
				column[i] = r[j]
			} else {
				column[i] = math.NaN()
			}
		}
		out[j] = NanPercentile(column, percentile)
	}
	return out
}
