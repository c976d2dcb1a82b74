package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is one unequal-variance two-sample t statistic.
type TTestResult struct {
	Statistic float64
	N1, N2    int

	// Degenerate is set when the statistic could not be formed: fewer than two
	// finite values on a side, or a zero or undefined standard error. Statistic
	// is 0 in that case.
	Degenerate bool
}

// WelchT computes Welch's t statistic for a against b after dropping NaN.
//
// t = (mean(a) - mean(b)) / sqrt(var(a)/n1 + var(b)/n2), variances with n-1.
func WelchT(a, b []float64) TTestResult {
	return WelchTFinite(finite(a), finite(b))
}

// WelchTFinite is WelchT for inputs already free of NaN. It does not allocate.
func WelchTFinite(x, y []float64) TTestResult {
	res := TTestResult{N1: len(x), N2: len(y)}

	if len(x) < 2 || len(y) < 2 {
		res.Degenerate = true
		return res
	}

	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)

	se := math.Sqrt(v1/float64(len(x)) + v2/float64(len(y)))
	t := (m1 - m2) / se
	// scipy's ttest_ind(equal_var=False) gives ±Inf when se is 0 and the
	// means differ; here that is degenerate with statistic 0.
	if se == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		res.Degenerate = true
		return res
	}

	res.Statistic = t
	return res
}

// CriticalT returns the two-sided Student t critical value for significance
// level p and df degrees of freedom: the (1 - p/2) quantile.
func CriticalT(p float64, df int) (float64, error) {
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("p threshold must be in (0, 1), got %g", p)
	}
	if df < 1 {
		return 0, fmt.Errorf("degrees of freedom must be at least 1, got %d", df)
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return dist.Quantile(1 - p/2), nil
}

func finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
