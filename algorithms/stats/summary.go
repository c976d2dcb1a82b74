package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
)

// MeanSEM returns the mean of the non-NaN values and the standard error
// std/sqrt(n), where std is the population deviation of the non-NaN values and n
// is len(data) including gaps. Both are NaN when no value is finite.
func MeanSEM(data []float64) (mean, sem float64) {
	values := finite(data)
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}

	mean, err := mstats.Mean(values)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	sd, err := mstats.StandardDeviationPopulation(values)
	if err != nil {
		return mean, math.NaN()
	}

	return mean, sd / math.Sqrt(float64(len(data)))
}

// ColumnMeanSEM applies MeanSEM down each column of equally sized rows.
func ColumnMeanSEM(rows [][]float64) (mean, sem []float64) {
	if len(rows) == 0 {
		return nil, nil
	}

	width := len(rows[0])
	mean = make([]float64, width)
	sem = make([]float64, width)
	column := make([]float64, len(rows))

	for j := range width {
		for i, r := range rows {
			column[i] = r[j]
		}
		mean[j], sem[j] = MeanSEM(column)
	}
	return mean, sem
}

// Median is the median of the non-NaN values, NaN when there are none.
func Median(data []float64) float64 {
	values := finite(data)
	if len(values) == 0 {
		return math.NaN()
	}
	m, err := mstats.Median(values)
	if err != nil {
		return math.NaN()
	}
	return m
}
