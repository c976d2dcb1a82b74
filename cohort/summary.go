package cohort

import (
	"math"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/stats"
)

// zScoreEpsilon keeps flat channels finite when standardised.
const zScoreEpsilon = 1e-9

// Spread summarises a set of curves point by point.
type Spread struct {
	Median common.Series `json:"median"`
	P10    common.Series `json:"p10"`
	P90    common.Series `json:"p90"`
}

// NewSpread computes the median, 10th and 90th percentile down the columns
// of rows, ignoring NaN.
func NewSpread(rows [][]float64) Spread {
	return Spread{
		Median: stats.ColumnPercentile(rows, 50),
		P10:    stats.ColumnPercentile(rows, 10),
		P90:    stats.ColumnPercentile(rows, 90),
	}
}

// GrandAverage is the NaN-aware mean across subjects, [channel][sample].
func GrandAverage(g *Group) [][]float64 {
	nCh, nT := g.ChannelCount(), g.SampleCount()
	out := make([][]float64, nCh)
	column := make([]float64, g.SubjectCount())

	for c := range nCh {
		out[c] = make([]float64, nT)
		for t := range nT {
			for s := range g.Data {
				column[s] = g.Data[s][c][t]
			}
			out[c][t] = common.NanMean(column)
		}
	}
	return out
}

// ChannelMean is each subject's NaN-aware mean across channels, [subject][sample].
func ChannelMean(g *Group) [][]float64 {
	out := make([][]float64, g.SubjectCount())
	for s, subj := range g.Data {
		out[s] = meanAcrossRows(subj)
	}
	return out
}

// meanAcrossRows averages equally sized rows column by column, ignoring NaN.
func meanAcrossRows(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	column := make([]float64, len(rows))
	for t := range out {
		for r, row := range rows {
			column[r] = row[t]
		}
		out[t] = common.NanMean(column)
	}
	return out
}

// ZScoreByChannel standardises each row by its own NaN-aware mean and
// population deviation: (x - mean) / (std + 1e-9).
func ZScoreByChannel(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for c, row := range m {
		mean := common.NanMean(row)
		std := common.NanStd(row)
		z := make([]float64, len(row))
		for t, v := range row {
			z[t] = (v - mean) / (std + zScoreEpsilon)
		}
		out[c] = z
	}
	return out
}

// MedianERP summarises a [channel][sample] grand average across channels.
func MedianERP(grand [][]float64) Spread {
	return NewSpread(grand)
}

// ERPSummary is the across-subject mean and standard error of the
// channel-mean waveform.
type ERPSummary struct {
	Mean common.Series `json:"mean"`
	SE   common.Series `json:"se"`
}

// SummariseERP reduces a group to its channel-mean ERP.
func SummariseERP(g *Group) ERPSummary {
	mean, se := stats.ColumnMeanSEM(ChannelMean(g))
	return ERPSummary{Mean: mean, SE: se}
}

// CI95 returns mean ± 1.96 SE bounds.
func (e ERPSummary) CI95() (lower, upper []float64) {
	lower = make([]float64, len(e.Mean))
	upper = make([]float64, len(e.Mean))
	for i := range e.Mean {
		lower[i] = e.Mean[i] - 1.96*e.SE[i]
		upper[i] = e.Mean[i] + 1.96*e.SE[i]
	}
	return lower, upper
}

// Missing reports the fraction of cells in the group that are NaN.
func Missing(g *Group) float64 {
	total, missing := 0, 0
	for _, subj := range g.Data {
		for _, row := range subj {
			for _, v := range row {
				total++
				if math.IsNaN(v) {
					missing++
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(missing) / float64(total)
}
