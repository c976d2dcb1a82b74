package analysis

import (
	"fmt"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/spectral"
	"github.com/RyanBlaney/rdstat/algorithms/stats"
	"github.com/RyanBlaney/rdstat/cohort"
)

const (
	// DefaultSegmentLength is the Welch segment length before clamping.
	DefaultSegmentLength = 256

	minSegmentLength = 16
)

// CleanSeries makes a channel usable by the estimators: an entirely missing
// channel becomes zeros, gaps are linearly interpolated and edges held flat.
func CleanSeries(x []float64) []float64 {
	return common.FillMissing(x)
}

// SegmentLength is min(nperseg, max(16, n)), never more than n.
func SegmentLength(n, nperseg int) int {
	if nperseg <= 0 {
		nperseg = DefaultSegmentLength
	}
	return min(min(nperseg, max(minSegmentLength, n)), n)
}

// SpectralEngine estimates per-channel power spectra.
type SpectralEngine struct {
	welch         *spectral.Welch
	segmentLength int
}

// NewSpectralEngine creates an engine with the given default segment length.
// Non-positive values select DefaultSegmentLength.
func NewSpectralEngine(segmentLength int) *SpectralEngine {
	if segmentLength <= 0 {
		segmentLength = DefaultSegmentLength
	}
	return &SpectralEngine{
		welch:         spectral.NewWelch(),
		segmentLength: segmentLength,
	}
}

// PSD cleans x, removes its least-squares line and runs Welch's method.
func (e *SpectralEngine) PSD(x []float64, sampleRate float64) (*spectral.PSDResult, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty channel")
	}
	clean := common.Detrend(CleanSeries(x))
	return e.welch.Compute(clean, sampleRate, SegmentLength(len(x), e.segmentLength))
}

// ChannelPSD computes the PSD of every row of a [channel][sample] matrix.
func (e *SpectralEngine) ChannelPSD(matrix [][]float64, sampleRate float64) (freqs []float64, psds [][]float64, err error) {
	psds = make([][]float64, len(matrix))
	for c, row := range matrix {
		res, err := e.PSD(row, sampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("channel %d: %w", c, err)
		}
		freqs = res.Frequencies
		psds[c] = res.Power
	}
	return freqs, psds, nil
}

// SubjectPSD is the median PSD across a subject's channels.
func (e *SpectralEngine) SubjectPSD(matrix [][]float64, sampleRate float64) (freqs, median []float64, err error) {
	freqs, psds, err := e.ChannelPSD(matrix, sampleRate)
	if err != nil {
		return nil, nil, err
	}
	return freqs, stats.ColumnPercentile(psds, 50), nil
}

// GroupPSD holds each subject's channel-median PSD and their spread.
type GroupPSD struct {
	Frequencies common.Series `json:"frequencies"`
	Subjects    [][]float64   `json:"-"`
	Summary     cohort.Spread `json:"summary"`
}

// GroupPSD runs SubjectPSD for every subject of g.
func (e *SpectralEngine) GroupPSD(g *cohort.Group) (*GroupPSD, error) {
	out := &GroupPSD{Subjects: make([][]float64, g.SubjectCount())}
	for s, subj := range g.Data {
		freqs, med, err := e.SubjectPSD(subj, float64(g.SampleRate))
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", g.Subjects[s], err)
		}
		out.Frequencies = freqs
		out.Subjects[s] = med
	}
	out.Summary = cohort.NewSpread(out.Subjects)
	return out, nil
}

// AlphaMetrics returns the 8-12 Hz band power and the frequency of the
// highest alpha bin.
func AlphaMetrics(freqs, power []float64) (bandPower, peak float64) {
	return spectral.BandPower(freqs, power, spectral.Alpha.Low, spectral.Alpha.High),
		spectral.PeakFrequency(freqs, power, spectral.Alpha.Low, spectral.Alpha.High)
}

// ChannelAlphaPower is the alpha band power of each row of psds, with the
// channel order sorted from strongest to weakest.
func ChannelAlphaPower(freqs []float64, psds [][]float64) (power []float64, order []int) {
	power = make([]float64, len(psds))
	order = make([]int, len(psds))
	for c, p := range psds {
		power[c] = spectral.BandPower(freqs, p, spectral.Alpha.Low, spectral.Alpha.High)
		order[c] = c
	}
	sortByDescending(order, power)
	return power, order
}

func sortByDescending(order []int, key []float64) {
	// stable insertion sort, channel counts are small
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && key[order[j]] > key[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}
