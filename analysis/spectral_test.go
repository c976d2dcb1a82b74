package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/rdstat/algorithms/spectral"
)

func sine(n int, rate, freq, amp, phase float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate+phase)
	}
	return x
}

func TestSegmentLength(t *testing.T) {
	assert.Equal(t, 256, SegmentLength(1000, 256))
	assert.Equal(t, 100, SegmentLength(100, 256))
	assert.Equal(t, 10, SegmentLength(10, 256))
	assert.Equal(t, 8, SegmentLength(100, 8))
	assert.Equal(t, 10, SegmentLength(10, 12))
	assert.Equal(t, 100, SegmentLength(100, 0))
}

func TestPSDAllMissingIsZero(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = math.NaN()
	}

	res, err := NewSpectralEngine(0).PSD(x, 256)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Segment)
	assert.Len(t, res.Power, 51)
	for _, p := range res.Power {
		assert.Equal(t, 0.0, p)
	}
}

func TestPSDInterpolatesGaps(t *testing.T) {
	x := sine(256, 256, 10, 1, 0)
	gappy := append([]float64(nil), x...)
	for i := 100; i < 104; i++ {
		gappy[i] = math.NaN()
	}

	eng := NewSpectralEngine(128)
	res, err := eng.PSD(gappy, 256)
	require.NoError(t, err)
	for _, p := range res.Power {
		assert.False(t, math.IsNaN(p))
	}
	assert.InDelta(t, 10.0, spectral.PeakFrequency(res.Frequencies, res.Power, 1, 100), 1e-9)

	_, err = eng.PSD(nil, 256)
	assert.Error(t, err)
}

func TestBandPowerMonotonic(t *testing.T) {
	x := make([]float64, 512)
	for i := range x {
		ti := float64(i) / 256
		x[i] = math.Sin(2*math.Pi*6*ti) + 0.5*math.Sin(2*math.Pi*10*ti) + 0.25*math.Cos(2*math.Pi*21*ti) + 0.1*float64(i%7)
	}

	res, err := NewSpectralEngine(256).PSD(x, 256)
	require.NoError(t, err)

	narrow := spectral.BandPower(res.Frequencies, res.Power, 8, 12)
	wide := spectral.BandPower(res.Frequencies, res.Power, 4, 30)
	wider := spectral.BandPower(res.Frequencies, res.Power, 1, 60)
	assert.GreaterOrEqual(t, narrow, 0.0)
	assert.GreaterOrEqual(t, wide, narrow)
	assert.GreaterOrEqual(t, wider, wide)
}

func TestSubjectAndGroupPSD(t *testing.T) {
	channels := []string{"A", "B", "C"}
	g := makeGroup(t, "g", channels, 4, 256, 256, func(s, c, tt int) float64 {
		return float64(c+1) * math.Sin(2*math.Pi*10*float64(tt)/256+float64(s))
	})

	eng := NewSpectralEngine(256)
	freqs, psds, err := eng.ChannelPSD(g.Data[0], 256)
	require.NoError(t, err)
	require.Len(t, psds, 3)

	_, med, err := eng.SubjectPSD(g.Data[0], 256)
	require.NoError(t, err)
	// median channel is B
	for k := range med {
		assert.InDelta(t, psds[1][k], med[k], 1e-12)
	}

	gp, err := eng.GroupPSD(g)
	require.NoError(t, err)
	assert.Len(t, gp.Subjects, 4)
	assert.Equal(t, len(freqs), len(gp.Summary.Median))

	power, peak := AlphaMetrics(gp.Frequencies, gp.Subjects[0])
	assert.Greater(t, power, 0.0)
	assert.Equal(t, 10.0, peak)

	alpha, order := ChannelAlphaPower(freqs, psds)
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Greater(t, alpha[2], alpha[0])
}
