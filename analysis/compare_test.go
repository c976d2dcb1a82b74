package analysis

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alphaWave is a 10 Hz rhythm of the given amplitude with per-subject phase.
func alphaWave(amp float64) func(s, c, tt int) float64 {
	return func(s, c, tt int) float64 {
		phase := float64(s)*0.7 + float64(c)*0.3
		return amp*math.Sin(2*math.Pi*10*float64(tt)/128+phase) + 0.1*float64((s+tt)%5)
	}
}

func TestCompare(t *testing.T) {
	channels := []string{"FP1", "FP2", "C3", "C4"}
	a := makeGroup(t, "a", channels, 6, 128, 128, alphaWave(2))
	b := makeGroup(t, "b", channels, 6, 128, 128, alphaWave(1))

	opts := DefaultCompareOptions()
	opts.Cluster.Permutations = 20
	opts.Cluster.Workers = 2

	cmp, err := Compare(context.Background(), a, b, opts)
	require.NoError(t, err)

	assert.NotEmpty(t, cmp.ID)
	assert.Equal(t, channels, cmp.Channels)
	assert.Equal(t, 128, cmp.SampleRate)
	assert.Len(t, cmp.Times, 128)
	assert.Len(t, cmp.SignificantMask, 128)

	assert.Equal(t, "a", cmp.A.Label)
	assert.Len(t, cmp.A.AlphaPower, 6)
	assert.Greater(t, float64(cmp.A.AlphaPowerMean), float64(cmp.B.AlphaPowerMean))
	assert.Equal(t, 10.0, float64(cmp.A.PeakAlphaMean))
	assert.Equal(t, 0.0, float64(cmp.A.PeakAlphaSEM))

	require.Len(t, cmp.A.Envelopes, 4)
	for _, env := range cmp.A.Envelopes {
		assert.Len(t, env.Mean, 128)
	}
	assert.Len(t, cmp.A.ERP.Mean, 128)

	require.Len(t, cmp.Clusters.Channels, 4)
	assert.InDelta(t, 2.228138852, float64(cmp.Clusters.CriticalValue), 1e-6)
	for _, sc := range cmp.Significant {
		assert.Less(t, sc.PValue, DefaultSignificance)
		assert.True(t, cmp.SignificantMask[sc.Start])
	}

	body, err := json.Marshal(cmp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"group_a"`)
	assert.Contains(t, string(body), `"significant_mask"`)
}

func TestCompareIncompatible(t *testing.T) {
	a := makeGroup(t, "a", []string{"FP1"}, 2, 64, 128, func(s, c, tt int) float64 { return 0 })
	b := makeGroup(t, "b", []string{"FP1"}, 2, 32, 128, func(s, c, tt int) float64 { return 0 })

	_, err := Compare(context.Background(), a, b, DefaultCompareOptions())
	assert.Error(t, err)
}

func TestSummarise(t *testing.T) {
	channels := []string{"A", "B", "C"}
	g := makeGroup(t, "g", channels, 3, 256, 256, func(s, c, tt int) float64 {
		return float64(3-c) * math.Sin(2*math.Pi*10*float64(tt)/256)
	})

	sum, err := Summarise(g, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, sum.AlphaOrder)
	require.Len(t, sum.Grand, 3)
	require.Len(t, sum.ZScored, 3)
	assert.Len(t, sum.ERP.Median, 256)
	assert.Len(t, sum.PSD.Median, 129)
	assert.Len(t, sum.AlphaPower, 3)

	// every channel has the same shape, so the z-scores coincide
	for i := range sum.ZScored[0] {
		assert.InDelta(t, sum.ZScored[0][i], sum.ZScored[2][i], 1e-6)
	}
}
