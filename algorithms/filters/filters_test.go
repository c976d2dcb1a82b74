package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewButterworthBandpassValidation(t *testing.T) {
	_, err := NewButterworthBandpass(0, 256, 8, 12)
	assert.Error(t, err)

	_, err = NewButterworthBandpass(4, 256, 0, 12)
	assert.Error(t, err)

	_, err = NewButterworthBandpass(4, 256, 12, 8)
	assert.Error(t, err)

	_, err = NewButterworthBandpass(4, 256, 8, 128)
	assert.Error(t, err)

	bf, err := NewButterworthBandpass(4, 256, 8, 12)
	require.NoError(t, err)
	assert.Len(t, bf.Sections(), 4)
	assert.Equal(t, 4, bf.Order())
}

func TestButterworthMagnitudeResponse(t *testing.T) {
	bf, err := NewButterworthBandpass(4, 256, 8, 12)
	require.NoError(t, err)

	// -3 dB exactly at both pre-warped edges
	mag, _ := bf.GetFrequencyResponse(8)
	assert.InDelta(t, 1/math.Sqrt2, mag, 1e-6)
	mag, _ = bf.GetFrequencyResponse(12)
	assert.InDelta(t, 1/math.Sqrt2, mag, 1e-6)

	mag, _ = bf.GetFrequencyResponse(10)
	assert.Greater(t, mag, 0.95)
	assert.LessOrEqual(t, mag, 1.0+1e-9)

	mag, _ = bf.GetFrequencyResponse(0)
	assert.InDelta(t, 0, mag, 1e-9)

	mag, _ = bf.GetFrequencyResponse(60)
	assert.Less(t, mag, 1e-3)
}

func TestButterworthStablePoles(t *testing.T) {
	bf, err := NewButterworthBandpass(4, 256, 1, 4)
	require.NoError(t, err)

	for _, s := range bf.Sections() {
		// |p|^2 = a2 for a conjugate pair
		assert.Less(t, s.A2, 1.0)
		assert.Greater(t, s.A2, 0.0)
	}
}

func TestFiltFiltPassesInBandTone(t *testing.T) {
	const rate = 256.0
	n := 1024
	x := make([]float64, n)
	for i := range x {
		tm := float64(i) / rate
		x[i] = math.Sin(2*math.Pi*10*tm) + math.Sin(2*math.Pi*50*tm)
	}

	bf, err := NewButterworthBandpass(4, rate, 8, 12)
	require.NoError(t, err)
	y := bf.FiltFilt(x)
	require.Len(t, y, n)

	mag, _ := bf.GetFrequencyResponse(10)
	gain := mag * mag

	// away from the edges the output is the 10 Hz tone scaled by |H|^2, with no phase shift
	for i := 384; i < 640; i++ {
		tm := float64(i) / rate
		want := gain * math.Sin(2*math.Pi*10*tm)
		assert.InDelta(t, want, y[i], 0.02, "sample %d", i)
	}
}

func TestFiltFiltShortSignals(t *testing.T) {
	bf, err := NewButterworthBandpass(4, 256, 8, 12)
	require.NoError(t, err)

	assert.Empty(t, bf.FiltFilt(nil))

	y := bf.FiltFilt([]float64{1})
	require.Len(t, y, 1)
	assert.False(t, math.IsNaN(y[0]))

	short := []float64{1, 2, 3, 2, 1, 0, -1}
	y = bf.FiltFilt(short)
	require.Len(t, y, len(short))
	for _, v := range y {
		assert.False(t, math.IsNaN(v))
	}
}

func TestFiltFiltConstantIsRemoved(t *testing.T) {
	bf, err := NewButterworthBandpass(4, 256, 8, 12)
	require.NoError(t, err)

	x := make([]float64, 512)
	for i := range x {
		x[i] = 5
	}
	y := bf.FiltFilt(x)
	for i := range y {
		assert.InDelta(t, 0, y[i], 1e-6)
	}
}

func TestOddExtend(t *testing.T) {
	ext := oddExtend([]float64{1, 2, 4, 7}, 2)
	assert.Equal(t, []float64{-2, 0, 1, 2, 4, 7, 10, 12}, ext)
}
