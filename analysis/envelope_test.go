package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/rdstat/algorithms/spectral"
	"github.com/RyanBlaney/rdstat/internal/errors"
)

func TestEnvelopeAllMissingStaysMissing(t *testing.T) {
	x := make([]float64, 64)
	for i := range x {
		x[i] = math.NaN()
	}

	env, err := NewEnvelopeEngine().Envelope(x, 256, spectral.Alpha)
	require.NoError(t, err)
	require.Len(t, env, 64)
	for _, v := range env {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEnvelopeTracksInBandAmplitude(t *testing.T) {
	x := sine(1024, 256, 10, 2, 0)
	x[500] = math.NaN()

	env, err := NewEnvelopeEngine().Envelope(x, 256, spectral.Alpha)
	require.NoError(t, err)
	require.Len(t, env, len(x))

	for i := 384; i < 640; i++ {
		assert.False(t, math.IsNaN(env[i]))
		assert.InDelta(t, 2.0, env[i], 0.1, "sample %d", i)
	}

	// out of band: a 10 Hz tone barely registers in beta
	beta, err := NewEnvelopeEngine().Envelope(x, 256, spectral.Beta)
	require.NoError(t, err)
	assert.Less(t, beta[512], 0.1)
}

func TestEnvelopeBandAboveNyquist(t *testing.T) {
	_, err := NewEnvelopeEngine().Envelope(make([]float64, 32), 50, spectral.Beta)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestGroupEnvelopes(t *testing.T) {
	g := makeGroup(t, "g", []string{"A", "B"}, 3, 256, 256, func(s, c, tt int) float64 {
		if s == 2 && c == 1 {
			return math.NaN()
		}
		return math.Sin(2 * math.Pi * 6 * float64(tt) / 256)
	})

	bands, err := NewEnvelopeEngine().GroupEnvelopes(g, spectral.StandardBands())
	require.NoError(t, err)
	require.Len(t, bands, 4)
	assert.Equal(t, "delta", bands[0].Band.Name)

	theta := bands[1]
	require.Len(t, theta.Subjects, 3)
	require.Len(t, theta.Mean, 256)
	// the missing channel is ignored in subject 2's channel mean
	assert.InDelta(t, theta.Subjects[0][128], theta.Subjects[2][128], 1e-9)
	assert.False(t, math.IsNaN(theta.Mean[128]))

	per, err := NewEnvelopeEngine().SubjectBandEnvelopes(g.Data[0], 256, []spectral.Band{spectral.Theta})
	require.NoError(t, err)
	assert.InDelta(t, theta.Subjects[0][100], per[0][100], 1e-12)
}
