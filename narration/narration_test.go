package narration

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/rdstat/internal/errors"
)

func timesFor(n int, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / rate
	}
	return out
}

func TestStatisticalNarratorHighSpike(t *testing.T) {
	signal := make([]float64, 100)
	signal[50] = 10

	n, err := NewStatisticalNarrator().Narrate(context.Background(), SignalSummary{
		Signal: signal,
		Times:  timesFor(100, 100),
	})
	require.NoError(t, err)

	require.Len(t, n.Anomalies, 1)
	a := n.Anomalies[0]
	assert.Equal(t, 50, a.Index)
	assert.InDelta(t, 0.5, a.Time, 1e-12)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.InDelta(t, 9.9/math.Sqrt(0.99), a.ZScore, 1e-9)
	assert.Equal(t, "Amplitude spike: 10.00 µV (9.9σ from mean)", a.Description)
	assert.Equal(t, "Found 1 statistical anomalies", n.Summary)
	assert.Equal(t, "Statistical analysis only (AI disabled)", n.Analysis)
	assert.True(t, n.Success)
}

func TestStatisticalNarratorMediumSpike(t *testing.T) {
	// one outlier among ten samples always sits 3 sigma out
	signal := make([]float64, 10)
	signal[3] = 5

	anomalies := NewStatisticalNarrator().Anomalies(signal, timesFor(10, 10))
	require.Len(t, anomalies, 1)
	assert.Equal(t, SeverityMedium, anomalies[0].Severity)
	assert.InDelta(t, 3.0, anomalies[0].ZScore, 1e-9)
}

func TestStatisticalNarratorFlatAndShort(t *testing.T) {
	s := NewStatisticalNarrator()
	assert.Empty(t, s.Anomalies([]float64{1, 1, 1}, timesFor(3, 1)))

	// pairs stop at the shorter input
	signal := make([]float64, 10)
	signal[9] = 5
	assert.Empty(t, s.Anomalies(signal, timesFor(5, 1)))

	_, err := s.Narrate(context.Background(), SignalSummary{Times: []float64{0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestDescribe(t *testing.T) {
	d, err := Describe([]float64{1, 2, 3, 4, math.NaN()})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), d.Std, 1e-12)
	assert.Equal(t, 3.0, d.Range)

	_, err = Describe([]float64{math.NaN()})
	assert.Error(t, err)
}

type failingNarrator struct{}

func (failingNarrator) Narrate(context.Context, SignalSummary) (*Narrative, error) {
	return nil, fmt.Errorf("upstream unavailable")
}

func TestFallbackNarrator(t *testing.T) {
	signal := make([]float64, 10)
	signal[3] = 5
	summary := SignalSummary{Signal: signal, Times: timesFor(10, 10)}

	n, err := NewFallbackNarrator(failingNarrator{}, NewStatisticalNarrator()).Narrate(context.Background(), summary)
	require.NoError(t, err)
	assert.Len(t, n.Anomalies, 1)

	n, err = NewFallbackNarrator(nil, NewStatisticalNarrator()).Narrate(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, "Found 1 statistical anomalies", n.Summary)
}

func TestNarrativeRendering(t *testing.T) {
	n := &Narrative{
		Summary:  "Found 1 statistical anomalies",
		Analysis: "Statistical analysis only (AI disabled)",
		Anomalies: []Anomaly{
			{Time: 0.25, Index: 3, Severity: SeverityMedium, Description: "spike"},
		},
	}

	md := n.Markdown()
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "| 0.250 | 3 | medium | spike |")

	html := n.HTML()
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>medium</td>")
	assert.Contains(t, html, `<h2 id="summary">Summary</h2>`)
}
