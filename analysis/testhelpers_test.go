package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/record"
)

// makeGroup builds a cohort of nSubj subjects from value(subject, channel, t).
func makeGroup(t *testing.T, label string, channels []string, nSubj, nT, rate int, value func(s, c, t int) float64) *cohort.Group {
	t.Helper()
	recs := make([]*record.Recording, nSubj)
	for s := range recs {
		rec := record.NewRecording(channels, nT, rate)
		for c := range rec.Samples {
			for i := range rec.Samples[c] {
				rec.Samples[c][i] = value(s, c, i)
			}
		}
		recs[s] = rec
	}
	g, err := cohort.Align(label, recs, nil, 0)
	require.NoError(t, err)
	return g
}
