package cohort

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/record"
)

func filledRecording(names []string, nSamples, rate int, value func(ch, t int) float64) *record.Recording {
	rec := record.NewRecording(names, nSamples, rate)
	for c := range rec.Samples {
		for t := range rec.Samples[c] {
			rec.Samples[c][t] = value(c, t)
		}
	}
	return rec
}

func TestAlignCapUsesShortestRecording(t *testing.T) {
	names := []string{"FP1", "FP2"}
	recs := []*record.Recording{
		filledRecording(names, 300, 256, func(c, t int) float64 { return 1 }),
		filledRecording(names, 500, 256, func(c, t int) float64 { return 2 }),
		filledRecording(names, 700, 256, func(c, t int) float64 { return 3 }),
	}

	g, err := Align("control", recs, nil, 1.0)
	require.NoError(t, err)

	assert.Equal(t, 3, g.SubjectCount())
	assert.Equal(t, 2, g.ChannelCount())
	assert.Equal(t, 256, g.SampleCount())
	assert.Equal(t, []string{"subject-1", "subject-2", "subject-3"}, g.Subjects)

	// inputs are untouched
	assert.Len(t, recs[2].Samples[0], 700)
}

func TestAlignCapByShortestWhenBelowTime(t *testing.T) {
	names := []string{"A"}
	recs := []*record.Recording{
		filledRecording(names, 100, 256, func(c, t int) float64 { return 1 }),
		filledRecording(names, 500, 256, func(c, t int) float64 { return 2 }),
	}
	g, err := Align("x", recs, nil, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 100, g.SampleCount())

	g, err = Align("x", recs, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, g.SampleCount())
}

func TestAlignRemapsByName(t *testing.T) {
	first := filledRecording([]string{"FP1", "FP2", "Cz"}, 4, 256, func(c, t int) float64 { return float64(c) })
	// different order, Cz absent, extra channel present
	second := filledRecording([]string{"FP2", "O1", "FP1"}, 4, 256, func(c, t int) float64 { return float64(10 + c) })

	g, err := Align("alc", []*record.Recording{first, second}, []string{"a.rd.000", "b.rd.000"}, 1.0)
	require.NoError(t, err)

	assert.Equal(t, []string{"FP1", "FP2", "Cz"}, g.Channels)
	assert.Equal(t, []string{"a.rd.000", "b.rd.000"}, g.Subjects)

	subj := g.Data[1]
	assert.Equal(t, 12.0, subj[0][0]) // FP1 from position 2
	assert.Equal(t, 10.0, subj[1][0]) // FP2 from position 0
	for _, v := range subj[2] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestAlignEmptyIsStructural(t *testing.T) {
	_, err := Align("control", nil, nil, 1.0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeStructural))
	assert.Contains(t, err.Error(), "cohort=control")
}

func TestCheckCompatible(t *testing.T) {
	mk := func(label string, names []string, rate int) *Group {
		rec := filledRecording(names, 10, rate, func(c, t int) float64 { return 0 })
		g, err := Align(label, []*record.Recording{rec}, nil, 0)
		require.NoError(t, err)
		return g
	}

	a := mk("control", []string{"A", "B"}, 256)
	assert.NoError(t, CheckCompatible(a, mk("alc", []string{"A", "B"}, 256)))

	err := CheckCompatible(a, mk("alc", []string{"A"}, 256))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeStructural))
	assert.Contains(t, err.Error(), "control/alc")

	err = CheckCompatible(a, mk("alc", []string{"A", "C"}, 256))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel=B")

	err = CheckCompatible(a, mk("alc", []string{"A", "B"}, 500))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling rates differ")
}

func writeRecord(t *testing.T, dir, name string, value float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# 1 trials, 2 chans, 4 samples\n# 3.906000 msecs uV\n# A chan 0\n# B chan 1\n")
	for _, ch := range []string{"A", "B"} {
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, "0 %s %d %.3f\n", ch, i, value)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestLoadFilesSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	p1 := writeRecord(t, dir, "s1.rd.000", 1)
	p2 := writeRecord(t, dir, "s2.rd.000", 3)

	opts := DefaultLoadOptions()
	opts.Workers = 2
	g, err := LoadFiles(context.Background(), "control", []string{p1, filepath.Join(dir, "gone.rd.000"), p2}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1.rd.000", "s2.rd.000"}, g.Subjects)
	assert.Equal(t, []string{"A", "B"}, g.Channels)
	assert.Equal(t, 256, g.SampleRate)
	assert.Equal(t, 4, g.SampleCount())

	grand := GrandAverage(g)
	assert.InDelta(t, 2.0, grand[0][0], 1e-12)
}

func TestLoadFilesAllMissing(t *testing.T) {
	_, err := LoadFiles(context.Background(), "alc", []string{"/nonexistent/a.rd.000"}, DefaultLoadOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeStructural))
	assert.Contains(t, err.Error(), "cohort=alc")
}

func TestLoadFilesUnreadableNamesFile(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be scanned as a file
	bad := filepath.Join(dir, "sub.rd.000")
	require.NoError(t, os.Mkdir(bad, 0o755))

	_, err := LoadFiles(context.Background(), "control", []string{bad}, DefaultLoadOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file="+bad)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "b.rd.000", 2)
	writeRecord(t, dir, "a.rd.000", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	g, err := LoadDir(context.Background(), "control", dir, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.rd.000", "b.rd.000"}, g.Subjects)

	_, err = LoadDir(context.Background(), "control", t.TempDir(), DefaultLoadOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeStructural))
}

func TestSummaries(t *testing.T) {
	names := []string{"A", "B", "C"}
	recs := []*record.Recording{
		filledRecording(names, 3, 256, func(c, t int) float64 { return float64(c + t) }),
		filledRecording(names, 3, 256, func(c, t int) float64 { return float64(c+t) + 2 }),
	}
	recs[1].Samples[2][0] = math.NaN()

	g, err := Align("x", recs, nil, 0)
	require.NoError(t, err)

	grand := GrandAverage(g)
	assert.Equal(t, 1.0, grand[0][0])
	// NaN subject ignored
	assert.Equal(t, 2.0, grand[2][0])

	cm := ChannelMean(g)
	require.Len(t, cm, 2)
	assert.InDelta(t, 1.0, cm[0][0], 1e-12)
	assert.InDelta(t, 2.5, cm[1][0], 1e-12)

	erp := SummariseERP(g)
	assert.InDelta(t, 1.75, erp.Mean[0], 1e-12)
	assert.InDelta(t, 0.75/math.Sqrt2, erp.SE[0], 1e-12)
	lo, hi := erp.CI95()
	assert.InDelta(t, erp.Mean[0]-1.96*erp.SE[0], lo[0], 1e-12)
	assert.InDelta(t, erp.Mean[0]+1.96*erp.SE[0], hi[0], 1e-12)

	spread := MedianERP(grand)
	require.Len(t, spread.Median, 3)
	// column 0 across channels: 1, 2, 2
	assert.InDelta(t, 2.0, spread.Median[0], 1e-12)
	assert.InDelta(t, 1.2, spread.P10[0], 1e-12)

	z := ZScoreByChannel([][]float64{{1, 2, 3}, {5, 5, 5}})
	assert.InDelta(t, -1.224744871, z[0][0], 1e-6)
	assert.InDelta(t, 0, z[1][1], 1e-12)

	assert.InDelta(t, 1.0/18.0, Missing(g), 1e-12)
	assert.Equal(t, []float64{0, 1.0 / 256, 2.0 / 256}, g.Times())
}
