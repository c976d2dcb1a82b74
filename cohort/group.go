package cohort

import (
	"fmt"
	"math"
	"slices"

	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
	"github.com/RyanBlaney/rdstat/record"
)

// DefaultMaxDisplaySeconds caps every comparison to the first second.
const DefaultMaxDisplaySeconds = 1.0

// Group is one cohort aligned onto a shared channel list and time window.
//
// Data is indexed [subject][channel][sample]. Every subject has
// len(Channels) rows of SampleCount() values; NaN marks missing cells.
type Group struct {
	Label      string        `json:"label"`
	Channels   []string      `json:"channels"`
	SampleRate int           `json:"sampling_rate_hz"`
	Subjects   []string      `json:"subjects"`
	Data       [][][]float64 `json:"-"`
}

// SubjectCount returns the number of subjects.
func (g *Group) SubjectCount() int {
	return len(g.Data)
}

// ChannelCount returns the number of canonical channels.
func (g *Group) ChannelCount() int {
	return len(g.Channels)
}

// SampleCount returns the capped time dimension.
func (g *Group) SampleCount() int {
	if len(g.Data) == 0 || len(g.Data[0]) == 0 {
		return 0
	}
	return len(g.Data[0][0])
}

// ChannelIndex returns the position of name in Channels, or -1.
func (g *Group) ChannelIndex(name string) int {
	return slices.Index(g.Channels, name)
}

// ChannelData returns one channel across subjects as [subject][sample].
// Rows alias the group.
func (g *Group) ChannelData(ch int) [][]float64 {
	out := make([][]float64, len(g.Data))
	for s, subj := range g.Data {
		out[s] = subj[ch]
	}
	return out
}

// Times returns the sample times in seconds.
func (g *Group) Times() []float64 {
	n := g.SampleCount()
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) / float64(g.SampleRate)
	}
	return times
}

// Align stacks recordings into a Group.
//
// The first recording fixes the channel list and sampling rate. Every other
// recording is remapped by exact channel name; channels it lacks become
// missing rows. The time axis is cut to
//
//	min(round(rate * maxDisplaySeconds), shortest recording)
//
// so no subject contributes samples it did not record. A non-positive
// maxDisplaySeconds disables the time cap. Recordings are not modified.
func Align(label string, recordings []*record.Recording, subjects []string, maxDisplaySeconds float64) (*Group, error) {
	if len(recordings) == 0 {
		return nil, errors.Structural(label, "", "", "no recordings in cohort")
	}

	logger := logging.WithFields(logging.Fields{
		"component": "group_aligner",
		"cohort":    label,
	})

	first := recordings[0]
	g := &Group{
		Label:      label,
		Channels:   slices.Clone(first.ChannelNames),
		SampleRate: first.SampleRate,
		Subjects:   make([]string, len(recordings)),
		Data:       make([][][]float64, len(recordings)),
	}

	window := sampleCap(recordings, first.SampleRate, maxDisplaySeconds)

	for s, rec := range recordings {
		if s < len(subjects) && subjects[s] != "" {
			g.Subjects[s] = subjects[s]
		} else {
			g.Subjects[s] = fmt.Sprintf("subject-%d", s+1)
		}

		if rec.SampleRate != g.SampleRate {
			logger.Warn("sampling rate differs from cohort, using the first recording's", logging.Fields{
				"subject":     g.Subjects[s],
				"sample_rate": rec.SampleRate,
				"cohort_rate": g.SampleRate,
			})
		}

		g.Data[s] = alignRecording(rec, g.Channels, window)
	}

	logger.Debug("aligned cohort", logging.Fields{
		"subjects": len(recordings),
		"channels": len(g.Channels),
		"samples":  window,
	})

	return g, nil
}

func sampleCap(recordings []*record.Recording, rate int, maxDisplaySeconds float64) int {
	shortest := recordings[0].SampleCount()
	for _, rec := range recordings[1:] {
		shortest = min(shortest, rec.SampleCount())
	}
	if maxDisplaySeconds <= 0 {
		return shortest
	}
	byTime := int(math.RoundToEven(float64(rate) * maxDisplaySeconds))
	return min(byTime, shortest)
}

func alignRecording(rec *record.Recording, channels []string, window int) [][]float64 {
	rows := make([][]float64, len(channels))
	for c, name := range channels {
		row := make([]float64, window)
		for i := range row {
			row[i] = math.NaN()
		}
		if idx := rec.ChannelIndex(name); idx >= 0 {
			copy(row, rec.Samples[idx])
		}
		rows[c] = row
	}
	return rows
}

// CheckCompatible verifies two cohorts can be compared timepoint by timepoint.
func CheckCompatible(a, b *Group) error {
	pair := a.Label + "/" + b.Label

	if a.SubjectCount() == 0 {
		return errors.Structural(a.Label, "", "", "cohort has no subjects")
	}
	if b.SubjectCount() == 0 {
		return errors.Structural(b.Label, "", "", "cohort has no subjects")
	}
	if len(a.Channels) != len(b.Channels) {
		return errors.Structural(pair, "", "", fmt.Sprintf(
			"channel counts differ: %d vs %d", len(a.Channels), len(b.Channels)))
	}
	for i := range a.Channels {
		if a.Channels[i] != b.Channels[i] {
			return errors.Structural(pair, "", a.Channels[i], fmt.Sprintf(
				"channel %d differs: %q vs %q", i, a.Channels[i], b.Channels[i]))
		}
	}
	if a.SampleRate != b.SampleRate {
		return errors.Structural(pair, "", "", fmt.Sprintf(
			"sampling rates differ: %d vs %d Hz", a.SampleRate, b.SampleRate))
	}
	if a.SampleCount() != b.SampleCount() {
		return errors.Structural(pair, "", "", fmt.Sprintf(
			"time windows differ: %d vs %d samples", a.SampleCount(), b.SampleCount()))
	}
	return nil
}
