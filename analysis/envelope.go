package analysis

import (
	"fmt"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/filters"
	"github.com/RyanBlaney/rdstat/algorithms/spectral"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/internal/errors"
)

// DefaultFilterOrder is the Butterworth prototype order for band envelopes.
const DefaultFilterOrder = 4

// EnvelopeEngine extracts time-resolved band amplitude.
type EnvelopeEngine struct {
	order   int
	hilbert *spectral.Hilbert
}

// NewEnvelopeEngine creates an engine using a 4th-order band-pass.
func NewEnvelopeEngine() *EnvelopeEngine {
	return &EnvelopeEngine{
		order:   DefaultFilterOrder,
		hilbert: spectral.NewHilbert(),
	}
}

func (e *EnvelopeEngine) design(sampleRate float64, band spectral.Band) (*filters.ButterworthBandpass, error) {
	bf, err := filters.NewButterworthBandpass(e.order, sampleRate, band.Low, band.High)
	if err != nil {
		appErr := errors.InvalidInput(fmt.Sprintf("cannot filter %s band", band.Name))
		appErr.Cause = err
		return nil, appErr
	}
	return bf, nil
}

// Envelope band-passes x with zero phase and returns the analytic-signal
// magnitude. Output has the length of x. A channel with no valid samples
// yields an all-NaN envelope; partial gaps are interpolated before filtering.
func (e *EnvelopeEngine) Envelope(x []float64, sampleRate float64, band spectral.Band) ([]float64, error) {
	bf, err := e.design(sampleRate, band)
	if err != nil {
		return nil, err
	}
	return e.envelope(bf, x), nil
}

func (e *EnvelopeEngine) envelope(bf *filters.ButterworthBandpass, x []float64) []float64 {
	if common.AllMissing(x) {
		return common.MissingSeries(len(x))
	}
	return e.hilbert.Envelope(bf.FiltFilt(CleanSeries(x)))
}

// BandEnvelope is one band's channel-mean envelope for every subject.
type BandEnvelope struct {
	Band     spectral.Band `json:"band"`
	Subjects [][]float64   `json:"-"`
	Mean     common.Series `json:"mean"`
}

// SubjectBandEnvelopes computes, for each band, the NaN-aware mean envelope
// across a subject's channels.
func (e *EnvelopeEngine) SubjectBandEnvelopes(subject [][]float64, sampleRate float64, bands []spectral.Band) ([][]float64, error) {
	out := make([][]float64, len(bands))
	for b, band := range bands {
		bf, err := e.design(sampleRate, band)
		if err != nil {
			return nil, err
		}
		out[b] = e.channelMean(bf, subject)
	}
	return out, nil
}

func (e *EnvelopeEngine) channelMean(bf *filters.ButterworthBandpass, subject [][]float64) []float64 {
	envs := make([][]float64, len(subject))
	for c, row := range subject {
		envs[c] = e.envelope(bf, row)
	}
	return columnNanMean(envs)
}

// GroupEnvelopes runs every band over every subject of g.
func (e *EnvelopeEngine) GroupEnvelopes(g *cohort.Group, bands []spectral.Band) ([]BandEnvelope, error) {
	out := make([]BandEnvelope, len(bands))
	for b, band := range bands {
		bf, err := e.design(float64(g.SampleRate), band)
		if err != nil {
			return nil, fmt.Errorf("cohort %s: %w", g.Label, err)
		}

		subjects := make([][]float64, g.SubjectCount())
		for s, subj := range g.Data {
			subjects[s] = e.channelMean(bf, subj)
		}
		out[b] = BandEnvelope{
			Band:     band,
			Subjects: subjects,
			Mean:     columnNanMean(subjects),
		}
	}
	return out, nil
}

func columnNanMean(rows [][]float64) []float64 {
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
