package record

import (
	"math"
	"slices"
)

// DefaultSampleRate is used when a recording never declares its interval.
const DefaultSampleRate = 256

// Recording is one subject's single-trial capture.
//
// Samples is indexed [channel][sample] and is always
// len(ChannelNames) x SampleCount. Cells that no body line wrote hold NaN.
type Recording struct {
	ChannelNames []string    `json:"channel_names"`
	SampleRate   int         `json:"sampling_rate_hz"`
	IntervalMs   float64     `json:"sampling_interval_ms"`
	Trials       int         `json:"n_trials"`
	Samples      [][]float64 `json:"-"`

	// Stats records what the parser did with each line.
	Stats ParseStats `json:"parse_stats"`
}

// ParseStats counts how body lines were handled. Silent recoveries are
// tallied here instead of logged.
type ParseStats struct {
	Lines          int `json:"lines"`
	HeaderLines    int `json:"header_lines"`
	BodyLines      int `json:"body_lines"`
	ShortLines     int `json:"short_lines"`
	Malformed      int `json:"malformed"`
	OtherTrials    int `json:"other_trials"`
	UnknownChannel int `json:"unknown_channel"`
	OutOfRange     int `json:"out_of_range"`
	Written        int `json:"written"`

	// OversizedHeader is set when the declared layout exceeded MaxCells.
	OversizedHeader bool `json:"oversized_header,omitempty"`
}

// Skipped is the number of body lines that did not populate a cell.
func (s ParseStats) Skipped() int {
	return s.ShortLines + s.Malformed + s.OtherTrials + s.UnknownChannel + s.OutOfRange
}

// NewRecording allocates a recording whose matrix is entirely missing.
func NewRecording(names []string, nSamples, sampleRate int) *Recording {
	rec := &Recording{
		ChannelNames: slices.Clone(names),
		SampleRate:   sampleRate,
		Samples:      make([][]float64, len(names)),
	}
	if sampleRate > 0 {
		rec.IntervalMs = 1000.0 / float64(sampleRate)
	}
	for i := range rec.Samples {
		rec.Samples[i] = missingRow(nSamples)
	}
	return rec
}

func missingRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// ChannelCount returns the number of rows.
func (r *Recording) ChannelCount() int {
	return len(r.ChannelNames)
}

// SampleCount returns the number of columns.
func (r *Recording) SampleCount() int {
	if len(r.Samples) == 0 {
		return 0
	}
	return len(r.Samples[0])
}

// ChannelIndex returns the first row labelled name, or -1.
func (r *Recording) ChannelIndex(name string) int {
	return slices.Index(r.ChannelNames, name)
}

// Channel returns the row labelled name. The slice aliases the recording.
func (r *Recording) Channel(name string) ([]float64, bool) {
	idx := r.ChannelIndex(name)
	if idx < 0 {
		return nil, false
	}
	return r.Samples[idx], true
}

// MissingChannels lists channels whose rows were never written.
func (r *Recording) MissingChannels() []string {
	var out []string
	for i, row := range r.Samples {
		written := false
		for _, v := range row {
			if !math.IsNaN(v) {
				written = true
				break
			}
		}
		if !written {
			out = append(out, r.ChannelNames[i])
		}
	}
	return out
}
