package narration

import (
	"context"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"

	"github.com/RyanBlaney/rdstat/internal/errors"
)

const (
	// DefaultThresholdSigma flags samples further than this from the mean.
	DefaultThresholdSigma = 2.5

	// DefaultHighSigma upgrades an anomaly to high severity.
	DefaultHighSigma = 3.5
)

// SignalStats describes the amplitude distribution of a trace.
type SignalStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Range float64 `json:"range"`
}

// Describe computes SignalStats over the finite samples of signal.
// Std is the population deviation.
func Describe(signal []float64) (SignalStats, error) {
	data := make(mstats.Float64Data, 0, len(signal))
	for _, v := range signal {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return SignalStats{}, errors.InvalidInput("signal has no finite samples")
	}

	var s SignalStats
	s.Mean, _ = data.Mean()
	s.Std, _ = data.StandardDeviationPopulation()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.Range = s.Max - s.Min
	return s, nil
}

// StatisticalNarrator flags amplitude spikes by z-score. It needs no external
// service and is the fallback for any other Narrator.
type StatisticalNarrator struct {
	ThresholdSigma float64
	HighSigma      float64
}

// NewStatisticalNarrator creates a narrator with the default thresholds.
func NewStatisticalNarrator() *StatisticalNarrator {
	return &StatisticalNarrator{
		ThresholdSigma: DefaultThresholdSigma,
		HighSigma:      DefaultHighSigma,
	}
}

// Anomalies returns every sample whose |z| exceeds ThresholdSigma. Samples
// and times are paired up to the shorter of the two. A flat or empty signal
// has no anomalies.
func (s *StatisticalNarrator) Anomalies(signal, times []float64) []Anomaly {
	desc, err := Describe(signal)
	if err != nil || desc.Std == 0 {
		return []Anomaly{}
	}

	n := min(len(signal), len(times))
	out := []Anomaly{}
	for i := range n {
		value := signal[i]
		z := math.Abs((value - desc.Mean) / desc.Std)
		if math.IsNaN(z) || z <= s.ThresholdSigma {
			continue
		}
		severity := SeverityMedium
		if z > s.HighSigma {
			severity = SeverityHigh
		}
		out = append(out, Anomaly{
			Time:        times[i],
			Index:       i,
			Severity:    severity,
			Description: fmt.Sprintf("Amplitude spike: %.2f µV (%.1fσ from mean)", value, z),
			ZScore:      z,
		})
	}
	return out
}

func (s *StatisticalNarrator) Narrate(ctx context.Context, summary SignalSummary) (*Narrative, error) {
	if len(summary.Signal) == 0 || len(summary.Times) == 0 {
		return nil, errors.InvalidInput("Missing signal data")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anomalies := s.Anomalies(summary.Signal, summary.Times)
	return &Narrative{
		Success:   true,
		Anomalies: anomalies,
		Summary:   fmt.Sprintf("Found %d statistical anomalies", len(anomalies)),
		Analysis:  "Statistical analysis only (AI disabled)",
	}, nil
}
