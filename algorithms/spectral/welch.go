package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/spectral"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/windowing"
)

// PSDResult holds a one-sided power spectral density estimate.
type PSDResult struct {
	Frequencies []float64 `json:"frequencies"` // Hz, bin k = k*fs/segment
	Power       []float64 `json:"power"`       // units^2/Hz
	Segment     int       `json:"segment"`     // segment length actually used
	Segments    int       `json:"segments"`    // number of averaged segments
}

// Welch estimates power spectral density by averaging modified periodograms.
//
// Each segment is mean-removed, multiplied by a periodic Hann window and
// transformed. Segments overlap by half their length. Power is density-scaled:
//
//	P[k] = |X[k]|^2 / (fs * sum(w^2))
//
// and every bin except DC (and Nyquist for even lengths) is doubled to fold
// the negative frequencies into a one-sided spectrum.
type Welch struct {
	fft *FFT
}

// NewWelch creates a new Welch estimator
func NewWelch() *Welch {
	return &Welch{fft: NewFFT()}
}

// Compute estimates the PSD of signal. segmentLength is clamped to len(signal).
func (w *Welch) Compute(signal []float64, sampleRate float64, segmentLength int) (*PSDResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if segmentLength <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", segmentLength)
	}

	nperseg := segmentLength
	if nperseg > len(signal) {
		nperseg = len(signal)
	}
	noverlap := nperseg / 2

	segments := spectral.Segment(signal, nperseg, noverlap)
	if len(segments) == 0 {
		return nil, fmt.Errorf("signal too short for segment length %d", nperseg)
	}

	window := windowing.NewHann(nperseg, false)
	scale := 1.0 / (sampleRate * window.SumSquares())

	nfreq := nperseg/2 + 1
	power := make([]float64, nfreq)

	for _, seg := range segments {
		mean := common.Mean(seg)
		centered := make([]float64, nperseg)
		for i, v := range seg {
			centered[i] = v - mean
		}
		if err := window.ApplyInPlace(centered); err != nil {
			return nil, err
		}

		spectrum := w.fft.Compute(centered)
		for k := 0; k < nfreq; k++ {
			mag := cmplx.Abs(spectrum[k])
			power[k] += mag * mag * scale
		}
	}

	floats.Scale(1.0/float64(len(segments)), power)

	// one-sided folding
	last := nfreq
	if nperseg%2 == 0 {
		last = nfreq - 1
	}
	for k := 1; k < last; k++ {
		power[k] *= 2
	}

	freqs := make([]float64, nfreq)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRate / float64(nperseg)
	}

	return &PSDResult{
		Frequencies: freqs,
		Power:       power,
		Segment:     nperseg,
		Segments:    len(segments),
	}, nil
}
