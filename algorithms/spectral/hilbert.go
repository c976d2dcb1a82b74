package spectral

import (
	"math/cmplx"
)

// Hilbert computes the analytic signal x + j*H{x} in the frequency domain.
//
// The spectrum is multiplied by h where h[0] = 1, h[k] = 2 for positive
// frequencies, h[N/2] = 1 for even N, and 0 for negative frequencies.
type Hilbert struct {
	fft *FFT
}

// NewHilbert creates a new analytic-signal transformer
func NewHilbert() *Hilbert {
	return &Hilbert{fft: NewFFT()}
}

// Analytic returns the analytic signal of x.
func (h *Hilbert) Analytic(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return []complex128{}
	}

	spectrum := h.fft.Compute(x)

	gain := make([]float64, n)
	gain[0] = 1
	if n%2 == 0 {
		gain[n/2] = 1
		for k := 1; k < n/2; k++ {
			gain[k] = 2
		}
	} else {
		for k := 1; k < (n+1)/2; k++ {
			gain[k] = 2
		}
	}

	for k := range spectrum {
		spectrum[k] *= complex(gain[k], 0)
	}

	return h.fft.ComputeInverse(spectrum)
}

// Envelope returns the instantaneous amplitude |analytic(x)|.
func (h *Hilbert) Envelope(x []float64) []float64 {
	analytic := h.Analytic(x)
	env := make([]float64, len(analytic))
	for i, v := range analytic {
		env[i] = cmplx.Abs(v)
	}
	return env
}
