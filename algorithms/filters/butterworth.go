package filters

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// Section is one second-order stage with a0 normalised to 1.
//
// The difference equation is:
// y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2]
type Section struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// ButterworthBandpass is a digital Butterworth band-pass filter realised as a
// cascade of second-order sections.
//
// Design follows the classic analog-prototype route:
//  1. N poles of the analog low-pass prototype on the unit circle,
//     p_m = -exp(j*pi*m/(2N)), m = -N+1, -N+3, ..., N-1
//  2. band edges pre-warped for the bilinear transform (fs normalised to 2):
//     w = 4*tan(pi*Wn/2), Wn = edge / Nyquist
//  3. low-pass to band-pass: p -> p*bw/2 ± sqrt((p*bw/2)^2 - w0^2),
//     with N zeros at the origin and gain bw^N
//  4. bilinear transform z = (4+s)/(4-s); the origin zeros land on z = 1 and the
//     N zeros at infinity on z = -1
//
// Each conjugate pole pair is paired with one zero at +1 and one at -1, giving
// sections with numerator 1 - z^-2. The overall gain sits on the first section.
// Order N yields a 2N-th order band-pass.
type ButterworthBandpass struct {
	order      int
	sampleRate float64
	low, high  float64
	sections   []Section
}

// NewButterworthBandpass designs an order-N band-pass for [low, high] Hz.
// Both edges must lie strictly between 0 and the Nyquist frequency.
func NewButterworthBandpass(order int, sampleRate, low, high float64) (*ButterworthBandpass, error) {
	if order < 1 {
		return nil, fmt.Errorf("filter order must be at least 1, got %d", order)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	nyquist := sampleRate / 2
	if low <= 0 || high >= nyquist || low >= high {
		return nil, fmt.Errorf("band edges must satisfy 0 < low < high < %g Hz, got [%g, %g]", nyquist, low, high)
	}

	bf := &ButterworthBandpass{
		order:      order,
		sampleRate: sampleRate,
		low:        low,
		high:       high,
	}
	bf.design()
	return bf, nil
}

func (bf *ButterworthBandpass) design() {
	const fs = 2.0
	fs2 := complex(2*fs, 0)

	warp := func(edge float64) float64 {
		wn := edge / (bf.sampleRate / 2)
		return 2 * fs * math.Tan(math.Pi*wn/fs)
	}
	w1, w2 := warp(bf.low), warp(bf.high)
	bw := w2 - w1
	w0sq := complex(w1*w2, 0)

	// analog band-pass poles
	analog := make([]complex128, 0, 2*bf.order)
	for m := -bf.order + 1; m < bf.order; m += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(m)/(2*float64(bf.order))))
		pl := p * complex(bw/2, 0)
		root := cmplx.Sqrt(pl*pl - w0sq)
		analog = append(analog, pl+root, pl-root)
	}

	// bilinear transform
	digital := make([]complex128, len(analog))
	den := complex(1, 0)
	for i, p := range analog {
		digital[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	num := cmplx.Pow(fs2, complex(float64(bf.order), 0))
	gain := math.Pow(bw, float64(bf.order)) * real(num/den)

	var upper []complex128
	var realPoles []float64
	for _, p := range digital {
		switch {
		case math.Abs(imag(p)) < 1e-12:
			realPoles = append(realPoles, real(p))
		case imag(p) > 0:
			upper = append(upper, p)
		}
	}
	sort.Slice(upper, func(i, j int) bool { return cmplx.Abs(upper[i]) < cmplx.Abs(upper[j]) })
	sort.Float64s(realPoles)

	bf.sections = bf.sections[:0]
	for _, p := range upper {
		bf.sections = append(bf.sections, Section{
			B0: 1, B1: 0, B2: -1,
			A1: -2 * real(p),
			A2: real(p)*real(p) + imag(p)*imag(p),
		})
	}
	for i := 0; i+1 < len(realPoles); i += 2 {
		p1, p2 := realPoles[i], realPoles[i+1]
		bf.sections = append(bf.sections, Section{
			B0: 1, B1: 0, B2: -1,
			A1: -(p1 + p2),
			A2: p1 * p2,
		})
	}

	if len(bf.sections) > 0 {
		bf.sections[0].B0 *= gain
		bf.sections[0].B1 *= gain
		bf.sections[0].B2 *= gain
	}
}

// Sections returns a copy of the second-order sections.
func (bf *ButterworthBandpass) Sections() []Section {
	out := make([]Section, len(bf.sections))
	copy(out, bf.sections)
	return out
}

// Order returns the prototype order N.
func (bf *ButterworthBandpass) Order() int {
	return bf.order
}

// ProcessBuffer runs the cascade causally from a zero state.
func (bf *ButterworthBandpass) ProcessBuffer(input []float64) []float64 {
	state := make([][2]float64, len(bf.sections))
	return runCascade(bf.sections, input, state)
}

// GetFrequencyResponse computes the magnitude and phase response at frequency Hz.
//
// H(e^jw) = prod (b0 + b1*e^-jw + b2*e^-j2w) / (1 + a1*e^-jw + a2*e^-j2w)
func (bf *ButterworthBandpass) GetFrequencyResponse(frequency float64) (magnitude, phase float64) {
	w := 2.0 * math.Pi * frequency / bf.sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1

	h := complex(1, 0)
	for _, s := range bf.sections {
		num := complex(s.B0, 0) + complex(s.B1, 0)*z1 + complex(s.B2, 0)*z2
		den := complex(1, 0) + complex(s.A1, 0)*z1 + complex(s.A2, 0)*z2
		h *= num / den
	}

	return cmplx.Abs(h), cmplx.Phase(h)
}

// runCascade filters input through every section in transposed direct form II,
// updating state in place.
func runCascade(sections []Section, input []float64, state [][2]float64) []float64 {
	out := make([]float64, len(input))
	copy(out, input)

	for si, s := range sections {
		z0, z1 := state[si][0], state[si][1]
		for i, x := range out {
			y := s.B0*x + z0
			z0 = s.B1*x - s.A1*y + z1
			z1 = s.B2*x - s.A2*y
			out[i] = y
		}
		state[si][0], state[si][1] = z0, z1
	}

	return out
}
