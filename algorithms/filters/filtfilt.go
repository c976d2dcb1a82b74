package filters

import (
	"gonum.org/v1/gonum/mat"
)

// FiltFilt applies the cascade forward and then backward, giving zero phase
// distortion and squared magnitude response.
//
// The input is extended at both ends by odd reflection (2*x[0] - x[k]) over
// padlen = 3*(2*len(sections)+1) samples, the length used for the equivalent
// single transfer function. Each pass starts from the steady-state response
// to a step of the first sample, which suppresses start-up transients.
// Signals shorter than the pad get a pad of len(x)-1.
func (bf *ButterworthBandpass) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	padlen := 3 * (2*len(bf.sections) + 1)
	if padlen > n-1 {
		padlen = n - 1
	}

	ext := oddExtend(x, padlen)
	zi := steadyState(bf.sections)

	state := scaledState(zi, ext[0])
	forward := runCascade(bf.sections, ext, state)

	reverse(forward)
	state = scaledState(zi, forward[0])
	backward := runCascade(bf.sections, forward, state)
	reverse(backward)

	out := make([]float64, n)
	copy(out, backward[padlen:padlen+n])
	return out
}

func oddExtend(x []float64, padlen int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
		ext[padlen+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padlen:], x)
	return ext
}

// steadyState returns per-section initial conditions for a unit step input.
// For a section, zi solves (I - A^T) zi = b[1:] - a[1:]*b0 where A is the
// companion matrix of the denominator. Later sections see the step scaled by
// the DC gain of the sections before them.
func steadyState(sections []Section) [][2]float64 {
	zi := make([][2]float64, len(sections))
	scale := 1.0

	for i, s := range sections {
		a := mat.NewDense(2, 2, []float64{
			1 + s.A1, -1,
			s.A2, 1,
		})
		rhs := mat.NewVecDense(2, []float64{
			s.B1 - s.A1*s.B0,
			s.B2 - s.A2*s.B0,
		})

		var sol mat.VecDense
		if err := sol.SolveVec(a, rhs); err == nil {
			zi[i][0] = scale * sol.AtVec(0)
			zi[i][1] = scale * sol.AtVec(1)
		}

		scale *= (s.B0 + s.B1 + s.B2) / (1 + s.A1 + s.A2)
	}

	return zi
}

func scaledState(zi [][2]float64, x0 float64) [][2]float64 {
	state := make([][2]float64, len(zi))
	for i := range zi {
		state[i][0] = zi[i][0] * x0
		state[i][1] = zi[i][1] * x0
	}
	return state
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
