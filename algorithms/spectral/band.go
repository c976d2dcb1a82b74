package spectral

import (
	"math"

	"github.com/RyanBlaney/rdstat/algorithms/common"
)

// Band is a named closed frequency interval [Low, High] in Hz.
type Band struct {
	Name string  `json:"name"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Standard EEG bands.
var (
	Delta = Band{Name: "delta", Low: 1, High: 4}
	Theta = Band{Name: "theta", Low: 4, High: 8}
	Alpha = Band{Name: "alpha", Low: 8, High: 12}
	Beta  = Band{Name: "beta", Low: 13, High: 30}
)

// StandardBands returns delta, theta, alpha and beta in ascending order.
func StandardBands() []Band {
	return []Band{Delta, Theta, Alpha, Beta}
}

// bandSlice returns the frequencies and power values whose bin lies in [low, high].
func bandSlice(freqs, power []float64, low, high float64) ([]float64, []float64) {
	var f, p []float64
	for i, fr := range freqs {
		if i >= len(power) {
			break
		}
		if fr >= low && fr <= high {
			f = append(f, fr)
			p = append(p, power[i])
		}
	}
	return f, p
}

// BandPower integrates power over the bins inside [low, high] with the
// trapezoidal rule. Fewer than two bins integrate to zero.
func BandPower(freqs, power []float64, low, high float64) float64 {
	f, p := bandSlice(freqs, power, low, high)
	return common.Trapezoid(p, f)
}

// PeakFrequency returns the frequency of the highest-power bin inside
// [low, high]. NaN when the band holds no bins.
func PeakFrequency(freqs, power []float64, low, high float64) float64 {
	f, p := bandSlice(freqs, power, low, high)
	idx := common.ArgMax(p)
	if idx < 0 {
		return math.NaN()
	}
	return f[idx]
}
