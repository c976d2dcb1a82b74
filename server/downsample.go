package server

// DefaultDisplayPoints is the plotting budget for uploaded signals.
const DefaultDisplayPoints = 5000

// Downsample picks target evenly spaced samples, always keeping the first and
// last. Index i maps to floor(i*(n-1)/(target-1)). Shorter inputs are returned as-is.
func Downsample(data []float64, target int) []float64 {
	n := len(data)
	if n <= target || target <= 0 {
		return data
	}
	if target == 1 {
		return []float64{data[0]}
	}

	step := float64(n-1) / float64(target-1)
	out := make([]float64, target)
	for i := range target - 1 {
		out[i] = data[int(float64(i)*step)]
	}
	out[target-1] = data[n-1]
	return out
}
