package projection

import "math"

// PoissonAtLeast returns P(X >= k) for X ~ Poisson(lambda).
func PoissonAtLeast(k int, lambda float64) float64 {
	if k <= 0 {
		return 1.0
	}
	if lambda <= 0 {
		return 0.0
	}

	term := math.Exp(-lambda)
	sum := term
	for i := 1; i < k; i++ {
		term *= lambda / float64(i)
		sum += term
	}

	return clamp01(1.0 - sum)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clamp01(x float64) float64 {
	return clamp(x, 0.0, 1.0)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
