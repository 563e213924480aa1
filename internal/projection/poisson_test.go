package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoissonAtLeast(t *testing.T) {
	assert.Equal(t, 0.0, PoissonAtLeast(1, 0))
	assert.Equal(t, 0.0, PoissonAtLeast(3, -1))
	assert.Equal(t, 1.0, PoissonAtLeast(0, 2.5))
	assert.Equal(t, 1.0, PoissonAtLeast(0, 0))
	assert.Equal(t, 1.0, PoissonAtLeast(-2, 1))

	assert.InDelta(t, 1-math.Exp(-1.5), PoissonAtLeast(1, 1.5), 1e-12)

	lambda := 3.2
	expected := 1 - math.Exp(-lambda)*(1+lambda+lambda*lambda/2)
	assert.InDelta(t, expected, PoissonAtLeast(3, lambda), 1e-12)

	assert.InDelta(t, 1.0, PoissonAtLeast(1, 50), 1e-12)
}

func TestPoissonAtLeastBounds(t *testing.T) {
	for k := 0; k < 8; k++ {
		for _, lambda := range []float64{0.01, 0.3, 1, 2.7, 6, 12, 40} {
			p := PoissonAtLeast(k, lambda)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			if k > 0 {
				assert.LessOrEqual(t, p, PoissonAtLeast(k-1, lambda))
			}
		}
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 2.73, round2(1.95*1.4))
	assert.Equal(t, 52.0, round1(52.04))
	assert.Equal(t, -1.3, round1(-1.26))
	assert.Equal(t, 0.85, clamp(0.2, 0.85, 1.25))
	assert.Equal(t, 1.25, clamp(3, 0.85, 1.25))
	assert.Equal(t, 0.0, clamp01(-0.0001))
}
