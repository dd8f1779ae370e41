package indicator

import (
	"testing"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func TestPercentileRank(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "below all", value: 0.5, want: 0},
		{name: "above all", value: 10, want: 1},
		{name: "midway", value: 2.5, want: 0.5},
		{name: "tie uses midpoint", value: 2, want: 0.375},
	}

	for _, test := range tests {
		got := PercentileRank(values, test.value)
		if got != test.want {
			t.Errorf("%s: expected percentile %f, got %f", test.name, test.want, got)
		}
	}

	// Ensure an empty history resolves to a neutral rank.
	assert.Equal(t, PercentileRank(nil, 3), 0.5)

	// Ensure a value equal to the whole history ranks at the midpoint.
	assert.Equal(t, PercentileRank([]float64{2, 2, 2, 2}, 2), 0.5)
}

func TestClassifyVolatility(t *testing.T) {
	history := make([]Point, 0, 20)
	for idx := range 20 {
		history = append(history, Point{Value: float64(idx + 1)})
	}

	tests := []struct {
		name    string
		current float64
		want    shared.VolatilityRegime
	}{
		{name: "low regime", current: 2, want: shared.LowVolatility},
		{name: "normal regime", current: 10.5, want: shared.NormalVolatility},
		{name: "high regime", current: 16.5, want: shared.HighVolatility},
		{name: "extreme regime", current: 25, want: shared.ExtremeVolatility},
	}

	for _, test := range tests {
		got := ClassifyVolatility(history, test.current)
		if got != test.want {
			t.Errorf("%s: expected %s volatility, got %s",
				test.name, test.want.String(), got.String())
		}
	}

	// Ensure a degenerate history resolves to the normal regime.
	assert.Equal(t, ClassifyVolatility(nil, 5), shared.NormalVolatility)
	assert.Equal(t, ClassifyVolatility(history, -1), shared.NormalVolatility)

	// Ensure steady volatility ranks as normal rather than extreme.
	flat := []Point{{Value: 3}, {Value: 3}, {Value: 3}, {Value: 3}}
	assert.Equal(t, ClassifyVolatility(flat, 3), shared.NormalVolatility)
}
