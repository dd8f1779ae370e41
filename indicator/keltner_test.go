package indicator

import (
	"errors"
	"testing"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func TestKeltnerChannel(t *testing.T) {
	candles := makeCandles([]float64{10, 10.4, 10.2, 10.7, 10.5, 10.9, 11.2, 11})

	// Ensure a negative multiplier is rejected at the call boundary.
	_, err := KeltnerChannel(candles, 4, 4, -1)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	// Ensure insufficient candles surface as insufficient data.
	_, err = KeltnerChannel(candles[:3], 4, 4, 2)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))

	// Ensure band ordering holds whenever atr >= 0 and multiplier >= 0.
	channel, err := KeltnerChannel(candles, 4, 4, 2)
	assert.NoError(t, err)
	assert.True(t, channel.Upper >= channel.Middle)
	assert.True(t, channel.Middle >= channel.Lower)
	assert.True(t, channel.ATR >= 0)
	assert.Equal(t, channel.Date, candles[len(candles)-1].Date)

	// Ensure a zero multiplier collapses the bands onto the middle.
	channel, err = KeltnerChannel(candles, 4, 4, 0)
	assert.NoError(t, err)
	assert.Equal(t, channel.Upper, channel.Middle)
	assert.Equal(t, channel.Lower, channel.Middle)
}

func TestBandPosition(t *testing.T) {
	channel := &Channel{Upper: 110, Middle: 105, Lower: 100}

	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{name: "at lower band", price: 100, want: 0},
		{name: "at middle", price: 105, want: 0.5},
		{name: "at upper band", price: 110, want: 1},
		{name: "in retracement zone", price: 109, want: 0.9},
	}

	for _, test := range tests {
		got := channel.BandPosition(test.price)
		if got != test.want {
			t.Errorf("%s: expected band position %f, got %f", test.name, test.want, got)
		}
	}

	// Ensure a degenerate zero-width channel resolves to a neutral position.
	flat := &Channel{Upper: 100, Middle: 100, Lower: 100}
	assert.Equal(t, flat.BandPosition(250), 0.5)
}

func TestDynamicKeltnerChannel(t *testing.T) {
	candles := makeCandles([]float64{10, 10.4, 10.2, 10.7, 10.5, 10.9, 11.2, 11, 11.6, 11.3})

	// Ensure invalid bounds are rejected at the call boundary.
	_, err := DynamicKeltnerChannel(candles, 4, 4, 3, 1)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	_, err = DynamicKeltnerChannel(candles, 4, 4, -1, 2)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	// Ensure the scaled multiplier stays within its bounds.
	minMultiplier, maxMultiplier := 1.5, 2.75
	channel, err := DynamicKeltnerChannel(candles, 4, 4, minMultiplier, maxMultiplier)
	assert.NoError(t, err)
	assert.True(t, channel.Multiplier >= minMultiplier)
	assert.True(t, channel.Multiplier <= maxMultiplier)
	assert.True(t, channel.Upper >= channel.Middle)
	assert.True(t, channel.Middle >= channel.Lower)
}
