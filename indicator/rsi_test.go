package indicator

import (
	"errors"
	"testing"

	"github.com/dnldd/confluence/shared"
	"github.com/peterldowns/testy/assert"
)

func TestRSIValue(t *testing.T) {
	// Ensure a zero or negative period is rejected at the call boundary.
	candles := makeCandles([]float64{1, 2, 3, 4, 5})
	_, err := RSIValue(candles, 0)
	assert.True(t, errors.Is(err, shared.ErrInvalidParameter))

	// Ensure fewer than period+1 candles yields insufficient data.
	_, err = RSIValue(candles, 5)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))

	// Ensure a strictly rising series saturates at 100.
	rsi, err := RSIValue(candles, 3)
	assert.NoError(t, err)
	assert.Equal(t, rsi.Value, 100)

	// Ensure a strictly falling series reads 0.
	rsi, err = RSIValue(makeCandles([]float64{5, 4, 3, 2, 1}), 3)
	assert.NoError(t, err)
	assert.Equal(t, rsi.Value, 0)

	// Ensure a flat series resolves to a neutral reading.
	rsi, err = RSIValue(makeCandles([]float64{3, 3, 3, 3, 3}), 3)
	assert.NoError(t, err)
	assert.Equal(t, rsi.Value, 50)

	// Ensure a mixed series stays within bounds and is keyed by close time.
	candles = makeCandles([]float64{10, 11, 10.5, 11.2, 10.8, 11.5, 11.1})
	rsi, err = RSIValue(candles, 3)
	assert.NoError(t, err)
	assert.True(t, rsi.Value > 0 && rsi.Value < 100)
	assert.Equal(t, rsi.Date, candles[len(candles)-1].Date)
}
