package indicator

import (
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
)

// Channel represents a keltner channel: an ema center line with atr-scaled
// offsets.
type Channel struct {
	Upper      float64
	Middle     float64
	Lower      float64
	ATR        float64
	Multiplier float64
	Date       time.Time
}

// Width returns the distance between the channel bands.
func (c *Channel) Width() float64 {
	return c.Upper - c.Lower
}

// BandPosition returns the provided price's position within the channel,
// 0 at the lower band and 1 at the upper band. A degenerate zero-width
// channel resolves to a neutral 0.5, never an error.
func (c *Channel) BandPosition(price float64) float64 {
	width := c.Width()
	if width <= 0 {
		return 0.5
	}

	return (price - c.Lower) / width
}

// KeltnerChannel computes the latest keltner channel for the provided candles
// with a static band multiplier.
func KeltnerChannel(candles []*shared.Candlestick, emaPeriod int, atrPeriod int, multiplier float64) (*Channel, error) {
	if multiplier < 0 {
		return nil, fmt.Errorf("keltner multiplier cannot be negative, got %f: %w",
			multiplier, shared.ErrInvalidParameter)
	}

	ema, err := EMAValue(candles, emaPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing channel middle: %w", err)
	}

	atr, err := ATRValue(candles, atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing channel atr: %w", err)
	}

	channel := &Channel{
		Upper:      ema.Value + multiplier*atr.Value,
		Middle:     ema.Value,
		Lower:      ema.Value - multiplier*atr.Value,
		ATR:        atr.Value,
		Multiplier: multiplier,
		Date:       candles[len(candles)-1].Date,
	}

	return channel, nil
}

// DynamicKeltnerChannel computes the latest keltner channel with a band
// multiplier scaled between the provided bounds by the percentile of the
// current atr within its recent history.
func DynamicKeltnerChannel(candles []*shared.Candlestick, emaPeriod int, atrPeriod int, minMultiplier float64, maxMultiplier float64) (*Channel, error) {
	if minMultiplier < 0 || maxMultiplier < minMultiplier {
		return nil, fmt.Errorf("invalid dynamic multiplier bounds [%f, %f]: %w",
			minMultiplier, maxMultiplier, shared.ErrInvalidParameter)
	}

	series, err := ATRSeries(candles, atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing atr history: %w", err)
	}

	values := make([]float64, 0, len(series))
	for idx := range series {
		values = append(values, series[idx].Value)
	}

	current := values[len(values)-1]
	percentile := PercentileRank(values[:len(values)-1], current)
	multiplier := minMultiplier + percentile*(maxMultiplier-minMultiplier)

	return KeltnerChannel(candles, emaPeriod, atrPeriod, multiplier)
}
