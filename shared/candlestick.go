package shared

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit closed candlestick for a market. It is
// immutable once closed.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// Validate asserts the candlestick satisfies ohlc invariants.
func (c *Candlestick) Validate() error {
	var errs error

	if c.High < math.Max(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("high (%f) below max of open/close (%f)",
			c.High, math.Max(c.Open, c.Close)))
	}
	if c.Low > math.Min(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("low (%f) above min of open/close (%f)",
			c.Low, math.Min(c.Open, c.Close)))
	}
	if c.Volume < 0 {
		errs = errors.Join(errs, fmt.Errorf("volume cannot be negative, got %f", c.Volume))
	}
	if c.Date.IsZero() {
		errs = errors.Join(errs, fmt.Errorf("close time cannot be zero"))
	}

	return errs
}
