package shared

import (
	"time"
)

const (
	// TimeoutDuration is the maximum time to wait on a response before timing out.
	TimeoutDuration = time.Second * 4
)

// PriceDataRequest represents a request to fetch the last n candles for a
// market and timeframe.
type PriceDataRequest struct {
	Market    string
	Timeframe Timeframe
	N         int32
	Response  chan []*Candlestick
}

// NewPriceDataRequest initializes a new price data request.
func NewPriceDataRequest(market string, timeframe Timeframe, n int32) PriceDataRequest {
	return PriceDataRequest{
		Market:    market,
		Timeframe: timeframe,
		N:         n,
		Response:  make(chan []*Candlestick, 1),
	}
}

// AverageVolumeRequest represents a request to fetch the trailing average
// volume for a market and timeframe.
type AverageVolumeRequest struct {
	Market    string
	Timeframe Timeframe
	Response  chan float64
}

// NewAverageVolumeRequest initializes a new average volume request.
func NewAverageVolumeRequest(market string, timeframe Timeframe) AverageVolumeRequest {
	return AverageVolumeRequest{
		Market:    market,
		Timeframe: timeframe,
		Response:  make(chan float64, 1),
	}
}

// MarketConditionsRequest represents a request to fetch the current market
// conditions snapshot for a market.
type MarketConditionsRequest struct {
	Market   string
	Response chan MarketConditions
}

// NewMarketConditionsRequest initializes a new market conditions request.
func NewMarketConditionsRequest(market string) MarketConditionsRequest {
	return MarketConditionsRequest{
		Market:   market,
		Response: make(chan MarketConditions, 1),
	}
}

// AccountStateRequest represents a request to fetch the current account state
// snapshot.
type AccountStateRequest struct {
	Response chan AccountState
}

// NewAccountStateRequest initializes a new account state request.
func NewAccountStateRequest() AccountStateRequest {
	return AccountStateRequest{
		Response: make(chan AccountState, 1),
	}
}
