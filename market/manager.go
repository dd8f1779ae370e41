package market

import (
	"context"
	"fmt"

	"github.com/dnldd/confluence/shared"
	"github.com/rs/zerolog"
)

// bufferSize is the default buffer size for channels.
const bufferSize = 64

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets is the collection of tracked market names.
	Markets []string
	// TrendTimeframe and EntryTimeframe are the tracked timeframes.
	TrendTimeframe shared.Timeframe
	EntryTimeframe shared.Timeframe
	// SnapshotSize is the candle capacity per timeframe.
	SnapshotSize int32
	// ATRPeriod is the atr period backing market condition snapshots.
	ATRPeriod int
	// VolumeLookback is the trailing bar count for average volume.
	VolumeLookback int32
	// RelayMarketUpdate relays the provided stored candle for evaluation.
	RelayMarketUpdate func(candle shared.Candlestick)
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Manager tracks all markets and serves candle, volume and condition
// requests. Candle updates for every market are applied by the single run
// loop, keeping per-series writes serialized.
type Manager struct {
	cfg     *ManagerConfig
	markets map[string]*Market

	updateSignals         chan shared.Candlestick
	priceDataRequests     chan shared.PriceDataRequest
	averageVolumeRequests chan shared.AverageVolumeRequest
	conditionsRequests    chan shared.MarketConditionsRequest
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("no markets provided")
	}
	if cfg.RelayMarketUpdate == nil {
		return nil, fmt.Errorf("market update relay function cannot be nil")
	}

	markets := make(map[string]*Market, len(cfg.Markets))
	for _, name := range cfg.Markets {
		mkt, err := NewMarket(&MarketConfig{
			Market:         name,
			TrendTimeframe: cfg.TrendTimeframe,
			EntryTimeframe: cfg.EntryTimeframe,
			SnapshotSize:   cfg.SnapshotSize,
			ATRPeriod:      cfg.ATRPeriod,
			VolumeLookback: cfg.VolumeLookback,
		})
		if err != nil {
			return nil, fmt.Errorf("creating market %s: %w", name, err)
		}
		markets[name] = mkt
	}

	return &Manager{
		cfg:                   cfg,
		markets:               markets,
		updateSignals:         make(chan shared.Candlestick, bufferSize),
		priceDataRequests:     make(chan shared.PriceDataRequest, bufferSize),
		averageVolumeRequests: make(chan shared.AverageVolumeRequest, bufferSize),
		conditionsRequests:    make(chan shared.MarketConditionsRequest, bufferSize),
	}, nil
}

// SendMarketUpdate relays the provided candlestick for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// RequestPriceData relays the provided price data request for processing.
func (m *Manager) RequestPriceData(request shared.PriceDataRequest) {
	select {
	case m.priceDataRequests <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("price data request channel at capacity: %d/%d",
			len(m.priceDataRequests), bufferSize)
	}
}

// RequestAverageVolume relays the provided average volume request for
// processing.
func (m *Manager) RequestAverageVolume(request shared.AverageVolumeRequest) {
	select {
	case m.averageVolumeRequests <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("average volume request channel at capacity: %d/%d",
			len(m.averageVolumeRequests), bufferSize)
	}
}

// RequestMarketConditions relays the provided market conditions request for
// processing.
func (m *Manager) RequestMarketConditions(request shared.MarketConditionsRequest) {
	select {
	case m.conditionsRequests <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market conditions request channel at capacity: %d/%d",
			len(m.conditionsRequests), bufferSize)
	}
}

// handleMarketUpdate applies the provided candle to its market and relays
// entry timeframe closes for evaluation once stored.
func (m *Manager) handleMarketUpdate(candle shared.Candlestick) {
	mkt, ok := m.markets[candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no tracked market found with name %s", candle.Market)
		return
	}

	err := mkt.Update(&candle)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msgf("updating market %s", candle.Market)
		return
	}

	if candle.Timeframe == m.cfg.EntryTimeframe {
		m.cfg.RelayMarketUpdate(candle)
	}
}

// handlePriceDataRequest serves the provided price data request.
func (m *Manager) handlePriceDataRequest(request shared.PriceDataRequest) {
	mkt, ok := m.markets[request.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no tracked market found with name %s", request.Market)
		request.Response <- nil
		return
	}

	candles, err := mkt.FetchCandles(request.Timeframe, request.N)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msgf("fetching candles for %s", request.Market)
		request.Response <- nil
		return
	}

	request.Response <- candles
}

// handleAverageVolumeRequest serves the provided average volume request.
func (m *Manager) handleAverageVolumeRequest(request shared.AverageVolumeRequest) {
	mkt, ok := m.markets[request.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no tracked market found with name %s", request.Market)
		request.Response <- 0
		return
	}

	volume, err := mkt.FetchAverageVolume(request.Timeframe)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msgf("fetching average volume for %s", request.Market)
		request.Response <- 0
		return
	}

	request.Response <- volume
}

// handleConditionsRequest serves the provided market conditions request.
func (m *Manager) handleConditionsRequest(request shared.MarketConditionsRequest) {
	mkt, ok := m.markets[request.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no tracked market found with name %s", request.Market)
		request.Response <- shared.MarketConditions{Market: request.Market}
		return
	}

	conditions, err := mkt.FetchConditions()
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msgf("fetching conditions for %s", request.Market)
		request.Response <- shared.MarketConditions{Market: request.Market}
		return
	}

	request.Response <- *conditions
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case candle := <-m.updateSignals:
			m.handleMarketUpdate(candle)
		case request := <-m.priceDataRequests:
			m.handlePriceDataRequest(request)
		case request := <-m.averageVolumeRequests:
			m.handleAverageVolumeRequest(request)
		case request := <-m.conditionsRequests:
			m.handleConditionsRequest(request)
		case <-ctx.Done():
			return
		}
	}
}
