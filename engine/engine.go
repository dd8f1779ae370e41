package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum concurrent evaluations.
	maxWorkers = 8
)

// EngineConfig represents the signal engine configuration.
type EngineConfig struct {
	// TrendTimeframe is the timeframe setting the directional bias.
	TrendTimeframe shared.Timeframe
	// EntryTimeframe is the timeframe triggering evaluations and entries.
	EntryTimeframe shared.Timeframe
	// WindowSize is the number of candles requested per evaluation window.
	WindowSize int32
	// Evaluator is the staged evaluator configuration.
	Evaluator EvaluatorConfig
	// RequestPriceData relays the provided price data request for processing.
	RequestPriceData func(request shared.PriceDataRequest)
	// RequestAverageVolume relays the provided average volume request for
	// processing.
	RequestAverageVolume func(request shared.AverageVolumeRequest)
	// SendTradingSignal relays the provided trading signal for processing.
	SendTradingSignal func(signal shared.TradingSignal)
	// Logger is the engine logger.
	Logger zerolog.Logger
}

// flight tracks the in-flight evaluation slot of a market. A closing candle
// arriving while an evaluation runs supersedes any previously pending one.
type flight struct {
	mtx     sync.Mutex
	running bool
	pending *shared.Candlestick
}

// Engine evaluates closing entry timeframe candles for confluence setups and
// emits trading signals.
type Engine struct {
	cfg           *EngineConfig
	evaluator     *Evaluator
	candleSignals chan shared.Candlestick
	flights       sync.Map
	workers       chan struct{}
}

// NewEngine initializes a new signal engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.RequestPriceData == nil {
		return nil, fmt.Errorf("price data request function cannot be nil")
	}
	if cfg.RequestAverageVolume == nil {
		return nil, fmt.Errorf("average volume request function cannot be nil")
	}
	if cfg.SendTradingSignal == nil {
		return nil, fmt.Errorf("trading signal send function cannot be nil")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	evaluator, err := NewEvaluator(&cfg.Evaluator)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:           cfg,
		evaluator:     evaluator,
		candleSignals: make(chan shared.Candlestick, bufferSize),
		workers:       make(chan struct{}, maxWorkers),
	}, nil
}

// SendMarketUpdate relays the provided candlestick for processing.
func (e *Engine) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case e.candleSignals <- candle:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("engine candle channel at capacity: %d/%d",
			len(e.candleSignals), bufferSize)
	}
}

// marketFlight returns the in-flight evaluation slot for the provided market.
func (e *Engine) marketFlight(market string) *flight {
	entry, _ := e.flights.LoadOrStore(market, &flight{})
	return entry.(*flight)
}

// fetchWindow requests a candle window for the provided market and timeframe.
func (e *Engine) fetchWindow(market string, timeframe shared.Timeframe) ([]*shared.Candlestick, error) {
	req := shared.NewPriceDataRequest(market, timeframe, e.cfg.WindowSize)
	e.cfg.RequestPriceData(req)

	select {
	case candles := <-req.Response:
		return candles, nil
	case <-time.After(shared.TimeoutDuration):
		return nil, fmt.Errorf("%s: timed out fetching %s price data", market, timeframe.String())
	}
}

// fetchAverageVolume requests the trailing average volume for the provided
// market on the trend timeframe.
func (e *Engine) fetchAverageVolume(market string) (float64, error) {
	req := shared.NewAverageVolumeRequest(market, e.cfg.TrendTimeframe)
	e.cfg.RequestAverageVolume(req)

	select {
	case volume := <-req.Response:
		return volume, nil
	case <-time.After(shared.TimeoutDuration):
		return 0, fmt.Errorf("%s: timed out fetching average volume", market)
	}
}

// evaluate runs a full evaluation pass for the provided closing candle and
// returns the resulting trading signal, if the setup qualified.
func (e *Engine) evaluate(candle *shared.Candlestick) *shared.TradingSignal {
	trend, err := e.fetchWindow(candle.Market, e.cfg.TrendTimeframe)
	if err != nil {
		e.cfg.Logger.Error().Err(err).Send()
		return nil
	}

	entry, err := e.fetchWindow(candle.Market, e.cfg.EntryTimeframe)
	if err != nil {
		e.cfg.Logger.Error().Err(err).Send()
		return nil
	}

	avgVolume, err := e.fetchAverageVolume(candle.Market)
	if err != nil {
		// The evaluator falls back to the trend window average.
		e.cfg.Logger.Error().Err(err).Send()
	}

	signal, rejection, err := e.evaluator.Evaluate(candle.Market, trend, entry, avgVolume)
	if err != nil {
		e.cfg.Logger.Error().Err(err).Msgf("evaluating %s", candle.Market)
		return nil
	}

	if signal != nil {
		return signal
	}

	e.cfg.Logger.Debug().Str("market", rejection.Market).
		Str("direction", rejection.Direction.String()).
		Str("state", rejection.State.String()).
		Str("reason", rejection.Reason.String()).
		Float64("confidence", rejection.Confidence).Msg("rejected setup")
	return nil
}

// settleFlight resolves a completed evaluation against the market's slot. A
// candle that arrived mid-evaluation supersedes the finished pass: its result
// is discarded and the newer candle returned for re-evaluation. Otherwise the
// signal, if any, is emitted and the slot released.
func (e *Engine) settleFlight(f *flight, candle *shared.Candlestick, signal *shared.TradingSignal) (*shared.Candlestick, bool) {
	f.mtx.Lock()
	if f.pending != nil {
		next := f.pending
		f.pending = nil
		f.mtx.Unlock()

		if signal != nil {
			e.cfg.Logger.Debug().Str("market", candle.Market).
				Str("direction", signal.Direction.String()).
				Msg("discarding superseded evaluation result")
		}
		return next, true
	}

	if signal != nil {
		e.cfg.Logger.Info().Str("market", signal.Market).
			Str("direction", signal.Direction.String()).
			Float64("entry", signal.Entry).Float64("stoploss", signal.StopLoss).
			Float64("confidence", signal.Confidence).Msg("emitting trading signal")
		e.cfg.SendTradingSignal(*signal)
	}
	f.running = false
	f.mtx.Unlock()
	return nil, false
}

// evaluateLoop drains a market's evaluation slot, re-running for any candle
// that superseded the in-flight evaluation.
func (e *Engine) evaluateLoop(f *flight, candle shared.Candlestick) {
	e.workers <- struct{}{}
	defer func() { <-e.workers }()

	for {
		signal := e.evaluate(&candle)

		next, rerun := e.settleFlight(f, &candle, signal)
		if !rerun {
			return
		}
		candle = *next
	}
}

// handleCandleClose processes a closing candle, scheduling an evaluation on
// the market's single in-flight slot.
func (e *Engine) handleCandleClose(candle shared.Candlestick) {
	if candle.Timeframe != e.cfg.EntryTimeframe {
		return
	}

	f := e.marketFlight(candle.Market)
	f.mtx.Lock()
	if f.running {
		// The newest closing candle supersedes any pending evaluation.
		f.pending = &candle
		f.mtx.Unlock()
		e.cfg.Logger.Debug().Str("market", candle.Market).Msg("superseded in-flight evaluation")
		return
	}
	f.running = true
	f.mtx.Unlock()

	go e.evaluateLoop(f, candle)
}

// Run manages the lifecycle processes of the signal engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case candle := <-e.candleSignals:
			e.handleCandleClose(candle)
		case <-ctx.Done():
			return
		}
	}
}
