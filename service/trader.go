package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/confluence/database"
	"github.com/dnldd/confluence/engine"
	"github.com/dnldd/confluence/execution"
	"github.com/dnldd/confluence/feed"
	"github.com/dnldd/confluence/market"
	"github.com/dnldd/confluence/position"
	"github.com/dnldd/confluence/risk"
	"github.com/dnldd/confluence/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// snapshotSize is the candle capacity per tracked timeframe.
	snapshotSize = 240
	// windowSize is the candle window requested per evaluation.
	windowSize = 60
	// atrPeriod is the atr period backing market condition snapshots.
	atrPeriod = 14
	// volumeLookback is the trailing bar count for average volume.
	volumeLookback = 20
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// InitialEquity is the starting account equity.
	InitialEquity float64
	// DBEndpoint represents the database connection endpoint, optional for
	// backtests.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestMarket is the market being backtested.
	BacktestMarket string
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
	}
	if cfg.InitialEquity <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial equity must be positive"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.Backtest {
		if cfg.BacktestMarket == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest market cannot be an empty string"))
		}
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	}

	return errs
}

// Trader represents the confluence trading service.
type Trader struct {
	cfg             *TraderConfig
	feedManager     *feed.Manager
	marketManager   *market.Manager
	riskManager     *risk.Manager
	positionManager *position.Manager
	signalEngine    *engine.Engine
	advisor         *execution.Advisor
	db              *database.Database
	historicData    *shared.HistoricData
	jobScheduler    *gocron.Scheduler
	marketUpdates   chan shared.Candlestick
	logger          *zerolog.Logger
	wg              sync.WaitGroup
}

// adviseEntry logs the execution advice for the provided sized entry: the
// recommended order type and the slippage budget under current conditions.
func (t *Trader) adviseEntry(entry *risk.SizedEntry) {
	req := shared.NewMarketConditionsRequest(entry.Signal.Market)
	t.marketManager.RequestMarketConditions(req)

	var conditions shared.MarketConditions
	select {
	case conditions = <-req.Response:
		// do nothing.
	case <-time.After(shared.TimeoutDuration):
		t.logger.Error().Msgf("%s: timed out fetching conditions for execution advice",
			entry.Signal.Market)
		return
	}

	recommendation := t.advisor.RecommendOrderType(&entry.Signal, &conditions, shared.NormalUrgency)

	order := execution.NewOrder(entry.Signal.Market, entry.Signal.Direction, recommendation.Type,
		entry.Sizing.Quantity, recommendation.LimitPrice, entry.CreatedOn)
	estimate, err := t.advisor.CalculateMaxSlippage(&order, &conditions)
	if err != nil {
		t.logger.Error().Err(err).Msgf("estimating slippage for %s", entry.Signal.Market)
		return
	}

	t.logger.Info().Str("market", entry.Signal.Market).
		Str("order type", recommendation.Type.String()).
		Float64("confidence", recommendation.Confidence).
		Str("rationale", recommendation.Rationale).
		Float64("expected slippage", estimate.Expected).
		Float64("max slippage", estimate.Max).Msg("execution advice")
}

// NewTrader initializes a new trader service.
func NewTrader(ctx context.Context, cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	var trader *Trader
	var positionMgr *position.Manager
	var signalEngine *engine.Engine
	var riskMgr *risk.Manager
	var historicData *shared.HistoricData

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "trader").Logger()

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york time: %v", err)
	}

	jobScheduler := gocron.NewScheduler(loc)

	var db *database.Database
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}
	}

	feedMgrLogger := logger.With().Str("component", "feedmanager").Logger()
	feedMgr, err := feed.NewManager(&feed.ManagerConfig{
		Markets: cfg.Markets,
		Logger:  feedMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating feed manager: %v", err)
	}

	if cfg.Backtest {
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		historicData, err = shared.NewHistoricData(&shared.HistoricDataConfig{
			Market:            cfg.BacktestMarket,
			FilePath:          cfg.BacktestDataFilepath,
			NotifySubscribers: feedMgr.NotifySubscribers,
			Logger:            &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %v", err)
		}
	}

	relayMarketUpdateFunc := func(candle shared.Candlestick) {
		if signalEngine != nil {
			signalEngine.SendMarketUpdate(candle)
		}
		if positionMgr != nil {
			positionMgr.SendMarketUpdate(candle)
		}
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err := market.NewManager(&market.ManagerConfig{
		Markets:           cfg.Markets,
		TrendTimeframe:    shared.OneHour,
		EntryTimeframe:    shared.FiveMinute,
		SnapshotSize:      snapshotSize,
		ATRPeriod:         atrPeriod,
		VolumeLookback:    volumeLookback,
		RelayMarketUpdate: relayMarketUpdateFunc,
		Logger:            marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %v", err)
	}

	sendSizedEntryFunc := func(entry risk.SizedEntry) {
		if trader != nil {
			trader.adviseEntry(&entry)
		}
		if positionMgr != nil {
			positionMgr.SendSizedEntry(entry)
		}
	}

	var fetchPerformanceFunc func(ctx context.Context, market string) (*risk.Performance, error)
	var updatePerformanceFunc func(ctx context.Context, outcome *risk.TradeOutcome) error
	var persistClosedPositionFunc func(ctx context.Context, pos *position.Position) error
	if db != nil {
		fetchPerformanceFunc = db.FetchPerformance
		updatePerformanceFunc = db.UpdatePerformance
		persistClosedPositionFunc = db.PersistClosedPosition
	}

	params := risk.DefaultParams()
	riskMgrLogger := logger.With().Str("component", "riskmanager").Logger()
	riskMgr, err = risk.NewManager(&risk.ManagerConfig{
		InitialEquity:           cfg.InitialEquity,
		Params:                  params,
		FetchPerformance:        fetchPerformanceFunc,
		UpdatePerformance:       updatePerformanceFunc,
		RequestMarketConditions: marketMgr.RequestMarketConditions,
		SendSizedEntry:          sendSizedEntryFunc,
		JobScheduler:            jobScheduler,
		Logger:                  riskMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating risk manager: %v", err)
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	signalEngine, err = engine.NewEngine(&engine.EngineConfig{
		TrendTimeframe:       shared.OneHour,
		EntryTimeframe:       shared.FiveMinute,
		WindowSize:           windowSize,
		Evaluator:            engine.DefaultEvaluatorConfig(),
		RequestPriceData:     marketMgr.RequestPriceData,
		RequestAverageVolume: marketMgr.RequestAverageVolume,
		SendTradingSignal:    riskMgr.SendTradingSignal,
		Logger:               engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signal engine: %v", err)
	}

	positionMgrLogger := logger.With().Str("component", "positionmanager").Logger()
	positionMgr, err = position.NewManager(&position.ManagerConfig{
		Markets:                cfg.Markets,
		RequestRevalidation:    riskMgr.RequestRevalidation,
		RequestClosureDecision: riskMgr.RequestClosureDecision,
		SendFill:               riskMgr.SendFill,
		SendTradeOutcome:       riskMgr.SendTradeOutcome,
		PersistClosedPosition:  persistClosedPositionFunc,
		Params:                 &params,
		Logger:                 positionMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position manager: %v", err)
	}

	advisorCfg := execution.DefaultAdvisorConfig()
	advisorCfg.Logger = logger.With().Str("component", "advisor").Logger()
	advisor, err := execution.NewAdvisor(&advisorCfg)
	if err != nil {
		return nil, fmt.Errorf("creating execution advisor: %v", err)
	}

	marketUpdates := make(chan shared.Candlestick, bufferSize)
	feedMgr.Subscribe(&marketUpdates)

	trader = &Trader{
		cfg:             cfg,
		feedManager:     feedMgr,
		marketManager:   marketMgr,
		riskManager:     riskMgr,
		positionManager: positionMgr,
		signalEngine:    signalEngine,
		advisor:         advisor,
		db:              db,
		historicData:    historicData,
		jobScheduler:    jobScheduler,
		marketUpdates:   marketUpdates,
		logger:          &logger,
	}

	return trader, nil
}

// Run handles the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	t.wg.Add(6)

	go func() {
		t.feedManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.marketManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.riskManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.positionManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.signalEngine.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		for {
			select {
			case candle := <-t.marketUpdates:
				t.marketManager.SendMarketUpdate(candle)
			case <-ctx.Done():
				t.wg.Done()
				return
			}
		}
	}()

	t.jobScheduler.StartAsync()
	defer t.jobScheduler.Stop()

	if t.cfg.Backtest {
		go func() {
			// wait briefly for initialization.
			time.Sleep(time.Second * 1)
			err := t.historicData.ProcessHistoricalData()
			if err != nil {
				t.logger.Error().Msgf("processing historic data: %v", err)
			}

			err = t.positionManager.PersistPositionsCSV()
			if err != nil {
				t.logger.Error().Msgf("persisting positions: %v", err)
			}

			t.logger.Info().Msgf("backtest for %s done, review positions csv for performance",
				t.cfg.BacktestMarket)
			t.cfg.Cancel()
		}()
	}

	t.wg.Wait()
}
