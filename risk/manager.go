package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// dailyResetTime is the daily limit reset anchor, session rollover in
	// New York time.
	dailyResetTime = "17:00"
	// dbTimeout bounds database calls made from the run loop.
	dbTimeout = time.Second * 8
)

// SizedEntry represents a validated and sized trade ready for execution.
type SizedEntry struct {
	Signal     shared.TradingSignal
	Validation TradeValidation
	Sizing     *Sizing
	Stops      *StopLevels
	CreatedOn  time.Time
}

// Fill represents an executed position entry applied to the account.
type Fill struct {
	Market    string
	Direction shared.Direction
	Quantity  float64
	Price     float64
	CreatedOn time.Time
	Status    chan shared.StatusCode
}

// NewFill initializes a new fill.
func NewFill(market string, direction shared.Direction, quantity float64, price float64, created time.Time) Fill {
	return Fill{
		Market:    market,
		Direction: direction,
		Quantity:  quantity,
		Price:     price,
		CreatedOn: created,
		Status:    make(chan shared.StatusCode, 1),
	}
}

// TradeOutcome represents a closed trade applied to the account and the
// performance history.
type TradeOutcome struct {
	Market     string
	Direction  shared.Direction
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     shared.Reason
	// Partial flags an outcome closing only a fraction of its position.
	Partial   bool
	CreatedOn time.Time
	Status    chan shared.StatusCode
}

// NewTradeOutcome initializes a new trade outcome.
func NewTradeOutcome(market string, direction shared.Direction, quantity float64, entryPrice float64,
	exitPrice float64, pnl float64, reason shared.Reason, created time.Time) TradeOutcome {
	return TradeOutcome{
		Market:     market,
		Direction:  direction,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		Reason:     reason,
		CreatedOn:  created,
		Status:     make(chan shared.StatusCode, 1),
	}
}

// RevalidateRequest represents a fill-time revalidation request for a signal
// validated earlier against a now possibly stale account snapshot.
type RevalidateRequest struct {
	Signal   shared.TradingSignal
	Response chan bool
}

// NewRevalidateRequest initializes a new revalidation request.
func NewRevalidateRequest(signal shared.TradingSignal) RevalidateRequest {
	return RevalidateRequest{
		Signal:   signal,
		Response: make(chan bool, 1),
	}
}

// ClosureRequest represents a position closure evaluation request.
type ClosureRequest struct {
	Position PositionState
	Response chan ClosureDecision
}

// NewClosureRequest initializes a new closure request.
func NewClosureRequest(position PositionState) ClosureRequest {
	return ClosureRequest{
		Position: position,
		Response: make(chan ClosureDecision, 1),
	}
}

// ManagerConfig represents the risk manager configuration.
type ManagerConfig struct {
	// InitialEquity is the starting account equity.
	InitialEquity float64
	// Params are the risk engine parameters.
	Params Params
	// FetchPerformance fetches the performance history for a market.
	FetchPerformance func(ctx context.Context, market string) (*Performance, error)
	// UpdatePerformance applies the provided trade outcome to the performance
	// history.
	UpdatePerformance func(ctx context.Context, outcome *TradeOutcome) error
	// RequestMarketConditions relays the provided market conditions request
	// for processing.
	RequestMarketConditions func(request shared.MarketConditionsRequest)
	// SendSizedEntry relays the provided sized entry for processing.
	SendSizedEntry func(entry SizedEntry)
	// JobScheduler schedules the daily limit reset.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Manager owns the account state and gates every trade through validation,
// circuit breakers and sizing. The account is mutated only inside the run
// loop; all reads and writes arrive through channels.
type Manager struct {
	cfg          *ManagerConfig
	account      shared.AccountState
	openNotional float64
	blockedUntil time.Time

	signals         chan shared.TradingSignal
	fills           chan Fill
	outcomes        chan TradeOutcome
	revalidations   chan RevalidateRequest
	closures        chan ClosureRequest
	accountRequests chan shared.AccountStateRequest
	resets          chan struct{}
}

// NewManager initializes a new risk manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Params.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating risk params: %w", err)
	}
	if cfg.InitialEquity <= 0 {
		return nil, fmt.Errorf("initial equity must be positive")
	}
	if cfg.RequestMarketConditions == nil {
		return nil, fmt.Errorf("market conditions request function cannot be nil")
	}
	if cfg.SendSizedEntry == nil {
		return nil, fmt.Errorf("sized entry send function cannot be nil")
	}

	mgr := &Manager{
		cfg: cfg,
		account: shared.AccountState{
			TotalEquity:     cfg.InitialEquity,
			AvailableEquity: cfg.InitialEquity,
			PeakEquity:      cfg.InitialEquity,
		},
		signals:         make(chan shared.TradingSignal, bufferSize),
		fills:           make(chan Fill, bufferSize),
		outcomes:        make(chan TradeOutcome, bufferSize),
		revalidations:   make(chan RevalidateRequest, bufferSize),
		closures:        make(chan ClosureRequest, bufferSize),
		accountRequests: make(chan shared.AccountStateRequest, bufferSize),
		resets:          make(chan struct{}, 1),
	}

	if cfg.JobScheduler != nil {
		_, err = cfg.JobScheduler.Every(1).Day().At(dailyResetTime).Do(mgr.signalDailyReset)
		if err != nil {
			return nil, fmt.Errorf("scheduling daily limit reset: %w", err)
		}
	}

	return mgr, nil
}

// SendTradingSignal relays the provided trading signal for processing.
func (m *Manager) SendTradingSignal(signal shared.TradingSignal) {
	select {
	case m.signals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("trading signal channel at capacity: %d/%d",
			len(m.signals), bufferSize)
	}
}

// SendFill relays the provided fill for processing.
func (m *Manager) SendFill(fill Fill) {
	select {
	case m.fills <- fill:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("fill channel at capacity: %d/%d", len(m.fills), bufferSize)
	}
}

// SendTradeOutcome relays the provided trade outcome for processing.
func (m *Manager) SendTradeOutcome(outcome TradeOutcome) {
	select {
	case m.outcomes <- outcome:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("trade outcome channel at capacity: %d/%d",
			len(m.outcomes), bufferSize)
	}
}

// RequestRevalidation relays the provided revalidation request for processing.
func (m *Manager) RequestRevalidation(request RevalidateRequest) {
	select {
	case m.revalidations <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("revalidation channel at capacity: %d/%d",
			len(m.revalidations), bufferSize)
	}
}

// RequestClosureDecision relays the provided closure request for processing.
func (m *Manager) RequestClosureDecision(request ClosureRequest) {
	select {
	case m.closures <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("closure request channel at capacity: %d/%d",
			len(m.closures), bufferSize)
	}
}

// RequestAccountState relays the provided account state request for processing.
func (m *Manager) RequestAccountState(request shared.AccountStateRequest) {
	select {
	case m.accountRequests <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("account request channel at capacity: %d/%d",
			len(m.accountRequests), bufferSize)
	}
}

// signalDailyReset queues a daily limit reset for the run loop.
func (m *Manager) signalDailyReset() {
	select {
	case m.resets <- struct{}{}:
		// do nothing.
	default:
		// do nothing, a reset is already queued.
	}
}

// fetchMarketConditions requests the current market conditions snapshot.
func (m *Manager) fetchMarketConditions(market string) (*shared.MarketConditions, error) {
	req := shared.NewMarketConditionsRequest(market)
	m.cfg.RequestMarketConditions(req)

	select {
	case conditions := <-req.Response:
		return &conditions, nil
	case <-time.After(shared.TimeoutDuration):
		return nil, fmt.Errorf("%s: timed out fetching market conditions", market)
	}
}

// gate runs the circuit breakers and validation checks for the provided
// signal against the current account state.
func (m *Manager) gate(signal *shared.TradingSignal, now time.Time) (*TradeValidation, *shared.MarketConditions, bool) {
	if now.Before(m.blockedUntil) {
		m.cfg.Logger.Info().Str("market", signal.Market).
			Time("until", m.blockedUntil).Msg("new trades blocked by circuit breaker cooldown")
		return nil, nil, false
	}

	conditions, err := m.fetchMarketConditions(signal.Market)
	if err != nil {
		// No conditions snapshot means no gating decision can be made.
		m.cfg.Logger.Error().Err(err).Send()
		return nil, nil, false
	}

	breakers := CheckCircuitBreakers(&m.account, conditions, &m.cfg.Params)
	if breakers.Triggered {
		m.blockedUntil = now.Add(breakers.Cooldown)
		for idx := range breakers.Triggers {
			m.cfg.Logger.Warn().Str("breaker", breakers.Triggers[idx].Name).
				Str("detail", breakers.Triggers[idx].Detail).Msg("circuit breaker triggered")
		}
		return nil, nil, false
	}

	validation := ValidateTrade(signal, &m.account, &m.cfg.Params)
	if !validation.Pass {
		for idx := range validation.Checks {
			if !validation.Checks[idx].Passed {
				m.cfg.Logger.Info().Str("market", signal.Market).
					Str("check", validation.Checks[idx].Name).
					Str("reason", validation.Checks[idx].Reason).Msg("trade validation failed")
			}
		}
		return nil, nil, false
	}

	return &validation, conditions, true
}

// handleTradingSignal gates, sizes and relays the provided trading signal.
func (m *Manager) handleTradingSignal(signal shared.TradingSignal) {
	defer func() {
		select {
		case signal.Status <- shared.Processed:
			// do nothing.
		default:
			// do nothing.
		}
	}()

	now := time.Now()
	validation, conditions, ok := m.gate(&signal, now)
	if !ok {
		return
	}

	var err error
	var performance *Performance
	if m.cfg.FetchPerformance != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		performance, err = m.cfg.FetchPerformance(ctx, signal.Market)
		cancel()
		if err != nil {
			// Sizing proceeds fixed-fractional only without history.
			m.cfg.Logger.Error().Err(err).Msgf("fetching performance for %s", signal.Market)
			performance = nil
		}
	}

	sizing, err := CalculatePositionSize(&signal, &m.account, conditions, performance, &m.cfg.Params)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msgf("sizing position for %s", signal.Market)
		return
	}

	stops := CalculateStopLossLevels(&signal, &m.cfg.Params)

	m.cfg.Logger.Info().Str("market", signal.Market).
		Str("direction", signal.Direction.String()).
		Float64("quantity", sizing.Quantity).Float64("risk", sizing.RiskAmount).
		Uint32("score", validation.Score).Msg("relaying sized entry")

	m.cfg.SendSizedEntry(SizedEntry{
		Signal:     signal,
		Validation: *validation,
		Sizing:     sizing,
		Stops:      stops,
		CreatedOn:  now,
	})
}

// refreshExposure recomputes the exposure and drawdown derived account fields.
func (m *Manager) refreshExposure() {
	if m.account.TotalEquity > 0 {
		m.account.TotalExposurePercent = m.openNotional / m.account.TotalEquity
	}
	if m.account.TotalEquity > m.account.PeakEquity {
		m.account.PeakEquity = m.account.TotalEquity
	}
	if m.account.PeakEquity > 0 {
		m.account.CurrentDrawdown = (m.account.PeakEquity - m.account.TotalEquity) / m.account.PeakEquity
	}
	m.account.MaxDrawdown = math.Max(m.account.MaxDrawdown, m.account.CurrentDrawdown)
}

// handleFill applies the provided position entry fill to the account.
func (m *Manager) handleFill(fill Fill) {
	defer func() {
		select {
		case fill.Status <- shared.Processed:
			// do nothing.
		default:
			// do nothing.
		}
	}()

	notional := fill.Quantity * fill.Price
	m.account.OpenPositions++
	m.account.DailyTrades++
	m.account.LastTradeTime = fill.CreatedOn
	m.account.AvailableEquity -= notional
	m.openNotional += notional
	m.refreshExposure()
}

// handleTradeOutcome applies the provided closed trade to the account and the
// performance history.
func (m *Manager) handleTradeOutcome(outcome TradeOutcome) {
	defer func() {
		select {
		case outcome.Status <- shared.Processed:
			// do nothing.
		default:
			// do nothing.
		}
	}()

	notional := outcome.Quantity * outcome.EntryPrice
	if !outcome.Partial && m.account.OpenPositions > 0 {
		m.account.OpenPositions--
	}
	m.openNotional = math.Max(0, m.openNotional-notional)
	m.account.TotalEquity += outcome.PnL
	m.account.AvailableEquity += notional + outcome.PnL
	m.account.DailyPnL += outcome.PnL
	m.refreshExposure()

	if m.cfg.UpdatePerformance != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		err := m.cfg.UpdatePerformance(ctx, &outcome)
		cancel()
		if err != nil {
			m.cfg.Logger.Error().Err(err).Msgf("updating performance for %s", outcome.Market)
		}
	}
}

// handleRevalidation re-runs the gating checks for the provided signal at
// fill time. An unanswerable revalidation fails closed.
func (m *Manager) handleRevalidation(request RevalidateRequest) {
	_, _, ok := m.gate(&request.Signal, time.Now())
	request.Response <- ok
}

// handleClosureRequest evaluates the closure checks for the provided position
// against the current account state.
func (m *Manager) handleClosureRequest(request ClosureRequest) {
	now := time.Now()

	conditions, err := m.fetchMarketConditions(request.Position.Market)
	if err != nil {
		// Stop, drawdown and duration checks still run on an empty
		// conditions snapshot.
		m.cfg.Logger.Error().Err(err).Send()
		conditions = &shared.MarketConditions{Market: request.Position.Market, LiquidityScore: 1}
	}

	request.Response <- ShouldClosePosition(&request.Position, &m.account, conditions,
		&m.cfg.Params, now)
}

// resetDailyLimits resets the daily pnl and trade counters.
func (m *Manager) resetDailyLimits() {
	m.cfg.Logger.Info().Float64("daily pnl", m.account.DailyPnL).
		Uint32("daily trades", m.account.DailyTrades).Msg("resetting daily limits")
	m.account.DailyPnL = 0
	m.account.DailyTrades = 0
}

// Run manages the lifecycle processes of the risk manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case signal := <-m.signals:
			m.handleTradingSignal(signal)
		case fill := <-m.fills:
			m.handleFill(fill)
		case outcome := <-m.outcomes:
			m.handleTradeOutcome(outcome)
		case request := <-m.revalidations:
			m.handleRevalidation(request)
		case request := <-m.closures:
			m.handleClosureRequest(request)
		case request := <-m.accountRequests:
			request.Response <- m.account
		case <-m.resets:
			m.resetDailyLimits()
		case <-ctx.Done():
			return
		}
	}
}
