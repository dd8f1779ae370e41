package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dnldd/confluence/indicator"
	"github.com/dnldd/confluence/shared"
)

const (
	// minBandPenetration is the minimum band penetration ratio considered an
	// extreme touch of the tested band.
	minBandPenetration = 0.99
	// retracementZoneLow and retracementZoneHigh bound the close's band
	// position for a valid retracement after an upper band touch. The short
	// side mirrors the zone about the channel middle.
	retracementZoneLow  = 0.85
	retracementZoneHigh = 0.95
	// momentumThreshold is the rsi level separating bullish from bearish
	// momentum.
	momentumThreshold = 50
	// stopAtrMultiple scales the entry atr when deriving the initial stop.
	stopAtrMultiple = 2
	// fallbackStopPercent is the fractional stop distance used when the
	// derived stop degenerates.
	fallbackStopPercent = 0.01
	// structureLookback is the number of entry candles per side when checking
	// for a structural pattern.
	structureLookback = 3
)

// EvaluationState tracks the progress of a staged signal evaluation.
type EvaluationState int

const (
	Idle EvaluationState = iota
	PrimaryEvaluated
	EntryEvaluated
	ConfluenceChecked
	Emitted
	Rejected
)

// String stringifies the provided evaluation state.
func (s EvaluationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PrimaryEvaluated:
		return "primary evaluated"
	case EntryEvaluated:
		return "entry evaluated"
	case ConfluenceChecked:
		return "confluence checked"
	case Emitted:
		return "emitted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Rejection represents a reasoned no-signal result from an evaluation.
type Rejection struct {
	Market     string
	Direction  shared.Direction
	State      EvaluationState
	Reason     shared.Reason
	Evidence   shared.Evidence
	Confidence float64
	CreatedOn  time.Time
}

// EvaluatorConfig represents the signal evaluator configuration.
type EvaluatorConfig struct {
	// TrendEMAPeriod is the slow bias ema period on the trend timeframe.
	TrendEMAPeriod int
	// ChannelEMAPeriod is the keltner channel middle ema period.
	ChannelEMAPeriod int
	// ATRPeriod is the atr period for channels and volatility.
	ATRPeriod int
	// RSIPeriod is the rsi period for the entry momentum filter.
	RSIPeriod int
	// KeltnerMultiplier is the static channel band multiplier.
	KeltnerMultiplier float64
	// DynamicChannel toggles volatility-scaled channel multipliers.
	DynamicChannel bool
	// MinMultiplier and MaxMultiplier bound the dynamic channel multiplier.
	MinMultiplier float64
	MaxMultiplier float64
	// EntryEMAPeriod is the fast ema period on the entry timeframe.
	EntryEMAPeriod int
	// VolumeLookback is the trailing bar count for the average volume check.
	VolumeLookback int32
	// SlopeLookback is the trailing ema point count for the slope filter.
	SlopeLookback int
	// GuardLookback is the trailing close count for the setup invalidation guard.
	GuardLookback int
}

// DefaultEvaluatorConfig returns the default evaluator configuration.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		TrendEMAPeriod:    50,
		ChannelEMAPeriod:  20,
		ATRPeriod:         14,
		RSIPeriod:         14,
		KeltnerMultiplier: 2,
		DynamicChannel:    false,
		MinMultiplier:     1.5,
		MaxMultiplier:     2.75,
		EntryEMAPeriod:    9,
		VolumeLookback:    20,
		SlopeLookback:     10,
		GuardLookback:     5,
	}
}

// Validate asserts the config has sane inputs.
func (cfg *EvaluatorConfig) Validate() error {
	var errs error

	if cfg.TrendEMAPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trend ema period must be positive"))
	}
	if cfg.ChannelEMAPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("channel ema period must be positive"))
	}
	if cfg.ATRPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("atr period must be positive"))
	}
	if cfg.RSIPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("rsi period must be positive"))
	}
	if cfg.KeltnerMultiplier < 0 {
		errs = errors.Join(errs, fmt.Errorf("keltner multiplier cannot be negative"))
	}
	if cfg.DynamicChannel && (cfg.MinMultiplier < 0 || cfg.MaxMultiplier < cfg.MinMultiplier) {
		errs = errors.Join(errs, fmt.Errorf("invalid dynamic multiplier bounds"))
	}
	if cfg.EntryEMAPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("entry ema period must be positive"))
	}
	if cfg.VolumeLookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("volume lookback must be positive"))
	}
	if cfg.SlopeLookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("slope lookback must be positive"))
	}
	if cfg.GuardLookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("guard lookback must be positive"))
	}

	return errs
}

// Evaluator evaluates candle windows for multi-timeframe confluence setups.
// It holds no candle state itself and is pure given its input windows.
type Evaluator struct {
	cfg *EvaluatorConfig
}

// NewEvaluator initializes a new evaluator.
func NewEvaluator(cfg *EvaluatorConfig) (*Evaluator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating evaluator config: %w", err)
	}

	return &Evaluator{cfg: cfg}, nil
}

// evaluationInputs bundles the derived indicator context consumed by the
// evaluation stages.
type evaluationInputs struct {
	market       string
	direction    shared.Direction
	timeframe    shared.Timeframe
	trendChannel *indicator.Channel
	trendEMA     float64
	trendCandles []*shared.Candlestick
	avgVolume    float64
	entryChannel *indicator.Channel
	entryEMA     []indicator.Point
	entryCandles []*shared.Candlestick
	entryATR     float64
	rsi          float64
	emaSlope     float64
	regime       shared.VolatilityRegime
	createdOn    time.Time
}

// channel computes the keltner channel for the provided candles per the
// evaluator's channel configuration.
func (e *Evaluator) channel(candles []*shared.Candlestick) (*indicator.Channel, error) {
	if e.cfg.DynamicChannel {
		return indicator.DynamicKeltnerChannel(candles, e.cfg.ChannelEMAPeriod, e.cfg.ATRPeriod,
			e.cfg.MinMultiplier, e.cfg.MaxMultiplier)
	}

	return indicator.KeltnerChannel(candles, e.cfg.ChannelEMAPeriod, e.cfg.ATRPeriod,
		e.cfg.KeltnerMultiplier)
}

// computeInputs derives the indicator context for an evaluation from the
// provided trend and entry candle windows. A non-positive avgVolume falls
// back to the trailing average of the trend window.
func (e *Evaluator) computeInputs(market string, direction shared.Direction, trend []*shared.Candlestick, entry []*shared.Candlestick, avgVolume float64) (*evaluationInputs, error) {
	if len(trend) == 0 || len(entry) == 0 {
		return nil, fmt.Errorf("empty candle window: %w", shared.ErrInsufficientData)
	}

	trendChannel, err := e.channel(trend)
	if err != nil {
		return nil, fmt.Errorf("computing trend channel: %w", err)
	}

	trendEMA, err := indicator.EMAValue(trend, e.cfg.TrendEMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing trend ema: %w", err)
	}

	entryChannel, err := e.channel(entry)
	if err != nil {
		return nil, fmt.Errorf("computing entry channel: %w", err)
	}

	entryEMA, err := indicator.EMASeries(entry, e.cfg.EntryEMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing entry ema: %w", err)
	}

	slope, err := indicator.EMASlope(entryEMA, e.cfg.SlopeLookback)
	if err != nil {
		return nil, fmt.Errorf("computing entry ema slope: %w", err)
	}

	rsi, err := indicator.RSIValue(entry, e.cfg.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing entry rsi: %w", err)
	}

	atrHistory, err := indicator.ATRSeries(entry, e.cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing entry atr history: %w", err)
	}

	entryATR := atrHistory[len(atrHistory)-1].Value
	regime := indicator.ClassifyVolatility(atrHistory[:len(atrHistory)-1], entryATR)

	lookback := int(e.cfg.VolumeLookback)
	if avgVolume <= 0 && len(trend) > 1 {
		window := trend[:len(trend)-1]
		if len(window) > lookback {
			window = window[len(window)-lookback:]
		}

		var sum float64
		for idx := range window {
			sum += window[idx].Volume
		}
		avgVolume = sum / float64(len(window))
	}

	inputs := &evaluationInputs{
		market:       market,
		direction:    direction,
		timeframe:    entry[len(entry)-1].Timeframe,
		trendChannel: trendChannel,
		trendEMA:     trendEMA.Value,
		trendCandles: trend,
		avgVolume:    avgVolume,
		entryChannel: entryChannel,
		entryEMA:     entryEMA,
		entryCandles: entry,
		entryATR:     entryATR,
		rsi:          rsi.Value,
		emaSlope:     slope,
		regime:       regime,
		createdOn:    entry[len(entry)-1].Date,
	}

	return inputs, nil
}

// evaluatePrimary runs the trend timeframe checks, retaining each sub-check's
// numeric evidence for audit.
func (e *Evaluator) evaluatePrimary(in *evaluationInputs) shared.PrimaryEvidence {
	last := in.trendCandles[len(in.trendCandles)-1]
	width := in.trendChannel.Width()

	evidence := shared.PrimaryEvidence{
		TrendEMA:      in.trendEMA,
		ChannelMiddle: in.trendChannel.Middle,
	}

	// An extreme touch of the tested band marks a stretched trend move. A
	// degenerate zero-width channel resolves to a neutral reading that fails
	// the touch check rather than erroring.
	switch {
	case width <= 0:
		evidence.BandPenetration = 0.5
	case in.direction == shared.Long:
		evidence.BandPenetration = (last.High - in.trendChannel.Lower) / width
	default:
		evidence.BandPenetration = (in.trendChannel.Upper - last.Low) / width
	}
	evidence.BandTouch = width > 0 && evidence.BandPenetration >= minBandPenetration

	// The latest close must have retraced into the zone near the tested band.
	evidence.BandPosition = in.trendChannel.BandPosition(last.Close)
	switch in.direction {
	case shared.Long:
		evidence.Retracement = evidence.BandPosition >= retracementZoneLow &&
			evidence.BandPosition <= retracementZoneHigh
	case shared.Short:
		evidence.Retracement = evidence.BandPosition >= 1-retracementZoneHigh &&
			evidence.BandPosition <= 1-retracementZoneLow
	}

	// The slow trend ema sets the directional bias relative to the channel
	// middle.
	switch in.direction {
	case shared.Long:
		evidence.TrendBiasOK = in.trendEMA < in.trendChannel.Middle
	case shared.Short:
		evidence.TrendBiasOK = in.trendEMA > in.trendChannel.Middle
	}

	// None of the recent closes may have broken the trend ema against the
	// setup.
	guard := in.trendCandles
	if len(guard) > e.cfg.GuardLookback {
		guard = guard[len(guard)-e.cfg.GuardLookback:]
	}
	evidence.SetupIntact = true
	for idx := range guard {
		switch in.direction {
		case shared.Long:
			if guard[idx].Close < in.trendEMA {
				evidence.SetupIntact = false
			}
		case shared.Short:
			if guard[idx].Close > in.trendEMA {
				evidence.SetupIntact = false
			}
		}
	}

	// The latest bar must show above average participation.
	if in.avgVolume > 0 {
		evidence.VolumeRatio = last.Volume / in.avgVolume
	}
	evidence.VolumeOK = evidence.VolumeRatio > 1

	return evidence
}

// evaluateEntry runs the entry timeframe trigger checks.
func (e *Evaluator) evaluateEntry(in *evaluationInputs) shared.EntryEvidence {
	evidence := shared.EntryEvidence{
		RSI:      in.rsi,
		EMASlope: in.emaSlope,
		Regime:   in.regime,
	}

	// The close must cross the fast ema between the last two bars and the
	// crossing bar must agree with the setup direction.
	last := in.entryCandles[len(in.entryCandles)-1]
	prev := in.entryCandles[len(in.entryCandles)-2]
	lastEMA := in.entryEMA[len(in.entryEMA)-1].Value
	prevEMA := in.entryEMA[len(in.entryEMA)-2].Value

	switch in.direction {
	case shared.Long:
		evidence.Crossed = prev.Close <= prevEMA && last.Close > lastEMA &&
			last.FetchSentiment() == shared.Bullish
		evidence.MomentumOK = in.rsi > momentumThreshold
		evidence.SlopeOK = in.emaSlope >= 0
	case shared.Short:
		evidence.Crossed = prev.Close >= prevEMA && last.Close < lastEMA &&
			last.FetchSentiment() == shared.Bearish
		evidence.MomentumOK = in.rsi < momentumThreshold
		evidence.SlopeOK = in.emaSlope <= 0
	}

	evidence.VolatilityOK = in.regime != shared.ExtremeVolatility

	return evidence
}

// evaluateConfluence runs the cross-timeframe confluence checks.
func (e *Evaluator) evaluateConfluence(in *evaluationInputs) shared.ConfluenceEvidence {
	var evidence shared.ConfluenceEvidence

	entryEMA := in.entryEMA[len(in.entryEMA)-1].Value
	switch in.direction {
	case shared.Long:
		evidence.TrendAligned = in.trendEMA < in.trendChannel.Middle
		evidence.EntryAligned = entryEMA < in.entryChannel.Middle
	case shared.Short:
		evidence.TrendAligned = in.trendEMA > in.trendChannel.Middle
		evidence.EntryAligned = entryEMA > in.entryChannel.Middle
	}

	evidence.StructuralPattern = e.structuralPattern(in)

	return evidence
}

// structuralPattern checks for a higher low (long) or lower high (short)
// across the two most recent structural windows of the entry timeframe.
func (e *Evaluator) structuralPattern(in *evaluationInputs) bool {
	need := structureLookback * 2
	if len(in.entryCandles) < need {
		return false
	}

	recent := in.entryCandles[len(in.entryCandles)-structureLookback:]
	prior := in.entryCandles[len(in.entryCandles)-need : len(in.entryCandles)-structureLookback]

	switch in.direction {
	case shared.Long:
		recentLow, priorLow := math.Inf(1), math.Inf(1)
		for idx := range recent {
			recentLow = math.Min(recentLow, recent[idx].Low)
			priorLow = math.Min(priorLow, prior[idx].Low)
		}
		return recentLow > priorLow
	case shared.Short:
		recentHigh, priorHigh := math.Inf(-1), math.Inf(-1)
		for idx := range recent {
			recentHigh = math.Max(recentHigh, recent[idx].High)
			priorHigh = math.Max(priorHigh, prior[idx].High)
		}
		return recentHigh < priorHigh
	default:
		return false
	}
}

// primaryRejectionReason returns the reason of the first failing primary check.
func primaryRejectionReason(evidence *shared.PrimaryEvidence) shared.Reason {
	switch {
	case !evidence.BandTouch:
		return shared.NoBandTouch
	case !evidence.Retracement:
		return shared.OutsideRetracementZone
	case !evidence.TrendBiasOK:
		return shared.AdverseTrendBias
	case !evidence.SetupIntact:
		return shared.SetupInvalidated
	default:
		return shared.WeakVolume
	}
}

// entryRejectionReason returns the reason of the first failing entry check.
func entryRejectionReason(evidence *shared.EntryEvidence) shared.Reason {
	switch {
	case !evidence.Crossed:
		return shared.NoEMACross
	case !evidence.MomentumOK:
		return shared.WeakMomentum
	case !evidence.SlopeOK:
		return shared.AdverseSlope
	default:
		return shared.ExcessiveVolatility
	}
}

// confluenceRejectionReason returns the reason of the first failing confluence
// check.
func confluenceRejectionReason(evidence *shared.ConfluenceEvidence) shared.Reason {
	switch {
	case !evidence.TrendAligned || !evidence.EntryAligned:
		return shared.NoTimeframeAlignment
	default:
		return shared.NoStructuralPattern
	}
}

// buildSignal derives the trading signal for a fully passed evaluation.
func (e *Evaluator) buildSignal(in *evaluationInputs, evidence shared.Evidence) shared.TradingSignal {
	entry := in.entryCandles[len(in.entryCandles)-1].Close

	var stop float64
	switch in.direction {
	case shared.Long:
		stop = math.Min(in.trendEMA, entry-stopAtrMultiple*in.entryATR)
		if stop >= entry {
			// A degenerate stop resolves to a fractional fallback distance.
			stop = entry * (1 - fallbackStopPercent)
		}
	case shared.Short:
		stop = math.Max(in.trendEMA, entry+stopAtrMultiple*in.entryATR)
		if stop <= entry {
			stop = entry * (1 + fallbackStopPercent)
		}
	}

	risk := math.Abs(entry - stop)
	var targets [3]float64
	var secondaryStop float64
	switch in.direction {
	case shared.Long:
		targets = [3]float64{entry + risk, entry + 2*risk, entry + 3*risk}
		secondaryStop = in.trendChannel.Lower
	case shared.Short:
		targets = [3]float64{entry - risk, entry - 2*risk, entry - 3*risk}
		secondaryStop = in.trendChannel.Upper
	}

	reasons := []shared.Reason{
		shared.BandTouch, shared.RetracementZone, shared.TrendBias, shared.SetupIntact,
		shared.StrongVolume, shared.EMACross, shared.StrongMomentum, shared.FavourableSlope,
		shared.CalmVolatility, shared.TimeframeAlignment, shared.StructuralPattern,
	}

	return shared.NewTradingSignal(in.market, in.timeframe, in.direction, entry, stop,
		secondaryStop, targets, evidence.Confidence(), reasons, evidence, in.createdOn)
}

// runStages drives the staged state machine over the provided inputs,
// emitting a signal on a full pass or a reasoned rejection on the first
// failing stage.
func (e *Evaluator) runStages(in *evaluationInputs) (*shared.TradingSignal, *Rejection) {
	var evidence shared.Evidence

	reject := func(state EvaluationState, reason shared.Reason) *Rejection {
		return &Rejection{
			Market:     in.market,
			Direction:  in.direction,
			State:      state,
			Reason:     reason,
			Evidence:   evidence,
			Confidence: evidence.Confidence(),
			CreatedOn:  in.createdOn,
		}
	}

	evidence.Primary = e.evaluatePrimary(in)
	if evidence.Primary.Validated() < 5 {
		return nil, reject(PrimaryEvaluated, primaryRejectionReason(&evidence.Primary))
	}

	evidence.Entry = e.evaluateEntry(in)
	if evidence.Entry.Validated() < 4 {
		return nil, reject(EntryEvaluated, entryRejectionReason(&evidence.Entry))
	}

	evidence.Confluence = e.evaluateConfluence(in)
	if evidence.Confluence.Validated() < 3 {
		return nil, reject(ConfluenceChecked, confluenceRejectionReason(&evidence.Confluence))
	}

	signal := e.buildSignal(in, evidence)

	return &signal, nil
}

// EvaluateDirection evaluates the provided candle windows for a setup in a
// single direction.
func (e *Evaluator) EvaluateDirection(market string, direction shared.Direction, trend []*shared.Candlestick, entry []*shared.Candlestick, avgVolume float64) (*shared.TradingSignal, *Rejection, error) {
	inputs, err := e.computeInputs(market, direction, trend, entry, avgVolume)
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientData) {
			// Too few candles is a non-fatal no-signal outcome.
			rejection := &Rejection{
				Market:    market,
				Direction: direction,
				State:     Idle,
				Reason:    shared.InsufficientData,
				CreatedOn: time.Now(),
			}
			return nil, rejection, nil
		}

		return nil, nil, err
	}

	signal, rejection := e.runStages(inputs)
	return signal, rejection, nil
}

// Evaluate evaluates the provided candle windows for setups in both
// directions, preferring whichever emits. When both directions reject, the
// rejection that progressed further through the stages is returned.
func (e *Evaluator) Evaluate(market string, trend []*shared.Candlestick, entry []*shared.Candlestick, avgVolume float64) (*shared.TradingSignal, *Rejection, error) {
	signal, longRejection, err := e.EvaluateDirection(market, shared.Long, trend, entry, avgVolume)
	if err != nil {
		return nil, nil, err
	}
	if signal != nil {
		return signal, nil, nil
	}

	signal, shortRejection, err := e.EvaluateDirection(market, shared.Short, trend, entry, avgVolume)
	if err != nil {
		return nil, nil, err
	}
	if signal != nil {
		return signal, nil, nil
	}

	if shortRejection.State > longRejection.State {
		return nil, shortRejection, nil
	}

	return nil, longRejection, nil
}
