package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/confluence/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderType represents the type of an advised order.
type OrderType int

const (
	MarketOrder OrderType = iota
	LimitOrder
)

// String stringifies the provided order type.
func (o OrderType) String() string {
	switch o {
	case MarketOrder:
		return "market"
	case LimitOrder:
		return "limit"
	default:
		return "unknown"
	}
}

// Order represents an order submitted for execution.
type Order struct {
	ID        string
	Market    string
	Direction shared.Direction
	Type      OrderType
	Quantity  float64
	// LimitPrice is the limit price, zero for market orders.
	LimitPrice float64
	CreatedOn  time.Time
}

// NewOrder initializes a new order.
func NewOrder(market string, direction shared.Direction, orderType OrderType, quantity float64,
	limitPrice float64, created time.Time) Order {
	return Order{
		ID:         uuid.New().String(),
		Market:     market,
		Direction:  direction,
		Type:       orderType,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		CreatedOn:  created,
	}
}

// Result represents the execution result of a filled order.
type Result struct {
	FillPrice    float64
	FillDuration time.Duration
	FilledOn     time.Time
}

// AdvisorConfig represents the execution advisor configuration.
type AdvisorConfig struct {
	// BaseSlippagePercent is the base slippage fraction before multipliers.
	BaseSlippagePercent float64
	// MaxSlippagePercent is the hard slippage ceiling.
	MaxSlippagePercent float64
	// SlowFillDuration flags fills slower than this duration.
	SlowFillDuration time.Duration
	// VolatilitySpikeRatio is the atr ratio beyond which pending orders are
	// cancelled.
	VolatilitySpikeRatio float64
	// LiquidityFloor is the liquidity score below which pending orders are
	// cancelled.
	LiquidityFloor float64
	// OrderTimeout is the age past which pending orders are cancelled.
	OrderTimeout time.Duration
	// SpreadWidenRatio is the spread ratio raising cancellation urgency.
	SpreadWidenRatio float64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// DefaultAdvisorConfig returns the default execution advisor configuration.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{
		BaseSlippagePercent:  0.0005,
		MaxSlippagePercent:   0.01,
		SlowFillDuration:     time.Second * 30,
		VolatilitySpikeRatio: 2,
		LiquidityFloor:       0.15,
		OrderTimeout:         time.Minute * 5,
		SpreadWidenRatio:     2,
	}
}

// Validate asserts the advisor config has sane inputs.
func (cfg *AdvisorConfig) Validate() error {
	var errs error

	if cfg.BaseSlippagePercent <= 0 {
		errs = errors.Join(errs, fmt.Errorf("base slippage percent must be positive"))
	}
	if cfg.MaxSlippagePercent <= 0 || cfg.MaxSlippagePercent < cfg.BaseSlippagePercent {
		errs = errors.Join(errs, fmt.Errorf("max slippage percent must be at least the base"))
	}
	if cfg.SlowFillDuration <= 0 {
		errs = errors.Join(errs, fmt.Errorf("slow fill duration must be positive"))
	}
	if cfg.VolatilitySpikeRatio <= 1 {
		errs = errors.Join(errs, fmt.Errorf("volatility spike ratio must exceed 1"))
	}
	if cfg.LiquidityFloor < 0 || cfg.LiquidityFloor > 1 {
		errs = errors.Join(errs, fmt.Errorf("liquidity floor must be in [0, 1]"))
	}
	if cfg.OrderTimeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("order timeout must be positive"))
	}
	if cfg.SpreadWidenRatio <= 1 {
		errs = errors.Join(errs, fmt.Errorf("spread widen ratio must exceed 1"))
	}

	return errs
}

// Advisor advises on order execution: slippage budgets, order types,
// execution quality and cancellations. It is stateless and safe for
// concurrent use.
type Advisor struct {
	cfg *AdvisorConfig
}

// NewAdvisor initializes a new execution advisor.
func NewAdvisor(cfg *AdvisorConfig) (*Advisor, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating advisor config: %w", err)
	}

	return &Advisor{cfg: cfg}, nil
}
