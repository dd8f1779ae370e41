package shared

import "errors"

var (
	// ErrInsufficientData indicates a calculation window holds too few candles
	// for the requested period.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidParameter indicates a calculation parameter was rejected at the
	// call boundary.
	ErrInvalidParameter = errors.New("invalid parameter")
)
