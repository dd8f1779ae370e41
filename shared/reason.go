package shared

// Reason represents a signal emission, rejection or position closure reason.
type Reason int

const (
	// Emission reasons.
	BandTouch Reason = iota
	RetracementZone
	TrendBias
	SetupIntact
	StrongVolume
	EMACross
	StrongMomentum
	FavourableSlope
	CalmVolatility
	TimeframeAlignment
	StructuralPattern

	// Rejection reasons.
	NoBandTouch
	OutsideRetracementZone
	AdverseTrendBias
	SetupInvalidated
	WeakVolume
	NoEMACross
	WeakMomentum
	AdverseSlope
	ExcessiveVolatility
	NoTimeframeAlignment
	NoStructuralPattern
	InsufficientData

	// Closure reasons.
	TargetHit
	StopBreached
	DrawdownExceeded
	MaxHoldingDuration
)

// String stringifies the provided reason.
func (r Reason) String() string {
	switch r {
	case BandTouch:
		return "band touch"
	case RetracementZone:
		return "close within retracement zone"
	case TrendBias:
		return "favourable trend bias"
	case SetupIntact:
		return "setup intact"
	case StrongVolume:
		return "strong volume"
	case EMACross:
		return "ema cross"
	case StrongMomentum:
		return "strong momentum"
	case FavourableSlope:
		return "favourable ema slope"
	case CalmVolatility:
		return "calm volatility"
	case TimeframeAlignment:
		return "timeframe alignment"
	case StructuralPattern:
		return "structural pattern"
	case NoBandTouch:
		return "no band touch"
	case OutsideRetracementZone:
		return "close outside retracement zone"
	case AdverseTrendBias:
		return "adverse trend bias"
	case SetupInvalidated:
		return "setup invalidated"
	case WeakVolume:
		return "weak volume"
	case NoEMACross:
		return "no ema cross"
	case WeakMomentum:
		return "weak momentum"
	case AdverseSlope:
		return "adverse ema slope"
	case ExcessiveVolatility:
		return "excessive volatility"
	case NoTimeframeAlignment:
		return "no timeframe alignment"
	case NoStructuralPattern:
		return "no structural pattern"
	case InsufficientData:
		return "insufficient data"
	case TargetHit:
		return "target hit"
	case StopBreached:
		return "stop breached"
	case DrawdownExceeded:
		return "drawdown exceeded"
	case MaxHoldingDuration:
		return "max holding duration exceeded"
	default:
		return "unknown"
	}
}

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Urgency represents how urgent an advised action is.
type Urgency int

const (
	NormalUrgency Urgency = iota
	HighUrgency
	EmergencyUrgency
)

// String stringifies the provided urgency.
func (u Urgency) String() string {
	switch u {
	case NormalUrgency:
		return "normal"
	case HighUrgency:
		return "high"
	case EmergencyUrgency:
		return "emergency"
	default:
		return "unknown"
	}
}
