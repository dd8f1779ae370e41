package shared

// PrimaryEvidence retains the numeric evidence gathered while evaluating the
// trend timeframe conditions of a setup.
type PrimaryEvidence struct {
	// BandPenetration is the ratio of the latest bar's extreme into the
	// channel, relative to the band being tested.
	BandPenetration float64
	// BandPosition is the latest close's position within the channel,
	// 0 at the lower band and 1 at the upper band.
	BandPosition float64
	TrendEMA      float64
	ChannelMiddle float64
	// VolumeRatio is the latest volume over the trailing average volume.
	VolumeRatio float64

	BandTouch   bool
	Retracement bool
	TrendBiasOK bool
	SetupIntact bool
	VolumeOK    bool
}

// Validated returns the number of passing primary factors.
func (e *PrimaryEvidence) Validated() uint32 {
	var n uint32
	for _, ok := range []bool{e.BandTouch, e.Retracement, e.TrendBiasOK, e.SetupIntact, e.VolumeOK} {
		if ok {
			n++
		}
	}
	return n
}

// EntryEvidence retains the numeric evidence gathered while evaluating the
// entry timeframe conditions of a setup.
type EntryEvidence struct {
	RSI      float64
	EMASlope float64
	Regime   VolatilityRegime

	Crossed      bool
	MomentumOK   bool
	SlopeOK      bool
	VolatilityOK bool
}

// Validated returns the number of passing entry factors.
func (e *EntryEvidence) Validated() uint32 {
	var n uint32
	for _, ok := range []bool{e.Crossed, e.MomentumOK, e.SlopeOK, e.VolatilityOK} {
		if ok {
			n++
		}
	}
	return n
}

// ConfluenceEvidence retains the evidence gathered while checking
// cross-timeframe confluence.
type ConfluenceEvidence struct {
	TrendAligned      bool
	EntryAligned      bool
	StructuralPattern bool
}

// Validated returns the number of passing confluence factors.
func (e *ConfluenceEvidence) Validated() uint32 {
	var n uint32
	for _, ok := range []bool{e.TrendAligned, e.EntryAligned, e.StructuralPattern} {
		if ok {
			n++
		}
	}
	return n
}

// Evidence aggregates the typed per-stage evidence of an evaluation.
type Evidence struct {
	Primary    PrimaryEvidence
	Entry      EntryEvidence
	Confluence ConfluenceEvidence
}

// evidenceFactors is the total number of factors contributing to confidence.
const evidenceFactors = 12

// Confidence returns the ratio of validated factors to the total factor count.
func (e *Evidence) Confidence() float64 {
	validated := e.Primary.Validated() + e.Entry.Validated() + e.Confluence.Validated()
	return float64(validated) / float64(evidenceFactors)
}
