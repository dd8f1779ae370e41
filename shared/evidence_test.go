package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestEvidenceConfidence(t *testing.T) {
	// Ensure empty evidence yields zero confidence.
	var evidence Evidence
	assert.Equal(t, evidence.Confidence(), 0)

	// Ensure fully validated evidence yields full confidence.
	evidence = Evidence{
		Primary: PrimaryEvidence{
			BandTouch:   true,
			Retracement: true,
			TrendBiasOK: true,
			SetupIntact: true,
			VolumeOK:    true,
		},
		Entry: EntryEvidence{
			Crossed:      true,
			MomentumOK:   true,
			SlopeOK:      true,
			VolatilityOK: true,
		},
		Confluence: ConfluenceEvidence{
			TrendAligned:      true,
			EntryAligned:      true,
			StructuralPattern: true,
		},
	}
	assert.Equal(t, evidence.Confidence(), 1)

	// Ensure partially validated evidence yields a partial ratio.
	evidence.Confluence.StructuralPattern = false
	evidence.Entry.VolatilityOK = false
	assert.Equal(t, evidence.Confidence(), float64(10)/float64(12))

	// Ensure the per-stage validated counts are consistent.
	assert.Equal(t, evidence.Primary.Validated(), uint32(5))
	assert.Equal(t, evidence.Entry.Validated(), uint32(3))
	assert.Equal(t, evidence.Confluence.Validated(), uint32(2))
}
