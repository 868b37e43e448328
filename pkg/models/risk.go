package models

// RiskBand buckets a credibility score for display.
type RiskBand string

const (
	RiskLow     RiskBand = "low"
	RiskCaution RiskBand = "caution"
	RiskHigh    RiskBand = "high"
)

// BandFor returns the display band for a score: above 70 is low risk,
// above 40 is caution, anything else is high risk.
func BandFor(score int) RiskBand {
	switch {
	case score > 70:
		return RiskLow
	case score > 40:
		return RiskCaution
	default:
		return RiskHigh
	}
}
