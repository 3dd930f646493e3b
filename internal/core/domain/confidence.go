// internal/core/domain/confidence.go
package domain

// Confidence levels for collected records.
// Represents how certain a collector is that a fact is currently true.
const (
	// ConfidenceLow indicates inferred or unverified data.
	// Used for: social (profile URL answered but identity unconfirmed), web outbound hosts
	ConfidenceLow float64 = 0.3

	// ConfidenceMedium indicates passive observation without direct verification.
	// Used for: emails scraped from pages, reverse DNS names
	ConfidenceMedium float64 = 0.6

	// ConfidenceHigh indicates authoritative but indirect data.
	// Used for: RDAP registry data, DNS answers
	ConfidenceHigh float64 = 0.8

	// ConfidenceVerified indicates direct verification.
	// Used for: the collection target itself, parsed coordinates
	ConfidenceVerified float64 = 1.0
)

// GetConfidenceLabel returns a human-readable label for a confidence value.
func GetConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= ConfidenceVerified:
		return "verified"
	case confidence >= ConfidenceHigh:
		return "high"
	case confidence >= ConfidenceMedium:
		return "medium"
	case confidence >= ConfidenceLow:
		return "low"
	default:
		return "unknown"
	}
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
