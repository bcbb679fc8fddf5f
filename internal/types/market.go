package types

import "time"

// VenueQuote is the best bid/ask observed on a single venue for a symbol.
// Quotes are ephemeral: they are produced fresh on every scan tick and are
// never persisted.
type VenueQuote struct {
	Venue      string    `json:"venue" yaml:"venue"`
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Bid        float64   `json:"bid" yaml:"bid"`
	Ask        float64   `json:"ask" yaml:"ask"`
	Volume     float64   `json:"volume" yaml:"volume"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// Mid returns the quote midpoint price.
func (q VenueQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// FreshAt reports whether the quote was observed within the freshness window
// ending at now.
func (q VenueQuote) FreshAt(now time.Time, window time.Duration) bool {
	return now.Sub(q.ObservedAt) <= window
}

// RiskLevel is a coarse classification of how risky an opportunity is.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)
