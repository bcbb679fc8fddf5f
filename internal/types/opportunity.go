package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
)

// OpportunityStatus is the lifecycle state of a detected opportunity.
//
// Transitions: detected -> analyzing -> executing -> {completed | expired}.
// An opportunity is immutable once it reaches a terminal state.
type OpportunityStatus string

const (
	OpportunityStatusDetected  OpportunityStatus = "detected"
	OpportunityStatusAnalyzing OpportunityStatus = "analyzing"
	OpportunityStatusExecuting OpportunityStatus = "executing"
	OpportunityStatusCompleted OpportunityStatus = "completed"
	OpportunityStatusExpired   OpportunityStatus = "expired"
)

// Opportunity is a candidate cross-venue arbitrage: buy on BuyVenue at
// BuyPrice (its ask), sell on SellVenue at SellPrice (its bid).
type Opportunity struct {
	ID        string  `json:"id" yaml:"id" validate:"required,uuid"`
	Symbol    string  `json:"symbol" yaml:"symbol" validate:"required"`
	BuyVenue  string  `json:"buy_venue" yaml:"buy_venue" validate:"required,nefield=SellVenue"`
	SellVenue string  `json:"sell_venue" yaml:"sell_venue" validate:"required"`
	BuyPrice  float64 `json:"buy_price" yaml:"buy_price" validate:"required,gt=0"`
	SellPrice float64 `json:"sell_price" yaml:"sell_price" validate:"required,gt=0"`
	// GrossSpreadPct is (sell bid - buy ask) / buy ask * 100.
	GrossSpreadPct float64 `json:"gross_spread_pct" yaml:"gross_spread_pct"`
	// NetSpreadPct is the gross spread minus slippage and both-leg fees.
	NetSpreadPct float64 `json:"net_spread_pct" yaml:"net_spread_pct"`
	// SlippagePct is the slippage deduction applied when deriving NetSpreadPct.
	SlippagePct float64 `json:"slippage_pct" yaml:"slippage_pct"`
	// NotionalSize is the planned trade size in base units.
	NotionalSize float64 `json:"notional_size" yaml:"notional_size"`
	// EstimatedProfit is the expected net profit in quote currency.
	EstimatedProfit float64 `json:"estimated_profit" yaml:"estimated_profit"`
	// QuoteVolume is the smaller of the two venues' quote volumes.
	QuoteVolume float64           `json:"quote_volume" yaml:"quote_volume"`
	RiskLevel   RiskLevel         `json:"risk_level" yaml:"risk_level"`
	Confidence  int               `json:"confidence" yaml:"confidence"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	Status      OpportunityStatus `json:"status" yaml:"status"`
}

// Validate validates the Opportunity struct.
func (o *Opportunity) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOpportunity, "invalid opportunity", err)
	}

	return nil
}

// Terminal reports whether the opportunity has reached a terminal status.
func (o *Opportunity) Terminal() bool {
	return o.Status == OpportunityStatusCompleted || o.Status == OpportunityStatusExpired
}

// ExpiredAt reports whether the opportunity is older than ttl at now.
func (o *Opportunity) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.CreatedAt) > ttl
}
