package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus is the terminal (or pending) state of a simulated trade.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusFailed    TradeStatus = "failed"
	// TradeStatusPartial means the buy leg filled but the sell leg failed.
	// Partial trades are flagged for operator follow-up and never retried.
	TradeStatusPartial     TradeStatus = "partial"
	TradeStatusStoppedLoss TradeStatus = "stopped_loss"
)

// Trade is an append-only ledger entry for one executed (simulated)
// arbitrage round trip. A trade is never mutated after its terminal status
// is set, except for the bounded trailing-stop bonus which may adjust
// NetProfit and RoiPct once within a fixed grace window.
type Trade struct {
	ID              string      `json:"id" yaml:"id" validate:"required,uuid"`
	OpportunityID   string      `json:"opportunity_id" yaml:"opportunity_id"`
	Symbol          string      `json:"symbol" yaml:"symbol" validate:"required"`
	BuyVenue        string      `json:"buy_venue" yaml:"buy_venue" validate:"required,nefield=SellVenue"`
	SellVenue       string      `json:"sell_venue" yaml:"sell_venue" validate:"required"`
	BuyPrice        float64     `json:"buy_price" yaml:"buy_price" validate:"required,gt=0"`
	SellPrice       float64     `json:"sell_price" yaml:"sell_price"`
	RequestedQty    float64     `json:"requested_qty" yaml:"requested_qty" validate:"required,gt=0"`
	ExecutedQty     float64     `json:"executed_qty" yaml:"executed_qty"`
	GrossProfit     float64     `json:"gross_profit" yaml:"gross_profit"`
	Fees            float64     `json:"fees" yaml:"fees"`
	NetProfit       float64     `json:"net_profit" yaml:"net_profit"`
	RoiPct          float64     `json:"roi_pct" yaml:"roi_pct"`
	ExecutionTimeMs int64       `json:"execution_time_ms" yaml:"execution_time_ms"`
	Status          TradeStatus `json:"status" yaml:"status"`
	// RiskAmount is the planned loss if the stop is hit.
	RiskAmount float64 `json:"risk_amount" yaml:"risk_amount"`
	// StopLossPrice is the price at which the position is abandoned.
	StopLossPrice float64 `json:"stop_loss_price" yaml:"stop_loss_price"`
	// BuyOrderID and SellOrderID are populated by the two-leg gateway path.
	BuyOrderID  string    `json:"buy_order_id,omitempty" yaml:"buy_order_id,omitempty"`
	SellOrderID string    `json:"sell_order_id,omitempty" yaml:"sell_order_id,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// Notional returns the trade size in quote currency at the buy price.
func (t *Trade) Notional() float64 {
	return t.RequestedQty * t.BuyPrice
}

// Validate validates the Trade struct.
func (t *Trade) Validate() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid trade", err)
	}

	return nil
}
