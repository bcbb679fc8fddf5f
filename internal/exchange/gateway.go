// Package exchange provides the order execution gateway the trading core
// places legs through.
package exchange

import (
	"context"

	"github.com/rxtech-lab/argo-arbitrage/internal/types"
)

// OrderResult is the outcome of a single order leg.
type OrderResult struct {
	Success          bool    `json:"success"`
	OrderID          string  `json:"order_id,omitempty"`
	ExecutedPrice    float64 `json:"executed_price,omitempty"`
	ExecutedQuantity float64 `json:"executed_quantity,omitempty"`
	Fees             float64 `json:"fees,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// Gateway accepts buy/sell orders on a venue. Implementations must be
// callable concurrently (the buy and sell legs of one arbitrage are placed
// in parallel) without the legs affecting one another.
type Gateway interface {
	PlaceOrder(ctx context.Context, venue string, symbol string, side types.Side, quantity float64, limitPrice float64) (OrderResult, error)
}
