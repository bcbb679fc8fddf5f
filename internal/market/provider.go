// Package market supplies per-venue quote snapshots to the trading core.
package market

import (
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
)

// QuoteHandler receives quote updates from a subscription.
type QuoteHandler func(quote types.VenueQuote)

// Provider is the narrow interface the trading core consumes for market
// data. Implementations may be backed by real feeds or a simulation; the
// core never assumes which.
type Provider interface {
	// GetQuote returns the current quote for a symbol on a venue. The
	// second return value is false when no quote has been observed within
	// the freshness window.
	GetQuote(symbol string, venue string) (types.VenueQuote, bool)
	// Subscribe registers a handler for quote updates on the given symbols
	// and venues. Multiple subscriptions are allowed; handlers must not block.
	Subscribe(symbols []string, venues []string, onUpdate QuoteHandler)
}
