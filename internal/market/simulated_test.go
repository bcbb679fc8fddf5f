package market

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/stretchr/testify/suite"
)

type SimulatedProviderTestSuite struct {
	suite.Suite
	cfg   config.Config
	clock *clock.Fake
}

func TestSimulatedProviderSuite(t *testing.T) {
	suite.Run(t, new(SimulatedProviderTestSuite))
}

func (suite *SimulatedProviderTestSuite) SetupTest() {
	suite.cfg = config.DefaultConfig()
	suite.clock = clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (suite *SimulatedProviderTestSuite) newProvider() *SimulatedProvider {
	return NewSimulatedProvider(suite.cfg, rng.New(7), suite.clock, logger.NewNopLogger())
}

func (suite *SimulatedProviderTestSuite) TestRefreshProducesQuotesForAllPairs() {
	provider := suite.newProvider()
	provider.refresh()

	for _, symbol := range suite.cfg.Symbols {
		for _, venue := range suite.cfg.Venues {
			quote, ok := provider.GetQuote(symbol, venue)
			suite.True(ok, "expected quote for %s on %s", symbol, venue)
			suite.Equal(symbol, quote.Symbol)
			suite.Equal(venue, quote.Venue)
			suite.Greater(quote.Ask, quote.Bid)
			suite.Greater(quote.Volume, 0.0)
		}
	}
}

func (suite *SimulatedProviderTestSuite) TestQuotesJitterAroundBasePrice() {
	provider := suite.newProvider()
	provider.refresh()

	quote, ok := provider.GetQuote("BTCUSDT", "binance")
	suite.True(ok)

	base := suite.cfg.BasePrices["BTCUSDT"]
	// Jitter plus half-spread keeps the quote within a few percent of base
	suite.InDelta(base, quote.Mid(), base*0.05)
}

func (suite *SimulatedProviderTestSuite) TestStaleQuoteIsNotReturned() {
	provider := suite.newProvider()
	provider.refresh()

	_, ok := provider.GetQuote("BTCUSDT", "binance")
	suite.True(ok)

	// Advance past the freshness window without refreshing
	suite.clock.Advance(6 * time.Second)

	_, ok = provider.GetQuote("BTCUSDT", "binance")
	suite.False(ok)
}

func (suite *SimulatedProviderTestSuite) TestUnknownVenue() {
	provider := suite.newProvider()
	provider.refresh()

	_, ok := provider.GetQuote("BTCUSDT", "nonexistent")
	suite.False(ok)
}

func (suite *SimulatedProviderTestSuite) TestSubscribeFiltersUpdates() {
	provider := suite.newProvider()

	var received []types.VenueQuote

	provider.Subscribe([]string{"ETHUSDT"}, []string{"okx"}, func(quote types.VenueQuote) {
		received = append(received, quote)
	})

	provider.refresh()

	suite.Len(received, 1)
	suite.Equal("ETHUSDT", received[0].Symbol)
	suite.Equal("okx", received[0].Venue)
}

func (suite *SimulatedProviderTestSuite) TestStopIsIdempotent() {
	provider := suite.newProvider()
	provider.Stop()
	provider.Stop()
}
