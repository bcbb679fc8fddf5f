package scanner

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/market"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/stretchr/testify/suite"
)

// stubProvider serves a fixed quote book keyed by venue-symbol.
type stubProvider struct {
	quotes map[string]types.VenueQuote
}

func (p *stubProvider) GetQuote(symbol string, venue string) (types.VenueQuote, bool) {
	quote, ok := p.quotes[venue+"-"+symbol]

	return quote, ok
}

func (p *stubProvider) Subscribe(symbols []string, venues []string, onUpdate market.QuoteHandler) {
}

func fixedSize(qty float64) SizePolicy {
	return func(symbol string, price float64, venueVolume float64, settings types.RiskSettings) float64 {
		return qty
	}
}

type ScannerTestSuite struct {
	suite.Suite
	cfg      config.Config
	clock    *clock.Fake
	settings types.RiskSettings
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.cfg = config.DefaultConfig()
	suite.cfg.Symbols = []string{"BTCUSDT"}
	suite.cfg.Venues = []string{"binance", "bybit"}
	suite.clock = clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	suite.settings = types.DefaultRiskSettings()
}

func (suite *ScannerTestSuite) book(quotes ...types.VenueQuote) *stubProvider {
	m := make(map[string]types.VenueQuote, len(quotes))
	for _, q := range quotes {
		m[q.Venue+"-"+q.Symbol] = q
	}

	return &stubProvider{quotes: m}
}

func (suite *ScannerTestSuite) TestSpreadMath() {
	// Cheap ask 100.00 on binance, rich bid 100.30 on bybit: gross 0.30%.
	// Slippage sample of 0 yields the range minimum 0.05%; fees 0.1% per
	// leg leave a net of 0.05%.
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 100.30, Ask: 100.40, Volume: 400000},
	)

	suite.cfg.Scanner.SpreadFloorPct = 0.01
	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0), suite.clock, logger.NewNopLogger())

	found := scanner.Scan(suite.settings)
	suite.Require().Len(found, 1)

	opp := found[0]
	suite.Equal("binance", opp.BuyVenue)
	suite.Equal("bybit", opp.SellVenue)
	suite.InDelta(0.30, opp.GrossSpreadPct, 1e-9)
	suite.InDelta(0.05, opp.SlippagePct, 1e-9)
	suite.InDelta(0.05, opp.NetSpreadPct, 1e-9)
	suite.InDelta(0.5*100.00*0.05/100, opp.EstimatedProfit, 1e-9)
	suite.Equal(400000.0, opp.QuoteVolume)
	suite.Equal(types.RiskLevelHigh, opp.RiskLevel)
	suite.Equal(types.OpportunityStatusDetected, opp.Status)
	suite.NoError(opp.Validate())
}

func (suite *ScannerTestSuite) TestFloorSuppressesThinSpread() {
	// Net spread of exactly 0.05% does not exceed the default 0.05% floor
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 100.30, Ask: 100.40, Volume: 400000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0), suite.clock, logger.NewNopLogger())

	suite.Empty(scanner.Scan(suite.settings))
}

func (suite *ScannerTestSuite) TestSingleVenueYieldsNothing() {
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0), suite.clock, logger.NewNopLogger())

	suite.Empty(scanner.Scan(suite.settings))
}

func (suite *ScannerTestSuite) TestTieBreakPrefersVolume() {
	// binance and okx offer the same ask; the okx pair carries more volume
	suite.cfg.Venues = []string{"binance", "bybit", "okx"}

	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 50000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 101.00, Ask: 101.20, Volume: 200000},
		types.VenueQuote{Venue: "okx", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 300000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0), suite.clock, logger.NewNopLogger())

	found := scanner.Scan(suite.settings)
	suite.Require().Len(found, 1)
	suite.Equal("okx", found[0].BuyVenue)
	suite.Equal("bybit", found[0].SellVenue)
}

func (suite *ScannerTestSuite) TestTTLAndGraceEviction() {
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 101.00, Ask: 101.20, Volume: 400000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0.5), suite.clock, logger.NewNopLogger())

	found := scanner.Scan(suite.settings)
	suite.Require().Len(found, 1)

	id := found[0].ID

	// Past TTL: no longer executable, still visible in the grace window
	suite.clock.Advance(31 * time.Second)
	suite.Empty(scanner.Best(10))
	suite.Len(scanner.Recent(0), 1)

	// Past TTL plus grace: evicted on the next scan
	suite.clock.Advance(10 * time.Second)
	scanner.Scan(suite.settings)

	for _, opp := range scanner.Recent(0) {
		suite.NotEqual(id, opp.ID)
	}
}

func (suite *ScannerTestSuite) TestCapEvictsOldest() {
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 101.00, Ask: 101.20, Volume: 400000},
	)

	suite.cfg.Scanner.MaxOpportunities = 3
	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0.5), suite.clock, logger.NewNopLogger())

	var first string

	for i := 0; i < 5; i++ {
		found := scanner.Scan(suite.settings)
		suite.Require().Len(found, 1)

		if i == 0 {
			first = found[0].ID
		}

		suite.clock.Advance(time.Second)
	}

	recent := scanner.Recent(0)
	suite.Len(recent, 3)

	for _, opp := range recent {
		suite.NotEqual(first, opp.ID)
	}

	// Newest first
	suite.True(recent[0].CreatedAt.After(recent[1].CreatedAt))
}

func (suite *ScannerTestSuite) TestBestRanksByEstimatedProfit() {
	suite.cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}

	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 100.60, Ask: 100.80, Volume: 400000},
		types.VenueQuote{Venue: "binance", Symbol: "ETHUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "ETHUSDT", Bid: 101.50, Ask: 101.70, Volume: 400000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0.5), suite.clock, logger.NewNopLogger())
	scanner.Scan(suite.settings)

	best := scanner.Best(10)
	suite.Require().Len(best, 2)
	suite.Equal("ETHUSDT", best[0].Symbol)
	suite.GreaterOrEqual(best[0].EstimatedProfit, best[1].EstimatedProfit)

	limited := scanner.Best(1)
	suite.Len(limited, 1)
}

func (suite *ScannerTestSuite) TestSetStatusRespectsTerminalStates() {
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 101.00, Ask: 101.20, Volume: 400000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.NewSequence(0.5), suite.clock, logger.NewNopLogger())

	found := scanner.Scan(suite.settings)
	suite.Require().Len(found, 1)

	id := found[0].ID

	scanner.SetStatus(id, types.OpportunityStatusExecuting)
	suite.Equal(types.OpportunityStatusExecuting, scanner.Recent(1)[0].Status)

	// Executing opportunities are excluded from the executable set
	suite.Empty(scanner.Best(10))

	scanner.SetStatus(id, types.OpportunityStatusCompleted)
	scanner.SetStatus(id, types.OpportunityStatusExecuting)
	suite.Equal(types.OpportunityStatusCompleted, scanner.Recent(1)[0].Status)
}

func (suite *ScannerTestSuite) TestSyntheticClearsRiskMinimum() {
	provider := suite.book(
		types.VenueQuote{Venue: "binance", Symbol: "BTCUSDT", Bid: 99.90, Ask: 100.00, Volume: 500000},
		types.VenueQuote{Venue: "bybit", Symbol: "BTCUSDT", Bid: 100.10, Ask: 100.30, Volume: 400000},
	)

	scanner := NewScanner(provider, suite.cfg, fixedSize(0.5), rng.New(11), suite.clock, logger.NewNopLogger())

	opp := scanner.Synthetic(suite.settings)
	suite.NotEqual(opp.BuyVenue, opp.SellVenue)
	suite.Greater(opp.NetSpreadPct, suite.settings.MinimumSpreadPct)
	suite.Equal(types.OpportunityStatusDetected, opp.Status)
	suite.NoError(opp.Validate())

	// Synthetic opportunities join the retained list
	suite.Len(scanner.Recent(0), 1)
}
