// Package scanner detects cross-venue arbitrage opportunities from market
// snapshots.
package scanner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/market"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"go.uber.org/zap"
)

// SizePolicy decides the position size in base units for a candidate.
// venueVolume is the smaller of the two venues' quote volumes.
type SizePolicy func(symbol string, price float64, venueVolume float64, settings types.RiskSettings) float64

// spreadEpsilon is the tolerance below which two spreads count as tied and
// the higher-volume pair wins.
const spreadEpsilon = 1e-9

// Scanner scans symbol and venue-pair combinations, computes gross and net
// spreads and maintains a bounded, TTL-evicted list of candidates. The
// scanner owns an opportunity until it is handed to the executor.
type Scanner struct {
	provider market.Provider
	cfg      config.ScannerConfig
	symbols  []string
	venues   []string
	size     SizePolicy
	random   rng.Source
	clock    clock.Clock
	logger   *logger.Logger

	mu            sync.Mutex
	opportunities []types.Opportunity // newest first
}

// NewScanner creates a Scanner.
func NewScanner(provider market.Provider, cfg config.Config, size SizePolicy, random rng.Source, clk clock.Clock, log *logger.Logger) *Scanner {
	return &Scanner{
		provider: provider,
		cfg:      cfg.Scanner,
		symbols:  cfg.Symbols,
		venues:   cfg.Venues,
		size:     size,
		random:   random,
		clock:    clk,
		logger:   log,
	}
}

// Scan fetches quotes for every symbol, finds the best venue pair per
// symbol and emits new opportunities whose net spread exceeds the scanner
// floor. Returned opportunities are also merged into the retained list.
func (s *Scanner) Scan(settings types.RiskSettings) []types.Opportunity {
	now := s.clock.Now()

	var found []types.Opportunity

	for _, symbol := range s.symbols {
		quotes := s.freshQuotes(symbol)
		// A spread needs two sides
		if len(quotes) < 2 {
			continue
		}

		opp, ok := s.bestPair(symbol, quotes, settings, now)
		if ok {
			found = append(found, opp)
		}
	}

	s.retain(found, now)

	s.logger.Debug("scan complete",
		zap.Int("new_opportunities", len(found)),
	)

	return found
}

// freshQuotes returns the fresh quotes for a symbol across all venues.
func (s *Scanner) freshQuotes(symbol string) []types.VenueQuote {
	quotes := make([]types.VenueQuote, 0, len(s.venues))

	for _, venue := range s.venues {
		if quote, ok := s.provider.GetQuote(symbol, venue); ok {
			quotes = append(quotes, quote)
		}
	}

	return quotes
}

// bestPair finds the ordered venue pair maximizing gross spread, applying
// the volume tie-break, and builds an opportunity if the net spread clears
// the scanner floor.
func (s *Scanner) bestPair(symbol string, quotes []types.VenueQuote, settings types.RiskSettings, now time.Time) (types.Opportunity, bool) {
	var (
		haveBest   bool
		bestGross  float64
		bestVolume float64
		buy, sell  types.VenueQuote
	)

	for i := range quotes {
		for j := range quotes {
			if i == j {
				continue
			}

			// Buy at venue i's ask, sell at venue j's bid
			gross := (quotes[j].Bid - quotes[i].Ask) / quotes[i].Ask * 100
			combined := quotes[i].Volume + quotes[j].Volume

			better := gross > bestGross+spreadEpsilon
			tied := !better && gross > bestGross-spreadEpsilon && combined > bestVolume

			if !haveBest || better || tied {
				haveBest = true
				bestGross = gross
				bestVolume = combined
				buy = quotes[i]
				sell = quotes[j]
			}
		}
	}

	if !haveBest {
		return types.Opportunity{}, false
	}

	slippage := s.cfg.SlippageMinPct + s.random.Float64()*(s.cfg.SlippageMaxPct-s.cfg.SlippageMinPct)
	net := bestGross - slippage - 2*settings.TradingFeesPct

	if net <= s.cfg.SpreadFloorPct {
		return types.Opportunity{}, false
	}

	venueVolume := buy.Volume
	if sell.Volume < venueVolume {
		venueVolume = sell.Volume
	}

	qty := s.size(symbol, buy.Ask, venueVolume, settings)
	if qty <= 0 {
		return types.Opportunity{}, false
	}

	return types.Opportunity{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		BuyVenue:        buy.Venue,
		SellVenue:       sell.Venue,
		BuyPrice:        buy.Ask,
		SellPrice:       sell.Bid,
		GrossSpreadPct:  bestGross,
		NetSpreadPct:    net,
		SlippagePct:     slippage,
		NotionalSize:    qty,
		EstimatedProfit: qty * buy.Ask * net / 100,
		QuoteVolume:     venueVolume,
		RiskLevel:       riskLevel(net),
		Confidence:      confidence(net, venueVolume),
		CreatedAt:       now,
		Status:          types.OpportunityStatusDetected,
	}, true
}

// retain merges new opportunities into the bounded list, evicting entries
// past TTL plus grace and the oldest beyond the cap.
func (s *Scanner) retain(found []types.Opportunity, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := time.Duration(s.cfg.TTLSeconds+s.cfg.GraceSeconds) * time.Second

	merged := make([]types.Opportunity, 0, len(found)+len(s.opportunities))
	merged = append(merged, found...)

	for _, opp := range s.opportunities {
		if !opp.ExpiredAt(now, visible) {
			merged = append(merged, opp)
		}
	}

	if len(merged) > s.cfg.MaxOpportunities {
		merged = merged[:s.cfg.MaxOpportunities]
	}

	s.opportunities = merged
}

// Recent returns up to limit retained opportunities, newest first.
// Includes expired entries still inside the observability grace period.
func (s *Scanner) Recent(limit int) []types.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.opportunities) {
		limit = len(s.opportunities)
	}

	out := make([]types.Opportunity, limit)
	copy(out, s.opportunities[:limit])

	return out
}

// Best returns up to limit executable opportunities ranked by estimated
// profit. Expired or in-flight opportunities are excluded.
func (s *Scanner) Best(limit int) []types.Opportunity {
	now := s.clock.Now()
	ttl := time.Duration(s.cfg.TTLSeconds) * time.Second

	s.mu.Lock()

	candidates := make([]types.Opportunity, 0, len(s.opportunities))

	for _, opp := range s.opportunities {
		if opp.Status == types.OpportunityStatusDetected && !opp.ExpiredAt(now, ttl) {
			candidates = append(candidates, opp)
		}
	}

	s.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EstimatedProfit > candidates[j].EstimatedProfit
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	return candidates
}

// SetStatus transitions a retained opportunity. Terminal opportunities are
// immutable; late transitions are ignored.
func (s *Scanner) SetStatus(id string, status types.OpportunityStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.opportunities {
		if s.opportunities[i].ID != id {
			continue
		}

		if s.opportunities[i].Terminal() {
			return
		}

		s.opportunities[i].Status = status

		return
	}
}

// Synthetic fabricates an opportunity with a spread just above the risk
// minimum. Only the demo-liveliness path calls this; it is never part of
// the realistic scan.
func (s *Scanner) Synthetic(settings types.RiskSettings) types.Opportunity {
	symbol := s.symbols[s.random.Intn(len(s.symbols))]

	buyVenue := s.venues[s.random.Intn(len(s.venues))]

	sellVenue := buyVenue
	for sellVenue == buyVenue {
		sellVenue = s.venues[s.random.Intn(len(s.venues))]
	}

	buyPrice := 100.0
	if quote, ok := s.provider.GetQuote(symbol, buyVenue); ok {
		buyPrice = quote.Ask
	}

	slippage := s.cfg.SlippageMinPct + s.random.Float64()*(s.cfg.SlippageMaxPct-s.cfg.SlippageMinPct)
	// Gross spread chosen so the net clears the minimum with margin
	net := settings.MinimumSpreadPct + 0.05 + s.random.Float64()*0.3
	gross := net + slippage + 2*settings.TradingFeesPct
	sellPrice := buyPrice * (1 + gross/100)

	volume := 100000 + s.random.Float64()*900000
	qty := s.size(symbol, buyPrice, volume, settings)

	opp := types.Opportunity{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		BuyVenue:        buyVenue,
		SellVenue:       sellVenue,
		BuyPrice:        buyPrice,
		SellPrice:       sellPrice,
		GrossSpreadPct:  gross,
		NetSpreadPct:    net,
		SlippagePct:     slippage,
		NotionalSize:    qty,
		EstimatedProfit: qty * buyPrice * net / 100,
		QuoteVolume:     volume,
		RiskLevel:       riskLevel(net),
		Confidence:      confidence(net, volume),
		CreatedAt:       s.clock.Now(),
		Status:          types.OpportunityStatusDetected,
	}

	s.mu.Lock()
	s.opportunities = append([]types.Opportunity{opp}, s.opportunities...)
	s.mu.Unlock()

	return opp
}

// riskLevel classifies by net spread: wide spreads leave more room for
// adverse movement before the trade goes negative.
func riskLevel(netSpreadPct float64) types.RiskLevel {
	switch {
	case netSpreadPct > 0.5:
		return types.RiskLevelLow
	case netSpreadPct > 0.25:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelHigh
	}
}

// confidence scores 0-100 from spread size and available volume.
func confidence(netSpreadPct float64, volume float64) int {
	spreadScore := netSpreadPct / 1.0
	if spreadScore > 1 {
		spreadScore = 1
	}

	volumeScore := volume / 1000000
	if volumeScore > 1 {
		volumeScore = 1
	}

	return int(spreadScore*50 + volumeScore*50)
}
