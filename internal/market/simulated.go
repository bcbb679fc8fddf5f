package market

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"go.uber.org/zap"
)

// referenceWalkPct bounds the per-refresh random walk of the shared
// reference price, in percent.
const referenceWalkPct = 0.1

type subscription struct {
	symbols  map[string]bool
	venues   map[string]bool
	onUpdate QuoteHandler
}

// SimulatedProvider generates quotes by jittering a per-symbol reference
// price with independent noise per venue. Quotes refresh on a fixed
// cadence; concurrent readers are safe.
type SimulatedProvider struct {
	symbols    []string
	venues     []string
	marketCfg  config.MarketConfig
	basePrices map[string]float64

	mu        sync.RWMutex
	quotes    map[string]types.VenueQuote
	reference map[string]float64
	subs      []subscription

	random rng.Source
	clock  clock.Clock
	logger *logger.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSimulatedProvider creates a simulated market data provider.
func NewSimulatedProvider(cfg config.Config, random rng.Source, clk clock.Clock, log *logger.Logger) *SimulatedProvider {
	reference := make(map[string]float64, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		if base, ok := cfg.BasePrices[symbol]; ok {
			reference[symbol] = base
		} else {
			reference[symbol] = 100
		}
	}

	return &SimulatedProvider{
		symbols:    cfg.Symbols,
		venues:     cfg.Venues,
		marketCfg:  cfg.Market,
		basePrices: cfg.BasePrices,
		quotes:     make(map[string]types.VenueQuote),
		reference:  reference,
		random:     rng.Locked(random),
		clock:      clk,
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Start begins the background quote refresh loop. It returns immediately;
// the loop stops when the context is cancelled or Stop is called.
func (p *SimulatedProvider) Start(ctx context.Context) {
	// Seed the cache so the first scan tick sees quotes
	p.refresh()

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(time.Duration(p.marketCfg.UpdateIntervalMs) * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case <-ticker.C:
				p.refresh()
			}
		}
	}()

	p.logger.Info("simulated market feed started",
		zap.Strings("symbols", p.symbols),
		zap.Strings("venues", p.venues),
		zap.Int("update_interval_ms", p.marketCfg.UpdateIntervalMs),
	)
}

// Stop terminates the refresh loop and waits for it to exit.
func (p *SimulatedProvider) Stop() {
	select {
	case <-p.done:
		// already stopped
	default:
		close(p.done)
	}

	p.wg.Wait()
}

// GetQuote implements Provider.
func (p *SimulatedProvider) GetQuote(symbol string, venue string) (types.VenueQuote, bool) {
	p.mu.RLock()
	quote, ok := p.quotes[quoteKey(venue, symbol)]
	p.mu.RUnlock()

	if !ok {
		return types.VenueQuote{}, false
	}

	window := time.Duration(p.marketCfg.FreshnessWindowMs) * time.Millisecond
	if !quote.FreshAt(p.clock.Now(), window) {
		return types.VenueQuote{}, false
	}

	return quote, true
}

// Subscribe implements Provider.
func (p *SimulatedProvider) Subscribe(symbols []string, venues []string, onUpdate QuoteHandler) {
	sub := subscription{
		symbols:  make(map[string]bool, len(symbols)),
		venues:   make(map[string]bool, len(venues)),
		onUpdate: onUpdate,
	}

	for _, s := range symbols {
		sub.symbols[s] = true
	}

	for _, v := range venues {
		sub.venues[v] = true
	}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
}

// refresh regenerates every quote from the jittered reference price and
// notifies matching subscribers.
func (p *SimulatedProvider) refresh() {
	now := p.clock.Now()

	var updates []types.VenueQuote

	p.mu.Lock()
	for _, symbol := range p.symbols {
		// Random-walk the shared reference so venues drift together
		walk := (p.random.Float64() - 0.5) * 2 * referenceWalkPct / 100
		p.reference[symbol] *= 1 + walk

		for _, venue := range p.venues {
			jitter := (p.random.Float64() - 0.5) * 2 * p.marketCfg.JitterPct / 100
			mid := p.reference[symbol] * (1 + jitter)
			halfSpread := p.marketCfg.HalfSpreadPct / 100

			quote := types.VenueQuote{
				Venue:      venue,
				Symbol:     symbol,
				Bid:        mid * (1 - halfSpread),
				Ask:        mid * (1 + halfSpread),
				Volume:     100000 + p.random.Float64()*900000,
				ObservedAt: now,
			}

			p.quotes[quoteKey(venue, symbol)] = quote
			updates = append(updates, quote)
		}
	}

	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	// Notify outside the lock so handlers can call GetQuote
	for _, quote := range updates {
		for _, sub := range subs {
			if sub.symbols[quote.Symbol] && sub.venues[quote.Venue] {
				sub.onUpdate(quote)
			}
		}
	}
}

func quoteKey(venue, symbol string) string {
	return venue + "-" + symbol
}
