// Package session owns the trading session lifecycle: the recurring
// scan-validate-execute tick, the trade ledger, and the status surface.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/executor"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/market"
	"github.com/rxtech-lab/argo-arbitrage/internal/risk"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/rules"
	"github.com/rxtech-lab/argo-arbitrage/internal/scanner"
	"github.com/rxtech-lab/argo-arbitrage/internal/stats"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
	"go.uber.org/zap"
)

const (
	// historyCap bounds the per-symbol mid-price history fed to the rules.
	historyCap = 50
	// postLossCooldown blocks new entries for a while after a stop-loss.
	postLossCooldown = 2 * time.Minute
	// Sampled trade-plan risk and reward bounds for rule evaluation.
	planRiskMinPct  = 2.0
	planRiskSpanPct = 3.0
	planRewardMin   = 1.5
	planRewardSpan  = 2.0
)

// DefaultSizePolicy sizes positions from the configured per-symbol base
// size, the exposure cap, and the venue volume fraction.
func DefaultSizePolicy(cfg config.Config) scanner.SizePolicy {
	return func(symbol string, price float64, venueVolume float64, settings types.RiskSettings) float64 {
		return executor.Sizing(cfg.BaseSizes[symbol], price, venueVolume, cfg.Scanner.VolumeFraction, settings)
	}
}

// Controller drives one trading session. All collaborators are injected so
// independent sessions can coexist without shared state. The tick loop is
// the only writer of the ledger and daily counters; readers always get a
// copied snapshot.
type Controller struct {
	cfg       config.Config
	provider  market.Provider
	scanner   *scanner.Scanner
	validator *rules.Validator
	gate      *risk.Gate
	executor  *executor.Executor
	store     SettingsStore
	random    rng.Source
	clock     clock.Clock
	logger    *logger.Logger

	mu              sync.Mutex
	running         bool
	intervalMs      int64
	ledger          []types.Trade
	dailyTradeCount int
	lastResetDate   string
	cooldownUntil   time.Time
	openPositions   map[string]float64
	bonusApplied    map[string]bool
	approvedCount   int
	rejectedCount   int
	history         map[string][]float64
	tradeSubs       []func(types.Trade)

	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewController creates a stopped session controller.
func NewController(
	cfg config.Config,
	provider market.Provider,
	scn *scanner.Scanner,
	validator *rules.Validator,
	gate *risk.Gate,
	exec *executor.Executor,
	store SettingsStore,
	random rng.Source,
	clk clock.Clock,
	log *logger.Logger,
) *Controller {
	return &Controller{
		cfg:           cfg,
		provider:      provider,
		scanner:       scn,
		validator:     validator,
		gate:          gate,
		executor:      exec,
		store:         store,
		random:        random,
		clock:         clk,
		logger:        log,
		intervalMs:    config.IntervalForSpeed(cfg.Session.Speed),
		openPositions: make(map[string]float64),
		bonusApplied:  make(map[string]bool),
		history:       make(map[string][]float64),
	}
}

// Start schedules the tick loop. Calling Start on a running session is a
// no-op; exactly one loop is ever active.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Debug("start ignored, session already running")

		return
	}

	c.resetDailyCounterLocked(c.clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true

	go c.loop(ctx, c.stopCh, c.doneCh, time.Duration(c.intervalMs)*time.Millisecond)

	c.logger.Info("session started",
		zap.Int64("interval_ms", c.intervalMs),
		zap.String("mode", c.cfg.Session.Mode),
	)
}

// Stop cancels the tick loop synchronously and waits for it to drain. An
// in-flight execution is cancelled via context and its trade discarded.
// Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()

		return
	}

	c.running = false
	c.cancel()
	close(c.stopCh)
	done := c.doneCh

	c.mu.Unlock()

	<-done

	c.writeStatsSnapshot()

	c.logger.Info("session stopped")
}

// writeStatsSnapshot dumps the session aggregates to the configured stats
// file, if any.
func (c *Controller) writeStatsSnapshot() {
	path := c.cfg.Session.StatsFile
	if path == "" {
		return
	}

	settings := c.store.Get()

	c.mu.Lock()
	ledger := c.snapshotLedgerLocked()
	c.mu.Unlock()

	snapshot := stats.Compute(ledger, settings.AccountBalance)

	if err := types.WriteTradingStats(path, snapshot); err != nil {
		c.logger.Warn("failed to write stats snapshot",
			zap.String("path", path),
			zap.Error(err),
		)

		return
	}

	c.logger.Info("stats snapshot written",
		zap.String("path", path),
		zap.Int("total_trades", snapshot.TotalTrades),
	)
}

// loop drives ticks until the stop channel closes. Ticks run inline, so
// they can never overlap; a slow tick simply delays the next one.
func (c *Controller) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one scan-validate-execute pass. It returns true when the
// session auto-stopped on a drawdown breach. Errors inside the pipeline
// are contained to this tick.
func (c *Controller) tick(ctx context.Context) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tick panicked, continuing next tick", zap.Any("panic", r))
		}
	}()

	settings := c.store.Get()
	now := c.clock.Now()

	c.mu.Lock()
	c.resetDailyCounterLocked(now)
	dailyCount := c.dailyTradeCount
	ledger := c.snapshotLedgerLocked()
	c.mu.Unlock()

	c.recordPrices()

	current := stats.Compute(ledger, settings.AccountBalance)

	if current.MaxDrawdown > settings.MaxDrawdownPct {
		c.logger.Warn("max drawdown breached, auto-stopping session",
			zap.Float64("drawdown_pct", current.MaxDrawdown),
			zap.Float64("limit_pct", settings.MaxDrawdownPct),
		)

		c.autoStop()

		return true
	}

	if dailyCount >= settings.MaxDailyTrades {
		c.logger.Debug("daily trade cap reached, skipping tick",
			zap.Int("daily_trade_count", dailyCount),
		)

		return false
	}

	found := c.scanner.Scan(settings)
	if len(found) == 0 && c.cfg.Session.DemoLiveliness {
		c.scanner.Synthetic(settings)
	}

	best := c.scanner.Best(1)
	if len(best) == 0 {
		return false
	}

	opp := best[0]
	c.scanner.SetStatus(opp.ID, types.OpportunityStatusAnalyzing)

	if err := c.approve(opp, settings, current, now); err != nil {
		c.logger.Debug("opportunity rejected",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err),
		)

		c.scanner.SetStatus(opp.ID, types.OpportunityStatusExpired)

		c.mu.Lock()
		c.rejectedCount++
		c.mu.Unlock()

		return false
	}

	c.mu.Lock()
	c.approvedCount++
	c.mu.Unlock()

	c.scanner.SetStatus(opp.ID, types.OpportunityStatusExecuting)

	trade, err := c.execute(ctx, opp, settings)
	if err != nil {
		// The in-flight trade's effect is discarded; the opportunity still
		// reaches a terminal state
		c.logger.Warn("execution aborted",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err),
		)

		c.scanner.SetStatus(opp.ID, types.OpportunityStatusExpired)

		return false
	}

	c.record(trade, now)
	c.scanner.SetStatus(opp.ID, types.OpportunityStatusCompleted)
	c.executor.ArmTrailingStop(trade, c.ApplyBonus)

	return false
}

// approve runs the mode-appropriate approval policy.
func (c *Controller) approve(opp types.Opportunity, settings types.RiskSettings, current types.TradingStats, now time.Time) error {
	if c.cfg.Session.Mode != config.ModeRules {
		return c.gate.Approve(opp, settings, current.MaxDrawdown)
	}

	candidate := rules.Candidate{
		Opportunity:         opp,
		RiskPct:             planRiskMinPct + c.random.Float64()*planRiskSpanPct,
		TrailingStopEnabled: c.cfg.Executor.EnableTrailingStop,
	}
	candidate.RewardPct = candidate.RiskPct * (planRewardMin + c.random.Float64()*planRewardSpan)

	verdict := c.validator.Validate(candidate, c.marketContext(opp, settings, now))
	if verdict.Recommendation != types.RecommendationExecute {
		return errors.Newf(errors.ErrCodeOrderRejected,
			"rule verdict %s with score %.1f", verdict.Recommendation, verdict.Score)
	}

	return nil
}

func (c *Controller) marketContext(opp types.Opportunity, settings types.RiskSettings, now time.Time) rules.MarketContext {
	c.mu.Lock()

	history := make([]float64, len(c.history[opp.Symbol]))
	copy(history, c.history[opp.Symbol])

	positions := make(map[string]float64, len(c.openPositions))
	for symbol, notional := range c.openPositions {
		positions[symbol] = notional
	}

	dailyCount := c.dailyTradeCount
	cooldown := c.cooldownUntil
	ledger := c.snapshotLedgerLocked()

	c.mu.Unlock()

	return rules.MarketContext{
		PriceHistory:    history,
		QuoteVolume:     opp.QuoteVolume,
		OpenPositions:   positions,
		AccountBalance:  settings.AccountBalance,
		DailyPnLPct:     dailyPnLPct(ledger, settings.AccountBalance, now),
		DailyTradeCount: dailyCount,
		MaxDailyTrades:  settings.MaxDailyTrades,
		CooldownUntil:   cooldown,
		Now:             now,
	}
}

func (c *Controller) execute(ctx context.Context, opp types.Opportunity, settings types.RiskSettings) (types.Trade, error) {
	if c.cfg.Executor.UseGateway {
		return c.executor.ExecuteTwoLeg(ctx, opp, opp.NotionalSize, settings)
	}

	return c.executor.Execute(ctx, opp, opp.NotionalSize, settings)
}

// OnTrade registers a callback invoked after each recorded trade.
// Callbacks run outside the controller lock and must not block.
func (c *Controller) OnTrade(fn func(types.Trade)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tradeSubs = append(c.tradeSubs, fn)
}

// record appends the trade and updates session counters.
func (c *Controller) record(trade types.Trade, now time.Time) {
	c.mu.Lock()

	c.ledger = append(c.ledger, trade)
	c.dailyTradeCount++

	switch trade.Status {
	case types.TradeStatusStoppedLoss:
		c.cooldownUntil = now.Add(postLossCooldown)
	case types.TradeStatusPartial:
		// Stuck inventory counts as an open position until unwound
		c.openPositions[trade.Symbol] += trade.ExecutedQty * trade.BuyPrice
	}

	c.logger.Info("trade recorded",
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("status", string(trade.Status)),
		zap.Float64("net_profit", trade.NetProfit),
		zap.Int("daily_trade_count", c.dailyTradeCount),
	)

	subs := make([]func(types.Trade), len(c.tradeSubs))
	copy(subs, c.tradeSubs)

	c.mu.Unlock()

	for _, fn := range subs {
		fn(trade)
	}
}

// recordPrices samples a mid price per symbol from fresh quotes.
func (c *Controller) recordPrices() {
	for _, symbol := range c.cfg.Symbols {
		var (
			sum   float64
			count int
		)

		for _, venue := range c.cfg.Venues {
			if quote, ok := c.provider.GetQuote(symbol, venue); ok {
				sum += quote.Mid()
				count++
			}
		}

		if count == 0 {
			continue
		}

		c.mu.Lock()

		history := append(c.history[symbol], sum/float64(count))
		if len(history) > historyCap {
			history = history[len(history)-historyCap:]
		}

		c.history[symbol] = history

		c.mu.Unlock()
	}
}

// autoStop transitions to Stopped from inside the tick loop. The loop
// itself exits via tick's return value, so no one waits on doneCh here.
func (c *Controller) autoStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.running = false

	if c.cancel != nil {
		c.cancel()
	}

	close(c.stopCh)
}

// resetDailyCounterLocked zeroes the daily counter when the date rolls over.
func (c *Controller) resetDailyCounterLocked(now time.Time) {
	date := now.Format("2006-01-02")
	if date != c.lastResetDate {
		c.lastResetDate = date
		c.dailyTradeCount = 0
	}
}

func (c *Controller) snapshotLedgerLocked() []types.Trade {
	ledger := make([]types.Trade, len(c.ledger))
	copy(ledger, c.ledger)

	return ledger
}

// dailyPnLPct sums today's net profit as a percentage of balance.
func dailyPnLPct(ledger []types.Trade, accountBalance float64, now time.Time) float64 {
	if accountBalance <= 0 {
		return 0
	}

	date := now.Format("2006-01-02")

	var sum float64

	for i := range ledger {
		if ledger[i].Timestamp.Format("2006-01-02") == date {
			sum += ledger[i].NetProfit
		}
	}

	return sum / accountBalance * 100
}

// ApplyBonus adds a trailing-stop bonus to a completed trade's net profit,
// at most once per trade. Safe to call after the session has stopped.
func (c *Controller) ApplyBonus(tradeID string, bonus float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bonusApplied[tradeID] {
		return
	}

	for i := range c.ledger {
		trade := &c.ledger[i]

		if trade.ID != tradeID || trade.Status != types.TradeStatusCompleted {
			continue
		}

		trade.NetProfit += bonus
		if notional := trade.Notional(); notional > 0 {
			trade.RoiPct = trade.NetProfit / notional * 100
		}

		c.bonusApplied[tradeID] = true

		c.logger.Info("trailing stop bonus applied",
			zap.String("trade_id", tradeID),
			zap.Float64("bonus", bonus),
		)

		return
	}
}

// UpdateRiskSettings merges a partial settings update, effective on the
// next tick.
func (c *Controller) UpdateRiskSettings(patch types.RiskSettingsPatch) (types.RiskSettings, error) {
	return c.store.Set(patch)
}

// ResetRiskSettings restores the configured defaults.
func (c *Controller) ResetRiskSettings() types.RiskSettings {
	return c.store.Reset()
}

// RiskSettings returns the current settings.
func (c *Controller) RiskSettings() types.RiskSettings {
	return c.store.Get()
}

// SetTradingSpeed changes the tick interval. A running session restarts
// its loop with the new interval without losing the ledger.
func (c *Controller) SetTradingSpeed(speed string) error {
	switch speed {
	case config.SpeedSlow, config.SpeedMedium, config.SpeedFast:
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown trading speed %q", speed)
	}

	c.mu.Lock()
	c.intervalMs = config.IntervalForSpeed(speed)
	wasRunning := c.running
	c.mu.Unlock()

	if wasRunning {
		c.Stop()
		c.Start()
	}

	c.logger.Info("trading speed changed",
		zap.String("speed", speed),
		zap.Bool("restarted", wasRunning),
	)

	return nil
}

// GetStatus returns a consistent status snapshot for API consumers.
func (c *Controller) GetStatus() types.SessionStatus {
	settings := c.store.Get()

	c.mu.Lock()
	running := c.running
	dailyCount := c.dailyTradeCount
	intervalMs := c.intervalMs
	ledger := c.snapshotLedgerLocked()
	c.mu.Unlock()

	current := stats.Compute(ledger, settings.AccountBalance)

	return types.SessionStatus{
		IsRunning:         running,
		DailyTradeCount:   dailyCount,
		MaxDailyTrades:    settings.MaxDailyTrades,
		AccountBalance:    settings.AccountBalance,
		CurrentBalance:    settings.AccountBalance + current.NetProfit,
		TradingIntervalMs: intervalMs,
		RiskSettings:      settings,
		Stats:             current,
	}
}

// GetRecentTrades returns up to limit ledger entries, newest first.
func (c *Controller) GetRecentTrades(limit int) []types.Trade {
	c.mu.Lock()
	ledger := c.snapshotLedgerLocked()
	c.mu.Unlock()

	for i, j := 0, len(ledger)-1; i < j; i, j = i+1, j-1 {
		ledger[i], ledger[j] = ledger[j], ledger[i]
	}

	if limit > 0 && limit < len(ledger) {
		ledger = ledger[:limit]
	}

	return ledger
}

// Opportunities returns recently detected opportunities, newest first.
func (c *Controller) Opportunities(limit int) []types.Opportunity {
	return c.scanner.Recent(limit)
}

// BestOpportunities returns executable opportunities ranked by estimated
// profit.
func (c *Controller) BestOpportunities(limit int) []types.Opportunity {
	return c.scanner.Best(limit)
}

// TriggerScan runs one manual scan outside the tick loop and returns the
// newly found opportunities.
func (c *Controller) TriggerScan() []types.Opportunity {
	return c.scanner.Scan(c.store.Get())
}

// RuleCatalog exposes the validator's battery grouped by category.
func (c *Controller) RuleCatalog() map[rules.Category][]rules.RuleInfo {
	return c.validator.RulesByCategory()
}

// ValidationTallies reports how many candidates were approved and rejected
// and the resulting approval rate in percent.
func (c *Controller) ValidationTallies() (approved int, rejected int, approvalRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	approved = c.approvedCount
	rejected = c.rejectedCount

	if total := approved + rejected; total > 0 {
		approvalRate = float64(approved) / float64(total) * 100
	}

	return approved, rejected, approvalRate
}
