// Package rules implements the multi-category validation battery applied
// to trade candidates before execution.
package rules

import (
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-arbitrage/internal/types"
)

// Category groups rules by the concern they protect.
type Category string

const (
	CategoryEntry           Category = "Entry"
	CategoryRiskReward      Category = "Risk/Reward"
	CategoryVolatility      Category = "Volatility"
	CategoryMarketSession   Category = "Market Session"
	CategoryNewsEvents      Category = "News/Events"
	CategoryPositionControl Category = "Position Control"
	CategoryDailyRisk       Category = "Daily Risk Management"
	CategorySlippageFees    Category = "Slippage & Fees"
	CategoryDynamicStops    Category = "Dynamic Stops"
)

// Priority weights a rule's contribution to the verdict score.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Candidate is an opportunity enriched with the trade-plan parameters the
// rules evaluate alongside it.
type Candidate struct {
	Opportunity types.Opportunity
	// RiskPct is the planned risk as a percentage of the notional.
	RiskPct float64
	// RewardPct is the expected reward as a percentage of the notional.
	RewardPct float64
	// TrailingStopEnabled reports whether the trade plan arms a trailing stop.
	TrailingStopEnabled bool
}

// MarketContext carries the market and session state rules need beyond the
// candidate itself. The session controller assembles it fresh each tick.
type MarketContext struct {
	// PriceHistory holds recent mid prices for the candidate's symbol,
	// oldest first.
	PriceHistory []float64
	// QuoteVolume is the available quote volume on the thinner venue.
	QuoteVolume float64
	// OpenPositions maps symbol to current notional exposure.
	OpenPositions  map[string]float64
	AccountBalance float64
	// DailyPnLPct is today's cumulative P&L as a percentage of balance.
	DailyPnLPct     float64
	DailyTradeCount int
	MaxDailyTrades  int
	// CooldownUntil blocks entries until it passes; zero means no cooldown.
	CooldownUntil time.Time
	// UpcomingEvents lists scheduled high-impact event times.
	UpcomingEvents []time.Time
	// EventBuffer is the no-trade window around each event.
	EventBuffer time.Duration
	// LiquidityStartHour and LiquidityEndHour bound the UTC trading window.
	// Start == End means around the clock.
	LiquidityStartHour int
	LiquidityEndHour   int
	Now                time.Time
}

// Rule is a single named boolean check.
type Rule struct {
	Name     string
	Category Category
	Priority Priority
	Check    func(c Candidate, ctx MarketContext) bool
}

// Label returns the "Category: Name" form used in verdict failure lists.
func (r Rule) Label() string {
	return fmt.Sprintf("%s: %s", r.Category, r.Name)
}

// Thresholds for the default battery.
const (
	trendThresholdPct     = 2.0
	breakoutShortWindow   = 5
	breakoutLongWindow    = 10
	breakoutThresholdPct  = 2.0
	atrPeriods            = 14
	atrMinPct             = 0.5
	atrMaxPct             = 5.0
	volumeFloor           = 1000000.0
	minRiskPct            = 2.0
	minRewardPct          = 4.0
	minRewardRiskRatio    = 2.0
	maxConcurrentOpen     = 3
	maxAssetExposurePct   = 10.0
	dailyLossFloorPct     = -5.0
	netProfitFloorPct     = 0.3
	confirmingSignalFloor = 3
)

// trendPct is the relative change from the first to the last price.
func trendPct(history []float64) float64 {
	if len(history) < 2 || history[0] == 0 {
		return 0
	}

	return (history[len(history)-1] - history[0]) / history[0] * 100
}

// averageTrueRangePct is the mean absolute consecutive change over the
// trailing periods, normalized by the last price.
func averageTrueRangePct(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}

	start := len(history) - atrPeriods - 1
	if start < 0 {
		start = 0
	}

	window := history[start:]

	var sum float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta < 0 {
			delta = -delta
		}

		sum += delta
	}

	last := history[len(history)-1]
	if last == 0 {
		return 0
	}

	return sum / float64(len(window)-1) / last * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// breakoutDetected reports whether the short-window average deviates from
// the prior long-window average by more than the threshold.
func breakoutDetected(history []float64) bool {
	if len(history) < breakoutShortWindow+breakoutLongWindow {
		return false
	}

	short := mean(history[len(history)-breakoutShortWindow:])
	long := mean(history[len(history)-breakoutShortWindow-breakoutLongWindow : len(history)-breakoutShortWindow])

	if long == 0 {
		return false
	}

	deviation := (short - long) / long * 100
	if deviation < 0 {
		deviation = -deviation
	}

	return deviation > breakoutThresholdPct
}

func defaultRules() []Rule {
	return []Rule{
		{
			Name:     "Trend Strength",
			Category: CategoryEntry,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return trendPct(ctx.PriceHistory) >= trendThresholdPct
			},
		},
		{
			Name:     "Breakout Confirmation",
			Category: CategoryEntry,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				return breakoutDetected(ctx.PriceHistory) && ctx.QuoteVolume >= volumeFloor
			},
		},
		{
			Name:     "Signal Confluence",
			Category: CategoryEntry,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				signals := 0

				if ctx.QuoteVolume >= volumeFloor {
					signals++
				}

				// Momentum: last price above the window average
				if len(ctx.PriceHistory) > 0 && ctx.PriceHistory[len(ctx.PriceHistory)-1] > mean(ctx.PriceHistory) {
					signals++
				}

				if c.Opportunity.GrossSpreadPct >= netProfitFloorPct {
					signals++
				}

				return signals >= confirmingSignalFloor
			},
		},
		{
			Name:     "Minimum Risk",
			Category: CategoryRiskReward,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return c.RiskPct >= minRiskPct
			},
		},
		{
			Name:     "Minimum Reward",
			Category: CategoryRiskReward,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return c.RewardPct >= minRewardPct
			},
		},
		{
			Name:     "Reward Risk Ratio",
			Category: CategoryRiskReward,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return c.RiskPct > 0 && c.RewardPct/c.RiskPct >= minRewardRiskRatio
			},
		},
		{
			Name:     "Volatility Band",
			Category: CategoryVolatility,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				atr := averageTrueRangePct(ctx.PriceHistory)

				return atr >= atrMinPct && atr <= atrMaxPct
			},
		},
		{
			Name:     "Liquidity Hours",
			Category: CategoryMarketSession,
			Priority: PriorityLow,
			Check: func(c Candidate, ctx MarketContext) bool {
				if ctx.LiquidityStartHour == ctx.LiquidityEndHour {
					return true
				}

				hour := ctx.Now.UTC().Hour()
				if ctx.LiquidityStartHour < ctx.LiquidityEndHour {
					return hour >= ctx.LiquidityStartHour && hour < ctx.LiquidityEndHour
				}

				// Window wraps midnight
				return hour >= ctx.LiquidityStartHour || hour < ctx.LiquidityEndHour
			},
		},
		{
			Name:     "Volume Floor",
			Category: CategoryMarketSession,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				return ctx.QuoteVolume >= volumeFloor
			},
		},
		{
			Name:     "Event Buffer",
			Category: CategoryNewsEvents,
			Priority: PriorityLow,
			Check: func(c Candidate, ctx MarketContext) bool {
				for _, event := range ctx.UpcomingEvents {
					gap := event.Sub(ctx.Now)
					if gap < 0 {
						gap = -gap
					}

					if gap <= ctx.EventBuffer {
						return false
					}
				}

				return true
			},
		},
		{
			Name:     "Single Position Per Asset",
			Category: CategoryPositionControl,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return ctx.OpenPositions[c.Opportunity.Symbol] == 0
			},
		},
		{
			Name:     "Concurrent Position Cap",
			Category: CategoryPositionControl,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				open := 0

				for _, notional := range ctx.OpenPositions {
					if notional != 0 {
						open++
					}
				}

				return open < maxConcurrentOpen
			},
		},
		{
			Name:     "Asset Exposure Cap",
			Category: CategoryPositionControl,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				if ctx.AccountBalance <= 0 {
					return false
				}

				notional := c.Opportunity.NotionalSize * c.Opportunity.BuyPrice
				exposure := (ctx.OpenPositions[c.Opportunity.Symbol] + notional) / ctx.AccountBalance * 100

				return exposure <= maxAssetExposurePct
			},
		},
		{
			Name:     "Daily Loss Floor",
			Category: CategoryDailyRisk,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return ctx.DailyPnLPct > dailyLossFloorPct
			},
		},
		{
			Name:     "Daily Trade Cap",
			Category: CategoryDailyRisk,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return ctx.DailyTradeCount < ctx.MaxDailyTrades
			},
		},
		{
			Name:     "Loss Cooldown",
			Category: CategoryDailyRisk,
			Priority: PriorityMedium,
			Check: func(c Candidate, ctx MarketContext) bool {
				return ctx.CooldownUntil.IsZero() || ctx.Now.After(ctx.CooldownUntil)
			},
		},
		{
			Name:     "Net Profit Floor",
			Category: CategorySlippageFees,
			Priority: PriorityHigh,
			Check: func(c Candidate, ctx MarketContext) bool {
				return c.Opportunity.NetSpreadPct >= netProfitFloorPct
			},
		},
		{
			Name:     "Trailing Stop Armed",
			Category: CategoryDynamicStops,
			Priority: PriorityLow,
			Check: func(c Candidate, ctx MarketContext) bool {
				return c.TrailingStopEnabled
			},
		},
	}
}
