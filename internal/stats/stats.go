// Package stats recomputes session aggregates from the trade ledger.
package stats

import (
	"math"

	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/shopspring/decimal"
)

// Compute derives the full aggregate snapshot from a ledger slice ordered
// oldest to newest. It is a pure function: callers pass an immutable copy
// of the ledger and the configured account balance. An empty ledger yields
// all-zero rates and ratios.
func Compute(trades []types.Trade, accountBalance float64) types.TradingStats {
	stats := types.TradingStats{}
	if len(trades) == 0 {
		return stats
	}

	totalProfit := decimal.Zero
	totalLoss := decimal.Zero
	totalVolume := decimal.Zero

	var (
		wins, losses int
		roiSum       float64
	)

	returns := make([]float64, 0, len(trades))

	for i := range trades {
		trade := &trades[i]

		stats.TotalTrades++

		switch trade.Status {
		case types.TradeStatusCompleted:
			stats.SuccessfulTrades++
		case types.TradeStatusStoppedLoss:
			stats.StopLossHits++
		default:
			stats.FailedTrades++
		}

		net := decimal.NewFromFloat(trade.NetProfit)
		if net.IsPositive() {
			totalProfit = totalProfit.Add(net)
			wins++
		} else if net.IsNegative() {
			totalLoss = totalLoss.Add(net.Neg())
			losses++
		}

		totalVolume = totalVolume.Add(decimal.NewFromFloat(trade.Notional()))
		roiSum += trade.RoiPct
		returns = append(returns, trade.RoiPct)
	}

	stats.WinRate = float64(stats.SuccessfulTrades) / float64(stats.TotalTrades) * 100
	stats.TotalProfit = totalProfit.InexactFloat64()
	stats.TotalLoss = totalLoss.InexactFloat64()
	stats.NetProfit = totalProfit.Sub(totalLoss).InexactFloat64()
	stats.TotalVolume = totalVolume.InexactFloat64()
	stats.AverageROIPerTrade = roiSum / float64(stats.TotalTrades)

	if accountBalance > 0 {
		stats.ROI = stats.NetProfit / accountBalance * 100
	}

	if wins > 0 {
		stats.AverageWin = totalProfit.Div(decimal.NewFromInt(int64(wins))).InexactFloat64()
	}

	if losses > 0 {
		stats.AverageLoss = totalLoss.Div(decimal.NewFromInt(int64(losses))).InexactFloat64()
	}

	stats.ProfitFactor = profitFactor(totalProfit, totalLoss)
	stats.MaxDrawdown = maxDrawdown(trades, accountBalance)
	stats.SharpeRatio = sharpeRatio(returns)

	return stats
}

func profitFactor(totalProfit, totalLoss decimal.Decimal) float64 {
	if totalLoss.IsZero() {
		if totalProfit.IsPositive() {
			return types.LosslessProfitFactor
		}

		return 0
	}

	return totalProfit.Div(totalLoss).InexactFloat64()
}

// maxDrawdown replays the ledger oldest to newest against a running
// balance and returns the worst peak-to-trough decline in percent.
func maxDrawdown(trades []types.Trade, accountBalance float64) float64 {
	balance := decimal.NewFromFloat(accountBalance)
	peak := balance
	worst := 0.0

	for i := range trades {
		balance = balance.Add(decimal.NewFromFloat(trades[i].NetProfit))

		if balance.GreaterThan(peak) {
			peak = balance

			continue
		}

		if peak.IsPositive() {
			drawdown := peak.Sub(balance).Div(peak).InexactFloat64() * 100
			if drawdown > worst {
				worst = drawdown
			}
		}
	}

	return worst
}

// sharpeRatio is the simplified mean-over-stddev of per-trade returns.
// Zero when the ledger is empty or the returns have no variance.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}

	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns))

	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance)
}
