package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/stretchr/testify/suite"
)

type StatsTestSuite struct {
	suite.Suite
}

func TestStatsSuite(t *testing.T) {
	suite.Run(t, new(StatsTestSuite))
}

func trade(status types.TradeStatus, netProfit float64, qty float64, buyPrice float64, roiPct float64) types.Trade {
	return types.Trade{
		ID:           uuid.NewString(),
		Symbol:       "BTCUSDT",
		BuyVenue:     "binance",
		SellVenue:    "bybit",
		BuyPrice:     buyPrice,
		RequestedQty: qty,
		NetProfit:    netProfit,
		RoiPct:       roiPct,
		Status:       status,
		Timestamp:    time.Now(),
	}
}

func (suite *StatsTestSuite) TestEmptyLedger() {
	stats := Compute(nil, 10000)

	suite.Equal(0, stats.TotalTrades)
	suite.Equal(0.0, stats.WinRate)
	suite.Equal(0.0, stats.ProfitFactor)
	suite.Equal(0.0, stats.SharpeRatio)
	suite.Equal(0.0, stats.MaxDrawdown)
}

func (suite *StatsTestSuite) TestStatusTally() {
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 5, 1, 100, 5),
		trade(types.TradeStatusCompleted, 3, 1, 100, 3),
		trade(types.TradeStatusFailed, -0.5, 1, 100, -0.5),
		trade(types.TradeStatusPartial, -0.3, 1, 100, -0.3),
		trade(types.TradeStatusStoppedLoss, -2, 1, 100, -2),
	}

	stats := Compute(trades, 10000)

	suite.Equal(5, stats.TotalTrades)
	suite.Equal(2, stats.SuccessfulTrades)
	suite.Equal(2, stats.FailedTrades)
	suite.Equal(1, stats.StopLossHits)
	suite.InDelta(40.0, stats.WinRate, 1e-9)

	// Every terminal status is counted exactly once
	nonWins := float64(stats.FailedTrades+stats.StopLossHits) / float64(stats.TotalTrades) * 100
	suite.InDelta(100.0, stats.WinRate+nonWins, 1e-9)
}

func (suite *StatsTestSuite) TestProfitAggregates() {
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 6, 1, 100, 6),
		trade(types.TradeStatusCompleted, 4, 1, 100, 4),
		trade(types.TradeStatusFailed, -2, 1, 100, -2),
	}

	stats := Compute(trades, 10000)

	suite.InDelta(10.0, stats.TotalProfit, 1e-9)
	suite.InDelta(2.0, stats.TotalLoss, 1e-9)
	suite.InDelta(8.0, stats.NetProfit, 1e-9)
	suite.InDelta(5.0, stats.AverageWin, 1e-9)
	suite.InDelta(2.0, stats.AverageLoss, 1e-9)
	suite.InDelta(5.0, stats.ProfitFactor, 1e-9)
	suite.InDelta(0.08, stats.ROI, 1e-9)
	suite.InDelta(300.0, stats.TotalVolume, 1e-9)
}

func (suite *StatsTestSuite) TestLosslessProfitFactorSentinel() {
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 5, 1, 100, 5),
	}

	stats := Compute(trades, 10000)
	suite.Equal(types.LosslessProfitFactor, stats.ProfitFactor)
}

func (suite *StatsTestSuite) TestMaxDrawdownReplay() {
	// Balance path: 10000 -> 10500 (peak) -> 9450 -> 9975.
	// Worst decline is (10500-9450)/10500 = 10%.
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 500, 1, 100, 5),
		trade(types.TradeStatusStoppedLoss, -1050, 1, 100, -10),
		trade(types.TradeStatusCompleted, 525, 1, 100, 5),
	}

	stats := Compute(trades, 10000)
	suite.InDelta(10.0, stats.MaxDrawdown, 1e-9)
}

func (suite *StatsTestSuite) TestSharpeRatio() {
	// Returns 1, 3: mean 2, stddev 1
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 1, 1, 100, 1),
		trade(types.TradeStatusCompleted, 3, 1, 100, 3),
	}

	stats := Compute(trades, 10000)
	suite.InDelta(2.0, stats.SharpeRatio, 1e-9)
}

func (suite *StatsTestSuite) TestZeroVarianceSharpeIsZero() {
	trades := []types.Trade{
		trade(types.TradeStatusCompleted, 2, 1, 100, 2),
		trade(types.TradeStatusCompleted, 2, 1, 100, 2),
	}

	stats := Compute(trades, 10000)
	suite.Equal(0.0, stats.SharpeRatio)
}
