package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradingStats is a snapshot of running aggregates over a session's trade
// ledger. It is recomputed on demand from the ledger, never cached
// incrementally.
type TradingStats struct {
	TotalTrades      int `json:"total_trades" yaml:"total_trades"`
	SuccessfulTrades int `json:"successful_trades" yaml:"successful_trades"`
	FailedTrades     int `json:"failed_trades" yaml:"failed_trades"`
	StopLossHits     int `json:"stop_loss_hits" yaml:"stop_loss_hits"`
	// WinRate is successful / total * 100.
	WinRate     float64 `json:"win_rate" yaml:"win_rate"`
	TotalProfit float64 `json:"total_profit" yaml:"total_profit"`
	TotalLoss   float64 `json:"total_loss" yaml:"total_loss"`
	NetProfit   float64 `json:"net_profit" yaml:"net_profit"`
	// ROI is net profit over the configured account balance * 100.
	ROI         float64 `json:"roi" yaml:"roi"`
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown"`
	AverageWin  float64 `json:"average_win" yaml:"average_win"`
	AverageLoss float64 `json:"average_loss" yaml:"average_loss"`
	// ProfitFactor is total profit / total loss, or the LosslessProfitFactor
	// sentinel when there are profits but no losses.
	ProfitFactor       float64 `json:"profit_factor" yaml:"profit_factor"`
	SharpeRatio        float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	AverageROIPerTrade float64 `json:"average_roi_per_trade" yaml:"average_roi_per_trade"`
	TotalVolume        float64 `json:"total_volume" yaml:"total_volume"`
}

// LosslessProfitFactor is the sentinel reported when a ledger has profits
// but zero losses.
const LosslessProfitFactor = 999.0

// WriteTradingStats writes a stats snapshot to a YAML file.
func WriteTradingStats(path string, stats TradingStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trading stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trading stats to file: %w", err)
	}

	return nil
}

// ReadTradingStats reads a stats snapshot from a YAML file.
func ReadTradingStats(path string) (TradingStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TradingStats{}, fmt.Errorf("failed to read trading stats file: %w", err)
	}

	var stats TradingStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return TradingStats{}, fmt.Errorf("failed to unmarshal trading stats: %w", err)
	}

	return stats, nil
}

// SessionStatus is the status snapshot exposed to UI/API consumers.
type SessionStatus struct {
	IsRunning         bool         `json:"is_running" yaml:"is_running"`
	DailyTradeCount   int          `json:"daily_trade_count" yaml:"daily_trade_count"`
	MaxDailyTrades    int          `json:"max_daily_trades" yaml:"max_daily_trades"`
	AccountBalance    float64      `json:"account_balance" yaml:"account_balance"`
	CurrentBalance    float64      `json:"current_balance" yaml:"current_balance"`
	TradingIntervalMs int64        `json:"trading_interval_ms" yaml:"trading_interval_ms"`
	RiskSettings      RiskSettings `json:"risk_settings" yaml:"risk_settings"`
	Stats             TradingStats `json:"stats" yaml:"stats"`
}
