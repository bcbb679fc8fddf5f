package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
)

// RiskSettings holds the mutable risk parameters for one trading session.
// Percentages are expressed as whole numbers (5 means 5%).
//
// Settings are read by every component on each tick, so a settings update
// takes effect on the next tick without restart.
type RiskSettings struct {
	// MinimumSpreadPct is the minimum net spread required to trade.
	MinimumSpreadPct float64 `json:"minimum_spread_pct" yaml:"minimum_spread_pct" mapstructure:"minimum_spread_pct" validate:"gte=0"`
	// MaxExposurePerTradePct caps the notional of one trade as a share of balance.
	MaxExposurePerTradePct float64 `json:"max_exposure_per_trade_pct" yaml:"max_exposure_per_trade_pct" mapstructure:"max_exposure_per_trade_pct" validate:"gt=0,lte=100"`
	MaxDailyTrades         int     `json:"max_daily_trades" yaml:"max_daily_trades" mapstructure:"max_daily_trades" validate:"gt=0"`
	MaxDrawdownPct         float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct" mapstructure:"max_drawdown_pct" validate:"gt=0,lte=100"`
	SlippageLimitPct       float64 `json:"slippage_limit_pct" yaml:"slippage_limit_pct" mapstructure:"slippage_limit_pct" validate:"gte=0"`
	StopLossPct            float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" mapstructure:"stop_loss_pct" validate:"gt=0,lte=100"`
	TargetROIPerTradePct   float64 `json:"target_roi_per_trade_pct" yaml:"target_roi_per_trade_pct" mapstructure:"target_roi_per_trade_pct" validate:"gte=0"`
	// TradingFeesPct is the fee per side; both legs are charged.
	TradingFeesPct float64 `json:"trading_fees_pct" yaml:"trading_fees_pct" mapstructure:"trading_fees_pct" validate:"gte=0"`
	AccountBalance float64 `json:"account_balance" yaml:"account_balance" mapstructure:"account_balance" validate:"gt=0"`
}

// DefaultRiskSettings returns the documented defaults for a simulated
// arbitrage session.
func DefaultRiskSettings() RiskSettings {
	return RiskSettings{
		MinimumSpreadPct:       0.15,
		MaxExposurePerTradePct: 5,
		MaxDailyTrades:         200,
		MaxDrawdownPct:         10,
		SlippageLimitPct:       0.3,
		StopLossPct:            1,
		TargetROIPerTradePct:   0.2,
		TradingFeesPct:         0.1,
		AccountBalance:         10000,
	}
}

// Validate validates the RiskSettings struct.
func (s *RiskSettings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSettings, "invalid risk settings", err)
	}

	return nil
}

// MaxExposure returns the maximum per-trade notional in quote currency.
func (s *RiskSettings) MaxExposure() float64 {
	return s.AccountBalance * s.MaxExposurePerTradePct / 100
}

// RiskSettingsPatch is a partial update to RiskSettings. Nil fields are
// left unchanged by Apply.
type RiskSettingsPatch struct {
	MinimumSpreadPct       *float64 `json:"minimum_spread_pct,omitempty"`
	MaxExposurePerTradePct *float64 `json:"max_exposure_per_trade_pct,omitempty"`
	MaxDailyTrades         *int     `json:"max_daily_trades,omitempty"`
	MaxDrawdownPct         *float64 `json:"max_drawdown_pct,omitempty"`
	SlippageLimitPct       *float64 `json:"slippage_limit_pct,omitempty"`
	StopLossPct            *float64 `json:"stop_loss_pct,omitempty"`
	TargetROIPerTradePct   *float64 `json:"target_roi_per_trade_pct,omitempty"`
	TradingFeesPct         *float64 `json:"trading_fees_pct,omitempty"`
	AccountBalance         *float64 `json:"account_balance,omitempty"`
}

// Apply merges the patch into a copy of s and returns it. The receiver is
// not modified, so a failed validation of the result cannot corrupt the
// current settings.
func (s RiskSettings) Apply(patch RiskSettingsPatch) RiskSettings {
	if patch.MinimumSpreadPct != nil {
		s.MinimumSpreadPct = *patch.MinimumSpreadPct
	}

	if patch.MaxExposurePerTradePct != nil {
		s.MaxExposurePerTradePct = *patch.MaxExposurePerTradePct
	}

	if patch.MaxDailyTrades != nil {
		s.MaxDailyTrades = *patch.MaxDailyTrades
	}

	if patch.MaxDrawdownPct != nil {
		s.MaxDrawdownPct = *patch.MaxDrawdownPct
	}

	if patch.SlippageLimitPct != nil {
		s.SlippageLimitPct = *patch.SlippageLimitPct
	}

	if patch.StopLossPct != nil {
		s.StopLossPct = *patch.StopLossPct
	}

	if patch.TargetROIPerTradePct != nil {
		s.TargetROIPerTradePct = *patch.TargetROIPerTradePct
	}

	if patch.TradingFeesPct != nil {
		s.TradingFeesPct = *patch.TradingFeesPct
	}

	if patch.AccountBalance != nil {
		s.AccountBalance = *patch.AccountBalance
	}

	return s
}
