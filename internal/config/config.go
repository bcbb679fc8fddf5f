package config

import (
	"strings"

	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Symbols []string `mapstructure:"symbols"`
	Venues  []string `mapstructure:"venues"`
	// BasePrices are the reference prices the simulated market jitters around.
	BasePrices map[string]float64 `mapstructure:"base_prices"`
	// BaseSizes are per-symbol base position sizes in base units.
	BaseSizes map[string]float64 `mapstructure:"base_sizes"`

	Market   MarketConfig       `mapstructure:"market"`
	Scanner  ScannerConfig      `mapstructure:"scanner"`
	Executor ExecutorConfig     `mapstructure:"executor"`
	Session  SessionConfig      `mapstructure:"session"`
	API      APIConfig          `mapstructure:"api"`
	Risk     types.RiskSettings `mapstructure:"risk"`
}

// MarketConfig defines the simulated market data feed settings.
type MarketConfig struct {
	// JitterPct is the max per-venue deviation from the base price, in percent.
	JitterPct float64 `mapstructure:"jitter_pct"`
	// UpdateIntervalMs is the quote refresh cadence.
	UpdateIntervalMs int `mapstructure:"update_interval_ms"`
	// FreshnessWindowMs is how long a quote stays usable.
	FreshnessWindowMs int `mapstructure:"freshness_window_ms"`
	// HalfSpreadPct is the simulated bid/ask half-spread, in percent.
	HalfSpreadPct float64 `mapstructure:"half_spread_pct"`
}

// ScannerConfig defines opportunity detection settings.
type ScannerConfig struct {
	// SpreadFloorPct is the scanner-local net spread floor. Typically looser
	// than the risk minimum, which is re-checked downstream.
	SpreadFloorPct float64 `mapstructure:"spread_floor_pct"`
	// MaxOpportunities caps the retained opportunity list.
	MaxOpportunities int `mapstructure:"max_opportunities"`
	// TTLSeconds is how long an opportunity stays executable.
	TTLSeconds int `mapstructure:"ttl_seconds"`
	// GraceSeconds keeps expired opportunities visible for observability.
	GraceSeconds int `mapstructure:"grace_seconds"`
	// SlippageMinPct and SlippageMaxPct bound the sampled slippage deduction.
	SlippageMinPct float64 `mapstructure:"slippage_min_pct"`
	SlippageMaxPct float64 `mapstructure:"slippage_max_pct"`
	// VolumeFraction caps trade size as a share of available venue volume.
	VolumeFraction float64 `mapstructure:"volume_fraction"`
}

// ExecutorConfig defines trade execution simulation settings.
type ExecutorConfig struct {
	MinLatencyMs int `mapstructure:"min_latency_ms"`
	MaxLatencyMs int `mapstructure:"max_latency_ms"`
	// BaseSuccessRate is the base fill probability before the spread bonus.
	BaseSuccessRate float64 `mapstructure:"base_success_rate"`
	// EnableTrailingStop schedules the delayed trailing-stop re-evaluation.
	EnableTrailingStop bool `mapstructure:"enable_trailing_stop"`
	// TrailingDelayMinMs and TrailingDelayMaxMs bound the re-evaluation delay.
	TrailingDelayMinMs int `mapstructure:"trailing_delay_min_ms"`
	TrailingDelayMaxMs int `mapstructure:"trailing_delay_max_ms"`
	// LegFailureRate is the per-leg failure probability of the simulated gateway.
	LegFailureRate float64 `mapstructure:"leg_failure_rate"`
	// UseGateway routes execution through the two-leg exchange gateway
	// instead of the single-shot outcome model.
	UseGateway bool `mapstructure:"use_gateway"`
}

// SessionConfig defines trading session settings.
type SessionConfig struct {
	// Speed is one of slow, medium, fast.
	Speed string `mapstructure:"speed"`
	// Mode selects the approval policy: basic (risk gate) or rules (full validator).
	Mode string `mapstructure:"mode"`
	// DemoLiveliness injects synthetic opportunities when no natural one is
	// found, to guarantee visible demo activity. Off by default; never part
	// of the realistic simulation path.
	DemoLiveliness bool `mapstructure:"demo_liveliness"`
	// StatsFile, when set, receives a YAML stats snapshot on session stop.
	StatsFile string `mapstructure:"stats_file"`
}

// APIConfig defines the HTTP API settings.
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// Session modes.
const (
	ModeBasic = "basic"
	ModeRules = "rules"
)

// Session speed tiers, in milliseconds between ticks.
const (
	SpeedSlow   = "slow"
	SpeedMedium = "medium"
	SpeedFast   = "fast"
)

// IntervalForSpeed maps a speed tier to its tick interval in milliseconds.
func IntervalForSpeed(speed string) int64 {
	switch speed {
	case SpeedSlow:
		return 5000
	case SpeedFast:
		return 1000
	default:
		return 3000
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "ADAUSDT", "DOTUSDT"})
	v.SetDefault("venues", []string{"binance", "bybit", "okx"})
	v.SetDefault("base_prices", map[string]float64{
		"BTCUSDT": 43000,
		"ETHUSDT": 2600,
		"SOLUSDT": 100,
		"ADAUSDT": 0.45,
		"DOTUSDT": 7.5,
	})
	v.SetDefault("base_sizes", map[string]float64{
		"BTCUSDT": 0.01,
		"ETHUSDT": 0.1,
		"SOLUSDT": 1,
		"ADAUSDT": 100,
		"DOTUSDT": 10,
	})

	v.SetDefault("market.jitter_pct", 0.5)
	v.SetDefault("market.update_interval_ms", 500)
	v.SetDefault("market.freshness_window_ms", 5000)
	v.SetDefault("market.half_spread_pct", 0.1)

	v.SetDefault("scanner.spread_floor_pct", 0.05)
	v.SetDefault("scanner.max_opportunities", 100)
	v.SetDefault("scanner.ttl_seconds", 30)
	v.SetDefault("scanner.grace_seconds", 10)
	v.SetDefault("scanner.slippage_min_pct", 0.05)
	v.SetDefault("scanner.slippage_max_pct", 0.15)
	v.SetDefault("scanner.volume_fraction", 0.1)

	v.SetDefault("executor.min_latency_ms", 50)
	v.SetDefault("executor.max_latency_ms", 200)
	v.SetDefault("executor.base_success_rate", 0.85)
	v.SetDefault("executor.enable_trailing_stop", false)
	v.SetDefault("executor.trailing_delay_min_ms", 10000)
	v.SetDefault("executor.trailing_delay_max_ms", 40000)
	v.SetDefault("executor.leg_failure_rate", 0.05)
	v.SetDefault("executor.use_gateway", false)

	v.SetDefault("session.speed", SpeedMedium)
	v.SetDefault("session.mode", ModeBasic)
	v.SetDefault("session.demo_liveliness", false)
	v.SetDefault("session.stats_file", "")

	v.SetDefault("api.listen_address", ":8080")

	defaults := types.DefaultRiskSettings()
	v.SetDefault("risk.minimum_spread_pct", defaults.MinimumSpreadPct)
	v.SetDefault("risk.max_exposure_per_trade_pct", defaults.MaxExposurePerTradePct)
	v.SetDefault("risk.max_daily_trades", defaults.MaxDailyTrades)
	v.SetDefault("risk.max_drawdown_pct", defaults.MaxDrawdownPct)
	v.SetDefault("risk.slippage_limit_pct", defaults.SlippageLimitPct)
	v.SetDefault("risk.stop_loss_pct", defaults.StopLossPct)
	v.SetDefault("risk.target_roi_per_trade_pct", defaults.TargetROIPerTradePct)
	v.SetDefault("risk.trading_fees_pct", defaults.TradingFeesPct)
	v.SetDefault("risk.account_balance", defaults.AccountBalance)
}

// DefaultConfig returns the built-in configuration without reading a file.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always unmarshal cleanly
	_ = v.Unmarshal(&cfg)

	return cfg
}

// LoadConfig reads configuration from a file in the given directory,
// falling back to environment variables and built-in defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env vars apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, errors.Wrap(errors.ErrCodeConfigRead, "failed to read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeConfigParse, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if len(c.Venues) < 2 {
		return errors.New(errors.ErrCodeConfigInvalid, "at least two venues are required for arbitrage")
	}

	if len(c.Symbols) == 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "at least one symbol is required")
	}

	if c.Scanner.SlippageMaxPct < c.Scanner.SlippageMinPct {
		return errors.New(errors.ErrCodeConfigInvalid, "scanner slippage range is inverted")
	}

	if c.Executor.MaxLatencyMs < c.Executor.MinLatencyMs {
		return errors.New(errors.ErrCodeConfigInvalid, "executor latency range is inverted")
	}

	if c.Session.Mode != ModeBasic && c.Session.Mode != ModeRules {
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown session mode %q", c.Session.Mode)
	}

	switch c.Session.Speed {
	case SpeedSlow, SpeedMedium, SpeedFast:
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown trading speed %q", c.Session.Speed)
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	return nil
}
