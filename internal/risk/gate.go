// Package risk implements the fast-path approval gate used when the full
// rule battery is not in play.
package risk

import (
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
	"go.uber.org/zap"
)

// Gate authorizes execution with three ordered checks, short-circuiting on
// the first failure: minimum net spread, per-trade exposure cap, and the
// session's current max drawdown.
type Gate struct {
	logger *logger.Logger
}

// NewGate creates a Gate.
func NewGate(log *logger.Logger) *Gate {
	return &Gate{logger: log}
}

// Approve returns nil when the opportunity clears all checks. The error
// identifies the first failing check; the remaining checks are not run.
func (g *Gate) Approve(opp types.Opportunity, settings types.RiskSettings, currentDrawdownPct float64) error {
	if opp.NetSpreadPct < settings.MinimumSpreadPct {
		g.logger.Debug("rejected on spread",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("net_spread_pct", opp.NetSpreadPct),
			zap.Float64("minimum_spread_pct", settings.MinimumSpreadPct),
		)

		return errors.Newf(errors.ErrCodeOrderRejected,
			"net spread %.4f%% below minimum %.4f%%", opp.NetSpreadPct, settings.MinimumSpreadPct)
	}

	notional := opp.NotionalSize * opp.BuyPrice
	if notional > settings.MaxExposure() {
		g.logger.Debug("rejected on exposure",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("notional", notional),
			zap.Float64("max_exposure", settings.MaxExposure()),
		)

		return errors.Newf(errors.ErrCodeOrderRejected,
			"notional %.2f exceeds max exposure %.2f", notional, settings.MaxExposure())
	}

	if currentDrawdownPct > settings.MaxDrawdownPct {
		g.logger.Debug("rejected on drawdown",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("drawdown_pct", currentDrawdownPct),
			zap.Float64("max_drawdown_pct", settings.MaxDrawdownPct),
		)

		return errors.Newf(errors.ErrCodeDrawdownBreached,
			"drawdown %.2f%% exceeds limit %.2f%%", currentDrawdownPct, settings.MaxDrawdownPct)
	}

	return nil
}
