package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
	"go.uber.org/zap"
)

// legSlippagePct bounds the per-leg fill price deviation from the limit
// price, in percent (symmetric).
const legSlippagePct = 0.2

// SimulatedGateway models a venue's matching engine: each leg fills at a
// slightly perturbed price after a short latency, pays a taker fee, and
// fails outright with a configured probability. Legs are independent, so
// concurrent buy and sell legs never affect each other.
type SimulatedGateway struct {
	feePct      float64
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
	random      rng.Source
	logger      *logger.Logger
}

// NewSimulatedGateway creates a simulated execution gateway.
// feePct is the per-leg taker fee in percent; failureRate is the per-leg
// failure probability in [0, 1].
func NewSimulatedGateway(feePct float64, failureRate float64, random rng.Source, log *logger.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		feePct:      feePct,
		failureRate: failureRate,
		minLatency:  20 * time.Millisecond,
		maxLatency:  80 * time.Millisecond,
		random:      rng.Locked(random),
		logger:      log,
	}
}

// PlaceOrder implements Gateway.
func (g *SimulatedGateway) PlaceOrder(ctx context.Context, venue string, symbol string, side types.Side, quantity float64, limitPrice float64) (OrderResult, error) {
	if quantity <= 0 || limitPrice <= 0 {
		return OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "invalid order: qty=%f price=%f", quantity, limitPrice)
	}

	latency := g.minLatency + time.Duration(g.random.Float64()*float64(g.maxLatency-g.minLatency))

	select {
	case <-ctx.Done():
		return OrderResult{}, errors.Wrap(errors.ErrCodeExecutionCancelled, "order cancelled", ctx.Err())
	case <-time.After(latency):
	}

	if g.random.Float64() < g.failureRate {
		g.logger.Debug("simulated leg failure",
			zap.String("venue", venue),
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
		)

		return OrderResult{
			Success: false,
			Error:   "venue rejected order: insufficient liquidity",
		}, nil
	}

	// Fill at the limit price perturbed by per-leg slippage
	slip := (g.random.Float64() - 0.5) * 2 * legSlippagePct / 100
	executedPrice := limitPrice * (1 + slip)

	return OrderResult{
		Success:          true,
		OrderID:          uuid.NewString(),
		ExecutedPrice:    executedPrice,
		ExecutedQuantity: quantity,
		Fees:             executedPrice * quantity * g.feePct / 100,
	}, nil
}
