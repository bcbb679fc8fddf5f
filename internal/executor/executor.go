// Package executor turns approved opportunities into terminal trade
// records, modeling latency, slippage, fees and stochastic outcomes.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/exchange"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/rxtech-lab/argo-arbitrage/pkg/errors"
	"go.uber.org/zap"
)

const (
	// riskCapFraction caps the planned risk at a small fraction of balance.
	riskCapFraction = 0.005
	// sellPerturbationPct bounds the simulated market movement between
	// approval and fill, in percent (symmetric).
	sellPerturbationPct = 2.0
	// spreadBonusFactor converts net spread into extra success probability.
	spreadBonusFactor = 0.1
	// successRateCap bounds the fill probability regardless of spread.
	successRateCap = 0.95
	// failurePenaltyFraction is the extra loss beyond fees on a failed fill.
	failurePenaltyFraction = 0.1
	// trailingHitRate is the probability the trailing stop captures a bonus.
	trailingHitRate = 0.3
)

// BonusApplier receives the trailing-stop bonus for a recorded trade. The
// ledger owner must apply it at most once per trade and must tolerate
// being called after the session has stopped.
type BonusApplier func(tradeID string, bonus float64)

// Sizing computes the position size for an opportunity:
// min(configured base size, max exposure at price, venue volume fraction).
func Sizing(baseSize float64, price float64, venueVolume float64, volumeFraction float64, settings types.RiskSettings) float64 {
	if price <= 0 {
		return 0
	}

	size := baseSize

	if byExposure := settings.MaxExposure() / price; byExposure < size {
		size = byExposure
	}

	if byVolume := venueVolume * volumeFraction / price; byVolume < size {
		size = byVolume
	}

	if size < 0 {
		size = 0
	}

	return size
}

// Executor resolves approved opportunities into trades. The simulated path
// models the venue pair internally; the two-leg path places real orders
// through an exchange gateway.
type Executor struct {
	cfg     config.ExecutorConfig
	gateway exchange.Gateway
	random  rng.Source
	clock   clock.Clock
	logger  *logger.Logger
}

// NewExecutor creates an Executor. gateway may be nil when only the
// simulated path is used.
func NewExecutor(cfg config.ExecutorConfig, gateway exchange.Gateway, random rng.Source, clk clock.Clock, log *logger.Logger) *Executor {
	return &Executor{
		cfg:     cfg,
		gateway: gateway,
		random:  random,
		clock:   clk,
		logger:  log,
	}
}

// plan derives the risk parameters shared by both execution paths.
func plan(opp types.Opportunity, qty float64, settings types.RiskSettings) (riskAmount, stopLossPrice, fees float64) {
	notional := qty * opp.BuyPrice

	riskAmount = notional * settings.StopLossPct / 100
	if riskCap := settings.AccountBalance * riskCapFraction; riskCap < riskAmount {
		riskAmount = riskCap
	}

	stopLossPrice = opp.BuyPrice * (1 - settings.StopLossPct/100)
	fees = notional * settings.TradingFeesPct / 100 * 2

	return riskAmount, stopLossPrice, fees
}

// Overrides carries optional operator-supplied order parameters that take
// precedence over the values derived from the risk settings.
type Overrides struct {
	StopLossPrice optional.Option[float64]
	RiskAmount    optional.Option[float64]
}

// Execute resolves an approved opportunity through the simulated outcome
// model with the default plan.
func (e *Executor) Execute(ctx context.Context, opp types.Opportunity, qty float64, settings types.RiskSettings) (types.Trade, error) {
	return e.ExecuteWithOverrides(ctx, opp, qty, settings, Overrides{})
}

// ExecuteWithOverrides resolves an approved opportunity through the
// simulated outcome model. Random draws happen in a fixed order: latency,
// sell perturbation, success roll.
func (e *Executor) ExecuteWithOverrides(ctx context.Context, opp types.Opportunity, qty float64, settings types.RiskSettings, overrides Overrides) (types.Trade, error) {
	if qty <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidOrder, "invalid quantity %f", qty)
	}

	notional := qty * opp.BuyPrice

	riskAmount, stopLossPrice, fees := plan(opp, qty, settings)
	riskAmount = overrides.RiskAmount.TakeOr(riskAmount)
	stopLossPrice = overrides.StopLossPrice.TakeOr(stopLossPrice)

	latency := e.sampleLatency()
	if err := e.await(ctx, latency); err != nil {
		return types.Trade{}, err
	}

	trade := types.Trade{
		ID:              uuid.NewString(),
		OpportunityID:   opp.ID,
		Symbol:          opp.Symbol,
		BuyVenue:        opp.BuyVenue,
		SellVenue:       opp.SellVenue,
		BuyPrice:        opp.BuyPrice,
		RequestedQty:    qty,
		Fees:            fees,
		ExecutionTimeMs: latency.Milliseconds(),
		RiskAmount:      riskAmount,
		StopLossPrice:   stopLossPrice,
		Timestamp:       e.clock.Now(),
	}

	// Market movement between approval and fill
	executionPrice := opp.SellPrice * (1 + (e.random.Float64()-0.5)*2*sellPerturbationPct/100)
	trade.SellPrice = executionPrice

	switch {
	case executionPrice <= stopLossPrice:
		trade.Status = types.TradeStatusStoppedLoss
		trade.ExecutedQty = qty
		trade.GrossProfit = (executionPrice - opp.BuyPrice) * qty
		trade.NetProfit = -riskAmount

	case e.random.Float64() < e.successRate(opp.NetSpreadPct):
		trade.Status = types.TradeStatusCompleted
		trade.ExecutedQty = qty
		trade.GrossProfit = (executionPrice - opp.BuyPrice) * qty
		trade.NetProfit = trade.GrossProfit - fees

	default:
		trade.Status = types.TradeStatusFailed
		trade.NetProfit = -fees - failurePenaltyFraction*riskAmount
	}

	trade.RoiPct = trade.NetProfit / notional * 100

	e.logger.Debug("simulated execution resolved",
		zap.String("trade_id", trade.ID),
		zap.String("status", string(trade.Status)),
		zap.Float64("net_profit", trade.NetProfit),
		zap.Int64("latency_ms", trade.ExecutionTimeMs),
	)

	return trade, nil
}

// ExecuteTwoLeg places the buy and sell legs concurrently through the
// gateway. A successful buy with a failed sell yields a partial trade
// flagged for operator follow-up; it is never retried.
func (e *Executor) ExecuteTwoLeg(ctx context.Context, opp types.Opportunity, qty float64, settings types.RiskSettings) (types.Trade, error) {
	if qty <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidOrder, "invalid quantity %f", qty)
	}

	if e.gateway == nil {
		return types.Trade{}, errors.New(errors.ErrCodeInternal, "no execution gateway configured")
	}

	notional := qty * opp.BuyPrice
	riskAmount, stopLossPrice, _ := plan(opp, qty, settings)

	started := e.clock.Now()

	var (
		wg              sync.WaitGroup
		buyRes, sellRes exchange.OrderResult
		buyErr, sellErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		buyRes, buyErr = e.gateway.PlaceOrder(ctx, opp.BuyVenue, opp.Symbol, types.SideBuy, qty, opp.BuyPrice)
	}()

	go func() {
		defer wg.Done()

		sellRes, sellErr = e.gateway.PlaceOrder(ctx, opp.SellVenue, opp.Symbol, types.SideSell, qty, opp.SellPrice)
	}()

	wg.Wait()

	if buyErr != nil {
		return types.Trade{}, errors.Wrap(errors.ErrCodeBuyLegFailed, "buy leg error", buyErr)
	}

	if sellErr != nil {
		return types.Trade{}, errors.Wrap(errors.ErrCodeSellLegFailed, "sell leg error", sellErr)
	}

	trade := types.Trade{
		ID:              uuid.NewString(),
		OpportunityID:   opp.ID,
		Symbol:          opp.Symbol,
		BuyVenue:        opp.BuyVenue,
		SellVenue:       opp.SellVenue,
		BuyPrice:        opp.BuyPrice,
		RequestedQty:    qty,
		Fees:            buyRes.Fees + sellRes.Fees,
		ExecutionTimeMs: e.clock.Now().Sub(started).Milliseconds(),
		RiskAmount:      riskAmount,
		StopLossPrice:   stopLossPrice,
		BuyOrderID:      buyRes.OrderID,
		SellOrderID:     sellRes.OrderID,
		Timestamp:       e.clock.Now(),
	}

	switch {
	case buyRes.Success && sellRes.Success:
		trade.Status = types.TradeStatusCompleted
		trade.BuyPrice = buyRes.ExecutedPrice
		trade.SellPrice = sellRes.ExecutedPrice
		trade.ExecutedQty = sellRes.ExecutedQuantity
		trade.GrossProfit = (sellRes.ExecutedPrice - buyRes.ExecutedPrice) * trade.ExecutedQty
		trade.NetProfit = trade.GrossProfit - trade.Fees

	case buyRes.Success && !sellRes.Success:
		// Inventory is stuck on the buy venue until an operator unwinds it
		trade.Status = types.TradeStatusPartial
		trade.BuyPrice = buyRes.ExecutedPrice
		trade.ExecutedQty = buyRes.ExecutedQuantity
		trade.NetProfit = -trade.Fees

		e.logger.Warn("sell leg failed after buy fill, flagging for follow-up",
			zap.String("trade_id", trade.ID),
			zap.String("buy_order_id", trade.BuyOrderID),
			zap.String("sell_error", sellRes.Error),
		)

	default:
		trade.Status = types.TradeStatusFailed
		trade.NetProfit = -trade.Fees - failurePenaltyFraction*riskAmount
	}

	trade.RoiPct = trade.NetProfit / notional * 100

	return trade, nil
}

// ArmTrailingStop schedules the delayed re-evaluation for a completed
// trade. With a fixed probability the stop captures extra favorable
// movement and the bounded bonus is handed to the applier. The timer is a
// detached effect: it may fire after the session stops and only ever
// touches the one trade.
func (e *Executor) ArmTrailingStop(trade types.Trade, apply BonusApplier) {
	if !e.cfg.EnableTrailingStop || trade.Status != types.TradeStatusCompleted {
		return
	}

	minDelay := time.Duration(e.cfg.TrailingDelayMinMs) * time.Millisecond
	maxDelay := time.Duration(e.cfg.TrailingDelayMaxMs) * time.Millisecond
	delay := minDelay + time.Duration(e.random.Float64()*float64(maxDelay-minDelay))
	hit := e.random.Float64() < trailingHitRate
	bonus := trade.RiskAmount * (0.2 + e.random.Float64()*0.5)

	time.AfterFunc(delay, func() {
		if !hit {
			return
		}

		e.logger.Debug("trailing stop captured bonus",
			zap.String("trade_id", trade.ID),
			zap.Float64("bonus", bonus),
		)

		apply(trade.ID, bonus)
	})
}

func (e *Executor) sampleLatency() time.Duration {
	min := time.Duration(e.cfg.MinLatencyMs) * time.Millisecond
	max := time.Duration(e.cfg.MaxLatencyMs) * time.Millisecond

	return min + time.Duration(e.random.Float64()*float64(max-min))
}

func (e *Executor) await(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeExecutionCancelled, "execution cancelled", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

func (e *Executor) successRate(netSpreadPct float64) float64 {
	rate := e.cfg.BaseSuccessRate + netSpreadPct*spreadBonusFactor
	if rate > successRateCap {
		rate = successRateCap
	}

	return rate
}
