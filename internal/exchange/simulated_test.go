package exchange

import (
	"context"
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"github.com/stretchr/testify/suite"
)

type SimulatedGatewayTestSuite struct {
	suite.Suite
}

func TestSimulatedGatewaySuite(t *testing.T) {
	suite.Run(t, new(SimulatedGatewayTestSuite))
}

func (suite *SimulatedGatewayTestSuite) TestSuccessfulFill() {
	// First sample drives latency, second the failure roll, third the slippage
	gateway := NewSimulatedGateway(0.1, 0.05, rng.NewSequence(0, 0.99, 0.5), logger.NewNopLogger())

	result, err := gateway.PlaceOrder(context.Background(), "binance", "BTCUSDT", types.SideBuy, 0.01, 43000)
	suite.NoError(err)
	suite.True(result.Success)
	suite.NotEmpty(result.OrderID)
	suite.Equal(0.01, result.ExecutedQuantity)
	// Slippage sample of 0.5 means zero deviation from the limit price
	suite.InDelta(43000, result.ExecutedPrice, 1e-6)
	suite.InDelta(43000*0.01*0.001, result.Fees, 1e-6)
}

func (suite *SimulatedGatewayTestSuite) TestLegFailure() {
	// Failure roll of 0.01 is below the 5% failure rate
	gateway := NewSimulatedGateway(0.1, 0.05, rng.NewSequence(0, 0.01), logger.NewNopLogger())

	result, err := gateway.PlaceOrder(context.Background(), "okx", "ETHUSDT", types.SideSell, 0.1, 2600)
	suite.NoError(err)
	suite.False(result.Success)
	suite.Empty(result.OrderID)
	suite.NotEmpty(result.Error)
}

func (suite *SimulatedGatewayTestSuite) TestRejectsInvalidOrder() {
	gateway := NewSimulatedGateway(0.1, 0, rng.New(1), logger.NewNopLogger())

	_, err := gateway.PlaceOrder(context.Background(), "binance", "BTCUSDT", types.SideBuy, 0, 43000)
	suite.Error(err)

	_, err = gateway.PlaceOrder(context.Background(), "binance", "BTCUSDT", types.SideBuy, 1, -5)
	suite.Error(err)
}

func (suite *SimulatedGatewayTestSuite) TestCancelledContext() {
	gateway := NewSimulatedGateway(0.1, 0, rng.New(1), logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.PlaceOrder(ctx, "binance", "BTCUSDT", types.SideBuy, 0.01, 43000)
	suite.Error(err)
}

func (suite *SimulatedGatewayTestSuite) TestConcurrentLegs() {
	gateway := NewSimulatedGateway(0.1, 0, rng.New(1), logger.NewNopLogger())

	var wg sync.WaitGroup

	results := make([]OrderResult, 2)
	errs := make([]error, 2)

	wg.Add(2)

	go func() {
		defer wg.Done()

		results[0], errs[0] = gateway.PlaceOrder(context.Background(), "binance", "BTCUSDT", types.SideBuy, 0.01, 43000)
	}()

	go func() {
		defer wg.Done()

		results[1], errs[1] = gateway.PlaceOrder(context.Background(), "okx", "BTCUSDT", types.SideSell, 0.01, 43100)
	}()

	wg.Wait()

	for i := 0; i < 2; i++ {
		suite.NoError(errs[i])
		suite.True(results[i].Success)
	}

	suite.NotEqual(results[0].OrderID, results[1].OrderID)
}
