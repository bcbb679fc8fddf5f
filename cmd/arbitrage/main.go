package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-arbitrage/internal/api"
	"github.com/rxtech-lab/argo-arbitrage/internal/clock"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/exchange"
	"github.com/rxtech-lab/argo-arbitrage/internal/executor"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/market"
	"github.com/rxtech-lab/argo-arbitrage/internal/risk"
	"github.com/rxtech-lab/argo-arbitrage/internal/rng"
	"github.com/rxtech-lab/argo-arbitrage/internal/rules"
	"github.com/rxtech-lab/argo-arbitrage/internal/scanner"
	"github.com/rxtech-lab/argo-arbitrage/internal/session"
	"github.com/rxtech-lab/argo-arbitrage/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serveAction wires the simulated market, the trading session and the API
// server, then blocks until interrupted.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if speed := cmd.String("speed"); speed != "" {
		cfg.Session.Speed = speed
	}

	if mode := cmd.String("mode"); mode != "" {
		cfg.Session.Mode = mode
	}

	if listen := cmd.String("listen"); listen != "" {
		cfg.API.ListenAddress = listen
	}

	if cmd.Bool("demo") {
		cfg.Session.DemoLiveliness = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting argo-arbitrage",
		zap.String("version", version.GetVersion()),
		zap.Strings("symbols", cfg.Symbols),
		zap.Strings("venues", cfg.Venues),
		zap.String("mode", cfg.Session.Mode),
	)

	clk := clock.System()
	seed := clk.Now().UnixNano()

	provider := market.NewSimulatedProvider(cfg, rng.New(seed), clk, log)
	provider.Start(ctx)
	defer provider.Stop()

	gateway := exchange.NewSimulatedGateway(cfg.Risk.TradingFeesPct, cfg.Executor.LegFailureRate, rng.New(seed+1), log)

	scn := scanner.NewScanner(provider, cfg, session.DefaultSizePolicy(cfg), rng.New(seed+2), clk, log)
	exec := executor.NewExecutor(cfg.Executor, gateway, rng.New(seed+3), clk, log)

	controller := session.NewController(
		cfg,
		provider,
		scn,
		rules.NewValidator(log),
		risk.NewGate(log),
		exec,
		session.NewMemorySettingsStore(cfg.Risk),
		rng.New(seed+4),
		clk,
		log,
	)
	defer controller.Stop()

	if cmd.Bool("autostart") {
		controller.Start()
	}

	server := api.NewServer(cfg, controller, provider, log)

	return server.Start(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:    "arbitrage",
		Usage:   "Simulated cross-venue crypto arbitrage trading engine",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory containing config.yaml",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "speed",
				Usage: "Trading speed tier: slow, medium, fast",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Approval mode: basic (risk gate) or rules (full validator)",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP API listen address",
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Fabricate opportunities when the market offers none",
			},
			&cli.BoolFlag{
				Name:  "autostart",
				Usage: "Start the trading session immediately",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: serveAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
