package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rovshanmuradov/solana-compressor/internal/app"
	"github.com/rovshanmuradov/solana-compressor/internal/config"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/utils/metrics"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Run the interactive terminal UI (default)",
		Action: runTUI,
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List the token balances of the configured wallet",
		Action: func(c *cli.Context) error {
			return runHeadless(c, func(ctx context.Context, a *app.App) error {
				return a.Tokens(ctx, c.App.Writer)
			})
		},
	}
}

func compressCommand() *cli.Command {
	return &cli.Command{
		Name:  "compress",
		Usage: "Compress the configured amount of one token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "mint",
				Aliases:  []string{"m"},
				Usage:    "Mint address of the token to compress",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:  "amount",
				Usage: "Override compression.amount (base units)",
			},
		},
		Action: func(c *cli.Context) error {
			return runHeadless(c, func(ctx context.Context, a *app.App) error {
				return a.Compress(ctx, c.String("mint"), c.App.Writer)
			})
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("amount") {
		if c.Uint64("amount") == 0 {
			return nil, errors.New("amount must be positive")
		}
		cfg.Compression.Amount = c.Uint64("amount")
	}
	return cfg, nil
}

func runTUI(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	buffer, err := logger.NewLogBuffer(cfg.LogBufferSize)
	if err != nil {
		return err
	}
	appLogger, err := logger.CreateTUILogger(cfg.DebugLogging, buffer, logger.DefaultFileConfig(cfg.LogFile))
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Starting compressor TUI", zap.String("rpc", cfg.RPCURL))

	collector := metrics.NewCollector()
	a := app.New(cfg, appLogger, collector)

	return withMetrics(c.Context, cfg.MetricsAddr, collector, appLogger, func(ctx context.Context) error {
		return a.RunTUI(ctx, buffer)
	})
}

func runHeadless(c *cli.Context, run func(context.Context, *app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	appLogger := logger.CreatePrettyLogger(cfg.DebugLogging)
	defer func() {
		_ = appLogger.Sync()
	}()

	collector := metrics.NewCollector()
	a := app.New(cfg, appLogger, collector)

	return withMetrics(c.Context, cfg.MetricsAddr, collector, appLogger, func(ctx context.Context) error {
		return run(ctx, a)
	})
}

// withMetrics runs fn and, when addr is set, serves /metrics until fn returns.
func withMetrics(ctx context.Context, addr string, collector *metrics.Collector, log *zap.Logger, fn func(context.Context) error) error {
	if addr == "" {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}
