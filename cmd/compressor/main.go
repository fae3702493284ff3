package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "compressor",
		Usage:   "Connect a Solana wallet, list its tokens and compress them",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "Path to config file (empty for defaults and environment only)",
				EnvVars: []string{"COMPRESSOR_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			tuiCommand(),
			tokensCommand(),
			compressCommand(),
		},
		Action: runTUI,
	}

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		log.Fatalf("compressor: %v", err)
	}
}
