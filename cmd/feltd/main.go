package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltpoker/felt/internal/randutil"
	"github.com/feltpoker/felt/internal/server"
)

var CLI struct {
	Config      string `short:"c" name:"config" default:"feltd.hcl" help:"Path to HCL configuration file"`
	Bind        string `short:"b" name:"bind" help:"Address to bind to (overrides config)"`
	BuyIn       int    `name:"buy_in" help:"Chips staked to each connecting user (overrides config)"`
	MetricsBind string `name:"metrics-bind" help:"Address for the Prometheus endpoint (overrides config)"`
	Seed        int64  `name:"seed" help:"Deck RNG seed; 0 seeds from the clock"`
	LogLevel    string `short:"l" name:"log-level" env:"FELTD_LOG_LEVEL" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Bind != "" {
		cfg.Server.Bind = CLI.Bind
	}
	if CLI.BuyIn > 0 {
		cfg.Game.BuyIn = CLI.BuyIn
	}
	if CLI.MetricsBind != "" {
		cfg.Server.MetricsBind = CLI.MetricsBind
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	rng := randutil.NewFromTime()
	if CLI.Seed != 0 {
		rng = randutil.New(CLI.Seed)
	}

	logger.Info("starting feltd",
		"bind", cfg.Server.Bind,
		"buy_in", cfg.Game.BuyIn,
		"stakes", fmt.Sprintf("%d/%d", cfg.Game.SmallBlind, cfg.Game.BigBlind))

	srv := server.New(cfg, logger, quartz.NewReal(), rng)
	if err := srv.Listen(); err != nil {
		logger.Error("bind failed", "err", err)
		kctx.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "err", err)
		kctx.Exit(1)
	}
	logger.Info("shut down cleanly")
}
