package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"smart_basket/internal/app"
	"smart_basket/internal/domain"
	"smart_basket/internal/engine"
	"smart_basket/internal/event"
	"smart_basket/internal/infra/feed"
	"smart_basket/internal/infra/simulator"
	"smart_basket/internal/receipt"
	"smart_basket/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	launchURL := flag.String("url", "", "launch URL carrying the session as ?id=")
	sessionFlag := flag.String("session", "", "session id override")
	pprofAddr := flag.String("pprof", "", "pprof listen address, e.g. localhost:6060")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap(*configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	metrics := bootstrap.Metrics
	sessionID := bootstrap.ResolveSession(*launchURL, *sessionFlag)

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	event.Warmup(64)

	// 4. Ledger & Sequencer
	ledger := service.NewCartLedger()

	var console *app.Console
	seq := engine.NewSequencer(1024, ledger, cfg.Cart.TaxRate, metrics, func(snap domain.CartSnapshot) {
		console.OnCartChange(snap)
	})

	// 5. Scan sources
	var scanner *simulator.Scanner
	if cfg.Simulator.Enabled {
		scanner = simulator.NewScanner(cfg.Simulator.Catalog, seq.Submit)
	}

	var feedClient *feed.Client
	deps := app.ConsoleDeps{
		Config:    cfg,
		Ledger:    ledger,
		Submit:    seq.Submit,
		Scanner:   scanner,
		Receipts:  receipt.NewBuilder(receipt.Header{StoreName: cfg.Receipt.StoreName, Tagline: cfg.Receipt.Tagline, Currency: cfg.Payment.Currency}),
		Metrics:   metrics,
		SessionID: sessionID,
		Out:       os.Stdout,
	}
	if bootstrap.Storage != nil {
		deps.Archive = bootstrap.Storage
	}
	if cfg.Feed.Enabled {
		feedClient = feed.NewClientWithConfig(cfg, seq.Submit, metrics)
		deps.Feed = feedClient
	}
	console = app.NewConsole(deps)

	// Start Sequencer in its own goroutine (the single cart writer)
	go seq.Run(ctx)
	slog.InfoContext(ctx, "✅ Sequencer started")

	if feedClient != nil {
		feedClient.OnStateChange(console.OnFeedState)
		if err := feedClient.Connect(ctx, sessionID); err != nil {
			slog.Error("Failed to connect feed", slog.Any("error", err))
		}
		defer feedClient.Disconnect()
		slog.InfoContext(ctx, "✅ Feed client started", slog.String("session", sessionID))
	}

	// 6. Operator console
	go func() {
		if err := console.Run(ctx, os.Stdin); err != nil {
			slog.Error("Console stopped", slog.Any("error", err))
		}
		stop()
	}()

	slog.InfoContext(ctx, "✨ SmartBasket terminal ready. Press Ctrl+C to exit.")

	// Wait for shutdown signal or console quit
	<-ctx.Done()

	m := metrics.Snapshot()
	slog.Info("👋 Shutting down gracefully...",
		slog.Uint64("events", m.EventsProcessed),
		slog.Uint64("scans", m.ScansRecorded),
		slog.Uint64("decode_errors", m.DecodeErrors),
		slog.Uint64("reconnects", m.ReconnectAttempts),
		slog.Uint64("checkouts", m.Checkouts))
}
