package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/config"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/handler"
	"github.com/efreitasn/papervenue/internal/risk"
	"github.com/efreitasn/papervenue/internal/service"
	"github.com/efreitasn/papervenue/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Random source for feed jitter, perturbation, and partial fills.
	// A fixed RANDOM_SEED makes a run reproducible.
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := engine.NewRand(rand.New(rand.NewSource(seed)))

	// Instantiate stores.
	accountStore := store.NewAccountStore()
	instrumentStore := store.NewInstrumentStore()
	orderStore := store.NewOrderStore()
	fillStore := store.NewFillStore()
	positionStore := store.NewPositionStore()
	eventStore := store.NewEventStore()
	webhookStore := store.NewWebhookStore()
	stateStore := store.NewSimStateStore(cfg.SimConfig(), cfg.RiskConfig())

	// Webhook service doubles as the notification sink.
	webhookSvc := service.NewWebhookService(webhookStore, accountStore, cfg.WebhookTimeout)

	// Engine.
	books := engine.NewBookManager()
	settler := engine.NewSettler(accountStore, instrumentStore, orderStore, fillStore, positionStore, eventStore, stateStore)
	matcher := engine.NewMatcher(books, settler, instrumentStore, orderStore, eventStore, stateStore, webhookSvc, rng)
	feed := engine.NewPriceFeed(instrumentStore, stateStore, matcher, webhookSvc, rng)

	// Seed instruments and their bar histories.
	for _, in := range cfg.Instruments {
		feed.SeedInstrument(in.Symbol, in.Symbol, decimal.NewFromFloat(in.ReferencePrice))
	}

	// Risk engine reads its limits from the runtime state store.
	riskEngine := risk.NewEngine(stateStore)

	// Services.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accountSvc := service.NewAccountService(accountStore, positionStore, instrumentStore, fillStore)
	orderSvc := service.NewOrderService(matcher, riskEngine, accountStore, instrumentStore, orderStore, fillStore, positionStore, eventStore, stateStore, webhookSvc)
	marketSvc := service.NewMarketService(instrumentStore, fillStore, books, stateStore)
	adminSvc := service.NewAdminService(ctx, stateStore, feed, books, accountStore, orderStore, fillStore, positionStore, eventStore)

	// Router.
	router := handler.NewRouter(accountSvc, orderSvc, marketSvc, adminSvc, webhookSvc, logger)

	// Start the price feed unless autostart is disabled.
	if cfg.FeedAutostart {
		if err := feed.Start(ctx); err != nil {
			logger.Error("failed to start price feed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("price feed started",
			slog.Duration("tick_interval", cfg.TickInterval),
			slog.Int("instruments", len(cfg.Instruments)),
		)
	}

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, then the feed goroutines.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if feed.Running() {
		if err := feed.Stop(); err != nil {
			logger.Error("feed stop error", slog.String("error", err.Error()))
		}
	}
	cancel()

	logger.Info("server stopped")
}
