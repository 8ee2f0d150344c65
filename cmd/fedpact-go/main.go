// Package main is the entrypoint for the fedpact-go server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedpact/fedpact-go/internal/api"
	"github.com/fedpact/fedpact-go/internal/audit"
	"github.com/fedpact/fedpact-go/internal/cache"
	"github.com/fedpact/fedpact-go/internal/config"
	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/coordinator"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/organisations"
	"github.com/fedpact/fedpact-go/internal/registry"
	"github.com/fedpact/fedpact-go/internal/server"
	"github.com/fedpact/fedpact-go/internal/sinks"
	"github.com/fedpact/fedpact-go/internal/store"

	// Register cache drivers
	_ "github.com/fedpact/fedpact-go/internal/cache/memory"
	// Register store drivers
	_ "github.com/fedpact/fedpact-go/internal/store/loader"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: json or sqlite (overrides config)")
	storeDataDir := flag.String("store-data-dir", "", "Store data directory (overrides config)")
	cacheDriver := flag.String("cache-driver", "", "Cache driver (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off or static (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			StoreDriver:  storeDriver,
			StoreDataDir: storeDataDir,
			CacheDriver:  cacheDriver,
			TLSMode:      tlsMode,
			LoggingLevel: loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	// Document store
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store driver", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if err := driver.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name(), "data_dir", cfg.Store.DataDir)

	// Resolution-index cache
	cacheInstance, err := cache.NewFromConfig(cfg.Cache.Driver, cfg.Cache.Drivers)
	if err != nil {
		logger.Error("failed to create cache", "error", err)
		os.Exit(1)
	}
	defer cacheInstance.Close()

	// Item registry collaborator
	var itemRegistry registry.ItemRegistry
	if cfg.Registry.BaseURL != "" {
		itemRegistry = registry.NewClient(cfg.Registry.BaseURL, time.Duration(cfg.Registry.TimeoutMS)*time.Millisecond)
	} else {
		logger.Warn("no item registry configured, item ownership cannot be validated")
		itemRegistry = registry.NewMemoryRegistry()
	}

	// External sinks
	var gatewaySink sinks.GatewaySink
	if _, ok := cfg.Sinks["gateway"]; ok {
		gatewaySink, err = sinks.NewGatewaySink(cfg.Sinks["gateway"], logger)
		if err != nil {
			logger.Error("failed to create gateway sink", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no gateway sink configured, partner-change fan-out disabled")
		gatewaySink = sinks.NoopGatewaySink{}
	}
	ledgerSink, err := sinks.NewLedgerSink(cfg.Sinks["ledger"], logger)
	if err != nil {
		logger.Error("failed to create ledger sink", "error", err)
		os.Exit(1)
	}
	metricsSink, err := sinks.NewMetricsSink(cfg.Sinks["metrics"], logger)
	if err != nil {
		logger.Error("failed to create metrics sink", "error", err)
		os.Exit(1)
	}

	// Domain services and the coordinator
	orgs := organisations.New(driver, logger)
	cts := contracts.New(driver, itemRegistry, cacheInstance, logger)
	mailbox := notifications.NewMailbox(driver, logger)
	audits := audit.New(driver, logger)
	coord := coordinator.New(orgs, cts, mailbox, audits, gatewaySink, ledgerSink, metricsSink, logger)

	handler := api.NewHandler(coord, orgs, cts, mailbox, audits, logger)
	srv := server.New(cfg, handler, logger)

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
