package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/metering/internal/alert"
	"github.com/edvin/metering/internal/api"
	"github.com/edvin/metering/internal/billing"
	"github.com/edvin/metering/internal/config"
	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/db"
	"github.com/edvin/metering/internal/logging"
	"github.com/edvin/metering/internal/meter"
	"github.com/edvin/metering/internal/metrics"
	"github.com/edvin/metering/internal/objectstore"
	"github.com/edvin/metering/internal/scheduler"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("metering-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	services := core.NewServices(pool)

	store := objectstore.NewClient(logger, objectstore.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	adapter := objectstore.NewTenantAdapter(logger, store)

	quotaEngine := alert.NewEngine(logger, services.Tenant, services.Notification, cfg.QuotaAlertDedupWindow)

	collector := meter.NewCollector(logger, services.Tenant, services.Bucket, services.UsageRecord,
		adapter, meter.StorageHeuristicEstimator{}, quotaEngine)
	collector.TenantTimeout = cfg.TenantTimeout
	collector.Parallelism = cfg.CollectParallelism

	billingEngine := billing.NewEngine(logger, services.Tenant, services.UsageRecord,
		services.Invoice, services.Notification, billing.Pricing{
			StoragePerGBCents:   cfg.StoragePricePerGBCents,
			BandwidthPerGBCents: cfg.BandwidthPricePerGBCents,
			RequestsPer1KCents:  cfg.RequestsPricePer1KCents,
			MinimumMonthlyCents: cfg.MinimumMonthlyCents,
			TaxPercent:          cfg.TaxPercent,
		})
	billingEngine.NotifyDedupWindow = cfg.BillingAlertDedupWindow

	sched := scheduler.New(logger, collector, billingEngine)
	sched.CollectInterval = cfg.CollectInterval
	sched.BillingInterval = cfg.BillingInterval
	sched.InitialDelay = cfg.InitialCollectDelay
	go sched.Run(ctx)

	srv := api.NewServer(logger, pool, adapter, collector, billingEngine, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting metering API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: metering-api create-api-key --name <name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key - it will not be shown again.\n")
}
