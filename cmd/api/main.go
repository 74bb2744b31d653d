package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecash-billing-engine/config"
	httpHandler "ecash-billing-engine/internal/adapter/http/handler"
	"ecash-billing-engine/internal/adapter/http/middleware"
	"ecash-billing-engine/internal/adapter/mint"
	"ecash-billing-engine/internal/adapter/provider"
	pgStorage "ecash-billing-engine/internal/adapter/storage/postgres"
	redisStorage "ecash-billing-engine/internal/adapter/storage/redis"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/internal/service"
	"ecash-billing-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("unit", cfg.Mint.Unit).
		Msg("Starting Ecash Billing Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Remote collaborators
	mintClient := mint.NewClient(nil, mint.Config{Unit: cfg.Mint.Unit, Timeout: cfg.Mint.RequestTimeout}, log)
	providerClient := provider.NewClient(nil, provider.Config{
		RefundPath: cfg.Provider.RefundPath,
		Timeout:    cfg.Provider.RequestTimeout,
	}, log)

	stores := func(owner string) service.Stores {
		return service.Stores{
			Proofs:   pgStorage.NewProofRepo(pool, owner),
			Invoices: pgStorage.NewInvoiceRepo(pool, owner),
			History:  pgStorage.NewHistoryRepo(pool, owner),
			Wallets:  pgStorage.NewWalletRepo(pool, owner),
			Tokens:   redisStorage.NewTokenCache(rdb, owner),
		}
	}

	auditSvc := service.NewAuditService(pgStorage.NewAuditRepo(pool), log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	sessions := service.NewSessionManager(sessionConfig(cfg), service.SessionDeps{
		Stores:   stores,
		Mint:     mintClient,
		Provider: providerClient,
		Locker:   redisStorage.NewCheckLocker(rdb),
		Backup:   redisStorage.NewBackupChannel(rdb),
		Audit:    auditSvc,
		Tokens:   tokenSvc,
	}, log)

	docs, err := httpHandler.LoadAPIDocs(cfg.Server.OpenAPIPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Server.OpenAPIPath).Msg("OpenAPI document unavailable, /swagger serves the UI only")
	} else {
		log.Info().Msg("OpenAPI document loaded for Swagger UI at /swagger")
	}

	var limiter *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		limiter = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Sessions:       sessions,
		TokenSvc:       tokenSvc,
		RateLimitStore: limiter,
		RateLimits:     middleware.RateLimitRules(cfg.RateLimit.Window, cfg.RateLimit.Limits),
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		},
		AuditSvc:         auditSvc,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		ChatMaxBodyBytes: cfg.Server.ChatMaxBodyBytes,
		Docs:             docs,
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Stops invoice polling and flushes pending backup writes.
	sessions.Close(shutdownCtx)
	auditSvc.Close(shutdownCtx)

	log.Info().Msg("Server exited")
}

func sessionConfig(cfg *config.Config) service.SessionConfig {
	tolerance := make(map[string]decimal.Decimal, len(cfg.Billing.OverchargeTolerance))
	for unit, v := range cfg.Billing.OverchargeTolerance {
		tolerance[unit] = decimal.NewFromFloat(v)
	}

	return service.SessionConfig{
		Wallet: service.WalletConfig{
			Unit:        cfg.Mint.Unit,
			DefaultMint: cfg.Mint.DefaultURL(),
		},
		MaxFeeIterations: cfg.Selector.MaxFeeIterations,
		MaxDPAmount:      cfg.Selector.MaxDPAmount,
		Invoice: service.InvoiceConfig{
			PollInterval:     cfg.Invoice.PollInterval,
			FastPollInterval: cfg.Invoice.FastPollInterval,
			MaxBackoff:       cfg.Invoice.MaxBackoff,
			CheckLockTTL:     cfg.Invoice.CheckLockTTL,
			CleanupInterval:  cfg.Invoice.CleanupInterval,
			RecoveryWorkers:  cfg.Invoice.RecoveryWorkers,
			Retention: domain.Retention{
				Issued: cfg.Invoice.RetainIssued,
				Paid:   cfg.Invoice.RetainPaid,
				Other:  cfg.Invoice.RetainOther,
			},
		},
		Billing: service.BillingConfig{
			DefaultMaxCost: cfg.Billing.DefaultMaxCost,
			RefundTimeout:  cfg.Billing.RefundTimeout,
			AllocationTTL:  cfg.Billing.AllocationTTL,
			PricingTTL:     cfg.Billing.PricingTTL,
			Tolerance:      tolerance,
			Retry:          service.NewBoundedRetry(cfg.Billing.RetryAttempts),
		},
		Backup:        service.BackupConfig{Debounce: cfg.Backup.Debounce},
		BackupEnabled: cfg.Backup.Enabled,
		EventBuffer:   64,
	}
}
