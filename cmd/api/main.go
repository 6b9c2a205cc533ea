package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainpay-gateway/config"
	httpAdapter "chainpay-gateway/internal/adapter/http"
	"chainpay-gateway/internal/adapter/http/handler"
	"chainpay-gateway/internal/adapter/ledger"
	"chainpay-gateway/internal/adapter/notify"
	pgStorage "chainpay-gateway/internal/adapter/storage/postgres"
	redisStorage "chainpay-gateway/internal/adapter/storage/redis"
	"chainpay-gateway/internal/service"
	"chainpay-gateway/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting ChainPay Gateway")

	ctx := context.Background()

	// Fee rates are decimal strings in config; a typo here must not
	// silently become a zero rate.
	paymentRate, err := decimal.NewFromString(cfg.Fees.PaymentRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fees.payment_rate")
	}
	withdrawalRate, err := decimal.NewFromString(cfg.Fees.WithdrawalRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fees.withdrawal_rate")
	}
	minimumUnit, err := decimal.NewFromString(cfg.Fees.MinimumUnit)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fees.minimum_unit")
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	intentRepo := pgStorage.NewPaymentIntentRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	feeRepo := pgStorage.NewFeeRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	timestampCache := redisStorage.NewTimestampCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Outbound adapters
	ledgerClient := ledger.NewClient(cfg.Ledger, log)
	notifier, err := notify.NewKafkaNotifier(cfg.Kafka, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Kafka")
	}
	defer notifier.Close()
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka producer ready")
	mailer := notify.NewMailSender(cfg.Mail, log)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT)
	feeCalc := service.NewFeeCalculator(minimumUnit)

	// Initialize business services
	authSvc := service.NewAuthService(merchantRepo, hashSvc, tokenSvc, log)
	handshakeSvc := service.NewHandshakeService(
		intentRepo,
		txRepo,
		feeRepo,
		merchantRepo,
		idempotencyCache,
		ledgerClient,
		transactor,
		feeCalc,
		paymentRate,
		cfg.Ledger.VerifyOnComplete,
		log,
	)
	withdrawalSvc := service.NewWithdrawalService(
		withdrawalRepo,
		merchantRepo,
		feeRepo,
		transactor,
		feeCalc,
		withdrawalRate,
		notifier,
		mailer,
		log,
	)
	reconSvc := service.NewLedgerSyncService(
		ledgerClient,
		timestampCache,
		cfg.Ledger.PageSize,
		cfg.Ledger.PageDelay,
		cfg.Ledger.TimestampCacheTTL,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthChecker(pool)
	redisHealth := redisStorage.NewHealthChecker(rdb)

	// Setup Gin router with all routes
	router := httpAdapter.NewRouter(cfg.Server, httpAdapter.RouterDeps{
		Auth:           handler.NewAuthHandler(authSvc),
		Payments:       handler.NewPaymentHandler(handshakeSvc, txRepo),
		Withdrawals:    handler.NewWithdrawalHandler(withdrawalSvc, withdrawalRepo),
		Ledger:         handler.NewLedgerHandler(reconSvc),
		Health:         handler.NewHealthHandler(pgHealth, redisHealth),
		Tokens:         tokenSvc,
		RateLimitStore: rateLimitStore,
		Log:            log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
