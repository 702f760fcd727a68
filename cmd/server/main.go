package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	engineAdapter "github.com/orfin/ledgerapi/internal/adapter/engine"
	httpAdapter "github.com/orfin/ledgerapi/internal/adapter/http"
	"github.com/orfin/ledgerapi/internal/adapter/http/handler"
	"github.com/orfin/ledgerapi/internal/adapter/http/middleware"
	postgresRepo "github.com/orfin/ledgerapi/internal/adapter/repository/postgres"
	redisRepo "github.com/orfin/ledgerapi/internal/adapter/repository/redis"
	"github.com/orfin/ledgerapi/internal/infrastructure/config"
	"github.com/orfin/ledgerapi/internal/infrastructure/logger"
	"github.com/orfin/ledgerapi/internal/infrastructure/metrics"
	"github.com/orfin/ledgerapi/internal/infrastructure/postgres"
	"github.com/orfin/ledgerapi/internal/infrastructure/redis"
	"github.com/orfin/ledgerapi/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "ledgerapi",
	})

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	engineClient := engineAdapter.NewClient(cfg.EngineURL, cfg.EngineTimeout, log, m)

	txManager := postgresRepo.NewTxManager(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	idempotencyRepo := postgresRepo.NewIdempotencyRepository(pool)
	retrier := postgresRepo.NewRetrier(log)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)

	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, accountRepo, txnRepo, engineClient, idGen, log, m)
	accountUC := usecase.NewAccountUseCase(ledgerRepo, accountRepo, engineClient, idGen, cache, cfg.BalanceCacheTTL, log, m)
	txnUC := usecase.NewTransactionUseCase(ledgerRepo, accountRepo, txnRepo, engineClient, idGen, accountUC, cfg.MaxTransactionEntries, log, m)
	runner := usecase.NewIdempotencyRunner(txManager, idempotencyRepo, retrier, log, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC, runner),
		AccountHandler:     handler.NewAccountHandler(accountUC, runner),
		TransactionHandler: handler.NewTransactionHandler(txnUC, runner),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		RateLimiter:        middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:             log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
