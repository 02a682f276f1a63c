package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/olyamironova/trade-execution/internal/adapter/cache"
	"github.com/olyamironova/trade-execution/internal/adapter/in_memory"
	"github.com/olyamironova/trade-execution/internal/adapter/pg"
	httpapi "github.com/olyamironova/trade-execution/internal/api/http"
	"github.com/olyamironova/trade-execution/internal/config"
	"github.com/olyamironova/trade-execution/internal/core"
	"github.com/olyamironova/trade-execution/internal/logging"
	"github.com/olyamironova/trade-execution/internal/port"
)

// devTradeBuffer bounds the trades kept in memory when no redis is configured.
const devTradeBuffer = 256

func main() {
	envPath := flag.String("env", "", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	var repo port.Repository
	switch cfg.Store {
	case config.StorePostgres:
		pgRepo, err := pg.NewPgRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer pgRepo.Close()
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare schema", zap.Error(err))
		}
		repo = pgRepo
	default:
		logger.Warn("using in-memory store, state is lost on exit")
		repo = in_memory.NewMemoryRepo()
	}

	var (
		publisher port.Publisher
		latest    httpapi.LatestReader
	)
	if cfg.RedisAddr != "" {
		rp := cache.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TradeChannel, cfg.TradeTTL)
		defer rp.Close()
		if err := rp.Ping(ctx); err != nil {
			// Trades still settle; announcements fail until redis is back.
			logger.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		publisher, latest = rp, rp
	} else {
		mp := in_memory.NewBoundedPublisher(devTradeBuffer)
		publisher, latest = mp, mp
	}

	executor := core.NewExecutor(repo, publisher, logger)
	dispatcher := core.NewDispatcher(executor, cfg.DispatchQueue)

	server := httpapi.NewHTTPServer(dispatcher, repo, latest, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	// Queued executions finish before the store closes.
	dispatcher.Close()

	logger.Info("server stopped")
}
