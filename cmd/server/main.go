package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/handler"
	"github.com/gatebit/p2ptrader/internal/infrastructure"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
	"github.com/gatebit/p2ptrader/internal/repository"
	"github.com/gatebit/p2ptrader/internal/server"
	"github.com/gatebit/p2ptrader/internal/service"
	"github.com/gatebit/p2ptrader/internal/service/ports"
	"github.com/gatebit/p2ptrader/internal/setup"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := infrastructure.InitLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("init snapshot store", zap.Error(err))
	}

	clk := clock.New()
	limiter := service.ProvideLimiter(cfg, clk)
	policy := service.ProvideRetryPolicy(clk, logger)

	gate := repository.NewGateClient(cfg, limiter, policy, logger)
	bybit := repository.NewBybitClient(cfg, limiter, policy, logger)

	pool, err := service.ProvideAccountPool(cfg, store, clk, logger)
	if err != nil {
		logger.Fatal("load account pool", zap.Error(err))
	}
	cache := service.ProvideTransactionCache(cfg, gate, clk, logger)
	trader := service.NewTraderService(cache, pool, gate, bybit, logger)

	router := server.NewRouter(cfg,
		handler.NewAccountHandler(pool),
		handler.NewTransactionHandler(cache, trader),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// buildStore opens only the backend the storage driver needs and verifies
// it is reachable before the pool loads from it.
func buildStore(ctx context.Context, cfg *config.Config) (ports.SnapshotStore, error) {
	switch cfg.Storage.Driver {
	case "file", "":
		if err := setup.EnsureSnapshotDir(cfg.Storage.Path); err != nil {
			return nil, err
		}
		return repository.NewFileSnapshotStore(cfg.Storage.Path), nil
	case "postgres":
		db, err := infrastructure.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := setup.PingPostgres(ctx, db); err != nil {
			return nil, err
		}
		store := repository.NewPostgresSnapshotStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		rdb := infrastructure.InitRedis(cfg)
		if err := setup.PingRedis(ctx, rdb); err != nil {
			return nil, err
		}
		return repository.NewRedisSnapshotStore(rdb), nil
	default:
		return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}
}
