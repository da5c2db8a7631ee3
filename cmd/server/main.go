package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	rediscache "gift-roulette-backend/internal/cache/redis"
	"gift-roulette-backend/internal/common/config"
	"gift-roulette-backend/internal/common/logger"
	redisplatform "gift-roulette-backend/internal/platform/redis"
	"gift-roulette-backend/internal/service/ledger"
	"gift-roulette-backend/internal/service/purchase"
	"gift-roulette-backend/internal/storage/sqlite"
	botransport "gift-roulette-backend/internal/transport/bot"
	httptransport "gift-roulette-backend/internal/transport/http"
	"gift-roulette-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init("gift-roulette-backend", cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.SQLite.Path).Msg("failed to open ledger database")
	}
	defer store.Close()

	var cache ledger.Cache
	rdb, err := redisplatform.Open(ctx, redisplatform.Settings{
		Enabled:  cfg.Redis.Enabled,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
	}
	if rdb != nil {
		defer rdb.Close()
		cache = rediscache.NewLeaderboardCache(rdb, time.Duration(cfg.Redis.LeaderboardTTL)*time.Second)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("leaderboard cache enabled")
	}

	pool := worker.NewPool()
	defer pool.Close()

	tg, err := botransport.New(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create telegram bot")
	}

	ledgerSvc := ledger.New(store, cache, pool)
	purchaseSvc := purchase.New(tg.Gateway(), ledgerSvc, config.AllowedPrices)
	tg.Attach(purchaseSvc, ledgerSvc, cfg.Telegram.MiniAppURL, cfg.Telegram.MiniAppButton)

	handler := httptransport.NewHandler(
		cfg.Telegram.BotToken,
		time.Duration(cfg.InitDataMaxAgeSec)*time.Second,
		config.AllowedPrices,
		ledgerSvc,
		purchaseSvc,
	)
	router := httptransport.NewRouter(handler, cfg.Server.CORSAllowedOrigins)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("api server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api server failed")
		}
	}()

	go func() {
		logger.Info().Msg("telegram bot polling started")
		tg.Start(ctx)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown failed")
	}
}
