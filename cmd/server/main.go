package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/tradecore/limit-order-engine-go/pkg/api"
	"github.com/tradecore/limit-order-engine-go/pkg/config"
	"github.com/tradecore/limit-order-engine-go/pkg/engine"
	"github.com/tradecore/limit-order-engine-go/pkg/log"
	"github.com/tradecore/limit-order-engine-go/pkg/store"
)

func main() {
	cfg, cfgErr := config.Load()
	logger := log.NewLogger(cfg)
	if cfgErr != nil {
		logger.Fatal().Err(cfgErr).Msg("config load failed")
	}

	shards := cfg.Engine.Shards
	if shards <= 0 {
		shards = runtime.NumCPU()
	}
	router := engine.NewRouter(shards, cfg.Engine.BufferSize)
	defer router.Stop()

	trades := store.NewTradeStore(cfg.Store.TradeHistory)
	server := api.NewServer(router, trades, logger)

	if cfg.Server.Pprof {
		go func() {
			logger.Info().Str("addr", cfg.Server.PprofAddr).Msg("pprof server starting")
			if err := http.ListenAndServe(cfg.Server.PprofAddr, nil); err != nil {
				logger.Error().Err(err).Msg("pprof listen error")
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Int("shards", shards).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	// Graceful shutdown on Ctrl+C
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
