package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/catalog"
	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/httpapi"
	"github.com/sudo-init-do/taskmarket/internal/logger"
	"github.com/sudo-init-do/taskmarket/internal/seed"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := memory.New()
	acc, err := seed.Load(ctx, st, time.Now())
	if err != nil {
		logg.Fatal("seed", zap.Error(err))
	}
	agg := catalog.NewAggregator(st)
	if _, err := agg.RecomputeAll(ctx); err != nil {
		logg.Warn("initial recompute", zap.Error(err))
	}
	logg.Info("mock data loaded",
		zap.String("admin", acc.Admin.Email),
		zap.String("client", acc.Client.Email),
		zap.String("password", seed.DemoPassword),
	)

	e := httpapi.NewRouter(httpapi.Deps{
		Config:     cfg,
		Store:      st,
		Events:     events.LogPublisher{},
		Recomputer: catalog.SyncRecomputer{Aggregator: agg},
		Log:        logg,
	})

	go func() {
		logg.Info("mock server listening", zap.String("addr", cfg.Addr()))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
}
