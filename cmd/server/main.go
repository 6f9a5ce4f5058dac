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

	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/db"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/httpapi"
	"github.com/sudo-init-do/taskmarket/internal/logger"
	"github.com/sudo-init-do/taskmarket/internal/store/postgres"
	"github.com/sudo-init-do/taskmarket/internal/worker"
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

	// Initialize database connection
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	var pub events.Publisher = events.LogPublisher{}
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		kp, err := events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		if err != nil {
			logg.Fatal("kafka", zap.Error(err))
		}
		defer kp.Close()
		pub = kp
		logg.Info("publishing events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	enq := worker.NewEnqueuer(worker.RedisOpt(cfg.Redis))
	defer enq.Close()

	e := httpapi.NewRouter(httpapi.Deps{
		Config:     cfg,
		Store:      postgres.New(pool),
		Events:     pub,
		Recomputer: enq,
		Log:        logg,
	})

	go func() {
		logg.Info("server listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.App.Env))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}
