package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/catalog"
	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/db"
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

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logg.Fatal("redis", zap.Error(err))
	}

	agg := catalog.NewAggregator(postgres.New(pool))
	proc := worker.NewProcessor(agg, worker.NewRedisLock(rdb), cfg.Aggregator.LockTTL)

	opt := worker.RedisOpt(cfg.Redis)
	srv := worker.NewServer(opt, cfg.Aggregator.Concurrency)
	sched, err := worker.NewScheduler(opt, cfg.Aggregator.Interval)
	if err != nil {
		logg.Fatal("scheduler", zap.Error(err))
	}

	if err := srv.Start(proc.Mux()); err != nil {
		logg.Fatal("asynq server", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		logg.Fatal("asynq scheduler", zap.Error(err))
	}
	logg.Info("worker started", zap.String("redis", cfg.Redis.Addr), zap.String("interval", cfg.Aggregator.Interval))

	<-ctx.Done()
	sched.Shutdown()
	srv.Shutdown()
	logg.Info("worker stopped")
}
