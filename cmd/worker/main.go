package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campusattend/internal/config"
	"campusattend/internal/logging"
	"campusattend/internal/notify"
	"campusattend/internal/queue"
	"campusattend/internal/store"
)

// Worker drains the scan-event queue and forwards each event to the
// portal's notification webhook. Delivery is at-most-once; the scan itself
// was already committed by the API.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logg.Closer()
	log := logg.Base

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campusattend:scans")
	}

	webhook := notify.New(cfg.NotifyURL, cfg.NotifySkip)
	if !cfg.NotifySkip {
		if err := webhook.Health(ctx); err != nil {
			log.Warn("notify webhook not reachable, will retry per event", zap.Error(err))
		} else {
			log.Info("notify webhook connected")
		}
	}

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("worker started, waiting for scan events")
	for evt := range events {
		if err := webhook.Deliver(ctx, evt); err != nil {
			log.Warn("delivery failed",
				zap.String("event_id", evt.EventID),
				zap.String("student_id", evt.StudentID),
				zap.Error(err))
			continue
		}
		log.Debug("scan event delivered",
			zap.String("event_id", evt.EventID),
			zap.String("student_id", evt.StudentID),
			zap.String("action", evt.Action))
	}

	log.Info("worker stopped")
}
