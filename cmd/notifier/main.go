package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/config"
	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/notify"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	confirmed := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderConfirmed, workers, log)
	paymentStatus := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentStatus, workers, log)

	go func() {
		log.Info("notifier consumer started", zap.String("topic", orders.TopicOrderConfirmed))
		if err := confirmed.Start(ctx, svc.HandleOrderConfirmed); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		log.Info("notifier consumer started", zap.String("topic", orders.TopicPaymentStatus))
		if err := paymentStatus.Start(ctx, svc.HandlePaymentStatus); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down notifier...")
	cancel()
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
