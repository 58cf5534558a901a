package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/notify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.NotificationsTopic == "" {
		logg.Fatal("worker requires kafka.brokers and kafka.notifications_topic")
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		logg.Fatal("resolve booking timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	notifier := notify.NewNotifier(notify.NewLogSender(logg.Named("sender")), loc, logg.Named("notify"))

	logg.Info("worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	if err := consumer.Consume(ctx, notifier.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("consumer stopped", zap.Error(err))
		return
	}
	logg.Info("worker stopped")
}
