package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avetkin/flighttracker/config"
	"github.com/avetkin/flighttracker/internal/email"
	"github.com/avetkin/flighttracker/internal/kafka"
	"github.com/joho/godotenv"
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
	if !cfg.Kafka.Enabled() {
		log.Fatal("worker requires kafka brokers to be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	if err := consumer.Consume(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
		return emailSender.Send(ctx, event)
	}); err != nil && ctx.Err() == nil {
		log.Printf("consumer stopped: %v", err)
	}
}
