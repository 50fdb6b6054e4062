package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avetkin/flighttracker/config"
	"github.com/avetkin/flighttracker/internal/bootstrap"
	"github.com/avetkin/flighttracker/internal/cache"
	"github.com/avetkin/flighttracker/internal/kafka"
	"github.com/avetkin/flighttracker/internal/payment"
	"github.com/avetkin/flighttracker/internal/repository"
	"github.com/avetkin/flighttracker/internal/service/booking"
	"github.com/avetkin/flighttracker/internal/service/flights"
	"github.com/avetkin/flighttracker/internal/service/session"
	"github.com/jackc/pgx/v5/pgxpool"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flightsTTL := time.Duration(cfg.Booking.FlightsCacheTTL) * time.Second

	var flightRepo repository.FlightRepository
	var archive repository.BookingArchive
	if cfg.Database.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		flightRepo = repository.NewFlightRepository(pool)
		archive = repository.NewBookingArchive(pool)
	} else {
		log.Printf("no database configured, serving the demo inventory")
		flightRepo = repository.NewMemFlightRepository()
	}

	var flightCache flights.FlightCache
	var blobs session.BlobStore
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, flightsTTL)
		flightCache = redisCache
		blobs = redisCache
	} else {
		blobs = cache.NewMemoryStore()
	}

	sessionService, err := session.NewSessionService(ctx, blobs)
	if err != nil {
		log.Fatalf("load session state: %v", err)
	}

	gatewayOpts := []payment.SandboxOption{}
	if cfg.Payment.SandboxLatency > 0 {
		gatewayOpts = append(gatewayOpts, payment.WithLatency(time.Duration(cfg.Payment.SandboxLatency)*time.Millisecond))
	}
	gateway := payment.NewSandbox(gatewayOpts...)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithRecorder(sessionService),
	}
	if archive != nil {
		bookingOpts = append(bookingOpts, booking.WithArchive(archive))
	}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}
	if checkout := checkoutConfig(cfg.Payment); checkout != nil {
		bookingOpts = append(bookingOpts, booking.WithCheckoutConfig(*checkout))
	}
	if cfg.Payment.CheckoutTimeout > 0 {
		bookingOpts = append(bookingOpts, booking.WithCheckoutTimeout(time.Duration(cfg.Payment.CheckoutTimeout)*time.Second))
	}

	flightService := flights.NewFlightService(flightRepo, flightCache)
	bookingService := booking.NewBookingService(flightService, gateway, bookingOpts...)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService, sessionService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// checkoutConfig returns nil when nothing is configured so the built-in
// sandbox defaults apply.
func checkoutConfig(p config.PaymentConfig) *booking.CheckoutConfig {
	if p.Key == "" {
		return nil
	}
	return &booking.CheckoutConfig{
		Key:          p.Key,
		Currency:     p.Currency,
		MerchantName: p.MerchantName,
		Image:        p.Image,
		ThemeColor:   p.ThemeColor,
		RetryMax:     p.RetryMax,
	}
}
