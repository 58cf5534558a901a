package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/bootstrap"
	"github.com/Domenick1991/barberbooking/internal/cache"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/Domenick1991/barberbooking/internal/session"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Booking.Location()
	if err != nil {
		logg.Fatal("resolve booking timezone", zap.Error(err))
	}

	var (
		store       session.TokenStore
		redisCache  *cache.RedisCache
		bookingOpts []reservation.BookingsOption
	)
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		redisCache = cache.NewRedisCache(cfg.Redis, cfg.Session.StorageKey, cfg.Booking.BookingsCacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logg.Fatal("connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store = redisCache
		bookingOpts = append(bookingOpts, reservation.WithBookingsCache(redisCache))
	default:
		store = cache.NewFileTokenStore(cfg.Session.FilePath, cfg.Session.StorageKey)
	}

	manager := session.NewManager(store,
		session.WithLogger(logg.Named("session")),
		session.WithTokenParam(cfg.Auth.TokenParam),
	)
	startURL := &url.URL{Path: "/"}
	if raw := os.Getenv("START_URL"); raw != "" {
		if parsed, err := url.Parse(raw); err == nil {
			startURL = parsed
		}
	}
	manager.Initialize(ctx, startURL)
	logg.Info("session restored", zap.String("state", string(manager.State())))

	client, err := bookingapi.New(cfg.API.BaseURL, cfg.API.Timeout(),
		bookingapi.WithLogger(logg.Named("bookingapi")),
		bookingapi.WithLocation(loc),
	)
	if err != nil {
		logg.Fatal("init booking api client", zap.Error(err))
	}

	coordinatorOpts := []reservation.CoordinatorOption{
		reservation.WithLocation(loc),
		reservation.WithLogger(logg.Named("reservation")),
	}
	bookingOpts = append(bookingOpts, reservation.WithBookingsLogger(logg.Named("bookings")))

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logg.Named("kafka"))
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logg.Warn("kafka unavailable, booking events may be lost", zap.Error(err))
		}
		coordinatorOpts = append(coordinatorOpts,
			reservation.WithEvents(producer, cfg.Kafka.BookingEventsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
		bookingOpts = append(bookingOpts,
			reservation.WithBookingsEvents(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic),
		)
	}

	bookings := reservation.NewBookings(client, manager, bookingOpts...)
	coordinatorOpts = append(coordinatorOpts, reservation.WithInvalidator(bookings))
	dialogs := reservation.NewRegistry(client, manager, coordinatorOpts...)

	if err := bootstrap.Run(ctx, cfg, bootstrap.Deps{
		Sessions: manager,
		Dialogs:  dialogs,
		Bookings: bookings,
		Location: loc,
		Logger:   logg.Named("http"),
	}); err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
}
