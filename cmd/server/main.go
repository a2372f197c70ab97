package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/flavor-entertainers/booking-platform/internal/config"
	"github.com/flavor-entertainers/booking-platform/internal/database"
	"github.com/flavor-entertainers/booking-platform/internal/handler"
	"github.com/flavor-entertainers/booking-platform/internal/logging"
	"github.com/flavor-entertainers/booking-platform/internal/metrics"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/queue"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
	"github.com/flavor-entertainers/booking-platform/internal/router"
	"github.com/flavor-entertainers/booking-platform/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.Setup(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("db open failed", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migrations failed", logging.Err(err))
		os.Exit(1)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	performers := repository.NewPerformerRepo(db)
	services := repository.NewServiceRepo(db)
	bookings := repository.NewBookingRepo(db)
	dns := repository.NewDNSRepo(db)
	comms := repository.NewCommunicationRepo(db)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := users.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.BcryptCost)
		if err != nil {
			log.Error("admin seed failed", logging.Err(err))
			os.Exit(1)
		}
		if created {
			log.Info("admin account created", slog.String("email", cfg.Admin.Email))
		}
	}

	notifier := service.NewNotifier(service.NewMessenger(cfg.Notify, log), comms, cfg.Notify.AdminPhone, log)
	publisher := service.NewAMQPPublisher(cfg.Notify.AMQPURL, log)
	defer publisher.Close()

	var gateway service.CardGateway
	if cfg.Payments.StripeEnabled() {
		gateway = service.NewStripeGateway(cfg.Payments)
	}
	workflow := service.NewBookingService(bookings, services, performers, dns, cfg.Booking, log).
		WithEvents(publisher, notifier).
		WithPayments(cfg.Payments, gateway)

	consumer := queue.NewConsumer(cfg.Notify.AMQPURL, notifier.Handle, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("consumer stopped", logging.Err(err))
		}
	}()

	expiry, err := service.NewExpiryScheduler(cfg.Booking.ExpirySchedule, workflow, log)
	if err != nil {
		log.Error("expiry scheduler", logging.Err(err))
		os.Exit(1)
	}
	expiry.Start()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; cache disabled and rate limiting is per-process")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Instrument())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, cfg.JWTSecret))

	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Bookings: handler.NewBookingHandler(workflow),
		Catalog:  handler.NewCatalogHandler(performers, services),
		DNS:      handler.NewDNSHandler(dns),
		Comms:    handler.NewCommunicationHandler(comms, notifier, workflow),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
		Purge:     middleware.PurgeCache(cacheCfg, rdb),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logging.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", logging.Err(err))
	}
	expiry.Stop(shutdownCtx)
}
