package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/consumers"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/events"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/handler"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/notify"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/realtime"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/repository"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/auth"
	"github.com/kitchenbook/kitchenbook-backend/pkg/cache"
	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
)

const serviceName = "inventory-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.ApplySchema(ctx, repository.Schema); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	itemRepo := repository.NewItemRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// RabbitMQ is optional: without it events are dropped and contacts are
	// not synced, the rest of the service works unchanged.
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.InventoryEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewInventoryEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		userConsumer, err := consumers.NewUserEventConsumer(rmq, contactRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create user event consumer")
		}
		if err := userConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start user event consumer")
		}

		go rmq.Watch(ctx, func() error {
			if err := rmq.DeclareExchange(messaging.ExchangeInventoryEvents); err != nil {
				return err
			}
			return userConsumer.Start(ctx)
		})
	}

	// Redis is optional: without it dashboard stats are computed per request
	var statsCache *cache.Cache
	if cfg.Redis.Addr != "" {
		statsCache, err = cache.New(ctx, &cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer statsCache.Close()
	}
	stats := service.NewStatsCache(statsCache, cfg.Redis.StatsTTL, log)

	var mailer service.Mailer
	if cfg.Mail.Enabled {
		smtpMailer, err := notify.NewSMTPMailer(&cfg.Mail, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create mailer")
		}
		mailer = smtpMailer
	}

	hub := realtime.NewHub(cfg.Server.AllowedOrigins, log)
	defer hub.Close()

	alerts := service.NewAlertBridge(notificationRepo, publisher, hub, mailer, contactRepo, &cfg.Alerts, stats, log)
	recorder := service.NewRecorder(db, itemRepo, txRepo, supplierRepo, alerts, publisher, hub, stats, log)

	api := handler.Routes(handler.Services{
		Inventory:     service.NewInventoryService(recorder, categoryRepo, unitRepo, notificationRepo, log),
		Recorder:      recorder,
		History:       service.NewHistoryService(txRepo),
		References:    service.NewReferenceService(categoryRepo, supplierRepo, unitRepo, log),
		Notifications: service.NewNotificationService(notificationRepo, stats),
		Hub:           hub,
	}, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Total-Count"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(httputil.OwnerMiddleware(auth.NewVerifier(&cfg.Auth)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		if statsCache != nil {
			status["redis"] = statsCache.Health(r.Context())
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Mount("/api/v1/inventory", api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// Websocket pumps set their own deadlines after the upgrade
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consumers and the reconnect watcher
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let alert emails already handed off finish
	alerts.Wait()

	log.Info().Msg("server stopped")
}
