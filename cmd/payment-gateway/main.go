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
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-payments/internal/api"
	"ms-payments/internal/auth"
	"ms-payments/internal/conekta"
	"ms-payments/internal/config"
	"ms-payments/internal/kafka"
	"ms-payments/internal/logger"
	"ms-payments/internal/orchestrator"
	"ms-payments/internal/reconciler"
	"ms-payments/internal/store"
	"ms-payments/internal/ticketing"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Postgres journal ---
	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("STORE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
			log.Fatal("STORE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	// --- Kafka ---
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka, log); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Topic bootstrap failed, continuing: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka, log)
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, payment events will not be published")
	}

	// --- External clients ---
	gatewayHTTP := &http.Client{Timeout: cfg.Conekta.Timeout}
	ticketingHTTP := &http.Client{Timeout: cfg.Ticketing.Timeout}

	tokenSource := auth.NewSource(cfg.Auth, ticketingHTTP, auth.NewRedisTokenCache(redisClient), log)
	ticketingClient := ticketing.NewClient(cfg.Ticketing.BaseURL, ticketingHTTP, tokenSource, log)
	gateway := conekta.NewClient(cfg.Conekta.BaseURL, cfg.Conekta.APIKey, gatewayHTTP, log)

	if cfg.Conekta.WebhookSecret == "" {
		log.LogSecurity("WEBHOOK_VERIFY_DISABLED", "CONEKTA_WEBHOOK_KEY not set, webhook signatures will not be checked")
	}

	// --- Services ---
	pending := orchestrator.NewRedisPendingTracker(redisClient)
	guard := reconciler.NewRedisIdempotencyGuard(redisClient)

	var checkoutEvents orchestrator.EventPublisher
	var paymentEvents reconciler.EventPublisher
	if producer != nil {
		checkoutEvents = producer
		paymentEvents = producer
	}

	checkout := orchestrator.NewService(ticketingClient, gateway, checkoutEvents, pending, db, cfg.App, log)
	recon := reconciler.NewService(ticketingClient, guard, paymentEvents, pending, db, log)
	sweeper := orchestrator.NewSweeper(ticketingClient, gateway, pending, db, cfg.App, log)

	go sweeper.Run(ctx)

	// --- Router ---
	handler := api.NewHandler(checkout, recon, gateway, cfg.Conekta.WebhookSecret, log)

	r := chi.NewRouter()

	if cfg.Auth.OIDCIssuer != "" {
		identity, err := auth.OptionalIdentity(cfg.Auth.OIDCIssuer, log)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
		}
		r.Use(identity)
	}

	handler.Routes(r)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.HealthCheck(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- HTTP server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Payment gateway running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
