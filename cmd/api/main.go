package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/roamsim/esim-platform/reconcile-service/internal/client"
	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/db"
	"github.com/roamsim/esim-platform/reconcile-service/internal/deeplink"
	httpserver "github.com/roamsim/esim-platform/reconcile-service/internal/http"
	"github.com/roamsim/esim-platform/reconcile-service/internal/notify"
	"github.com/roamsim/esim-platform/reconcile-service/internal/reconcile"
	"github.com/roamsim/esim-platform/reconcile-service/internal/repository"
	"github.com/roamsim/esim-platform/reconcile-service/internal/store"
)

func main() {
	log.Println("Starting Reconcile Service...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	pool, err := db.NewPool(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize Redis-backed stores
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(rdb)
	pendingStore := store.NewPendingStore(kv)
	referralStore := store.NewReferralStore(kv)

	// Initialize repositories
	eventRepo := repository.NewEventRepository(pool)

	// Initialize clients
	orderClient := client.NewOrderClient(cfg.Backend.OrderServiceURL, cfg.InternalSecret)
	paymentClient := client.NewPaymentClient(cfg.Payment.GatewayURL, cfg.InternalSecret)

	// Initialize outcome publisher
	publisher, err := notify.NewOutcomePublisher(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	// Initialize reconciliation engine
	poller := reconcile.NewPoller(orderClient)

	orchestrator := reconcile.NewOrchestrator(
		paymentClient,
		pendingStore,
		referralStore,
		poller,
		eventRepo,
		publisher,
		cfg.Polling.Quick,
	)

	router := deeplink.NewRouter(
		orderClient,
		pendingStore,
		referralStore,
		poller,
		eventRepo,
		publisher,
		cfg.Polling.Resumption,
	)

	// Initialize HTTP server
	handler := httpserver.NewHandler(orchestrator, poller, router, orderClient, pendingStore, eventRepo, cfg.Polling)
	server := httpserver.NewServer(cfg, handler)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	log.Println("Server exited")
}
