package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/storefront-core/internal/api"
	"github.com/example/storefront-core/internal/assistant"
	"github.com/example/storefront-core/internal/auth"
	"github.com/example/storefront-core/internal/checkout"
	"github.com/example/storefront-core/internal/config"
	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
	"github.com/example/storefront-core/internal/infrastructure/kafka"
	"github.com/example/storefront-core/internal/infrastructure/store"
	"github.com/example/storefront-core/internal/payment"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}
	if err := cfg.RequireJWT(); err != nil {
		log.Fatalf("[API] %v", err)
	}
	if err := cfg.RequirePayment(); err != nil {
		log.Fatalf("[API] %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Storefront Core - API")
	log.Println("[API] ========================================")
	log.Printf("[API] Store backend: %s", cfg.StoreBackend)
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.EventsTopic)

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to open store backend: %v", err)
	}
	defer closeBackend()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
	defer producer.Close()

	// Domain services
	ledger := inventory.NewLedger(backend)
	cartSvc := cart.NewService(backend, ledger)
	orderSvc := order.NewService(backend, producer)
	userSvc := user.NewService(backend)

	jwtService := auth.NewJWTService(
		cfg.JWTSecret,
		15*time.Minute, // Access token expiry
		7*24*time.Hour, // Refresh token expiry (7 days)
	)

	gateway := payment.NewClient(payment.Config{
		AppID:    cfg.ZaloPayAppID,
		Key1:     cfg.ZaloPayKey1,
		Key2:     cfg.ZaloPayKey2,
		Endpoint: cfg.ZaloPayEndpoint,
	})
	verifier := payment.NewVerifier(cfg.ZaloPayKey2, orderSvc)
	orchestrator := checkout.NewOrchestrator(backend, backend, ledger, userSvc, gateway, producer, cfg.ShippingFeeCents)

	var assistantClient *assistant.Client
	if cfg.AssistantURL != "" {
		assistantClient = assistant.NewClient(cfg.AssistantURL)
	}

	handlers := api.NewHandlers(ledger, cartSvc, orderSvc, orchestrator, verifier, assistantClient)
	authHandlers := api.NewAuthHandlers(userSvc, jwtService)
	router := api.NewRouter(handlers, authHandlers, jwtService)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.Config) (store.Backend, func(), error) {
	if cfg.StoreBackend == "postgres" {
		db, err := store.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		ps := store.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("[API] Connected to PostgreSQL")
		return ps, func() { db.Close() }, nil
	}

	ds, err := store.OpenDynamo(ctx, store.DynamoTables{
		Orders:   cfg.OrdersTable,
		Products: cfg.ProductTable,
		Cart:     cfg.CartTable,
		Users:    cfg.UsersTable,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Println("[API] Connected to DynamoDB")
	return ds, func() {}, nil
}
