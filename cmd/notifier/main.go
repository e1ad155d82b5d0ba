package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/storefront-core/internal/config"
	"github.com/example/storefront-core/internal/email"
	"github.com/example/storefront-core/internal/infrastructure/kafka"
	"github.com/example/storefront-core/internal/infrastructure/store"
	"github.com/example/storefront-core/internal/notification"
)

const consumerGroup = "email-notifier"

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Storefront Core - Email Notification Service")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Notifier] Topic: %s", cfg.EventsTopic)
	log.Printf("[Notifier] Group: %s", consumerGroup)
	log.Printf("[Notifier] SMTP: %s:%s", cfg.SMTPHost, cfg.SMTPPort)

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("[Notifier] Failed to open store backend: %v", err)
	}
	defer closeBackend()

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, backend)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.EventsTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Notifier] Starting event consumer...")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil {
			if ctx.Err() == nil {
				log.Printf("[Notifier] Consumer error: %v", err)
			}
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Notifier] Shutting down...")
	cancel()
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
	return ds, func() {}, nil
}
