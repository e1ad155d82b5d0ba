package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/storefront-core/internal/config"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/infrastructure/kafka"
	"github.com/example/storefront-core/internal/infrastructure/store"
	"github.com/example/storefront-core/internal/reaper"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Reaper] Invalid configuration: %v", err)
	}

	log.Println("[Reaper] ========================================")
	log.Println("[Reaper] Storefront Core - Abandoned Order Reaper")
	log.Println("[Reaper] ========================================")
	log.Printf("[Reaper] Store backend: %s", cfg.StoreBackend)
	log.Printf("[Reaper] Deadline: %s, interval: %s", cfg.AbandonAfter, cfg.ReaperInterval)

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("[Reaper] Failed to open store backend: %v", err)
	}
	defer closeBackend()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
	defer producer.Close()

	ledger := inventory.NewLedger(backend)
	sweeper := reaper.NewSweeper(backend, ledger, producer).WithDeadline(cfg.AbandonAfter)

	// Sweep immediately on startup, then on the fixed interval. A crashed or
	// delayed run costs nothing: eligible orders stay eligible until swept.
	runSweep(ctx, sweeper)

	ticker := time.NewTicker(cfg.ReaperInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, sweeper)
		case <-sigCh:
			log.Println("[Reaper] Shutting down...")
			cancel()
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper *reaper.Sweeper) {
	if _, err := sweeper.Run(ctx, time.Now()); err != nil {
		log.Printf("[Reaper] Sweep failed: %v", err)
	}
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
