package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/example/storefront-core/internal/config"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/infrastructure/store"
	"github.com/example/storefront-core/internal/reaper"
)

var sweeper *reaper.Sweeper

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Lambda Reaper] Invalid configuration: %v", err)
	}

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[Lambda Reaper] Failed to open store backend: %v", err)
	}

	ledger := inventory.NewLedger(backend)
	sweeper = reaper.NewSweeper(backend, ledger, nil).WithDeadline(cfg.AbandonAfter)

	log.Printf("[Lambda Reaper] Initialized (backend: %s, deadline: %s)", cfg.StoreBackend, cfg.AbandonAfter)
}

// handler runs one sweep per scheduled invocation. It always returns nil:
// a failed sweep is logged and retried on the next schedule, never surfaced
// as a platform-level crash.
func handler(ctx context.Context, event events.CloudWatchEvent) error {
	summary, err := sweeper.Run(ctx, time.Now())
	if err != nil {
		log.Printf("[Lambda Reaper] Sweep failed: %v", err)
		return nil
	}
	log.Printf("[Lambda Reaper] Sweep complete: scanned=%d cancelled=%d skipped=%d failed=%d",
		summary.Scanned, summary.Cancelled, summary.Skipped, summary.Failed)
	return nil
}

func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	if cfg.StoreBackend == "postgres" {
		db, err := store.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db), nil
	}
	return store.OpenDynamo(ctx, store.DynamoTables{
		Orders:   cfg.OrdersTable,
		Products: cfg.ProductTable,
		Cart:     cfg.CartTable,
		Users:    cfg.UsersTable,
	})
}

func main() {
	lambda.Start(handler)
}
