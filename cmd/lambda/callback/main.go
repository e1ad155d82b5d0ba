package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/example/storefront-core/internal/config"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/infrastructure/store"
	"github.com/example/storefront-core/internal/payment"
)

var verifier *payment.Verifier

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Lambda Callback] Invalid configuration: %v", err)
	}
	if err := cfg.RequirePayment(); err != nil {
		log.Fatalf("[Lambda Callback] %v", err)
	}

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[Lambda Callback] Failed to open store backend: %v", err)
	}

	// No Kafka publisher in the lambda path: the long-running services own
	// notification fan-out; the callback lambda only applies the transition.
	orderSvc := order.NewService(backend, nil)
	verifier = payment.NewVerifier(cfg.ZaloPayKey2, orderSvc)

	log.Printf("[Lambda Callback] Initialized (backend: %s)", cfg.StoreBackend)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var cb payment.CallbackRequest
	if err := json.Unmarshal([]byte(req.Body), &cb); err != nil {
		return ackResponse(http.StatusBadRequest, payment.Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"})
	}

	status, ack := verifier.HandleCallback(ctx, cb)
	return ackResponse(status, ack)
}

func ackResponse(status int, ack payment.Ack) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(ack)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
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
