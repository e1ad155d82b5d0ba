package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the binaries read from the environment. Secrets
// (JWT key, payment keys, SMTP password) have no defaults: they must be
// injected by the deployment, never committed.
type Config struct {
	HTTPAddr string

	// StoreBackend selects the persistence layer: "dynamo" or "postgres".
	StoreBackend string
	PostgresDSN  string
	OrdersTable  string
	ProductTable string
	CartTable    string
	UsersTable   string

	KafkaBrokers []string
	EventsTopic  string

	JWTSecret string

	ZaloPayAppID    int
	ZaloPayKey1     string
	ZaloPayKey2     string
	ZaloPayEndpoint string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	AssistantURL string

	ShippingFeeCents int64
	AbandonAfter     time.Duration
	ReaperInterval   time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		StoreBackend:     getenv("STORE_BACKEND", "dynamo"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		OrdersTable:      getenv("DYNAMO_ORDERS_TABLE", "orders"),
		ProductTable:     getenv("DYNAMO_PRODUCTS_TABLE", "products"),
		CartTable:        getenv("DYNAMO_CART_TABLE", "cart"),
		UsersTable:       getenv("DYNAMO_USERS_TABLE", "users"),
		KafkaBrokers:     splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		EventsTopic:      getenv("KAFKA_EVENTS_TOPIC", "order-events"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ZaloPayKey1:      os.Getenv("ZALOPAY_KEY1"),
		ZaloPayKey2:      os.Getenv("ZALOPAY_KEY2"),
		ZaloPayEndpoint:  getenv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getenv("SMTP_PORT", "587"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:         os.Getenv("SMTP_FROM"),
		AssistantURL:     os.Getenv("ASSISTANT_URL"),
	}

	var err error
	if cfg.ZaloPayAppID, err = intEnv("ZALOPAY_APP_ID", 0); err != nil {
		return Config{}, err
	}
	fee, err := intEnv("SHIPPING_FEE_CENTS", 100)
	if err != nil {
		return Config{}, err
	}
	cfg.ShippingFeeCents = int64(fee)
	if cfg.AbandonAfter, err = durEnv("ABANDON_AFTER", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ReaperInterval, err = durEnv("REAPER_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.StoreBackend != "dynamo" && cfg.StoreBackend != "postgres" {
		return Config{}, fmt.Errorf("STORE_BACKEND must be dynamo or postgres, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required when STORE_BACKEND=postgres")
	}
	return cfg, nil
}

// RequireJWT fails when the token signing secret is absent. Only the API
// binary needs it.
func (c Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// RequirePayment fails when the gateway credentials are absent.
func (c Config) RequirePayment() error {
	if c.ZaloPayAppID == 0 || c.ZaloPayKey1 == "" || c.ZaloPayKey2 == "" {
		return fmt.Errorf("ZALOPAY_APP_ID, ZALOPAY_KEY1 and ZALOPAY_KEY2 are required")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", k, v)
	}
	return n, nil
}

func durEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", k, v)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
