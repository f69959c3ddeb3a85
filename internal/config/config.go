// Package config loads the sniper configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCoinGeckoURL is the SOL/USD simple price endpoint.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

// Config holds all configuration values. It is immutable after Load.
type Config struct {
	// Solana RPC
	RPCEndpoint  string
	WSEndpoint   string
	HeliusAPIKey string
	RPCRateLimit float64 // requests per second, 0 = unlimited

	// Wallet
	BuyerKeypair string // base58 64-byte secret

	// Price
	CoinGeckoURL string
	PriceRefresh time.Duration
	PriceMaxAge  time.Duration

	// Trading
	SlippageBps     uint64
	BuyLamports     uint64
	MinMarketCapUSD float64

	// Windows
	CollectionWindow time.Duration
	MonitoringWindow time.Duration

	// Builder
	Simulate         bool
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	BuildWorkers     int

	// Monitor
	SessionInboxSize int

	// Journals and transport, empty means in-memory or disabled
	PostgresDSN   string
	ClickHouseDSN string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string

	// Ops
	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables with fallback to the
// given .env files (".env" when none). Missing files are ignored.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}

	rpc := getEnv("RPC_ENDPOINT", getEnv("HELIUS_ENDPOINT", ""))

	cfg := &Config{
		RPCEndpoint:  rpc,
		WSEndpoint:   getEnv("WS_ENDPOINT", ""),
		HeliusAPIKey: getEnv("HELIUS_API_KEY", ""),
		RPCRateLimit: getEnvFloat("RPC_RATE_LIMIT", 10),

		BuyerKeypair: getEnv("BUYER_KEYPAIR", ""),

		CoinGeckoURL: getEnv("COINGECKO_URL", DefaultCoinGeckoURL),
		PriceRefresh: time.Duration(getEnvInt("PRICE_REFRESH_SECS", 30)) * time.Second,
		PriceMaxAge:  time.Duration(getEnvInt("PRICE_MAX_AGE_SECS", 60)) * time.Second,

		SlippageBps:     getEnvUint("SLIPPAGE_BPS", 500),
		BuyLamports:     getEnvUint("BUY_LAMPORTS", 100_000_000),
		MinMarketCapUSD: getEnvFloat("MIN_MARKET_CAP_USD", 8000),

		CollectionWindow: time.Duration(getEnvInt("COLLECTION_WINDOW_SECS", 30)) * time.Second,
		MonitoringWindow: time.Duration(getEnvInt("MONITORING_WINDOW_SECS", 40)) * time.Second,

		Simulate:         getEnvBool("SIMULATE", true),
		ComputeUnitLimit: uint32(getEnvUint("COMPUTE_UNIT_LIMIT", 0)),
		ComputeUnitPrice: getEnvUint("COMPUTE_UNIT_PRICE", 0),
		BuildWorkers:     getEnvInt("BUILD_WORKERS", 4),

		SessionInboxSize: getEnvInt("SESSION_INBOX_SIZE", 64),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "pump-sniper.buys"),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

// Validate checks everything the sniper needs to run.
func (c *Config) Validate() error {
	if err := c.ValidateRPC(); err != nil {
		return err
	}
	if c.BuyerKeypair == "" {
		return fmt.Errorf("BUYER_KEYPAIR is required")
	}
	if c.SlippageBps > 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be between 0 and 10000")
	}
	if c.BuyLamports == 0 {
		return fmt.Errorf("BUY_LAMPORTS must be positive")
	}
	if c.MinMarketCapUSD <= 0 {
		return fmt.Errorf("MIN_MARKET_CAP_USD must be positive")
	}
	if c.CollectionWindow <= 0 {
		return fmt.Errorf("COLLECTION_WINDOW_SECS must be positive")
	}
	if c.MonitoringWindow <= 0 {
		return fmt.Errorf("MONITORING_WINDOW_SECS must be positive")
	}
	if c.PriceRefresh <= 0 || c.PriceMaxAge <= 0 {
		return fmt.Errorf("PRICE_REFRESH_SECS and PRICE_MAX_AGE_SECS must be positive")
	}
	if c.SessionInboxSize < 1 {
		return fmt.Errorf("SESSION_INBOX_SIZE must be at least 1")
	}
	if c.BuildWorkers < 1 {
		return fmt.Errorf("BUILD_WORKERS must be at least 1")
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative")
	}
	return nil
}

// ValidateRPC checks the endpoints needed by read-only tools.
func (c *Config) ValidateRPC() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("RPC_ENDPOINT is required")
	}
	u, err := url.Parse(c.RPCEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("RPC_ENDPOINT must be an http(s) URL")
	}
	return nil
}

// RPCURL returns the HTTP endpoint with the API key applied.
func (c *Config) RPCURL() string {
	return withAPIKey(c.RPCEndpoint, c.HeliusAPIKey)
}

// WSURL returns the WebSocket endpoint, derived from the RPC endpoint when unset.
func (c *Config) WSURL() string {
	ws := c.WSEndpoint
	if ws == "" {
		switch {
		case strings.HasPrefix(c.RPCEndpoint, "https://"):
			ws = "wss://" + strings.TrimPrefix(c.RPCEndpoint, "https://")
		case strings.HasPrefix(c.RPCEndpoint, "http://"):
			ws = "ws://" + strings.TrimPrefix(c.RPCEndpoint, "http://")
		default:
			ws = c.RPCEndpoint
		}
	}
	return withAPIKey(ws, c.HeliusAPIKey)
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rpc=%s ws=%s helius_api_key=%s buyer_keypair=%s ",
		maskURL(c.RPCEndpoint), maskURL(c.WSEndpoint), maskSecret(c.HeliusAPIKey), maskSecret(c.BuyerKeypair))
	fmt.Fprintf(&b, "slippage_bps=%d buy_lamports=%d min_market_cap_usd=%.2f ",
		c.SlippageBps, c.BuyLamports, c.MinMarketCapUSD)
	fmt.Fprintf(&b, "collection_window=%s monitoring_window=%s simulate=%t ",
		c.CollectionWindow, c.MonitoringWindow, c.Simulate)
	fmt.Fprintf(&b, "postgres=%s clickhouse=%s redis=%s kafka=%v",
		maskURL(c.PostgresDSN), maskURL(c.ClickHouseDSN), maskURL(c.RedisURL), c.KafkaBrokers)
	return b.String()
}

func withAPIKey(endpoint, key string) string {
	if key == "" || endpoint == "" {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Get("api-key") != "" {
		return endpoint
	}
	q.Set("api-key", key)
	u.RawQuery = q.Encode()
	return u.String()
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// maskURL hides the password and api-key query parameter of a URL.
func maskURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	q := u.Query()
	if key := q.Get("api-key"); key != "" {
		q.Set("api-key", maskSecret(key))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
