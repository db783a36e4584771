// Package config resolves the gateway configuration from the environment.
// All selection decisions (which storage backend, whether the ledger client
// is enabled) are made once here at startup; nothing downstream branches on
// raw environment state.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the gateway reads.
type Config struct {
	Port string

	// DatabaseURL selects the Postgres store when non-empty; otherwise the
	// gateway runs on the in-memory store for its whole lifetime.
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// RateLimitRPS throttles each caller; zero disables throttling.
	RateLimitRPS   int
	RateLimitBurst int

	Ledger LedgerConfig
	Oracle OracleConfig
}

// LedgerConfig identifies the ledger node and the operator identity.
type LedgerConfig struct {
	RPCURL      string
	OperatorID  string
	OperatorKey string
	Timeout     time.Duration
}

// Enabled reports whether the gateway holds a complete operator identity.
func (c LedgerConfig) Enabled() bool {
	return c.RPCURL != "" && c.OperatorID != "" && c.OperatorKey != ""
}

// OracleConfig identifies the external price oracle and the tracked assets.
type OracleConfig struct {
	URL             string
	APIKey          string
	RefreshInterval time.Duration
	TrackedAssets   []string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),

		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 100),

		Ledger: LedgerConfig{
			RPCURL:      getEnv("LEDGER_RPC_URL", ""),
			OperatorID:  getEnv("LEDGER_OPERATOR_ID", ""),
			OperatorKey: getEnv("LEDGER_OPERATOR_KEY", ""),
			Timeout:     getEnvDuration("LEDGER_TIMEOUT", 30*time.Second),
		},
		Oracle: OracleConfig{
			URL:             getEnv("ORACLE_URL", "https://api.coingecko.com/api/v3"),
			APIKey:          getEnv("ORACLE_API_KEY", ""),
			RefreshInterval: getEnvDuration("PRICE_REFRESH_INTERVAL", 5*time.Minute),
			TrackedAssets:   getEnvList("TRACKED_ASSETS", []string{"hedera-hashgraph", "bitcoin", "ethereum"}),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
