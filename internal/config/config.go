package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vaultfolio/vaultfolio/internal/domain"
)

// WorkspaceConfig holds the raw credential material for one custody workspace.
// Values are resolved workspace-specific first (e.g. CUSTODY_API_KEY_SECONDARY),
// then from the base variable (CUSTODY_API_KEY).
type WorkspaceConfig struct {
	ID            domain.Workspace
	APIKey        string
	PrivateKeyPEM string
	PrivateKeyB64 string
	BaseURL       string
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	MarketDataURL        string
	HTTPPort             string
	AdminAPIKey          string
	PriceRefreshInterval time.Duration
	FetchConcurrency     int
	LinkCodeTTL          time.Duration
	Workspaces           []WorkspaceConfig
}

// Load reads configuration from environment variables with sensible defaults.
// Credentials for every known workspace are enumerated here; a workspace with
// missing material is resolved as disabled later, not dropped.
func Load() Config {
	cfg := Config{
		DatabaseURL:          envOrDefaultWarn("DATABASE_URL", ""),
		MarketDataURL:        envOrDefault("MARKET_DATA_URL", "https://api.coingecko.com/api/v3"),
		HTTPPort:             envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:          envOrDefault("ADMIN_API_KEY", ""),
		PriceRefreshInterval: envOrDefaultDuration("PRICE_REFRESH_INTERVAL", 5*time.Minute),
		FetchConcurrency:     envOrDefaultInt("FETCH_CONCURRENCY", 4),
		LinkCodeTTL:          envOrDefaultDuration("LINK_CODE_TTL", 24*time.Hour),
	}

	for _, ws := range domain.Workspaces {
		cfg.Workspaces = append(cfg.Workspaces, WorkspaceConfig{
			ID:            ws,
			APIKey:        envForWorkspace("CUSTODY_API_KEY", ws),
			PrivateKeyPEM: envForWorkspace("CUSTODY_PRIVATE_KEY", ws),
			PrivateKeyB64: envForWorkspace("CUSTODY_PRIVATE_KEY_B64", ws),
			BaseURL:       envForWorkspaceDefault("CUSTODY_URL", ws, "https://api.fireblocks.io"),
		})
	}

	return cfg
}

// envForWorkspace resolves KEY_<WORKSPACE> first, then KEY.
func envForWorkspace(key string, ws domain.Workspace) string {
	if v := os.Getenv(key + "_" + strings.ToUpper(string(ws))); v != "" {
		return v
	}
	return os.Getenv(key)
}

func envForWorkspaceDefault(key string, ws domain.Workspace, defaultVal string) string {
	if v := envForWorkspace(key, ws); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
