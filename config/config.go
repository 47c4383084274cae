package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HyperliquidConfig HyperliquidConfig `json:"hyperliquid"`
	RiskSyncConfig    RiskSyncConfig    `json:"risk_sync"`
	PriceFeedConfig   PriceFeedConfig   `json:"price_feed"`
	AuditConfig       AuditConfig       `json:"audit"`
	LoggingConfig     LoggingConfig     `json:"logging"`
	ServerConfig      ServerConfig      `json:"server"`
	AuthConfig        AuthConfig        `json:"auth"`
	VaultConfig       VaultConfig       `json:"vault"`
	Instruments       []Instrument      `json:"instruments"`
}

// HyperliquidConfig holds exchange connectivity configuration
type HyperliquidConfig struct {
	BaseURL        string `json:"base_url"`
	WSURL          string `json:"ws_url"`
	Testnet        bool   `json:"testnet"`
	WalletAddress  string `json:"wallet_address"`
	PrivateKey     string `json:"private_key"`     // Hex signing key; prefer Vault in production
	RequestTimeout int    `json:"request_timeout"` // Seconds per exchange call
}

// RiskSyncConfig holds reconciliation engine configuration
type RiskSyncConfig struct {
	DecisionIntervalSecs int     `json:"decision_interval_secs"` // Seconds between reconciliation cycles
	PriceTolerance       float64 `json:"price_tolerance"`        // Relative diff treated as equal (default 0.001)
	TriggerBandPct       float64 `json:"trigger_band_pct"`       // Max trigger distance from mid, 0 disables pre-check
}

// PriceFeedConfig holds websocket mid-price feed configuration
type PriceFeedConfig struct {
	Enabled           bool `json:"enabled"`
	ReconnectDelaySec int  `json:"reconnect_delay_sec"`
}

// AuditConfig holds the exchange action audit trail configuration
type AuditConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON output vs console writer
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins, comma separated
	ProductionMode  bool   `json:"production_mode"`
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
}

// VaultConfig holds HashiCorp Vault configuration for wallet signing keys
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for wallet keys
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Instrument is one (wallet, symbol) pair the orchestrator reconciles
type Instrument struct {
	WalletAddress string `json:"wallet_address"`
	Symbol        string `json:"symbol"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Note: HYPERLIQUID_PRIVATE_KEY is only honored when Vault is disabled —
// production deployments keep signing keys in Vault.
func applyEnvOverrides(cfg *Config) {
	// Hyperliquid config
	cfg.HyperliquidConfig.Testnet = getEnvOrDefault("HYPERLIQUID_TESTNET", "false") == "true"
	cfg.HyperliquidConfig.BaseURL = getEnvOrDefault("HYPERLIQUID_BASE_URL", cfg.HyperliquidConfig.BaseURL)
	if cfg.HyperliquidConfig.BaseURL == "" {
		if cfg.HyperliquidConfig.Testnet {
			cfg.HyperliquidConfig.BaseURL = "https://api.hyperliquid-testnet.xyz"
		} else {
			cfg.HyperliquidConfig.BaseURL = "https://api.hyperliquid.xyz"
		}
	}
	cfg.HyperliquidConfig.WSURL = getEnvOrDefault("HYPERLIQUID_WS_URL", cfg.HyperliquidConfig.WSURL)
	if cfg.HyperliquidConfig.WSURL == "" {
		if cfg.HyperliquidConfig.Testnet {
			cfg.HyperliquidConfig.WSURL = "wss://api.hyperliquid-testnet.xyz/ws"
		} else {
			cfg.HyperliquidConfig.WSURL = "wss://api.hyperliquid.xyz/ws"
		}
	}
	cfg.HyperliquidConfig.WalletAddress = getEnvOrDefault("HYPERLIQUID_WALLET_ADDRESS", cfg.HyperliquidConfig.WalletAddress)
	cfg.HyperliquidConfig.PrivateKey = getEnvOrDefault("HYPERLIQUID_PRIVATE_KEY", cfg.HyperliquidConfig.PrivateKey)
	cfg.HyperliquidConfig.RequestTimeout = getEnvIntOrDefault("HYPERLIQUID_REQUEST_TIMEOUT", 15)

	// Risk sync config
	cfg.RiskSyncConfig.DecisionIntervalSecs = getEnvIntOrDefault("RISK_SYNC_INTERVAL_SECS", 30)
	cfg.RiskSyncConfig.PriceTolerance = getEnvFloatOrDefault("RISK_SYNC_PRICE_TOLERANCE", 0.001)
	cfg.RiskSyncConfig.TriggerBandPct = getEnvFloatOrDefault("RISK_SYNC_TRIGGER_BAND_PCT", 0)

	// Price feed config
	cfg.PriceFeedConfig.Enabled = getEnvOrDefault("PRICE_FEED_ENABLED", "true") == "true"
	cfg.PriceFeedConfig.ReconnectDelaySec = getEnvIntOrDefault("PRICE_FEED_RECONNECT_DELAY", 5)

	// Audit trail config
	cfg.AuditConfig.Enabled = getEnvOrDefault("AUDIT_ENABLED", "false") == "true"
	cfg.AuditConfig.Host = getEnvOrDefault("AUDIT_DB_HOST", "localhost")
	cfg.AuditConfig.Port = getEnvIntOrDefault("AUDIT_DB_PORT", 5432)
	cfg.AuditConfig.User = getEnvOrDefault("AUDIT_DB_USER", "trading_bot")
	cfg.AuditConfig.Password = getEnvOrDefault("AUDIT_DB_PASSWORD", cfg.AuditConfig.Password)
	cfg.AuditConfig.Database = getEnvOrDefault("AUDIT_DB_NAME", "trading_bot")
	cfg.AuditConfig.SSLMode = getEnvOrDefault("AUDIT_DB_SSLMODE", "disable")

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION_MODE", "false") == "true"
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config - always apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 15*time.Minute)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "hyperliquid/wallets")
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CA_CERT", cfg.VaultConfig.CACert)

	// Instruments from env: "0xabc:BTC,0xabc:ETH" (file config takes precedence)
	if len(cfg.Instruments) == 0 {
		if raw := os.Getenv("INSTRUMENTS"); raw != "" {
			for _, pair := range strings.Split(raw, ",") {
				parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
				if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
					continue
				}
				cfg.Instruments = append(cfg.Instruments, Instrument{
					WalletAddress: parts[0],
					Symbol:        parts[1],
				})
			}
		}
	}
}

// Validate checks required settings before startup
func (c *Config) Validate() error {
	if c.HyperliquidConfig.WalletAddress == "" && len(c.Instruments) == 0 {
		return fmt.Errorf("no wallet address configured: set HYPERLIQUID_WALLET_ADDRESS or instruments")
	}
	if c.RiskSyncConfig.PriceTolerance <= 0 || c.RiskSyncConfig.PriceTolerance >= 1 {
		return fmt.Errorf("risk_sync.price_tolerance must be in (0, 1), got %v", c.RiskSyncConfig.PriceTolerance)
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth enabled but AUTH_JWT_SECRET is empty")
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
