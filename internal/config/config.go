// Package config defines the top-level configuration for the absorption bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ABSORBOT_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Builder    BuilderConfig    `toml:"builder"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Risk       RiskConfig       `toml:"risk"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	SafeAddress      string `toml:"safe_address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost      string `toml:"clob_host"`
	WsHost        string `toml:"ws_host"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
}

// BuilderConfig holds Polymarket builder-program API credentials.
type BuilderConfig struct {
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// StrategyConfig holds trading strategy parameters.
type StrategyConfig struct {
	Name        string  `toml:"name"`
	AutoExecute bool    `toml:"auto_execute"`
	MarketID    string  `toml:"market_id"`
	Size        float64 `toml:"size"`
	// Assets is the list of token IDs to subscribe to and monitor for
	// absorption. The first entry is also the default instrument for
	// single-asset strategies.
	Assets []string       `toml:"assets"`
	Params map[string]any `toml:"params"`
	// Active is the list of strategy names to run concurrently
	// (multi-strategy mode). If set, engine uses RunAll.
	Active []string `toml:"active"`

	Absorption          AbsorptionConfig          `toml:"absorption"`
	LiquidityAbsorption LiquidityAbsorptionConfig `toml:"liquidity_absorption"`
}

// AbsorptionConfig holds config for the absorption strategy.
type AbsorptionConfig struct {
	Enabled              bool    `toml:"enabled"`
	MinAbsorptionVolume  float64 `toml:"min_absorption_volume"`
	MonitorLevels        int     `toml:"monitor_levels"`
	DominanceFactor      float64 `toml:"dominance_factor"`
	CooldownSec          float64 `toml:"cooldown_sec"`
	EvalIntervalSec      float64 `toml:"eval_interval_sec"`
	TradePctOfAbsorption float64 `toml:"trade_pct_of_absorption"`
	MaxTradeSize         float64 `toml:"max_trade_size"`
	RepriceGuard         bool    `toml:"reprice_guard"`
}

// LiquidityAbsorptionConfig holds config for the liquidity_absorption strategy.
type LiquidityAbsorptionConfig struct {
	Enabled             bool    `toml:"enabled"`
	LiquidityThreshold  float64 `toml:"liquidity_threshold"`
	MinAbsorptionVolume float64 `toml:"min_absorption_volume"`
	MonitorLevels       int     `toml:"monitor_levels"`
	DominanceFactor     float64 `toml:"dominance_factor"`
	CooldownSec         float64 `toml:"cooldown_sec"`
	EvalIntervalSec     float64 `toml:"eval_interval_sec"`
	TradeSize           float64 `toml:"trade_size"`
}

// RiskConfig holds pre-trade risk check parameters.
type RiskConfig struct {
	MaxPositions   int     `toml:"max_positions"`
	MaxNotional    float64 `toml:"max_notional"`
	MaxSlippageBps float64 `toml:"max_slippage_bps"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:      "https://clob.polymarket.com",
			WsHost:        "wss://ws-subscriptions-clob.polymarket.com",
			ChainID:       137,
			SignatureType: 2,
		},
		Supabase: SupabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "absorbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Strategy: StrategyConfig{
			Name:        "absorption",
			AutoExecute: false,
			Size:        1.0,
			Params:      map[string]any{},
			Absorption: AbsorptionConfig{
				Enabled:              true,
				MinAbsorptionVolume:  100.0,
				MonitorLevels:        3,
				DominanceFactor:      2.0,
				CooldownSec:          10,
				EvalIntervalSec:      1,
				TradePctOfAbsorption: 0.1,
				MaxTradeSize:         1000.0,
				RepriceGuard:         true,
			},
			LiquidityAbsorption: LiquidityAbsorptionConfig{
				Enabled:             true,
				LiquidityThreshold:  100.0,
				MinAbsorptionVolume: 100.0,
				MonitorLevels:       5,
				DominanceFactor:     1.5,
				CooldownSec:         10,
				EvalIntervalSec:     1,
				TradeSize:           1.0,
			},
		},
		Risk: RiskConfig{
			MaxPositions:   1,
			MaxNotional:    100.0,
			MaxSlippageBps: 50.0,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"absorption.entry", "order.placed", "error"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"serve":   true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, serve, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet: at least one credential source must be specified for trading modes.
	needsWallet := c.Mode == "trade" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType != 1 && c.Polymarket.SignatureType != 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 1 (EOA) or 2 (Safe), got %d", c.Polymarket.SignatureType))
	}

	// Builder: all three fields must be set together, or all empty.
	bk := c.Builder.ApiKey != ""
	bs := c.Builder.ApiSecret != ""
	bp := c.Builder.ApiPassphrase != ""
	if bk || bs || bp {
		if !(bk && bs && bp) {
			errs = append(errs, "builder: api_key, api_secret, and api_passphrase must all be set together")
		}
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
	}

	// Strategy
	if c.Strategy.Size <= 0 {
		errs = append(errs, "strategy: size must be > 0")
	}
	if len(c.Strategy.Assets) == 0 && c.Mode != "serve" {
		errs = append(errs, "strategy: assets must list at least one token ID for mode "+c.Mode)
	}
	if c.Strategy.Absorption.Enabled {
		if c.Strategy.Absorption.MinAbsorptionVolume <= 0 {
			errs = append(errs, "strategy.absorption: min_absorption_volume must be > 0")
		}
		if c.Strategy.Absorption.MonitorLevels < 1 {
			errs = append(errs, "strategy.absorption: monitor_levels must be >= 1")
		}
		if c.Strategy.Absorption.DominanceFactor <= 0 {
			errs = append(errs, "strategy.absorption: dominance_factor must be > 0")
		}
		if c.Strategy.Absorption.TradePctOfAbsorption <= 0 || c.Strategy.Absorption.TradePctOfAbsorption > 1 {
			errs = append(errs, "strategy.absorption: trade_pct_of_absorption must be in (0, 1]")
		}
	}
	if c.Strategy.LiquidityAbsorption.Enabled {
		if c.Strategy.LiquidityAbsorption.LiquidityThreshold <= 0 {
			errs = append(errs, "strategy.liquidity_absorption: liquidity_threshold must be > 0")
		}
		if c.Strategy.LiquidityAbsorption.MonitorLevels < 1 {
			errs = append(errs, "strategy.liquidity_absorption: monitor_levels must be >= 1")
		}
		if c.Strategy.LiquidityAbsorption.TradeSize <= 0 {
			errs = append(errs, "strategy.liquidity_absorption: trade_size must be > 0")
		}
	}

	// Risk
	if c.Risk.MaxPositions < 1 {
		errs = append(errs, "risk: max_positions must be >= 1")
	}
	if c.Risk.MaxNotional <= 0 {
		errs = append(errs, "risk: max_notional must be > 0")
	}
	if c.Risk.MaxSlippageBps < 0 {
		errs = append(errs, "risk: max_slippage_bps must be >= 0")
	}

	// Archive
	if c.Archive.Enabled && c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1 when enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
