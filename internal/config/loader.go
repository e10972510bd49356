package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ABSORBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ABSORBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ABSORBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.SafeAddress, "ABSORBOT_WALLET_SAFE_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ABSORBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ABSORBOT_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "ABSORBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "ABSORBOT_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "ABSORBOT_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "ABSORBOT_POLYMARKET_SIGNATURE_TYPE")

	// ── Builder ──
	setStr(&cfg.Builder.ApiKey, "ABSORBOT_BUILDER_API_KEY")
	setStr(&cfg.Builder.ApiSecret, "ABSORBOT_BUILDER_API_SECRET")
	setStr(&cfg.Builder.ApiPassphrase, "ABSORBOT_BUILDER_API_PASSPHRASE")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "ABSORBOT_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "ABSORBOT_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "ABSORBOT_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "ABSORBOT_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "ABSORBOT_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "ABSORBOT_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "ABSORBOT_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "ABSORBOT_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "ABSORBOT_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "ABSORBOT_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ABSORBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ABSORBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ABSORBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ABSORBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ABSORBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ABSORBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ABSORBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ABSORBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ABSORBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ABSORBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ABSORBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ABSORBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ABSORBOT_S3_FORCE_PATH_STYLE")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "ABSORBOT_STRATEGY_NAME")
	setBool(&cfg.Strategy.AutoExecute, "ABSORBOT_STRATEGY_AUTO_EXECUTE")
	setStr(&cfg.Strategy.MarketID, "ABSORBOT_STRATEGY_MARKET_ID")
	setFloat64(&cfg.Strategy.Size, "ABSORBOT_STRATEGY_SIZE")
	setStringSlice(&cfg.Strategy.Assets, "ABSORBOT_STRATEGY_ASSETS")
	setStringSlice(&cfg.Strategy.Active, "ABSORBOT_STRATEGY_ACTIVE")
	setBool(&cfg.Strategy.Absorption.Enabled, "ABSORBOT_STRATEGY_ABSORPTION_ENABLED")
	setFloat64(&cfg.Strategy.Absorption.MinAbsorptionVolume, "ABSORBOT_STRATEGY_ABSORPTION_MIN_VOLUME")
	setFloat64(&cfg.Strategy.Absorption.CooldownSec, "ABSORBOT_STRATEGY_ABSORPTION_COOLDOWN_SEC")
	setBool(&cfg.Strategy.LiquidityAbsorption.Enabled, "ABSORBOT_STRATEGY_LIQUIDITY_ABSORPTION_ENABLED")
	setFloat64(&cfg.Strategy.LiquidityAbsorption.LiquidityThreshold, "ABSORBOT_STRATEGY_LIQUIDITY_THRESHOLD")

	// ── Risk ──
	setInt(&cfg.Risk.MaxPositions, "ABSORBOT_RISK_MAX_POSITIONS")
	setFloat64(&cfg.Risk.MaxNotional, "ABSORBOT_RISK_MAX_NOTIONAL")
	setFloat64(&cfg.Risk.MaxSlippageBps, "ABSORBOT_RISK_MAX_SLIPPAGE_BPS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ABSORBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "ABSORBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "ABSORBOT_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ABSORBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ABSORBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ABSORBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ABSORBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ABSORBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ABSORBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ABSORBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ABSORBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ABSORBOT_MODE")
	setStr(&cfg.LogLevel, "ABSORBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
