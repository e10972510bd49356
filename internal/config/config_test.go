package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Strategy.Assets = []string{"123456"}
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with assets should validate: %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "arbitrage"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTradeModeRequiresWallet(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "wallet") {
		t.Fatalf("expected wallet error for trade mode, got %v", err)
	}

	cfg.Wallet.PrivateKey = "0xdeadbeef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("trade mode with private key should validate: %v", err)
	}
}

func TestValidateStrategySections(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy.Absorption.TradePctOfAbsorption = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "trade_pct_of_absorption") {
		t.Fatalf("expected trade_pct error, got %v", err)
	}

	cfg = validConfig()
	cfg.Strategy.LiquidityAbsorption.LiquidityThreshold = 0
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "liquidity_threshold") {
		t.Fatalf("expected liquidity_threshold error, got %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
mode = "monitor"
log_level = "debug"

[strategy]
name = "liquidity_absorption"
assets = ["111", "222"]

[strategy.liquidity_absorption]
liquidity_threshold = 250.0
trade_size = 2.5

[redis]
addr = "redis:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ABSORBOT_REDIS_ADDR", "override:6379")
	t.Setenv("ABSORBOT_STRATEGY_LIQUIDITY_THRESHOLD", "500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Strategy.Name != "liquidity_absorption" {
		t.Errorf("strategy name = %q", cfg.Strategy.Name)
	}
	if len(cfg.Strategy.Assets) != 2 || cfg.Strategy.Assets[1] != "222" {
		t.Errorf("assets = %v", cfg.Strategy.Assets)
	}
	if cfg.Strategy.LiquidityAbsorption.TradeSize != 2.5 {
		t.Errorf("trade_size = %v", cfg.Strategy.LiquidityAbsorption.TradeSize)
	}
	if cfg.Strategy.LiquidityAbsorption.LiquidityThreshold != 500 {
		t.Errorf("env override not applied, liquidity_threshold = %v", cfg.Strategy.LiquidityAbsorption.LiquidityThreshold)
	}
	if cfg.Redis.Addr != "override:6379" {
		t.Errorf("env override not applied, redis addr = %q", cfg.Redis.Addr)
	}
	// Defaults survive merging.
	if cfg.Supabase.PoolMaxConns != 10 {
		t.Errorf("default pool_max_conns lost, got %d", cfg.Supabase.PoolMaxConns)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("merged config should validate: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "0xsecret"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "supersecret"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" || red.Redis.Password != "***" || red.S3.SecretKey != "***" {
		t.Fatalf("secrets not redacted: %+v", red)
	}
	if cfg.Wallet.PrivateKey != "0xsecret" {
		t.Fatal("original config mutated")
	}
	// Empty secrets stay empty rather than becoming "***".
	if red.Notify.TelegramToken != "" {
		t.Fatalf("empty secret redacted to %q", red.Notify.TelegramToken)
	}
}
