// Package config provides configuration management for the paper trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"papertrade/internal/errors"
	"papertrade/internal/logging"
	"papertrade/internal/models"
	"papertrade/internal/risk"
)

// Config holds all application configuration.
type Config struct {
	Account       AccountConfig      `mapstructure:"account"`
	Trading       TradingConfig      `mapstructure:"trading"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Prices        map[string]string  `mapstructure:"prices"`
	Redis         RedisConfig        `mapstructure:"redis"`
	Store         StoreConfig        `mapstructure:"store"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Log           LogConfig          `mapstructure:"log"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// AccountConfig holds paper account configuration.
type AccountConfig struct {
	ID             string `mapstructure:"id"`
	InitialBalance string `mapstructure:"initial_balance"`
	Currency       string `mapstructure:"currency"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode          string        `mapstructure:"mode"` // "paper", "live"
	PriceTimeout  time.Duration `mapstructure:"price_timeout"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

// RiskConfig holds the default risk profile.
type RiskConfig struct {
	MaxPositionSizePct  float64 `mapstructure:"max_position_size_pct"`
	MaxDailyLossPct     float64 `mapstructure:"max_daily_loss_pct"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct"`
	MaxOpenPositions    int     `mapstructure:"max_open_positions"`
	RequireConfirmation bool    `mapstructure:"require_confirmation"`
}

// RedisConfig holds the Redis quote source configuration.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Field     string `mapstructure:"field"`
}

// StoreConfig holds journal configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Level   string        `mapstructure:"level"` // all, trades_only, alerts_only
	Log     bool          `mapstructure:"log"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/papertrade"
	}
	return filepath.Join(home, ".config", "papertrade")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default directory is used. A missing config.toml is replaced
// by a commented template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env values never override variables already set in the environment.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v, configDir)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration rooted at configDir.
func Default(configDir string) *Config {
	cfg, err := decode(newViper(configDir), configDir)
	if err != nil {
		panic(fmt.Sprintf("decoding built-in defaults: %v", err))
	}
	return cfg
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("account.id", "paper")
	v.SetDefault("account.initial_balance", "100000")
	v.SetDefault("account.currency", "USD")

	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.price_timeout", 2*time.Second)
	v.SetDefault("trading.notify_timeout", 10*time.Second)

	p := models.DefaultRiskProfile()
	v.SetDefault("risk.max_position_size_pct", p.MaxPositionSizePct)
	v.SetDefault("risk.max_daily_loss_pct", p.MaxDailyLossPct)
	v.SetDefault("risk.stop_loss_pct", p.StopLossPct)
	v.SetDefault("risk.take_profit_pct", p.TakeProfitPct)
	v.SetDefault("risk.max_open_positions", p.MaxOpenPositions)
	v.SetDefault("risk.require_confirmation", p.RequireConfirmation)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "quote:")
	v.SetDefault("redis.field", "ltp")

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.log", true)
	v.SetDefault("notifications.webhook.timeout", 10*time.Second)

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.console", logDefaults.Console)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "papertrade.log"))
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	return v
}

func decode(v *viper.Viper, configDir string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = configDir

	// viper lower-cases keys; symbols are upper-case everywhere else.
	prices := make(map[string]string, len(cfg.Prices))
	for sym, p := range cfg.Prices {
		prices[models.NormalizeSymbol(sym)] = p
	}
	cfg.Prices = prices
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERTRADE_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("PAPERTRADE_INITIAL_BALANCE"); v != "" {
		cfg.Account.InitialBalance = v
	}
	if v := os.Getenv("PAPERTRADE_CURRENCY"); v != "" {
		cfg.Account.Currency = v
	}
	if v := os.Getenv("PAPERTRADE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("PAPERTRADE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PAPERTRADE_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
		cfg.Notifications.Webhook.Enabled = true
	}
	if v := os.Getenv("PAPERTRADE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, ok := models.ParseTradingMode(c.Trading.Mode); !ok {
		return errors.NewValidationError(errors.ErrConfigInvalid, "trading.mode", c.Trading.Mode, "must be 'paper' or 'live'")
	}

	balance, err := c.InitialBalance()
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return errors.NewValidationError(errors.ErrConfigInvalid, "account.initial_balance", c.Account.InitialBalance, "must not be negative")
	}

	if money.GetCurrency(c.Account.Currency) == nil {
		return errors.NewValidationError(errors.ErrConfigInvalid, "account.currency", c.Account.Currency, "unknown currency code")
	}

	if c.Trading.PriceTimeout <= 0 {
		return errors.NewValidationError(errors.ErrConfigInvalid, "trading.price_timeout", c.Trading.PriceTimeout, "must be positive")
	}

	if err := risk.ValidateProfile(c.Risk.Profile()); err != nil {
		return err
	}

	if _, err := c.QuoteTable(); err != nil {
		return err
	}

	switch c.Notifications.Level {
	case "", "all", "trades_only", "alerts_only":
	default:
		return errors.NewValidationError(errors.ErrConfigInvalid, "notifications.level", c.Notifications.Level, "must be all, trades_only or alerts_only")
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return errors.NewValidationError(errors.ErrConfigInvalid, "notifications.webhook.url", "", "required when the webhook is enabled")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return errors.NewValidationError(errors.ErrConfigInvalid, "store.path", "", "required when the store is enabled")
	}
	return nil
}

// InitialBalance parses the configured starting cash.
func (c *Config) InitialBalance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Account.InitialBalance))
	if err != nil {
		return decimal.Zero, errors.NewValidationError(errors.ErrConfigInvalid, "account.initial_balance", c.Account.InitialBalance, "not a number")
	}
	return d, nil
}

// Mode returns the configured starting trading mode.
func (c *Config) Mode() models.TradingMode {
	m, ok := models.ParseTradingMode(c.Trading.Mode)
	if !ok {
		return models.TradingModePaper
	}
	return m
}

// QuoteTable parses the [prices] table.
func (c *Config) QuoteTable() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Prices))
	for sym, raw := range c.Prices {
		p, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !p.IsPositive() {
			return nil, errors.NewValidationError(errors.ErrConfigInvalid, "prices."+sym, raw, "must be a positive number")
		}
		out[models.NormalizeSymbol(sym)] = p
	}
	return out, nil
}

// Profile converts the [risk] section into a risk profile.
func (r RiskConfig) Profile() models.RiskProfile {
	return models.RiskProfile{
		MaxPositionSizePct:  r.MaxPositionSizePct,
		MaxDailyLossPct:     r.MaxDailyLossPct,
		StopLossPct:         r.StopLossPct,
		TakeProfitPct:       r.TakeProfitPct,
		MaxOpenPositions:    r.MaxOpenPositions,
		RequireConfirmation: r.RequireConfirmation,
	}
}
