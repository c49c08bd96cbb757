// Package config loads engine configuration the way the teacher does:
// a single YAML/JSON/TOML file via github.com/spf13/viper, unmarshaled
// into mapstructure-tagged structs, with ${ENV_VAR} placeholders
// resolved post-unmarshal and a Validate pass that rejects
// out-of-range or inconsistent values before the engine starts.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quantrail/corebook/internal/core"
	"github.com/spf13/viper"
)

// Config is the root configuration document.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Router     RouterConfig     `mapstructure:"router"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Brokerage  BrokerageConfig  `mapstructure:"brokerage"`
	CashBook   CashBookConfig   `mapstructure:"cashbook"`
	Margin     MarginConfig     `mapstructure:"margin"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig configures the thin operator HTTP server cmd/corebookctl
// serve runs (metrics + health endpoints only; never the core itself).
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// RouterConfig configures the Order Router's pre-order check pipeline
// and sizing defaults (spec §4.1-§4.3).
type RouterConfig struct {
	MaxOrders          int     `mapstructure:"max_orders"`
	DefaultLotSize      float64 `mapstructure:"default_lot_size"`
	MarginBufferPct     float64 `mapstructure:"margin_buffer_pct"`
	EnforceMarketHours  bool    `mapstructure:"enforce_market_hours"`
}

// ReconcilerConfig configures the Fill Reconciliation Engine's polling
// loop (spec §4.4).
type ReconcilerConfig struct {
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	FilledRingSize         int           `mapstructure:"filled_ring_size"`
	UnknownIDGracePeriod   time.Duration `mapstructure:"unknown_id_grace_period"`
}

// BrokerageConfig configures the brokerage adapter's wire transport and
// rate limits (spec §5, §7). RetryAttempts and RetryBackoff are validated
// but not applied: the engine's Retrier always uses its built-in
// defaults (10 attempts, 3s fixed backoff).
type BrokerageConfig struct {
	// Provider selects the Broker implementation cmd/corebookctl wires up.
	// "mock" is always available; anything else names a live adapter not
	// yet implemented in this repo (see cmd/corebookctl's getBroker).
	Provider         string        `mapstructure:"provider"`
	Endpoint         string        `mapstructure:"endpoint"`
	APIKey           string        `mapstructure:"api_key"`
	APISecret        string        `mapstructure:"api_secret"`
	TokenStorePath   string        `mapstructure:"token_store_path"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	OrdersPerSecond   float64       `mapstructure:"orders_per_second"`
	OrdersBurst       int           `mapstructure:"orders_burst"`
	AccountPerSecond  float64       `mapstructure:"account_per_second"`
	AccountBurst      int           `mapstructure:"account_burst"`
}

// CashBookConfig configures the CashBook's base currency and conversion
// data feed (spec §4.6).
type CashBookConfig struct {
	BaseCurrency string `mapstructure:"base_currency"`
}

// MarginConfig selects the margin model and its call threshold (spec
// §4.7).
type MarginConfig struct {
	Model             string  `mapstructure:"model"` // "cash", "reg_t", "portfolio"
	MaintenanceMargin float64 `mapstructure:"maintenance_margin"`
	CallBufferPct     float64 `mapstructure:"call_buffer_pct"`
}

// SettlementConfig selects the settlement model (spec §4.8).
type SettlementConfig struct {
	Model     string `mapstructure:"model"` // "immediate", "delayed"
	DelayDays int    `mapstructure:"delay_days"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from path, resolving ${ENV_VAR} placeholders
// in every string value after unmarshal.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults for local/paper
// operation.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Router: RouterConfig{
			MaxOrders:         0, // unlimited until SetMaximumOrders is called
			DefaultLotSize:    1,
			MarginBufferPct:   0.05,
			EnforceMarketHours: true,
		},
		Reconciler: ReconcilerConfig{
			PollInterval:         time.Second,
			FilledRingSize:       10000,
			UnknownIDGracePeriod: 2 * time.Second,
		},
		Brokerage: BrokerageConfig{
			Provider:         "mock",
			TokenStorePath:   "./brokerage_token.json",
			RetryAttempts:    10,
			RetryBackoff:     3 * time.Second,
			OrdersPerSecond:  5,
			OrdersBurst:      20,
			AccountPerSecond: 10,
			AccountBurst:     60,
		},
		CashBook: CashBookConfig{
			BaseCurrency: "USD",
		},
		Margin: MarginConfig{
			Model:             "reg_t",
			MaintenanceMargin: 0.25,
			CallBufferPct:     0.0,
		},
		Settlement: SettlementConfig{
			Model:     "immediate",
			DelayDays: 2,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Router.MaxOrders < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("router.max_orders cannot be negative, got %d", c.Router.MaxOrders))
	}
	if c.Router.DefaultLotSize <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("router.default_lot_size must be positive, got %f", c.Router.DefaultLotSize))
	}

	if c.Reconciler.PollInterval < 500*time.Millisecond {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("reconciler.poll_interval must be at least 500ms, got %s", c.Reconciler.PollInterval))
	}
	if c.Reconciler.FilledRingSize <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("reconciler.filled_ring_size must be positive, got %d", c.Reconciler.FilledRingSize))
	}

	if c.Brokerage.Provider != "mock" && c.Brokerage.Endpoint == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("brokerage.endpoint is required"))
	}
	if c.Brokerage.RetryAttempts < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("brokerage.retry_attempts cannot be negative, got %d", c.Brokerage.RetryAttempts))
	}

	if c.CashBook.BaseCurrency == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("cashbook.base_currency is required"))
	}

	switch c.Margin.Model {
	case "cash", "reg_t", "portfolio":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid margin model: %s", c.Margin.Model))
	}

	switch c.Settlement.Model {
	case "immediate", "delayed":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid settlement model: %s", c.Settlement.Model))
	}
	if c.Settlement.Model == "delayed" && c.Settlement.DelayDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("settlement.delay_days must be positive when model is delayed, got %d", c.Settlement.DelayDays))
	}

	return nil
}

// WarnHardcodedSecrets logs warnings for secrets that appear to be
// hardcoded instead of using environment variable syntax (${ENV_VAR}).
func (c *Config) WarnHardcodedSecrets(logger func(string)) {
	secretFields := []struct {
		name  string
		value string
	}{
		{"server.api_key", c.Server.APIKey},
		{"brokerage.api_key", c.Brokerage.APIKey},
		{"brokerage.api_secret", c.Brokerage.APISecret},
	}

	for _, f := range secretFields {
		if f.value != "" && !strings.HasPrefix(f.value, "${") {
			logger(fmt.Sprintf("WARNING: %s appears to be hardcoded (use ${ENV_VAR} syntax)", f.name))
		}
	}
}
