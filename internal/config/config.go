package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/notifier"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Data     DataConfig     `mapstructure:"data"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`

	// Notify lists the channels told about finished runs
	Notify []notifier.Config `mapstructure:"notify"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	JobTTL          time.Duration `mapstructure:"job_ttl"`
	MaxJobs         int           `mapstructure:"max_jobs"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Runs    RunStoreConfig `mapstructure:"runs"`
	Archive ArchiveConfig  `mapstructure:"archive"`
}

type RunStoreConfig struct {
	Driver     string `mapstructure:"driver"` // "memory" or "sqlite"
	DSN        string `mapstructure:"dsn"`
	MaxRecords int    `mapstructure:"max_records"` // memory driver only
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "local" or "s3"
	Path string   `mapstructure:"path"` // For local
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// DataConfig selects the candle provider used by runs.
type DataConfig struct {
	Provider     string         `mapstructure:"provider"` // csv, parquet, binance, okx, crypto, alpaca
	Dir          string         `mapstructure:"dir"`      // csv and parquet
	DefaultQuote string         `mapstructure:"default_quote"`
	Binance      ExchangeConfig `mapstructure:"binance"`
	OKX          ExchangeConfig `mapstructure:"okx"`
	Alpaca       AlpacaConfig   `mapstructure:"alpaca"`
}

type ExchangeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Feed      string `mapstructure:"feed"`
}

// BacktestConfig holds engine options and the parameter defaults new runs
// start from.
type BacktestConfig struct {
	MinCandles     int             `mapstructure:"min_candles"`
	MinTradeAmount float64         `mapstructure:"min_trade_amount"`
	SignalTTL      time.Duration   `mapstructure:"signal_ttl"`
	Workers        int             `mapstructure:"workers"`
	Defaults       backtest.Params `mapstructure:"defaults"`
}

// Options converts the section to engine options
func (b BacktestConfig) Options() backtest.Options {
	return backtest.Options{
		MinCandles:     b.MinCandles,
		MinTradeAmount: b.MinTradeAmount,
		SignalTTL:      b.SignalTTL,
	}
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Load reads configuration from file on top of Defaults. An empty path
// yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Support environment variable overrides
	v.SetEnvPrefix("SEXTANT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Defaults()
	registerDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// registerDefaults makes every key known to viper so AutomaticEnv can
// override keys absent from the file.
func registerDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.api_key", cfg.Server.APIKey)
	v.SetDefault("server.job_ttl", cfg.Server.JobTTL)
	v.SetDefault("server.max_jobs", cfg.Server.MaxJobs)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("storage.runs.driver", cfg.Storage.Runs.Driver)
	v.SetDefault("storage.runs.dsn", cfg.Storage.Runs.DSN)
	v.SetDefault("storage.runs.max_records", cfg.Storage.Runs.MaxRecords)
	v.SetDefault("storage.archive.type", cfg.Storage.Archive.Type)
	v.SetDefault("storage.archive.path", cfg.Storage.Archive.Path)
	v.SetDefault("storage.archive.s3.bucket", "")
	v.SetDefault("storage.archive.s3.access_key", "")
	v.SetDefault("storage.archive.s3.secret_key", "")
	v.SetDefault("data.provider", cfg.Data.Provider)
	v.SetDefault("data.dir", cfg.Data.Dir)
	v.SetDefault("data.default_quote", cfg.Data.DefaultQuote)
	v.SetDefault("data.alpaca.api_key", "")
	v.SetDefault("data.alpaca.api_secret", "")
	v.SetDefault("backtest.min_candles", cfg.Backtest.MinCandles)
	v.SetDefault("backtest.min_trade_amount", cfg.Backtest.MinTradeAmount)
	v.SetDefault("backtest.signal_ttl", cfg.Backtest.SignalTTL)
	v.SetDefault("backtest.workers", cfg.Backtest.Workers)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("log.development", cfg.Log.Development)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	opts := backtest.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			JobTTL:          time.Hour,
			MaxJobs:         100,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Runs: RunStoreConfig{
				Driver:     "sqlite",
				DSN:        "sextant.db",
				MaxRecords: 1000,
			},
		},
		Data: DataConfig{
			Provider:     "binance",
			Dir:          "data",
			DefaultQuote: "USDT",
		},
		Backtest: BacktestConfig{
			MinCandles:     opts.MinCandles,
			MinTradeAmount: opts.MinTradeAmount,
			SignalTTL:      opts.SignalTTL,
			Workers:        4,
			Defaults:       backtest.DefaultParams(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var providers = map[string]bool{
	"csv": true, "parquet": true, "binance": true, "okx": true, "crypto": true, "alpaca": true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs cannot be negative, got %d", c.Server.MaxJobs))
	}

	// Storage validation
	switch c.Storage.Runs.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Runs.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.runs.dsn required for sqlite driver"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown run store driver %q", c.Storage.Runs.Driver))
	}
	switch c.Storage.Archive.Type {
	case "", "none":
	case "local":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.path required for local archive"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.s3.bucket required for s3 archive"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	// Data validation
	if !providers[c.Data.Provider] {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}
	switch c.Data.Provider {
	case "csv", "parquet":
		if c.Data.Dir == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data.dir required for %s provider", c.Data.Provider))
		}
	case "alpaca":
		if c.Data.Alpaca.APIKey == "" || c.Data.Alpaca.APISecret == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca api_key and api_secret required when provider is alpaca"))
		}
	}

	// Backtest validation
	if c.Backtest.MinCandles < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_candles must be at least 2, got %d", c.Backtest.MinCandles))
	}
	if c.Backtest.MinTradeAmount < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_trade_amount cannot be negative, got %g", c.Backtest.MinTradeAmount))
	}
	if c.Backtest.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Backtest.Workers))
	}
	if err := c.Backtest.Defaults.Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest.defaults: %w", err))
	}

	for i, n := range c.Notify {
		if n.Type != "webhook" && n.Type != "telegram" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notify[%d]: unknown notifier type %q", i, n.Type))
		}
	}

	return nil
}
