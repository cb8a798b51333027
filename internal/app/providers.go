package app

import (
	"fmt"

	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/collector/alpaca"
	"github.com/newthinker/sextant/internal/collector/crypto"
	"github.com/newthinker/sextant/internal/collector/crypto/binance"
	"github.com/newthinker/sextant/internal/collector/crypto/okx"
	"github.com/newthinker/sextant/internal/collector/csvfile"
	"github.com/newthinker/sextant/internal/collector/parquetfile"
	"github.com/newthinker/sextant/internal/config"
	"github.com/newthinker/sextant/internal/notifier"
	"github.com/newthinker/sextant/internal/notifier/telegram"
	"github.com/newthinker/sextant/internal/notifier/webhook"
	"github.com/newthinker/sextant/internal/storage/archive"
	"github.com/newthinker/sextant/internal/storage/run"

	"go.uber.org/zap"
)

// NewProviderRegistry registers every candle source the data section can
// configure. Alpaca is only registered when credentials are present.
func NewProviderRegistry(cfg config.DataConfig) *collector.Registry {
	reg := collector.NewRegistry()

	reg.Register(csvfile.New(cfg.Dir))
	reg.Register(parquetfile.New(cfg.Dir))

	bn := binance.NewWithBaseURL(cfg.Binance.BaseURL)
	ox := okx.NewWithBaseURL(cfg.OKX.BaseURL)
	reg.Register(bn)
	reg.Register(ox)
	reg.Register(crypto.New(cfg.DefaultQuote, bn, ox))

	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		reg.Register(alpaca.New(alpaca.Config{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
			Feed:      cfg.Alpaca.Feed,
		}))
	}
	return reg
}

// OpenRunStore opens the configured run store and wraps it with the archive
// mirror when one is configured.
func OpenRunStore(cfg config.StorageConfig, logger *zap.Logger) (run.Store, error) {
	var primary run.Store
	switch cfg.Runs.Driver {
	case "memory":
		primary = run.NewMemoryStore(cfg.Runs.MaxRecords)
	case "sqlite", "":
		s, err := run.NewSQLiteStore(cfg.Runs.DSN)
		if err != nil {
			return nil, err
		}
		primary = s
	default:
		return nil, fmt.Errorf("unknown run store driver %q", cfg.Runs.Driver)
	}

	cold, err := archive.New(archive.Config{
		Type: cfg.Archive.Type,
		Path: cfg.Archive.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		},
	})
	if err != nil {
		primary.Close()
		return nil, err
	}
	return run.NewMirrored(primary, cold, logger), nil
}

// NewNotifiers initializes the configured notification channels.
func NewNotifiers(cfgs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, cfg := range cfgs {
		var n notifier.Notifier
		switch cfg.Type {
		case "webhook":
			n = webhook.New("", nil)
		case "telegram":
			n = telegram.New("", "")
		default:
			return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
		}
		if err := n.Init(cfg); err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
