package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/app"
	"github.com/newthinker/sextant/internal/config"
	"github.com/newthinker/sextant/internal/logger"
	"github.com/newthinker/sextant/internal/metrics"
)

var (
	cfgFile  string
	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "sextant",
	Short: "SEXTANT - strategy backtesting simulation engine",
	Long: `SEXTANT replays historical candles through RSI, MACD and SMA signal
generators, simulates a long-only portfolio and reports performance.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads --config, or falls back to defaults plus environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewWithLevel(debug || cfg.Log.Development, logLevel)
}

// withApp builds the application for one command and tears it down after.
func withApp(reg *metrics.Registry, fn func(a *app.App, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, app.Deps{Metrics: reg}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a, log)
}
