package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/api"
	"github.com/newthinker/sextant/internal/app"
	"github.com/newthinker/sextant/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := metrics.NewRegistry()

	return withApp(reg, func(a *app.App, log *zap.Logger) error {
		cfg := a.Config()

		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}
		server, err := api.NewServer(api.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			APIKey:      cfg.Server.APIKey,
			JobTTL:      cfg.Server.JobTTL,
			MaxJobs:     cfg.Server.MaxJobs,
			MetricsPath: metricsPath,
		}, api.Dependencies{
			Service:  a,
			Runs:     a.Runs(),
			Defaults: a.DefaultParams(),
			Metrics:  reg,
		}, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		if cfg.Server.APIKey == "" {
			log.Warn("API key not set, /api/v1 is unauthenticated")
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		log.Info("shutting down sextant server")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	})
}
