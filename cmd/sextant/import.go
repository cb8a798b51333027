package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/collector/csvfile"
	"github.com/newthinker/sextant/internal/collector/parquetfile"
	"github.com/newthinker/sextant/internal/core"
)

var (
	importSymbol   string
	importInterval string
	importDataDir  string
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a CSV candle file into the Parquet store",
	Long: `Read time,open,high,low,close,volume rows and merge them into
<data-dir>/<SYMBOL>/<interval>.parquet. Rows with an existing timestamp
replace the stored candle.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importSymbol, "symbol", "", "symbol the candles belong to (required)")
	importCmd.Flags().StringVar(&importInterval, "interval", "1h", "candle interval")
	importCmd.Flags().StringVar(&importDataDir, "data-dir", "", "Parquet root (default data.dir from config)")
	importCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := core.ParseTimeframe(importInterval); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	dir := importDataDir
	if dir == "" {
		dir = cfg.Data.Dir
	}
	symbol := strings.ToUpper(strings.TrimSpace(importSymbol))

	candles, err := csvfile.ReadFile(args[0])
	if err != nil {
		return err
	}
	store := parquetfile.New(dir)
	total, err := store.WriteCandles(symbol, importInterval, candles)
	if err != nil {
		return err
	}

	log.Info("candles imported",
		zap.String("file", args[0]),
		zap.String("symbol", symbol),
		zap.String("interval", importInterval),
		zap.Int("read", len(candles)),
		zap.Int("stored", total),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d candles into %s (%d stored)\n",
		len(candles), store.Path(symbol, importInterval), total)
	return nil
}
