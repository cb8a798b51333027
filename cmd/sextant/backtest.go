package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/app"
)

var (
	backtestName   string
	backtestEnd    string
	backtestSave   bool
	backtestOutput string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest",
	Long: `Fetch candles for the configured window and replay them through the
enabled signal generators. Every parameter can be set by flag, e.g.
--rsi-oversold 25 --stop-loss-pct 5, or from a --params file.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	addParamFlags(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestName, "name", "", "run name (default \"SYMBOL TIMEFRAME DAYSd\")")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "window end, RFC3339 or YYYY-MM-DD (default now)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "persist the run")
	backtestCmd.Flags().StringVarP(&backtestOutput, "output", "o", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := checkFormat(backtestOutput); err != nil {
		return err
	}
	end, err := parseEnd(backtestEnd)
	if err != nil {
		return err
	}

	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		params, err := resolveParams(cmd, a.DefaultParams())
		if err != nil {
			return err
		}

		rec, err := a.Execute(cmd.Context(), app.RunRequest{
			Name:   backtestName,
			Params: params,
			End:    end,
			Save:   backtestSave,
		})
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), backtestOutput, rec, func(w io.Writer) {
			renderRecord(w, rec)
		})
	})
}
