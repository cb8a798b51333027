package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/app"
	"github.com/newthinker/sextant/internal/backtest"
)

var (
	sweepName    string
	sweepEnd     string
	sweepVary    []string
	sweepSave    bool
	sweepWorkers int
	sweepOutput  string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter grid and compare the results",
	Long: `Expand --vary key=v1,v2,... (repeatable) into the cartesian product over
the base parameters, simulate every combination in parallel and print a
comparison. Each distinct symbol/timeframe/days series is fetched once.`,
	Example: `  sextant sweep --vary rsi_oversold=25,30,35 --vary stop_loss_pct=null,5`,
	Args:    cobra.NoArgs,
	RunE:    runSweep,
}

func init() {
	addParamFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepName, "name", "", "name prefix for the saved runs")
	sweepCmd.Flags().StringVar(&sweepEnd, "end", "", "window end, RFC3339 or YYYY-MM-DD (default now)")
	sweepCmd.Flags().StringArrayVar(&sweepVary, "vary", nil, "key=v1,v2,... (repeatable)")
	sweepCmd.Flags().BoolVar(&sweepSave, "save", true, "persist every run once all succeed")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel simulations (default from config)")
	sweepCmd.Flags().StringVarP(&sweepOutput, "output", "o", formatTable, "output format: table, json or yaml")
	sweepCmd.MarkFlagRequired("vary")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	if err := checkFormat(sweepOutput); err != nil {
		return err
	}
	end, err := parseEnd(sweepEnd)
	if err != nil {
		return err
	}
	vary := make([]backtest.Variation, 0, len(sweepVary))
	for _, raw := range sweepVary {
		v, err := backtest.ParseVariation(raw)
		if err != nil {
			return err
		}
		vary = append(vary, v)
	}

	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		base, err := resolveParams(cmd, a.DefaultParams())
		if err != nil {
			return err
		}

		res, err := a.Sweep(cmd.Context(), app.SweepRequest{
			Name:    sweepName,
			Base:    base,
			Vary:    vary,
			End:     end,
			Save:    sweepSave,
			Workers: sweepWorkers,
		})
		if err != nil {
			return err
		}

		return output(cmd.OutOrStdout(), sweepOutput, res, func(w io.Writer) {
			if res.Comparison != nil {
				renderComparison(w, res.Comparison)
			} else {
				renderRecord(w, &res.Records[0])
			}
			if sweepSave {
				fmt.Fprintln(w)
				for _, rec := range res.Records {
					fmt.Fprintln(w, dimStyle.Render("saved "+rec.ID+"  "+rec.Name))
				}
			}
		})
	})
}
