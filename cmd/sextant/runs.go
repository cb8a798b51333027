package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/app"
	"github.com/newthinker/sextant/internal/storage/run"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Stored run operations",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>...",
	Short: "Delete stored runs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRunsDelete,
}

var (
	runsSymbol string
	runsLimit  int
	runsOffset int
	runsOutput string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsCmd.PersistentFlags().StringVarP(&runsOutput, "output", "o", formatTable, "output format: table, json or yaml")
	runsListCmd.Flags().StringVar(&runsSymbol, "symbol", "", "only runs for this symbol")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list (0 for all)")
	runsListCmd.Flags().IntVar(&runsOffset, "offset", 0, "runs to skip")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	if err := checkFormat(runsOutput); err != nil {
		return err
	}
	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		filter := run.ListFilter{Symbol: runsSymbol, Limit: runsLimit, Offset: runsOffset}
		runs, err := a.Runs().List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		total, err := a.Runs().Count(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), runsOutput, runs, func(w io.Writer) {
			renderRuns(w, runs, total)
		})
	})
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(runsOutput); err != nil {
		return err
	}
	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		rec, err := a.Runs().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), runsOutput, rec, func(w io.Writer) {
			renderRecord(w, rec)
		})
	})
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		for _, id := range args {
			if err := a.Runs().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return nil
	})
}
