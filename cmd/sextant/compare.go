package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/app"
)

var compareOutput string

var compareCmd = &cobra.Command{
	Use:   "compare <run-id> <run-id> [run-id...]",
	Short: "Compare stored runs side by side",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if err := checkFormat(compareOutput); err != nil {
		return err
	}
	return withApp(nil, func(a *app.App, log *zap.Logger) error {
		cmp, err := a.Compare(cmd.Context(), args)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), compareOutput, cmp, func(w io.Writer) {
			renderComparison(w, cmp)
		})
	})
}
