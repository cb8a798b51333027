package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/sextant/internal/backtest"
)

// flagName turns a parameter key into its flag, e.g. rsi_oversold becomes
// --rsi-oversold.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// addParamFlags registers one string flag per parameter key. Values are
// parsed by Params.Set so flags, sweep variations and files agree.
func addParamFlags(cmd *cobra.Command) {
	defaults := backtest.DefaultParams()
	for _, p := range defaults.Values() {
		cmd.Flags().String(flagName(p.Key), "", fmt.Sprintf("override %s (default %s)", p.Key, p.String()))
	}
	cmd.Flags().String("params", "", "YAML or JSON file with parameter overrides")
}

// resolveParams layers the params file and then explicit flags over base.
func resolveParams(cmd *cobra.Command, base backtest.Params) (backtest.Params, error) {
	p := base
	if path, _ := cmd.Flags().GetString("params"); path != "" {
		var err error
		if p, err = backtest.LoadParams(path, p); err != nil {
			return backtest.Params{}, err
		}
	}
	for _, key := range backtest.Keys() {
		name := flagName(key)
		if !cmd.Flags().Changed(name) {
			continue
		}
		raw, _ := cmd.Flags().GetString(name)
		if err := p.Set(key, raw); err != nil {
			return backtest.Params{}, err
		}
	}
	return p, nil
}

// parseEnd accepts RFC3339 or YYYY-MM-DD; empty means now.
func parseEnd(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end %q (expected RFC3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}
