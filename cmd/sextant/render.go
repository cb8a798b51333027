package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/sextant/internal/compare"
	"github.com/newthinker/sextant/internal/storage/run"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (table, json or yaml)", format)
}

// output writes v as JSON or YAML, or calls table for the styled view.
func output(w io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		table(w)
		return nil
	}
}

// cell pads s to width using style.
func cell(style lipgloss.Style, width int, s string) string {
	return style.Width(width).Render(s)
}

func pct(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64) + "%"
	switch {
	case v > 0:
		return gainStyle.Render("+" + s)
	case v < 0:
		return lossStyle.Render(s)
	default:
		return s
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderRecord(w io.Writer, rec *run.Record) {
	r := rec.Results
	title := rec.Name
	if rec.ID != "" {
		title += dimStyle.Render(" (" + rec.ID + ")")
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	buys := r.BuyCount()
	rows := [][2]string{
		{"Symbol", r.Symbol + " " + r.Timeframe},
		{"Period", r.StartDate.Format("2006-01-02 15:04") + " to " + r.EndDate.Format("2006-01-02 15:04")},
		{"Candles", strconv.Itoa(r.Candles)},
		{"Capital", money(r.StartingCapital) + " -> " + money(r.FinalValue)},
		{"Cash", money(r.Cash)},
		{"Return", pct(r.Stats.TotalReturnPct)},
		{"Buy & hold", pct(r.Stats.BuyHoldReturnPct)},
		{"Max drawdown", strconv.FormatFloat(r.Stats.MaxDrawdownPct, 'f', 2, 64) + "%"},
		{"Sharpe", strconv.FormatFloat(r.Stats.SharpeRatio, 'f', 3, 64)},
		{"Trades", fmt.Sprintf("%d (%d buy, %d sell; %d round trips, %d won, %d lost)",
			r.Stats.TradeCount, buys, len(r.Trades)-buys, r.Stats.RoundTrips, r.Stats.WinCount, r.Stats.LossCount)},
		{"Win rate", strconv.FormatFloat(r.Stats.WinRatePct, 'f', 1, 64) + "%"},
		{"Positions", fmt.Sprintf("%d open, %d closed", len(r.OpenPositions), len(r.ClosedPositions))},
	}
	for _, row := range rows {
		fmt.Fprintln(w, cell(labelStyle, 16, row[0])+row[1])
	}

	if len(r.SignalCounts) > 0 {
		sources := make([]string, 0, len(r.SignalCounts))
		for src := range r.SignalCounts {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		parts := make([]string, len(sources))
		for i, src := range sources {
			parts[i] = fmt.Sprintf("%s=%d", src, r.SignalCounts[src])
		}
		fmt.Fprintln(w, cell(labelStyle, 16, "Signals")+strings.Join(parts, " "))
	}

	if len(r.Trades) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, cell(headerStyle, 18, "TIME")+cell(headerStyle, 6, "SIDE")+
		cell(headerStyle, 14, "PRICE")+cell(headerStyle, 14, "QTY")+cell(headerStyle, 12, "AMOUNT")+headerStyle.Render("REASON"))
	for _, t := range r.Trades {
		fmt.Fprintln(w, cell(lipgloss.NewStyle(), 18, t.Time.Format("2006-01-02 15:04"))+
			cell(lipgloss.NewStyle(), 6, string(t.Side))+
			cell(lipgloss.NewStyle(), 14, money(t.Price))+
			cell(lipgloss.NewStyle(), 14, strconv.FormatFloat(t.Quantity, 'f', 6, 64))+
			cell(lipgloss.NewStyle(), 12, money(t.Amount))+
			dimStyle.Render(t.Reason))
	}
}

func renderRuns(w io.Writer, runs []run.Record, total int) {
	fmt.Fprintln(w, cell(headerStyle, 28, "ID")+cell(headerStyle, 30, "NAME")+cell(headerStyle, 10, "SYMBOL")+
		cell(headerStyle, 5, "TF")+cell(headerStyle, 10, "RETURN")+cell(headerStyle, 8, "TRADES")+headerStyle.Render("CREATED"))
	for _, rec := range runs {
		name := rec.Name
		if len(name) > 28 {
			name = name[:27] + "~"
		}
		fmt.Fprintln(w, cell(lipgloss.NewStyle(), 28, rec.ID)+
			cell(lipgloss.NewStyle(), 30, name)+
			cell(lipgloss.NewStyle(), 10, rec.Symbol)+
			cell(lipgloss.NewStyle(), 5, rec.Timeframe)+
			cell(lipgloss.NewStyle(), 10, pct(rec.Results.Stats.TotalReturnPct))+
			cell(lipgloss.NewStyle(), 8, strconv.Itoa(rec.Results.Stats.TradeCount))+
			dimStyle.Render(rec.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %d runs", len(runs), total)))
}

func renderComparison(w io.Writer, cmp *compare.Comparison) {
	width := 22
	for _, l := range cmp.Labels {
		if len(l)+2 > width {
			width = len(l) + 2
		}
	}

	header := cell(headerStyle, 22, "METRIC")
	for _, l := range cmp.Labels {
		header += cell(headerStyle, width, l)
	}
	fmt.Fprintln(w, header)
	for _, row := range cmp.Metrics.Rows {
		line := cell(labelStyle, 22, row.Name)
		for _, v := range row.Values {
			line += cell(lipgloss.NewStyle(), width, strconv.FormatFloat(v, 'f', 2, 64))
		}
		fmt.Fprintln(w, line)
	}

	if len(cmp.ParamDiffs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("parameters identical"))
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, labelStyle.Render("differs in: "+strings.Join(cmp.DiffKeys(), ", ")))
	for _, d := range cmp.ParamDiffs {
		line := cell(labelStyle, 22, d.Key)
		for _, v := range d.Values {
			line += cell(lipgloss.NewStyle(), width, v)
		}
		fmt.Fprintln(w, line)
	}
}
