package backtest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/indicator"
	"github.com/newthinker/sextant/internal/policy"
	"github.com/newthinker/sextant/internal/strategy"
	"github.com/newthinker/sextant/internal/strategy/ma_crossover"
	"github.com/newthinker/sextant/internal/strategy/macd"
	"github.com/newthinker/sextant/internal/strategy/rsi"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Params is the configuration of one backtest run.
type Params struct {
	Symbol          string  `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Timeframe       string  `json:"timeframe" yaml:"timeframe" mapstructure:"timeframe"`
	Days            int     `json:"days" yaml:"days" mapstructure:"days"`
	Capital         float64 `json:"capital" yaml:"capital" mapstructure:"capital"`
	PositionSizePct float64 `json:"position_size_pct" yaml:"position_size_pct" mapstructure:"position_size_pct"`

	RSIEnabled    bool    `json:"rsi_enabled" yaml:"rsi_enabled" mapstructure:"rsi_enabled"`
	RSIPeriod     int     `json:"rsi_period" yaml:"rsi_period" mapstructure:"rsi_period"`
	RSIOversold   float64 `json:"rsi_oversold" yaml:"rsi_oversold" mapstructure:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought" yaml:"rsi_overbought" mapstructure:"rsi_overbought"`

	MACDEnabled bool `json:"macd_enabled" yaml:"macd_enabled" mapstructure:"macd_enabled"`
	MACDFast    int  `json:"macd_fast" yaml:"macd_fast" mapstructure:"macd_fast"`
	MACDSlow    int  `json:"macd_slow" yaml:"macd_slow" mapstructure:"macd_slow"`
	MACDSignal  int  `json:"macd_signal" yaml:"macd_signal" mapstructure:"macd_signal"`

	SMAEnabled bool `json:"sma_enabled" yaml:"sma_enabled" mapstructure:"sma_enabled"`
	SMAShort   int  `json:"sma_short" yaml:"sma_short" mapstructure:"sma_short"`
	SMALong    int  `json:"sma_long" yaml:"sma_long" mapstructure:"sma_long"`

	// nil disables the overlay
	StopLossPct   *float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" mapstructure:"stop_loss_pct"`
	TakeProfitPct *float64 `json:"take_profit_pct" yaml:"take_profit_pct" mapstructure:"take_profit_pct"`
}

// DefaultParams returns the parameters used when nothing is overridden.
func DefaultParams() Params {
	return Params{
		Symbol:          "BTCUSDT",
		Timeframe:       "1h",
		Days:            30,
		Capital:         10000,
		PositionSizePct: 10,

		RSIEnabled:    true,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,

		MACDEnabled: true,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,

		SMAEnabled: true,
		SMAShort:   20,
		SMALong:    50,
	}
}

// Clone returns a copy that shares no overlay values with p, so decoding
// into the copy leaves p untouched.
func (p Params) Clone() Params {
	q := p
	q.StopLossPct = clonePct(p.StopLossPct)
	q.TakeProfitPct = clonePct(p.TakeProfitPct)
	return q
}

func clonePct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Validate checks every rule and reports all violations at once.
func (p Params) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(p.Symbol) == "" {
		add("symbol is required")
	}
	if _, err := core.ParseTimeframe(p.Timeframe); err != nil {
		errs = append(errs, err)
	}
	if p.Days <= 0 {
		add("days must be positive, got %d", p.Days)
	}
	if !(p.Capital > 0) || math.IsInf(p.Capital, 0) {
		add("capital must be a positive number, got %v", p.Capital)
	}
	if !(p.PositionSizePct > 0 && p.PositionSizePct <= 100) {
		add("position_size_pct must be in (0,100], got %v", p.PositionSizePct)
	}

	if p.RSIEnabled {
		if p.RSIPeriod <= 0 {
			add("rsi_period must be positive, got %d", p.RSIPeriod)
		}
		if !(p.RSIOversold >= 0 && p.RSIOversold < p.RSIOverbought && p.RSIOverbought <= 100) {
			add("rsi thresholds must satisfy 0 <= rsi_oversold < rsi_overbought <= 100, got %v/%v",
				p.RSIOversold, p.RSIOverbought)
		}
	}
	if p.MACDEnabled {
		if p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
			add("macd periods must be positive, got %d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal)
		} else if p.MACDFast >= p.MACDSlow {
			add("macd_fast must be less than macd_slow, got %d >= %d", p.MACDFast, p.MACDSlow)
		}
	}
	if p.SMAEnabled {
		if p.SMAShort <= 0 || p.SMALong <= 0 {
			add("sma periods must be positive, got %d/%d", p.SMAShort, p.SMALong)
		} else if p.SMAShort >= p.SMALong {
			add("sma_short must be less than sma_long, got %d >= %d", p.SMAShort, p.SMALong)
		}
	}

	if p.StopLossPct != nil && !(*p.StopLossPct > 0 && *p.StopLossPct <= 100) {
		add("stop_loss_pct must be in (0,100], got %v", *p.StopLossPct)
	}
	if p.TakeProfitPct != nil && (!(*p.TakeProfitPct > 0) || math.IsInf(*p.TakeProfitPct, 0)) {
		add("take_profit_pct must be a positive number, got %v", *p.TakeProfitPct)
	}

	if len(errs) > 0 {
		return core.WrapError(core.ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}

// Settings returns the indicator settings for the enabled indicators.
func (p Params) Settings(minCandles int) indicator.Settings {
	s := indicator.Settings{MinCandles: minCandles}
	if p.RSIEnabled {
		s.RSIPeriod = p.RSIPeriod
	}
	if p.MACDEnabled {
		s.MACDFast, s.MACDSlow, s.MACDSignal = p.MACDFast, p.MACDSlow, p.MACDSignal
	}
	if p.SMAEnabled {
		s.SMAShort, s.SMALong = p.SMAShort, p.SMALong
	}
	return s
}

// Policy returns the decision policy for these parameters.
func (p Params) Policy(minTradeAmount float64) policy.Policy {
	return policy.Policy{
		PositionSizePct: p.PositionSizePct,
		MinTradeAmount:  minTradeAmount,
		StopLossPct:     p.StopLossPct,
		TakeProfitPct:   p.TakeProfitPct,
	}
}

// Engine builds a strategy engine with the enabled strategies registered in
// RSI, MACD, SMA order.
func (p Params) Engine(signalTTL time.Duration, logger *zap.Logger) *strategy.Engine {
	engine := strategy.NewEngine(logger)
	engine.SetSignalTTL(signalTTL)
	if p.RSIEnabled {
		engine.Register(rsi.New(p.RSIPeriod, p.RSIOversold, p.RSIOverbought))
	}
	if p.MACDEnabled {
		engine.Register(macd.New(p.MACDFast, p.MACDSlow, p.MACDSignal))
	}
	if p.SMAEnabled {
		engine.Register(ma_crossover.New(p.SMAShort, p.SMALong))
	}
	return engine
}

// Param is one named configuration value.
type Param struct {
	Key   string
	Value any
}

// String formats the value; nil optional values render as "null".
func (p Param) String() string {
	switch v := p.Value.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type field struct {
	key string
	get func(p *Params) any
	set func(p *Params, raw string) error
}

// fields lists the configuration surface in its canonical order.
var fields = []field{
	stringField("symbol", func(p *Params) *string { return &p.Symbol }),
	stringField("timeframe", func(p *Params) *string { return &p.Timeframe }),
	intField("days", func(p *Params) *int { return &p.Days }),
	floatField("capital", func(p *Params) *float64 { return &p.Capital }),
	floatField("position_size_pct", func(p *Params) *float64 { return &p.PositionSizePct }),
	boolField("rsi_enabled", func(p *Params) *bool { return &p.RSIEnabled }),
	intField("rsi_period", func(p *Params) *int { return &p.RSIPeriod }),
	floatField("rsi_oversold", func(p *Params) *float64 { return &p.RSIOversold }),
	floatField("rsi_overbought", func(p *Params) *float64 { return &p.RSIOverbought }),
	boolField("macd_enabled", func(p *Params) *bool { return &p.MACDEnabled }),
	intField("macd_fast", func(p *Params) *int { return &p.MACDFast }),
	intField("macd_slow", func(p *Params) *int { return &p.MACDSlow }),
	intField("macd_signal", func(p *Params) *int { return &p.MACDSignal }),
	boolField("sma_enabled", func(p *Params) *bool { return &p.SMAEnabled }),
	intField("sma_short", func(p *Params) *int { return &p.SMAShort }),
	intField("sma_long", func(p *Params) *int { return &p.SMALong }),
	optionalField("stop_loss_pct", func(p *Params) **float64 { return &p.StopLossPct }),
	optionalField("take_profit_pct", func(p *Params) **float64 { return &p.TakeProfitPct }),
}

// Keys returns the configuration keys in canonical order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Values returns every configuration value in canonical order.
func (p Params) Values() []Param {
	out := make([]Param, len(fields))
	for i, f := range fields {
		out[i] = Param{Key: f.key, Value: f.get(&p)}
	}
	return out
}

// Set parses raw and assigns it to the named key. Optional keys accept
// "null" or an empty string to clear them.
func (p *Params) Set(key, raw string) error {
	for _, f := range fields {
		if f.key == key {
			if err := f.set(p, strings.TrimSpace(raw)); err != nil {
				return core.WrapError(core.ErrInvalidParams, fmt.Errorf("%s: %w", key, err))
			}
			return nil
		}
	}
	return core.WrapError(core.ErrInvalidParams, fmt.Errorf("unknown parameter %q", key))
}

func stringField(key string, ref func(*Params) *string) field {
	return field{
		key: key,
		get: func(p *Params) any { return *ref(p) },
		set: func(p *Params, raw string) error {
			*ref(p) = raw
			return nil
		},
	}
}

func intField(key string, ref func(*Params) *int) field {
	return field{
		key: key,
		get: func(p *Params) any { return *ref(p) },
		set: func(p *Params, raw string) error {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return err
			}
			*ref(p) = v
			return nil
		},
	}
}

func floatField(key string, ref func(*Params) *float64) field {
	return field{
		key: key,
		get: func(p *Params) any { return *ref(p) },
		set: func(p *Params, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err
			}
			*ref(p) = v
			return nil
		},
	}
}

func boolField(key string, ref func(*Params) *bool) field {
	return field{
		key: key,
		get: func(p *Params) any { return *ref(p) },
		set: func(p *Params, raw string) error {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return err
			}
			*ref(p) = v
			return nil
		},
	}
}

func optionalField(key string, ref func(*Params) **float64) field {
	return field{
		key: key,
		get: func(p *Params) any {
			if v := *ref(p); v != nil {
				return *v
			}
			return nil
		},
		set: func(p *Params, raw string) error {
			if raw == "" || strings.EqualFold(raw, "null") {
				*ref(p) = nil
				return nil
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err
			}
			*ref(p) = &v
			return nil
		},
	}
}

// LoadParams reads a YAML or JSON parameter file on top of base. Keys absent
// from the file keep their value from base.
func LoadParams(path string, base Params) (Params, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Params{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading params file: %w", err))
	}

	p := base.Clone()
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("decoding params file: %w", err))
	}
	return p, nil
}
