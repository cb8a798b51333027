// Package policy turns the signals of one step into a trading decision.
package policy

import (
	"fmt"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/portfolio"
)

// DefaultMinTradeAmount is the smallest order amount the policy will place.
const DefaultMinTradeAmount = 1.0

// Exit reasons for risk overlays.
const (
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
)

// Action is what the policy wants done this step.
type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Decision is the outcome of evaluating one step.
type Decision struct {
	Action Action
	Symbol string
	// Amount of cash to spend; only set for buys.
	Amount float64
	Reason string
	// Signal is the dominant signal behind the decision, nil for overlays.
	Signal *core.Signal
}

// Book is the read-only view of the portfolio the policy needs.
type Book interface {
	Cash() float64
	Position(symbol string) (portfolio.Position, bool)
}

// Policy holds sizing and risk overlay settings.
type Policy struct {
	PositionSizePct float64
	MinTradeAmount  float64
	StopLossPct     *float64
	TakeProfitPct   *float64
}

// CheckExit evaluates the stop-loss and take-profit overlays for the open
// position in symbol at price. It runs before signal handling each step.
func (p Policy) CheckExit(book Book, symbol string, price float64) Decision {
	pos, ok := book.Position(symbol)
	if !ok {
		return hold(symbol)
	}

	pnl := pos.UnrealizedPnLPct(price)
	if p.StopLossPct != nil && -pnl > *p.StopLossPct {
		return Decision{
			Action: ActionSell,
			Symbol: symbol,
			Reason: ReasonStopLoss,
		}
	}
	if p.TakeProfitPct != nil && pnl > *p.TakeProfitPct {
		return Decision{
			Action: ActionSell,
			Symbol: symbol,
			Reason: ReasonTakeProfit,
		}
	}
	return hold(symbol)
}

// Decide picks the dominant signal and maps it to an action for symbol.
// Bearish without a position and bullish with one are no-ops.
func (p Policy) Decide(symbol string, signals []core.Signal, book Book) Decision {
	dominant, ok := SelectDominant(signals)
	if !ok {
		return hold(symbol)
	}

	_, open := book.Position(symbol)

	switch dominant.Direction {
	case core.Bullish:
		if open {
			return hold(symbol)
		}
		amount := book.Cash() * p.PositionSizePct / 100
		if amount <= p.minTradeAmount() {
			return hold(symbol)
		}
		return Decision{
			Action: ActionBuy,
			Symbol: symbol,
			Amount: amount,
			Reason: dominant.Source,
			Signal: &dominant,
		}
	case core.Bearish:
		if !open {
			return hold(symbol)
		}
		return Decision{
			Action: ActionSell,
			Symbol: symbol,
			Reason: dominant.Source,
			Signal: &dominant,
		}
	}
	return hold(symbol)
}

func (p Policy) minTradeAmount() float64 {
	if p.MinTradeAmount > 0 {
		return p.MinTradeAmount
	}
	return DefaultMinTradeAmount
}

func (d Decision) String() string {
	if d.Action == ActionBuy {
		return fmt.Sprintf("%s %s %.2f (%s)", d.Action, d.Symbol, d.Amount, d.Reason)
	}
	return fmt.Sprintf("%s %s (%s)", d.Action, d.Symbol, d.Reason)
}

func hold(symbol string) Decision {
	return Decision{Action: ActionHold, Symbol: symbol}
}
