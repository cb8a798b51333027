// Package portfolio simulates cash, positions and order execution for a
// single backtest run.
package portfolio

import (
	"errors"
	"math"
	"sort"
	"time"
)

// Portfolio errors.
var (
	// ErrInvalidSymbol indicates an empty symbol.
	ErrInvalidSymbol = errors.New("portfolio: invalid symbol")
	// ErrInvalidPrice indicates a non-positive or non-finite price.
	ErrInvalidPrice = errors.New("portfolio: invalid price")
	// ErrInvalidAmount indicates a non-positive or non-finite order amount.
	ErrInvalidAmount = errors.New("portfolio: invalid amount")
	// ErrInsufficientFunds indicates the order amount exceeds available cash.
	ErrInsufficientFunds = errors.New("portfolio: insufficient funds")
	// ErrPositionOpen indicates a position is already open for the symbol.
	ErrPositionOpen = errors.New("portfolio: position already open")
	// ErrNoPosition indicates there is no open position for the symbol.
	ErrNoPosition = errors.New("portfolio: no open position")
)

// Portfolio owns the cash balance and positions of one run. It is not safe
// for concurrent use; each run owns its own Portfolio.
type Portfolio struct {
	startingCapital float64
	cash            float64
	open            map[string]*Position // symbol -> open position
	closed          []Position
	trades          []Trade
	marks           map[string]float64 // symbol -> last valid price
}

// New creates a Portfolio holding only cash.
func New(capital float64) *Portfolio {
	return &Portfolio{
		startingCapital: capital,
		cash:            capital,
		open:            make(map[string]*Position),
		marks:           make(map[string]float64),
	}
}

// StartingCapital returns the cash the portfolio was created with.
func (p *Portfolio) StartingCapital() float64 {
	return p.startingCapital
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// Position returns a copy of the open position for symbol.
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.open[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Buy opens a position in symbol worth amount at price.
func (p *Portfolio) Buy(symbol string, amount, price float64, at time.Time, reason string) (Trade, error) {
	if symbol == "" {
		return Trade{}, ErrInvalidSymbol
	}
	if !validPrice(price) {
		return Trade{}, ErrInvalidPrice
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Trade{}, ErrInvalidAmount
	}
	if amount > p.cash {
		return Trade{}, ErrInsufficientFunds
	}
	if _, ok := p.open[symbol]; ok {
		return Trade{}, ErrPositionOpen
	}

	quantity := amount / price
	p.cash -= amount
	p.open[symbol] = &Position{
		Symbol:     symbol,
		EntryPrice: price,
		Quantity:   quantity,
		OpenedAt:   at,
		Status:     StatusOpen,
	}
	p.marks[symbol] = price

	trade := Trade{
		Symbol:   symbol,
		Side:     SideBuy,
		Quantity: quantity,
		Price:    price,
		Amount:   amount,
		Time:     at,
		Reason:   reason,
	}
	p.trades = append(p.trades, trade)
	return trade, nil
}

// Sell closes the whole open position in symbol at price.
func (p *Portfolio) Sell(symbol string, price float64, at time.Time, reason string) (Trade, error) {
	if !validPrice(price) {
		return Trade{}, ErrInvalidPrice
	}
	pos, ok := p.open[symbol]
	if !ok {
		return Trade{}, ErrNoPosition
	}

	proceeds := pos.Quantity * price
	p.cash += proceeds
	p.marks[symbol] = price

	closedAt := at
	pos.ClosedAt = &closedAt
	pos.ExitPrice = price
	pos.RealizedPnL = pos.Quantity * (price - pos.EntryPrice)
	pos.Status = StatusClosed

	delete(p.open, symbol)
	p.closed = append(p.closed, *pos)

	trade := Trade{
		Symbol:   symbol,
		Side:     SideSell,
		Quantity: pos.Quantity,
		Price:    price,
		Amount:   proceeds,
		Time:     at,
		Reason:   reason,
	}
	p.trades = append(p.trades, trade)
	return trade, nil
}

// Mark records the latest price of symbol for valuation. Invalid prices are
// ignored so the previous mark stays in effect.
func (p *Portfolio) Mark(symbol string, price float64) {
	if validPrice(price) {
		p.marks[symbol] = price
	}
}

// Value returns cash plus every open position at its latest mark.
func (p *Portfolio) Value() float64 {
	value := p.cash
	for _, symbol := range p.openSymbols() {
		pos := p.open[symbol]
		value += pos.Quantity * p.marks[symbol]
	}
	return value
}

// OpenPositions returns copies of the open positions sorted by symbol.
func (p *Portfolio) OpenPositions() []Position {
	symbols := p.openSymbols()
	out := make([]Position, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, *p.open[s])
	}
	return out
}

// ClosedPositions returns closed positions in closing order.
func (p *Portfolio) ClosedPositions() []Position {
	out := make([]Position, len(p.closed))
	copy(out, p.closed)
	return out
}

// Trades returns the trade log in execution order.
func (p *Portfolio) Trades() []Trade {
	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

func (p *Portfolio) openSymbols() []string {
	symbols := make([]string, 0, len(p.open))
	for s := range p.open {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
