package portfolio

import "time"

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// Position is a holding in one instrument. A closed position is never
// reopened.
type Position struct {
	Symbol      string         `json:"symbol"`
	EntryPrice  float64        `json:"entry_price"`
	Quantity    float64        `json:"quantity"`
	OpenedAt    time.Time      `json:"opened_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	ExitPrice   float64        `json:"exit_price,omitempty"`
	RealizedPnL float64        `json:"realized_pnl"`
	Status      PositionStatus `json:"status"`
}

// UnrealizedPnLPct returns the percentage gain of the position at price.
func (p Position) UnrealizedPnLPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// Trade is an executed order. Trades are immutable once logged.
type Trade struct {
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
	Amount   float64   `json:"amount"`
	Time     time.Time `json:"time"`
	Reason   string    `json:"reason,omitempty"`
}
