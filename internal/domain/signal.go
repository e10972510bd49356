package domain

import "time"

// SignalUrgency indicates how quickly a signal should be acted upon.
type SignalUrgency int

const (
	SignalUrgencyLow SignalUrgency = iota
	SignalUrgencyMedium
	SignalUrgencyHigh
	SignalUrgencyImmediate
)

// TradeSignal is emitted by a strategy to request order execution.
type TradeSignal struct {
	ID         string // UUID for dedup
	Source     string // strategy name
	MarketID   string
	TokenID    string
	Side       OrderSide
	Type       OrderType
	PriceTicks int64 // fixed-point price, 1e6 ticks
	SizeUnits  int64 // fixed-point size, 1e6 units
	Urgency    SignalUrgency
	Reason     string
	Metadata   map[string]string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Price returns the display price from fixed-point ticks.
func (s TradeSignal) Price() float64 {
	return float64(s.PriceTicks) / TickScale
}

// Size returns the display size from fixed-point units.
func (s TradeSignal) Size() float64 {
	return float64(s.SizeUnits) / TickScale
}

// BotStatus is a summary of the bot's current operational state.
type BotStatus struct {
	Mode          string
	WSConnected   bool
	UptimeSeconds int64
	OpenPositions int32
	OpenOrders    int32
	StrategyName  string
}
