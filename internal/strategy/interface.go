package strategy

import (
	"context"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// Strategy defines the contract for trading strategies.
type Strategy interface {
	Name() string
	Init(ctx context.Context) error
	OnBookUpdate(ctx context.Context, snap domain.OrderbookSnapshot) ([]domain.TradeSignal, error)
	OnPriceChange(ctx context.Context, change domain.PriceChange) ([]domain.TradeSignal, error)
	OnTrade(ctx context.Context, trade domain.Trade) ([]domain.TradeSignal, error)
	OnSignal(ctx context.Context, signal domain.TradeSignal) ([]domain.TradeSignal, error)
	Close() error
}

// Config holds strategy configuration.
type Config struct {
	Name         string
	InstrumentID string  // asset/token the strategy trades; empty means all
	MarketID     string  // market the instrument belongs to, for order routing
	Size         float64 // default fixed entry size
	Params       map[string]any
}
