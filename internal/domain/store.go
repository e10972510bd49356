package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OrderStore persists trading orders.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListOpen(ctx context.Context, wallet string) ([]Order, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Order, error)
}

// PositionStore persists positions.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Update(ctx context.Context, pos Position) error
	Close(ctx context.Context, id string, exitPrice float64) error
	GetOpen(ctx context.Context, wallet string) ([]Position, error)
	GetByID(ctx context.Context, id string) (Position, error)
}

// AbsorptionEventStore persists absorption detection history.
type AbsorptionEventStore interface {
	Insert(ctx context.Context, evt AbsorptionEvent) error
	ListRecent(ctx context.Context, limit int) ([]AbsorptionEvent, error)
	ListByAsset(ctx context.Context, assetID string, opts ListOpts) ([]AbsorptionEvent, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// StrategyConfig is a named strategy configuration blob.
type StrategyConfig struct {
	Name      string
	Config    map[string]any
	Enabled   bool
	UpdatedAt time.Time
}

// StrategyConfigStore persists strategy configurations.
type StrategyConfigStore interface {
	Get(ctx context.Context, name string) (StrategyConfig, error)
	Upsert(ctx context.Context, cfg StrategyConfig) error
	List(ctx context.Context) ([]StrategyConfig, error)
}
