package domain

import "time"

// Trade represents a trade tape entry observed on the market feed.
type Trade struct {
	ID        int64
	AssetID   string
	MarketID  string
	Side      OrderSide
	Price     float64
	Size      float64
	Timestamp time.Time
}
