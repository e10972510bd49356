package domain

import "time"

// TickScale is the fixed-point scale used for prices and sizes throughout
// the system: 1 unit = 1e-6.
const TickScale = 1e6

// ToTicks converts a display price to fixed-point ticks. Level maps are
// keyed by ticks so that equal prices always hash to the same key.
func ToTicks(price float64) int64 {
	if price >= 0 {
		return int64(price*TickScale + 0.5)
	}
	return int64(price*TickScale - 0.5)
}

// FromTicks converts fixed-point ticks back to a display price.
func FromTicks(ticks int64) float64 {
	return float64(ticks) / TickScale
}

// PriceLevel is a single price+size entry in an orderbook, ranked best-first
// within its side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for an asset.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	MidPrice  float64
	Timestamp time.Time
}

// PriceChange is an incremental orderbook level update.
type PriceChange struct {
	AssetID   string
	Side      string // "BUY" or "SELL"
	Price     float64
	Size      float64 // 0 means remove level
	Timestamp time.Time
}

// LastTradePrice is the most recent trade execution for an asset. The
// absorption strategies consume these for observational logging only.
type LastTradePrice struct {
	AssetID   string
	Price     float64
	Size      float64
	Timestamp time.Time
}
