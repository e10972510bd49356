package domain

import "time"

// AbsorptionEvent records one evaluation cycle where a strategy measured
// non-trivial absorption on either side of the book. Events are persisted
// for reporting whether or not a trade was entered.
type AbsorptionEvent struct {
	ID        string
	AssetID   string
	Strategy  string
	BidVolume float64
	AskVolume float64
	BidPrices []float64 // affected bid prices, discovery order
	AskPrices []float64 // affected ask prices, discovery order
	Side      OrderSide // side of the entered trade, empty if none
	TradeSize float64   // size of the entered trade, 0 if none
	CreatedAt time.Time
}

// Acted reports whether this event resulted in an order submission.
func (e AbsorptionEvent) Acted() bool {
	return e.Side != "" && e.TradeSize > 0
}
