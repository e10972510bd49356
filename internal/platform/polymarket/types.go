package polymarket

import (
	"math/big"
	"strconv"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIOrder represents an order as returned by the Polymarket CLOB API.
type APIOrder struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	MarketID        string  `json:"market"`
	AssetID         string  `json:"asset_id"`
	Side            string  `json:"side"` // "BUY" or "SELL"
	Type            string  `json:"type"` // "GTC", "GTD", "FOK", "FAK"
	OriginalSize    string  `json:"original_size"`
	SizeMatched     string  `json:"size_matched"`
	Price           string  `json:"price"`
	MakerAmount     string  `json:"maker_amount"`
	TakerAmount     string  `json:"taker_amount"`
	Owner           string  `json:"owner"`
	Signature       string  `json:"signature"`
	Expiration      string  `json:"expiration"`
	Nonce           string  `json:"nonce"`
	FeeRateBps      string  `json:"fee_rate_bps"`
	SignatureType   int     `json:"signature_type"`
	AssociateTradeS []any   `json:"associate_trades"`
	CreatedAt       string  `json:"created_at"`
	FilledAt        *string `json:"filled_at,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// BookMessage represents a full orderbook snapshot delivered over WebSocket.
type BookMessage struct {
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []WSPriceLevel `json:"bids"`
	Asks      []WSPriceLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// WSPriceLevel is a single bid/ask level in the WebSocket orderbook data.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PriceChangeMessage represents an incremental orderbook price-level update.
type PriceChangeMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Side      string `json:"side"`  // "BUY" or "SELL"
	Price     string `json:"price"`
	Size      string `json:"size"` // "0" means level removed
	Timestamp string `json:"timestamp"`
}

// PriceMessage represents the most recent trade price for an asset.
type PriceMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe/unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
	Markets []string `json:"markets,omitempty"`
}

// --------------------------------------------------------------------------
// Conversion helpers: API types -> domain types
// --------------------------------------------------------------------------

// ToDomainOrder converts an APIOrder to a domain.Order.
func (a *APIOrder) ToDomainOrder() domain.Order {
	o := domain.Order{
		ID:        a.ID,
		MarketID:  a.MarketID,
		TokenID:   a.AssetID,
		Wallet:    a.Owner,
		Signature: a.Signature,
	}

	// Side
	switch a.Side {
	case "BUY":
		o.Side = domain.OrderSideBuy
	case "SELL":
		o.Side = domain.OrderSideSell
	}

	// Type
	switch a.Type {
	case "GTC":
		o.Type = domain.OrderTypeGTC
	case "GTD":
		o.Type = domain.OrderTypeGTD
	case "FOK":
		o.Type = domain.OrderTypeFOK
	case "FAK":
		o.Type = domain.OrderTypeFAK
	}

	// Status
	switch a.Status {
	case "live", "open":
		o.Status = domain.OrderStatusOpen
	case "matched", "filled":
		o.Status = domain.OrderStatusMatched
	case "cancelled":
		o.Status = domain.OrderStatusCancelled
	default:
		o.Status = domain.OrderStatusPending
	}

	// Price -> PriceTicks (fixed-point * 1e6)
	if price, err := strconv.ParseFloat(a.Price, 64); err == nil {
		o.PriceTicks = domain.ToTicks(price)
	}

	// Sizes
	if orig, err := strconv.ParseFloat(a.OriginalSize, 64); err == nil {
		o.SizeUnits = domain.ToTicks(orig)
	}
	if matched, err := strconv.ParseFloat(a.SizeMatched, 64); err == nil {
		o.FilledSize = matched
	}

	// MakerAmount/TakerAmount as big.Int
	if ma, ok := new(big.Int).SetString(a.MakerAmount, 10); ok {
		o.MakerAmount = ma
	}
	if ta, ok := new(big.Int).SetString(a.TakerAmount, 10); ok {
		o.TakerAmount = ta
	}

	// Timestamps
	if t, err := time.Parse(time.RFC3339, a.CreatedAt); err == nil {
		o.CreatedAt = t
	}
	if a.FilledAt != nil {
		if t, err := time.Parse(time.RFC3339, *a.FilledAt); err == nil {
			o.FilledAt = &t
		}
	}
	if a.CancelledAt != nil {
		if t, err := time.Parse(time.RFC3339, *a.CancelledAt); err == nil {
			o.CancelledAt = &t
		}
	}

	return o
}

// ToDomainOrderResult converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	result := domain.OrderResult{
		Success:     r.Success,
		OrderID:     r.OrderID,
		Message:     r.ErrorMsg,
		ShouldRetry: r.ShouldRetry,
	}

	switch r.Status {
	case "live", "open":
		result.Status = domain.OrderStatusOpen
	case "matched":
		result.Status = domain.OrderStatusMatched
	case "delayed":
		result.Status = domain.OrderStatusPending
	default:
		if r.Success {
			result.Status = domain.OrderStatusPending
		} else {
			result.Status = domain.OrderStatusFailed
		}
	}

	return result
}

// parseWSTimestamp handles the formats seen on the CLOB feed: epoch
// milliseconds, epoch seconds, or RFC3339. The snapshot timestamps drive the
// strategies' evaluation cadence, so millisecond epochs must not be read as
// seconds.
func parseWSTimestamp(raw string) time.Time {
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ts > 1e12 {
			return time.UnixMilli(ts)
		}
		return time.Unix(ts, 0)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now()
}

// BookToDomainSnapshot converts a BookMessage to a domain.OrderbookSnapshot.
// Bids and asks are kept in feed order (best level first); BBO and mid-price
// are derived from the levels.
func BookToDomainSnapshot(b *BookMessage) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID: b.AssetID,
	}

	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}

	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
	}

	snap.Timestamp = parseWSTimestamp(b.Timestamp)

	return snap
}

// PriceChangeToDomain converts a PriceChangeMessage to a domain.PriceChange.
func PriceChangeToDomain(p *PriceChangeMessage) domain.PriceChange {
	pc := domain.PriceChange{
		AssetID: p.AssetID,
		Side:    p.Side,
	}
	pc.Price, _ = strconv.ParseFloat(p.Price, 64)
	pc.Size, _ = strconv.ParseFloat(p.Size, 64)
	pc.Timestamp = parseWSTimestamp(p.Timestamp)

	return pc
}

// PriceToDomainLastTrade converts a PriceMessage to a domain.LastTradePrice.
func PriceToDomainLastTrade(p *PriceMessage) domain.LastTradePrice {
	ltp := domain.LastTradePrice{
		AssetID: p.AssetID,
	}
	ltp.Price, _ = strconv.ParseFloat(p.Price, 64)
	ltp.Size, _ = strconv.ParseFloat(p.Size, 64)
	ltp.Timestamp = parseWSTimestamp(p.Timestamp)

	return ltp
}
