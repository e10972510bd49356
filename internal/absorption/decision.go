package absorption

import (
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// Phase is the decision state machine's current phase.
type Phase int

const (
	// PhaseIdle means the strategy is ready to evaluate and may enter a trade.
	PhaseIdle Phase = iota
	// PhaseCoolingDown means a trade was entered within the cooldown window
	// and all evaluations are no-ops until it elapses.
	PhaseCoolingDown
)

// DecisionConfig holds the thresholds and sizing policy for entry decisions.
type DecisionConfig struct {
	// MinAbsorptionVolume is the minimum absorbed volume on the dominant
	// side before any trade is considered.
	MinAbsorptionVolume float64

	// DominanceFactor is the multiple by which one side's absorbed volume
	// must exceed the other's.
	DominanceFactor float64

	// CooldownPeriod is the minimum elapsed time between two entries.
	CooldownPeriod time.Duration

	// TradeSize is the fixed entry size, used when TradePct is zero.
	TradeSize float64

	// TradePct sizes the entry as a fraction of the absorbed volume,
	// capped at MaxTradeSize. Takes precedence over TradeSize when > 0.
	TradePct     float64
	MaxTradeSize float64
}

// State is the decision state carried between evaluation cycles. The zero
// value is idle with no trades taken.
type State struct {
	LastEntry   time.Time
	TradesTaken int
}

// Phase returns the state machine phase at the given instant.
func (s State) Phase(now time.Time, cooldown time.Duration) Phase {
	if !s.LastEntry.IsZero() && now.Sub(s.LastEntry) < cooldown {
		return PhaseCoolingDown
	}
	return PhaseIdle
}

// Intent is a directional entry decision: a contrarian order at the current
// best price on the absorbed side, to be submitted fill-or-kill.
type Intent struct {
	Side   domain.OrderSide
	Price  float64
	Size   float64
	Volume float64 // absorbed volume that triggered the entry
}

// Decide applies the cooldown, minimum-volume, and dominance rules to the
// two side results and returns at most one entry intent plus the updated
// state.
//
// Heavy bid absorption is a sell signal (resting bids being hit) at the best
// bid; heavy ask absorption is a buy signal at the best ask. The bid branch
// is checked first; at most one branch fires per cycle. A missing best price
// on the triggered side suppresses the entry silently and leaves the state
// untouched, so the cooldown only starts when an intent is actually emitted.
func Decide(cfg DecisionConfig, st State, now time.Time, bid, ask Result, bestBid, bestAsk float64) (*Intent, State) {
	if st.Phase(now, cfg.CooldownPeriod) == PhaseCoolingDown {
		return nil, st
	}

	switch {
	case bid.Volume > cfg.MinAbsorptionVolume && bid.Volume > ask.Volume*cfg.DominanceFactor:
		if bestBid <= 0 {
			return nil, st
		}
		st.LastEntry = now
		st.TradesTaken++
		return &Intent{
			Side:   domain.OrderSideSell,
			Price:  bestBid,
			Size:   cfg.entrySize(bid.Volume),
			Volume: bid.Volume,
		}, st

	case ask.Volume > cfg.MinAbsorptionVolume && ask.Volume > bid.Volume*cfg.DominanceFactor:
		if bestAsk <= 0 {
			return nil, st
		}
		st.LastEntry = now
		st.TradesTaken++
		return &Intent{
			Side:   domain.OrderSideBuy,
			Price:  bestAsk,
			Size:   cfg.entrySize(ask.Volume),
			Volume: ask.Volume,
		}, st
	}

	return nil, st
}

// entrySize applies the configured sizing policy to the absorbed volume.
func (cfg DecisionConfig) entrySize(volume float64) float64 {
	if cfg.TradePct <= 0 {
		return cfg.TradeSize
	}
	size := volume * cfg.TradePct
	if cfg.MaxTradeSize > 0 && size > cfg.MaxTradeSize {
		size = cfg.MaxTradeSize
	}
	return size
}
