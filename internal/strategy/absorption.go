package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/absorbot/internal/absorption"
	"github.com/alanyoungcy/absorbot/internal/domain"
)

// Defaults for the unfiltered absorption strategy.
const (
	defaultMinAbsorptionVolume = 100.0
	defaultRawMonitorLevels    = 3
	defaultRawDominance        = 2.0
	defaultCooldownSec         = 10.0
	defaultEvalIntervalSec     = 1.0
	defaultTradePct            = 0.1
	defaultMaxTradeSize        = 1000.0

	absorptionSignalTTL = 30 * time.Second
)

// bookLevel adapts a domain.PriceLevel to the absorption.Level interface.
type bookLevel struct {
	price float64
	size  float64
}

func (l bookLevel) Price() float64 { return l.price }
func (l bookLevel) Size() float64  { return l.size }

func asLevels(levels []domain.PriceLevel) []absorption.Level {
	out := make([]absorption.Level, len(levels))
	for i, pl := range levels {
		out[i] = bookLevel{price: pl.Price, size: pl.Size}
	}
	return out
}

func ticksToPrices(ticks []int64) []float64 {
	if len(ticks) == 0 {
		return nil
	}
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = domain.FromTicks(t)
	}
	return out
}

// sideSnapshot is one side's captured levels plus their book rank order.
type sideSnapshot struct {
	levels absorption.Snapshot
	rank   []int64
}

// absorptionState is the per-asset mutable state carried between evaluation
// cycles. Guarded by the strategy mutex.
type absorptionState struct {
	bids     sideSnapshot
	asks     sideSnapshot
	havePrev bool
	lastEval time.Time
	decision absorption.State
}

// Absorption detects one-sided absorption of resting liquidity across the top
// monitored levels of the book and enters contrarian fill-or-kill orders in
// the direction of the absorbed flow. Every monitored level participates; a
// reprice guard discounts levels that vanished because the book moved past
// them rather than because they were traded through.
type Absorption struct {
	cfg     Config
	tracker *AbsorptionTracker
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	assets map[string]*absorptionState
}

// NewAbsorption creates the unfiltered absorption strategy. The tracker is
// shared with the status API and may be nil in tests.
func NewAbsorption(cfg Config, tracker *AbsorptionTracker, logger *slog.Logger) *Absorption {
	if cfg.Name == "" {
		cfg.Name = "absorption"
	}
	return &Absorption{
		cfg:     cfg,
		tracker: tracker,
		logger:  logger.With(slog.String("strategy", cfg.Name)),
		now:     time.Now,
		assets:  make(map[string]*absorptionState),
	}
}

func (a *Absorption) Name() string { return a.cfg.Name }

// Init logs the effective parameters. Per-asset state is created lazily on
// the first book update, with the cooldown armed so the strategy never trades
// on its very first measurable cycle.
func (a *Absorption) Init(ctx context.Context) error {
	dc := a.decisionConfig()
	a.logger.Info("absorption strategy initialized",
		slog.String("instrument", a.cfg.InstrumentID),
		slog.Float64("min_absorption_volume", dc.MinAbsorptionVolume),
		slog.Float64("dominance_factor", dc.DominanceFactor),
		slog.Int("monitor_levels", a.monitorLevels()),
		slog.Duration("cooldown", dc.CooldownPeriod),
		slog.Bool("reprice_guard", a.repriceGuard()),
	)
	return nil
}

func (a *Absorption) decisionConfig() absorption.DecisionConfig {
	return absorption.DecisionConfig{
		MinAbsorptionVolume: floatParam(a.cfg.Params, "min_absorption_volume", defaultMinAbsorptionVolume),
		DominanceFactor:     floatParam(a.cfg.Params, "dominance_factor", defaultRawDominance),
		CooldownPeriod:      durationParam(a.cfg.Params, "cooldown_sec", defaultCooldownSec),
		TradePct:            floatParam(a.cfg.Params, "trade_pct_of_absorption", defaultTradePct),
		MaxTradeSize:        floatParam(a.cfg.Params, "max_trade_size", defaultMaxTradeSize),
	}
}

func (a *Absorption) monitorLevels() int {
	return intParam(a.cfg.Params, "monitor_levels", defaultRawMonitorLevels)
}

func (a *Absorption) evalInterval() time.Duration {
	return durationParam(a.cfg.Params, "eval_interval_sec", defaultEvalIntervalSec)
}

func (a *Absorption) repriceGuard() bool {
	return boolParam(a.cfg.Params, "reprice_guard", true)
}

// state returns the per-asset state, creating it on first sight. A freshly
// created state starts with the cooldown armed from now.
func (a *Absorption) state(assetID string) *absorptionState {
	st, ok := a.assets[assetID]
	if !ok {
		st = &absorptionState{decision: absorption.State{LastEntry: a.now()}}
		a.assets[assetID] = st
	}
	return st
}

// OnBookUpdate captures the top monitored levels, compares them with the
// previous capture, and emits at most one trade signal per cycle. Updates
// arriving faster than the evaluation interval are skipped without touching
// the previous capture, so absorption accumulates across skipped deltas.
func (a *Absorption) OnBookUpdate(ctx context.Context, snap domain.OrderbookSnapshot) ([]domain.TradeSignal, error) {
	if a.cfg.InstrumentID != "" && snap.AssetID != a.cfg.InstrumentID {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state(snap.AssetID)
	if !st.lastEval.IsZero() && snap.Timestamp.Sub(st.lastEval) < a.evalInterval() {
		return nil, nil
	}
	st.lastEval = snap.Timestamp

	monitor := a.monitorLevels()
	curBids, bidRank := absorption.Extract(asLevels(snap.Bids), monitor)
	curAsks, askRank := absorption.Extract(asLevels(snap.Asks), monitor)

	var signals []domain.TradeSignal
	if st.havePrev {
		guard := a.repriceGuard()
		bidRes := absorption.Raw(st.bids.levels, st.bids.rank, curBids, absorption.Bid, guard)
		askRes := absorption.Raw(st.asks.levels, st.asks.rank, curAsks, absorption.Ask, guard)
		signals = a.evaluate(snap, st, bidRes, askRes)
	}

	st.bids = sideSnapshot{levels: curBids, rank: bidRank}
	st.asks = sideSnapshot{levels: curAsks, rank: askRank}
	st.havePrev = true
	return signals, nil
}

// evaluate runs the decision rules against the two side results, records the
// event when any absorption was measured, and builds the signal for an entry.
func (a *Absorption) evaluate(snap domain.OrderbookSnapshot, st *absorptionState, bidRes, askRes absorption.Result) []domain.TradeSignal {
	now := a.now()
	intent, next := absorption.Decide(a.decisionConfig(), st.decision, now, bidRes, askRes, snap.BestBid, snap.BestAsk)
	st.decision = next

	if bidRes.Volume > 0 || askRes.Volume > 0 {
		evt := domain.AbsorptionEvent{
			ID:        uuid.New().String(),
			AssetID:   snap.AssetID,
			Strategy:  a.cfg.Name,
			BidVolume: bidRes.Volume,
			AskVolume: askRes.Volume,
			BidPrices: ticksToPrices(bidRes.Prices),
			AskPrices: ticksToPrices(askRes.Prices),
			CreatedAt: now,
		}
		if intent != nil {
			evt.Side = intent.Side
			evt.TradeSize = intent.Size
		}
		if a.tracker != nil {
			a.tracker.Record(evt)
		}
		a.logger.Debug("absorption measured",
			slog.String("asset", snap.AssetID),
			slog.Float64("bid_volume", bidRes.Volume),
			slog.Float64("ask_volume", askRes.Volume),
		)
	}

	if intent == nil {
		return nil
	}

	a.logger.Info("absorption entry",
		slog.String("asset", snap.AssetID),
		slog.String("side", string(intent.Side)),
		slog.Float64("price", intent.Price),
		slog.Float64("size", intent.Size),
		slog.Float64("absorbed_volume", intent.Volume),
	)

	return []domain.TradeSignal{a.buildSignal(snap, *intent, bidRes, askRes, now)}
}

func (a *Absorption) buildSignal(snap domain.OrderbookSnapshot, intent absorption.Intent, bidRes, askRes absorption.Result, now time.Time) domain.TradeSignal {
	return domain.TradeSignal{
		ID:         fmt.Sprintf("ab-%s-%d", snap.AssetID, now.UnixNano()),
		Source:     a.cfg.Name,
		MarketID:   a.cfg.MarketID,
		TokenID:    snap.AssetID,
		Side:       intent.Side,
		Type:       domain.OrderTypeFOK,
		PriceTicks: domain.ToTicks(intent.Price),
		SizeUnits:  domain.ToTicks(intent.Size),
		Urgency:    domain.SignalUrgencyHigh,
		Reason: fmt.Sprintf("one-sided absorption %.2f at %s",
			intent.Volume, string(intent.Side)),
		Metadata: map[string]string{
			"bid_volume": fmt.Sprintf("%.6f", bidRes.Volume),
			"ask_volume": fmt.Sprintf("%.6f", askRes.Volume),
		},
		CreatedAt: now,
		ExpiresAt: now.Add(absorptionSignalTTL),
	}
}

// OnPriceChange is unused; the strategy works from full snapshots so that
// level ranks are always consistent.
func (a *Absorption) OnPriceChange(ctx context.Context, change domain.PriceChange) ([]domain.TradeSignal, error) {
	return nil, nil
}

// OnTrade logs the tape for observation only.
func (a *Absorption) OnTrade(ctx context.Context, trade domain.Trade) ([]domain.TradeSignal, error) {
	if a.cfg.InstrumentID != "" && trade.AssetID != a.cfg.InstrumentID {
		return nil, nil
	}
	a.logger.Debug("trade observed",
		slog.String("asset", trade.AssetID),
		slog.String("side", string(trade.Side)),
		slog.Float64("price", trade.Price),
		slog.Float64("size", trade.Size),
	)
	return nil, nil
}

// OnSignal ignores signals from other strategies.
func (a *Absorption) OnSignal(ctx context.Context, signal domain.TradeSignal) ([]domain.TradeSignal, error) {
	return nil, nil
}

// Close logs a per-asset summary of the session's absorption activity.
func (a *Absorption) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for assetID, st := range a.assets {
		attrs := []any{
			slog.String("asset", assetID),
			slog.Int("trades_taken", st.decision.TradesTaken),
		}
		if a.tracker != nil {
			stats := a.tracker.Stats(assetID)
			attrs = append(attrs,
				slog.Int("events", stats.Events),
				slog.Float64("avg_bid_volume", stats.AvgBidVolume),
				slog.Float64("avg_ask_volume", stats.AvgAskVolume),
			)
		}
		a.logger.Info("absorption session summary", attrs...)
	}
	return nil
}
