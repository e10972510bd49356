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

// Defaults for the liquidity-filtered absorption strategy.
const (
	defaultLiquidityThreshold    = 100.0
	defaultFilteredMonitorLevels = 5
	defaultFilteredDominance     = 1.5
	defaultFilteredTradeSize     = 1.0
)

// LiquidityAbsorption restricts absorption measurement to liquidity areas,
// levels whose resting quantity strictly exceeds a threshold. Areas are
// recomputed from the current snapshot every cycle and then compared against
// the previous capture, so a level qualifies by what remains on it now, not
// by what it held before. A vanished area level counts as fully absorbed;
// there is no reprice guard on this variant.
type LiquidityAbsorption struct {
	cfg     Config
	tracker *AbsorptionTracker
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	assets map[string]*absorptionState
}

// NewLiquidityAbsorption creates the liquidity-filtered strategy. The tracker
// is shared with the status API and may be nil in tests.
func NewLiquidityAbsorption(cfg Config, tracker *AbsorptionTracker, logger *slog.Logger) *LiquidityAbsorption {
	if cfg.Name == "" {
		cfg.Name = "liquidity_absorption"
	}
	return &LiquidityAbsorption{
		cfg:     cfg,
		tracker: tracker,
		logger:  logger.With(slog.String("strategy", cfg.Name)),
		now:     time.Now,
		assets:  make(map[string]*absorptionState),
	}
}

func (l *LiquidityAbsorption) Name() string { return l.cfg.Name }

// Init logs the effective parameters. Per-asset state is created lazily with
// the cooldown armed, as in the unfiltered variant.
func (l *LiquidityAbsorption) Init(ctx context.Context) error {
	dc := l.decisionConfig()
	l.logger.Info("liquidity absorption strategy initialized",
		slog.String("instrument", l.cfg.InstrumentID),
		slog.Float64("liquidity_threshold", l.liquidityThreshold()),
		slog.Float64("min_absorption_volume", dc.MinAbsorptionVolume),
		slog.Float64("dominance_factor", dc.DominanceFactor),
		slog.Int("monitor_levels", l.monitorLevels()),
		slog.Duration("cooldown", dc.CooldownPeriod),
		slog.Float64("trade_size", dc.TradeSize),
	)
	return nil
}

func (l *LiquidityAbsorption) decisionConfig() absorption.DecisionConfig {
	size := floatParam(l.cfg.Params, "trade_size", l.cfg.Size)
	if size <= 0 {
		size = defaultFilteredTradeSize
	}
	return absorption.DecisionConfig{
		MinAbsorptionVolume: floatParam(l.cfg.Params, "min_absorption_volume", defaultMinAbsorptionVolume),
		DominanceFactor:     floatParam(l.cfg.Params, "dominance_factor", defaultFilteredDominance),
		CooldownPeriod:      durationParam(l.cfg.Params, "cooldown_sec", defaultCooldownSec),
		TradeSize:           size,
	}
}

func (l *LiquidityAbsorption) liquidityThreshold() float64 {
	return floatParam(l.cfg.Params, "liquidity_threshold", defaultLiquidityThreshold)
}

func (l *LiquidityAbsorption) monitorLevels() int {
	return intParam(l.cfg.Params, "monitor_levels", defaultFilteredMonitorLevels)
}

func (l *LiquidityAbsorption) evalInterval() time.Duration {
	return durationParam(l.cfg.Params, "eval_interval_sec", defaultEvalIntervalSec)
}

func (l *LiquidityAbsorption) state(assetID string) *absorptionState {
	st, ok := l.assets[assetID]
	if !ok {
		st = &absorptionState{decision: absorption.State{LastEntry: l.now()}}
		l.assets[assetID] = st
	}
	return st
}

// OnBookUpdate captures the top monitored levels, identifies the current
// liquidity areas, and measures absorption on those areas against the
// previous capture. Updates arriving faster than the evaluation interval are
// skipped without touching the previous capture.
func (l *LiquidityAbsorption) OnBookUpdate(ctx context.Context, snap domain.OrderbookSnapshot) ([]domain.TradeSignal, error) {
	if l.cfg.InstrumentID != "" && snap.AssetID != l.cfg.InstrumentID {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(snap.AssetID)
	if !st.lastEval.IsZero() && snap.Timestamp.Sub(st.lastEval) < l.evalInterval() {
		return nil, nil
	}
	st.lastEval = snap.Timestamp

	monitor := l.monitorLevels()
	curBids, bidRank := absorption.Extract(asLevels(snap.Bids), monitor)
	curAsks, askRank := absorption.Extract(asLevels(snap.Asks), monitor)

	var signals []domain.TradeSignal
	if st.havePrev {
		threshold := l.liquidityThreshold()
		bidAreas := absorption.IdentifyLiquidityAreas(curBids, bidRank, threshold)
		askAreas := absorption.IdentifyLiquidityAreas(curAsks, askRank, threshold)
		if len(bidAreas) > 0 || len(askAreas) > 0 {
			l.logger.Debug("liquidity areas",
				slog.String("asset", snap.AssetID),
				slog.Any("bid_areas", ticksToPrices(bidAreas)),
				slog.Any("ask_areas", ticksToPrices(askAreas)),
			)
		}
		bidRes := absorption.Filtered(st.bids.levels, curBids, bidAreas)
		askRes := absorption.Filtered(st.asks.levels, curAsks, askAreas)
		signals = l.evaluate(snap, st, bidRes, askRes)
	}

	st.bids = sideSnapshot{levels: curBids, rank: bidRank}
	st.asks = sideSnapshot{levels: curAsks, rank: askRank}
	st.havePrev = true
	return signals, nil
}

// evaluate applies the decision rules, records measurable absorption, and
// builds the entry signal when a side dominates.
func (l *LiquidityAbsorption) evaluate(snap domain.OrderbookSnapshot, st *absorptionState, bidRes, askRes absorption.Result) []domain.TradeSignal {
	now := l.now()
	intent, next := absorption.Decide(l.decisionConfig(), st.decision, now, bidRes, askRes, snap.BestBid, snap.BestAsk)
	st.decision = next

	if bidRes.Volume > 0 || askRes.Volume > 0 {
		evt := domain.AbsorptionEvent{
			ID:        uuid.New().String(),
			AssetID:   snap.AssetID,
			Strategy:  l.cfg.Name,
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
		if l.tracker != nil {
			l.tracker.Record(evt)
		}
	}

	if intent == nil {
		return nil
	}

	l.logger.Info("liquidity absorption entry",
		slog.String("asset", snap.AssetID),
		slog.String("side", string(intent.Side)),
		slog.Float64("price", intent.Price),
		slog.Float64("size", intent.Size),
		slog.Float64("absorbed_volume", intent.Volume),
	)

	return []domain.TradeSignal{{
		ID:         fmt.Sprintf("la-%s-%d", snap.AssetID, now.UnixNano()),
		Source:     l.cfg.Name,
		MarketID:   l.cfg.MarketID,
		TokenID:    snap.AssetID,
		Side:       intent.Side,
		Type:       domain.OrderTypeFOK,
		PriceTicks: domain.ToTicks(intent.Price),
		SizeUnits:  domain.ToTicks(intent.Size),
		Urgency:    domain.SignalUrgencyHigh,
		Reason: fmt.Sprintf("absorption %.2f at liquidity area on %s side",
			intent.Volume, string(intent.Side)),
		Metadata: map[string]string{
			"bid_volume": fmt.Sprintf("%.6f", bidRes.Volume),
			"ask_volume": fmt.Sprintf("%.6f", askRes.Volume),
		},
		CreatedAt: now,
		ExpiresAt: now.Add(absorptionSignalTTL),
	}}
}

// OnPriceChange is unused; the strategy works from full snapshots.
func (l *LiquidityAbsorption) OnPriceChange(ctx context.Context, change domain.PriceChange) ([]domain.TradeSignal, error) {
	return nil, nil
}

// OnTrade logs the tape for observation only.
func (l *LiquidityAbsorption) OnTrade(ctx context.Context, trade domain.Trade) ([]domain.TradeSignal, error) {
	if l.cfg.InstrumentID != "" && trade.AssetID != l.cfg.InstrumentID {
		return nil, nil
	}
	l.logger.Debug("trade observed",
		slog.String("asset", trade.AssetID),
		slog.Float64("price", trade.Price),
		slog.Float64("size", trade.Size),
	)
	return nil, nil
}

// OnSignal ignores signals from other strategies.
func (l *LiquidityAbsorption) OnSignal(ctx context.Context, signal domain.TradeSignal) ([]domain.TradeSignal, error) {
	return nil, nil
}

// Close logs a per-asset summary including mean measured volumes.
func (l *LiquidityAbsorption) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for assetID, st := range l.assets {
		attrs := []any{
			slog.String("asset", assetID),
			slog.Int("trades_taken", st.decision.TradesTaken),
		}
		if l.tracker != nil {
			stats := l.tracker.Stats(assetID)
			attrs = append(attrs,
				slog.Int("events", stats.Events),
				slog.Float64("avg_bid_volume", stats.AvgBidVolume),
				slog.Float64("avg_ask_volume", stats.AvgAskVolume),
			)
		}
		l.logger.Info("liquidity absorption session summary", attrs...)
	}
	return nil
}
