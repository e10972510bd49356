package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/absorbot/internal/crypto"
	"github.com/alanyoungcy/absorbot/internal/domain"
	"github.com/alanyoungcy/absorbot/internal/executor"
	"github.com/alanyoungcy/absorbot/internal/feed"
	"github.com/alanyoungcy/absorbot/internal/platform/polymarket"
	"github.com/alanyoungcy/absorbot/internal/server"
	"github.com/alanyoungcy/absorbot/internal/server/handler"
	"github.com/alanyoungcy/absorbot/internal/server/ws"
	"github.com/alanyoungcy/absorbot/internal/service"
	"github.com/alanyoungcy/absorbot/internal/strategy"
)

// trackerWindow is how far back the in-memory absorption history extends.
// Older events are dropped from the tracker; they remain in Postgres via
// the sink.
const trackerWindow = 5 * time.Minute

// pipeline bundles the market-data and strategy components shared by the
// trade, monitor, and full modes.
type pipeline struct {
	engine        *strategy.Engine
	signalCh      chan domain.TradeSignal
	priceSvc      *service.PriceService
	absorptionSvc *service.AbsorptionService
	tracker       *strategy.AbsorptionTracker
	wsFeed        *feed.PolymarketWSFeed
	feeder        *feed.EngineFeeder
}

// runTradeMode runs the full trading pipeline: WebSocket feed, strategy
// engine, and order executor. When auto_execute is disabled, signals are
// logged instead of executed.
func (a *App) runTradeMode(ctx context.Context) error {
	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, p)

	if a.cfg.Strategy.AutoExecute {
		exec, _, err := a.buildExecutor(ctx, p.signalCh)
		if err != nil {
			return err
		}
		g.Go(func() error { return exec.Run(ctx) })
	} else {
		a.logger.Info("auto_execute disabled, signals will be logged only")
		g.Go(func() error { return a.consumeSignals(ctx, p.signalCh) })
	}

	a.startArchiveLoop(ctx, g)

	return g.Wait()
}

// runMonitorMode runs the feed and strategy engine for observation only.
// Absorption events are recorded and broadcast, but no orders are placed.
func (a *App) runMonitorMode(ctx context.Context) error {
	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, p)
	g.Go(func() error { return a.consumeSignals(ctx, p.signalCh) })
	a.startArchiveLoop(ctx, g)

	return g.Wait()
}

// runServeMode runs only the HTTP/WebSocket API server over the shared
// stores. No feed or strategy engine is started, so runtime strategy
// switching is unavailable.
func (a *App) runServeMode(ctx context.Context) error {
	absorptionSvc := service.NewAbsorptionService(a.deps.AbsorptionEvents, a.deps.SignalBus, a.logger)
	orderSvc := a.readOnlyOrderService()

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, nil, orderSvc, absorptionSvc)

	return g.Wait()
}

// runFullMode runs the trading pipeline and the API server together.
func (a *App) runFullMode(ctx context.Context) error {
	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, p)

	var orderSvc *service.OrderService
	if a.cfg.Strategy.AutoExecute {
		exec, svc, err := a.buildExecutor(ctx, p.signalCh)
		if err != nil {
			return err
		}
		orderSvc = svc
		g.Go(func() error { return exec.Run(ctx) })
	} else {
		a.logger.Info("auto_execute disabled, signals will be logged only")
		orderSvc = a.readOnlyOrderService()
		g.Go(func() error { return a.consumeSignals(ctx, p.signalCh) })
	}

	a.startServer(ctx, g, p, orderSvc, p.absorptionSvc)
	a.startArchiveLoop(ctx, g)

	return g.Wait()
}

// readOnlyOrderService builds an OrderService without a signer. Listing and
// cancellation work; placement is rejected.
func (a *App) readOnlyOrderService() *service.OrderService {
	return service.NewOrderService(
		a.deps.OrderStore,
		a.deps.PositionStore,
		a.deps.BookCache,
		a.deps.PriceCache,
		a.deps.RateLimiter,
		a.deps.SignalBus,
		a.deps.AuditStore,
		nil,
		a.logger,
	)
}

// buildPipeline wires the shared market-data path: feed handlers fan out to
// the price service and the strategy engine, the tracker persists events
// through the absorption service, and the engine feeder replays bus messages
// so cached books reach the engine even between feed reconnects.
func (a *App) buildPipeline() (*pipeline, error) {
	signalCh := make(chan domain.TradeSignal, 32)

	absorptionSvc := service.NewAbsorptionService(a.deps.AbsorptionEvents, a.deps.SignalBus, a.logger)
	priceSvc := service.NewPriceService(a.deps.PriceCache, a.deps.BookCache, a.deps.SignalBus, a.logger)

	tracker := strategy.NewAbsorptionTracker(trackerWindow).
		WithSink(a.absorptionSink(absorptionSvc))

	registry := a.newStrategyRegistry(tracker)
	engine := strategy.NewEngine(registry, signalCh, a.logger)

	if len(a.cfg.Strategy.Active) > 0 {
		if err := engine.SetActiveNames(a.cfg.Strategy.Active); err != nil {
			return nil, fmt.Errorf("app: activate strategies: %w", err)
		}
	} else {
		if err := engine.SetActive(a.cfg.Strategy.Name); err != nil {
			return nil, fmt.Errorf("app: activate strategy: %w", err)
		}
	}

	wsURL := strings.TrimRight(a.cfg.Polymarket.WsHost, "/") + "/ws/market"
	wsFeed := feed.NewPolymarketWSFeed(
		wsURL,
		a.cfg.Strategy.Assets,
		func(ctx context.Context, snap domain.OrderbookSnapshot) {
			if err := priceSvc.HandleBookUpdate(ctx, snap); err != nil {
				a.logger.Warn("book update handling failed",
					slog.String("asset", snap.AssetID),
					slog.String("error", err.Error()))
			}
			if err := engine.HandleBookUpdate(ctx, snap); err != nil {
				a.logger.Warn("engine book update failed",
					slog.String("asset", snap.AssetID),
					slog.String("error", err.Error()))
			}
		},
		func(ctx context.Context, change domain.PriceChange) {
			if err := priceSvc.HandlePriceChange(ctx, change); err != nil {
				a.logger.Warn("price change handling failed",
					slog.String("asset", change.AssetID),
					slog.String("error", err.Error()))
			}
			if err := engine.HandlePriceChange(ctx, change); err != nil {
				a.logger.Warn("engine price change failed",
					slog.String("asset", change.AssetID),
					slog.String("error", err.Error()))
			}
		},
		func(ctx context.Context, trade domain.Trade) {
			if err := engine.HandleTrade(ctx, trade); err != nil {
				a.logger.Warn("engine trade handling failed",
					slog.String("asset", trade.AssetID),
					slog.String("error", err.Error()))
			}
		},
		a.logger,
	)

	feeder := feed.NewEngineFeeder(a.deps.SignalBus, a.deps.BookCache, engine, a.logger)

	return &pipeline{
		engine:        engine,
		signalCh:      signalCh,
		priceSvc:      priceSvc,
		absorptionSvc: absorptionSvc,
		tracker:       tracker,
		wsFeed:        wsFeed,
		feeder:        feeder,
	}, nil
}

// startPipeline launches the feed, feeder, and engine loops on g.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, p *pipeline) {
	g.Go(func() error { return p.wsFeed.Run(ctx) })
	g.Go(func() error { return p.feeder.Run(ctx) })
	if len(a.cfg.Strategy.Active) > 0 {
		g.Go(func() error { return p.engine.RunAll(ctx) })
	} else {
		g.Go(func() error { return p.engine.Run(ctx) })
	}
}

// absorptionSink persists every tracked absorption event and pushes a
// notification when one resulted in an entry.
func (a *App) absorptionSink(absorptionSvc *service.AbsorptionService) strategy.EventSink {
	record := absorptionSvc.Sink()
	return func(evt domain.AbsorptionEvent) {
		record(evt)
		if !evt.Acted() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		msg := fmt.Sprintf("%s %s on %s, size %.2f (bid vol %.2f / ask vol %.2f)",
			evt.Strategy, evt.Side, evt.AssetID, evt.TradeSize, evt.BidVolume, evt.AskVolume)
		if err := a.deps.Notifier.Notify(ctx, "absorption.entry", "Absorption entry", msg); err != nil {
			a.logger.Warn("absorption notification failed", slog.String("error", err.Error()))
		}
	}
}

// newStrategyRegistry builds the registry from configuration. Both strategies
// share one tracker so their event histories stay consistent.
func (a *App) newStrategyRegistry(tracker *strategy.AbsorptionTracker) *strategy.Registry {
	reg := strategy.NewRegistry()
	sc := a.cfg.Strategy

	// Single-asset deployments pin the strategies to that token; multi-asset
	// deployments evaluate every asset the feed delivers.
	instrument := ""
	if len(sc.Assets) == 1 {
		instrument = sc.Assets[0]
	}

	if sc.Absorption.Enabled {
		params := mergeParams(map[string]any{
			"min_absorption_volume":   sc.Absorption.MinAbsorptionVolume,
			"monitor_levels":          sc.Absorption.MonitorLevels,
			"dominance_factor":        sc.Absorption.DominanceFactor,
			"cooldown_sec":            sc.Absorption.CooldownSec,
			"eval_interval_sec":       sc.Absorption.EvalIntervalSec,
			"trade_pct_of_absorption": sc.Absorption.TradePctOfAbsorption,
			"max_trade_size":          sc.Absorption.MaxTradeSize,
			"reprice_guard":           sc.Absorption.RepriceGuard,
		}, sc.Params)
		reg.Register("absorption", strategy.NewAbsorption(strategy.Config{
			Name:         "absorption",
			InstrumentID: instrument,
			MarketID:     sc.MarketID,
			Size:         sc.Size,
			Params:       params,
		}, tracker, a.logger))
	}

	if sc.LiquidityAbsorption.Enabled {
		params := mergeParams(map[string]any{
			"liquidity_threshold":   sc.LiquidityAbsorption.LiquidityThreshold,
			"min_absorption_volume": sc.LiquidityAbsorption.MinAbsorptionVolume,
			"monitor_levels":        sc.LiquidityAbsorption.MonitorLevels,
			"dominance_factor":      sc.LiquidityAbsorption.DominanceFactor,
			"cooldown_sec":          sc.LiquidityAbsorption.CooldownSec,
			"eval_interval_sec":     sc.LiquidityAbsorption.EvalIntervalSec,
			"trade_size":            sc.LiquidityAbsorption.TradeSize,
		}, sc.Params)
		reg.Register("liquidity_absorption", strategy.NewLiquidityAbsorption(strategy.Config{
			Name:         "liquidity_absorption",
			InstrumentID: instrument,
			MarketID:     sc.MarketID,
			Size:         sc.Size,
			Params:       params,
		}, tracker, a.logger))
	}

	return reg
}

// mergeParams overlays override onto base without mutating either map.
func mergeParams(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// buildExecutor constructs the signing and order-placement chain: wallet key,
// EIP-712 signer, CLOB client, order and risk services, and the executor
// draining signalCh.
func (a *App) buildExecutor(ctx context.Context, signalCh <-chan domain.TradeSignal) (*executor.Executor, *service.OrderService, error) {
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: load wallet key: %w", err)
	}

	signer, err := crypto.NewSigner(key, a.cfg.Polymarket.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("app: create signer: %w", err)
	}

	var hmacAuth *crypto.HMACAuth
	if b := a.cfg.Builder; b.ApiKey != "" && b.ApiSecret != "" && b.ApiPassphrase != "" {
		hmacAuth = &crypto.HMACAuth{
			Key:        b.ApiKey,
			Secret:     b.ApiSecret,
			Passphrase: b.ApiPassphrase,
		}
	}

	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, signer, hmacAuth)
	if hmacAuth == nil {
		if err := clob.DeriveAPIKey(ctx); err != nil {
			return nil, nil, fmt.Errorf("app: derive clob api key: %w", err)
		}
	}

	orderSvc := service.NewOrderService(
		a.deps.OrderStore,
		a.deps.PositionStore,
		a.deps.BookCache,
		a.deps.PriceCache,
		a.deps.RateLimiter,
		a.deps.SignalBus,
		a.deps.AuditStore,
		signer,
		a.logger,
	).WithClobClient(clob)

	riskSvc := service.NewRiskService(a.deps.PositionStore, a.deps.PriceCache, service.RiskConfig{
		MaxPositions:   a.cfg.Risk.MaxPositions,
		MaxTradeAmount: a.cfg.Risk.MaxNotional,
		MaxSlippageBps: a.cfg.Risk.MaxSlippageBps,
	}, a.logger)

	exec := executor.NewExecutor(signalCh, orderSvc, riskSvc, signer.Address().Hex(), a.logger)
	return exec, orderSvc, nil
}

// consumeSignals drains the signal channel and logs each signal. Used when
// auto-execution is disabled so the engine never blocks on a full channel.
func (a *App) consumeSignals(ctx context.Context, signalCh <-chan domain.TradeSignal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signalCh:
			if !ok {
				return nil
			}
			a.logger.Info("trade signal (not executed)",
				slog.String("strategy", sig.Source),
				slog.String("token", sig.TokenID),
				slog.String("side", string(sig.Side)),
				slog.Float64("price", sig.Price()),
				slog.String("reason", sig.Reason),
			)
		}
	}
}

// startServer launches the HTTP API server and WebSocket hub on g. p may be
// nil (serve mode), in which case the runtime strategy endpoints report that
// switching is unavailable and status carries no absorption aggregates.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, p *pipeline, orderSvc *service.OrderService, absorptionSvc *service.AbsorptionService) {
	hub := ws.NewHub(a.deps.SignalBus, a.logger, ws.Config{
		Mode:         a.cfg.Mode,
		StrategyName: a.cfg.Strategy.Name,
		StartedAt:    time.Now().UTC(),
	})

	var ctrl handler.StrategyRuntimeController
	status := handler.NewStatusHandler(a.cfg.Mode, a.cfg.Strategy.Name)
	if p != nil {
		ctrl = p.engine
		status = status.WithStats(p.tracker)
	}

	handlers := server.Handlers{
		Health:          handler.NewHealthHandler(a.logger),
		Status:          status,
		Orders:          handler.NewOrderHandler(orderSvc, a.logger),
		Absorption:      handler.NewAbsorptionHandler(absorptionSvc, a.logger),
		Strategy:        handler.NewStrategyHandler(a.deps.StratCfgStore, a.logger),
		StrategyRuntime: handler.NewStrategyRuntimeHandler(ctrl, hub, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		Limiter:     a.deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return srv.Start() })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startArchiveLoop launches the periodic cold-storage archival job when
// archiving is enabled.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group) {
	if !a.cfg.Archive.Enabled || a.deps.Archiver == nil {
		return
	}
	g.Go(func() error { return a.runArchiveLoop(ctx) })
}

// runArchiveLoop periodically moves rows older than the retention window to
// object storage.
func (a *App) runArchiveLoop(ctx context.Context) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	a.logger.Info("archive loop started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)

			orders, err := a.deps.Archiver.ArchiveOrders(ctx, cutoff)
			if err != nil {
				a.logger.Error("order archival failed", slog.String("error", err.Error()))
			}
			events, err := a.deps.Archiver.ArchiveAbsorptionEvents(ctx, cutoff)
			if err != nil {
				a.logger.Error("absorption event archival failed", slog.String("error", err.Error()))
			}

			a.logger.Info("archive cycle complete",
				slog.Time("cutoff", cutoff),
				slog.Int64("orders", orders),
				slog.Int64("absorption_events", events),
			)
		}
	}
}
