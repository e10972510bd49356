package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// OrderPlacer is the interface through which the executor submits orders to
// the exchange. It is typically implemented by the service layer.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, sig domain.TradeSignal) (domain.OrderResult, error)
}

// RiskChecker validates whether a trade signal passes pre-trade risk controls
// (position limits, notional caps, slippage bounds).
type RiskChecker interface {
	PreTradeCheck(ctx context.Context, signal domain.TradeSignal, wallet string) error
}

// Executor reads trade signals from a channel, applies deduplication, expiry,
// and risk checks, then places orders through the OrderPlacer interface.
// Absorption signals are fill-or-kill, so a rejected order is retried at most
// once and otherwise dropped; the strategy will re-signal if the condition
// persists past its cooldown.
type Executor struct {
	signalCh <-chan domain.TradeSignal
	orderSvc OrderPlacer
	riskSvc  RiskChecker
	dedup    *Dedup
	wallet   string
	logger   *slog.Logger

	cleanupInterval time.Duration
}

// NewExecutor creates an Executor that reads signals from signalCh, validates
// them through riskSvc, and places orders via orderSvc. The wallet string
// identifies the trading wallet for risk checks.
func NewExecutor(
	signalCh <-chan domain.TradeSignal,
	orderSvc OrderPlacer,
	riskSvc RiskChecker,
	wallet string,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		signalCh:        signalCh,
		orderSvc:        orderSvc,
		riskSvc:         riskSvc,
		dedup:           NewDedup(2 * time.Minute),
		wallet:          wallet,
		logger:          logger.With(slog.String("component", "executor")),
		cleanupInterval: 30 * time.Second,
	}
}

// Run starts the executor's main loop. It processes signals until the context
// is cancelled, at which point it drains any remaining signals in the channel
// and returns.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started")
	defer e.logger.Info("executor stopped")

	cleanupTicker := time.NewTicker(e.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.drain()
			return ctx.Err()

		case sig, ok := <-e.signalCh:
			if !ok {
				// Channel closed; shut down.
				return nil
			}
			e.process(ctx, sig)

		case <-cleanupTicker.C:
			e.dedup.Cleanup()
		}
	}
}

// process handles a single trade signal through the full validation and
// execution pipeline.
func (e *Executor) process(ctx context.Context, sig domain.TradeSignal) {
	log := e.logger.With(
		slog.String("signal_id", sig.ID),
		slog.String("source", sig.Source),
		slog.String("token", sig.TokenID),
		slog.String("side", string(sig.Side)),
	)

	// 1. Deduplication.
	if e.dedup.IsDuplicate(sig.ID) {
		log.Debug("signal deduplicated, skipping")
		return
	}

	// 2. Expiry check. An absorption signal describes a transient book state
	// and must not be executed late.
	if !sig.ExpiresAt.IsZero() && time.Now().UTC().After(sig.ExpiresAt) {
		log.Warn("signal expired, skipping",
			slog.Time("expires_at", sig.ExpiresAt),
		)
		return
	}

	// 3. Pre-trade risk check.
	if err := e.riskSvc.PreTradeCheck(ctx, sig, e.wallet); err != nil {
		log.Warn("risk check failed, skipping",
			slog.String("error", err.Error()),
		)
		return
	}

	// 4. Place the order.
	result, err := e.orderSvc.PlaceOrder(ctx, sig)
	if err != nil {
		log.Error("order placement failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if !result.Success {
		log.Warn("order rejected",
			slog.String("order_id", result.OrderID),
			slog.String("status", string(result.Status)),
			slog.String("message", result.Message),
			slog.Bool("should_retry", result.ShouldRetry),
		)
		if result.ShouldRetry {
			e.retryOrder(ctx, sig, log)
		}
		return
	}

	log.Info("order placed successfully",
		slog.String("order_id", result.OrderID),
		slog.String("status", string(result.Status)),
	)
}

// retryOrder makes a single retry attempt for a failed order. A production
// system would use exponential back-off and a bounded retry count; this
// implementation performs one retry after a short pause.
func (e *Executor) retryOrder(ctx context.Context, sig domain.TradeSignal, log *slog.Logger) {
	// Respect expiry even for retries.
	if !sig.ExpiresAt.IsZero() && time.Now().UTC().After(sig.ExpiresAt) {
		log.Warn("signal expired during retry, giving up")
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}

	result, err := e.orderSvc.PlaceOrder(ctx, sig)
	if err != nil {
		log.Error("retry order placement failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if result.Success {
		log.Info("retry order placed successfully",
			slog.String("order_id", result.OrderID),
		)
	} else {
		log.Warn("retry order also rejected",
			slog.String("message", result.Message),
		)
	}
}

// drain processes any signals already buffered in the channel after context
// cancellation. This ensures in-flight signals are not silently dropped.
func (e *Executor) drain() {
	for {
		select {
		case sig, ok := <-e.signalCh:
			if !ok {
				return
			}
			e.logger.Warn("draining signal after shutdown",
				slog.String("signal_id", sig.ID),
			)
			// We use a short-lived context for draining so we don't hang
			// indefinitely on external calls during shutdown.
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.process(drainCtx, sig)
			cancel()
		default:
			return
		}
	}
}

// SetDedupTTL replaces the dedup instance with a new one using the given TTL.
// This is useful for testing or runtime reconfiguration.
func (e *Executor) SetDedupTTL(ttl time.Duration) {
	e.dedup = NewDedup(ttl)
}

// SetCleanupInterval changes how often the dedup map is garbage-collected.
// Must be called before Run.
func (e *Executor) SetCleanupInterval(d time.Duration) {
	e.cleanupInterval = d
}

// Wallet returns the wallet address this executor is configured with.
func (e *Executor) Wallet() string {
	return e.wallet
}

var _ fmt.Stringer = (*Executor)(nil)

// String returns a human-readable description of the executor.
func (e *Executor) String() string {
	return fmt.Sprintf("Executor(wallet=%s)", e.wallet)
}
