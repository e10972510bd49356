package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// AbsorptionService persists absorption events and broadcasts them on the
// signal bus so the websocket hub and notifiers can fan them out.
type AbsorptionService struct {
	events domain.AbsorptionEventStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewAbsorptionService creates an AbsorptionService.
func NewAbsorptionService(
	events domain.AbsorptionEventStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *AbsorptionService {
	return &AbsorptionService{
		events: events,
		bus:    bus,
		logger: logger,
	}
}

// Record persists one absorption event and publishes it on the "absorption"
// channel. A publish failure is logged but does not fail the call; the row
// is already durable at that point.
func (s *AbsorptionService) Record(ctx context.Context, evt domain.AbsorptionEvent) error {
	if err := s.events.Insert(ctx, evt); err != nil {
		return fmt.Errorf("absorption_service: insert event: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"event":      "absorption",
		"id":         evt.ID,
		"asset_id":   evt.AssetID,
		"strategy":   evt.Strategy,
		"bid_volume": evt.BidVolume,
		"ask_volume": evt.AskVolume,
		"side":       string(evt.Side),
		"trade_size": evt.TradeSize,
		"created_at": evt.CreatedAt.Format(time.RFC3339Nano),
	})
	if pubErr := s.bus.Publish(ctx, "absorption", payload); pubErr != nil {
		s.logger.WarnContext(ctx, "absorption_service: publish event failed",
			slog.String("event_id", evt.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	return nil
}

// Sink adapts Record into a strategy tracker sink. Each call gets its own
// short-lived context so a slow store cannot stall the strategy loop for long.
func (s *AbsorptionService) Sink() func(domain.AbsorptionEvent) {
	return func(evt domain.AbsorptionEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Record(ctx, evt); err != nil {
			s.logger.Warn("absorption_service: record from sink failed",
				slog.String("event_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ListRecent returns the most recent absorption events across all assets.
func (s *AbsorptionService) ListRecent(ctx context.Context, limit int) ([]domain.AbsorptionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	evts, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("absorption_service: list recent: %w", err)
	}
	return evts, nil
}

// ListByAsset returns absorption events for one asset with pagination.
func (s *AbsorptionService) ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.AbsorptionEvent, error) {
	evts, err := s.events.ListByAsset(ctx, assetID, opts)
	if err != nil {
		return nil, fmt.Errorf("absorption_service: list by asset %q: %w", assetID, err)
	}
	return evts, nil
}
