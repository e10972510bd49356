package handler

import (
	"net/http"

	"github.com/alanyoungcy/absorbot/internal/strategy"
)

// AbsorptionStatsSource exposes the rolling per-asset absorption aggregates
// collected by the strategy tracker.
type AbsorptionStatsSource interface {
	Assets() []string
	Stats(assetID string) strategy.AbsorptionStats
}

// StatusHandler serves the backend status (mode, strategy, absorption
// aggregates) for the dashboard.
type StatusHandler struct {
	Mode         string
	StrategyName string
	stats        AbsorptionStatsSource
}

// NewStatusHandler creates a StatusHandler with the given mode and strategy name.
func NewStatusHandler(mode, strategyName string) *StatusHandler {
	return &StatusHandler{Mode: mode, StrategyName: strategyName}
}

// WithStats attaches the absorption tracker so GetStatus can report per-asset
// aggregates. Not set in serve mode, where no tracker runs.
func (h *StatusHandler) WithStats(src AbsorptionStatsSource) *StatusHandler {
	h.stats = src
	return h
}

// GetStatus responds with the current backend mode, strategy name, and the
// per-asset absorption aggregates when a tracker is attached.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":          h.Mode,
		"strategy_name": h.StrategyName,
	}
	if h.stats != nil {
		absorption := make(map[string]any)
		for _, asset := range h.stats.Assets() {
			s := h.stats.Stats(asset)
			absorption[asset] = map[string]any{
				"events":         s.Events,
				"trades_taken":   s.TradesTaken,
				"avg_bid_volume": s.AvgBidVolume,
				"avg_ask_volume": s.AvgAskVolume,
				"last_event":     s.LastEvent,
			}
		}
		resp["absorption"] = absorption
	}
	writeJSON(w, http.StatusOK, resp)
}
