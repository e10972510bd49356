package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// AbsorptionQueryService defines the methods that the absorption handler
// requires from the service layer.
type AbsorptionQueryService interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AbsorptionEvent, error)
	ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.AbsorptionEvent, error)
}

// AbsorptionHandler serves absorption event HTTP endpoints.
type AbsorptionHandler struct {
	events AbsorptionQueryService
	logger *slog.Logger
}

// NewAbsorptionHandler creates an AbsorptionHandler with the given service and logger.
func NewAbsorptionHandler(events AbsorptionQueryService, logger *slog.Logger) *AbsorptionHandler {
	return &AbsorptionHandler{
		events: events,
		logger: logger,
	}
}

// listAbsorptionResponse wraps the list absorption events response.
type listAbsorptionResponse struct {
	Events []domain.AbsorptionEvent `json:"events"`
}

// ListRecent returns the most recent absorption events across all assets.
// GET /api/absorption/recent?limit=50
func (h *AbsorptionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	evts, err := h.events.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent absorption events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list absorption events")
		return
	}

	if evts == nil {
		evts = []domain.AbsorptionEvent{}
	}

	writeJSON(w, http.StatusOK, listAbsorptionResponse{Events: evts})
}

// ListByAsset returns absorption events for a single asset.
// GET /api/absorption/{asset_id}?limit=50&offset=0
func (h *AbsorptionHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	assetID := pathParam(r, "asset_id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "missing asset_id")
		return
	}

	opts := parseListOpts(r)

	evts, err := h.events.ListByAsset(r.Context(), assetID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list absorption events failed",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list absorption events")
		return
	}

	if evts == nil {
		evts = []domain.AbsorptionEvent{}
	}

	writeJSON(w, http.StatusOK, listAbsorptionResponse{Events: evts})
}
