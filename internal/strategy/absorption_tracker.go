package strategy

import (
	"sync"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// AbsorptionStats summarises the recorded absorption events for one asset.
type AbsorptionStats struct {
	Events       int
	TradesTaken  int
	AvgBidVolume float64
	AvgAskVolume float64
	LastEvent    time.Time
}

// AbsorptionTracker maintains a sliding window of recent absorption events
// per asset. Strategies record every evaluation that measured absorption;
// the status API and shutdown summaries read the aggregates back out.
type AbsorptionTracker struct {
	history    map[string][]domain.AbsorptionEvent
	windowSize time.Duration
	sink       EventSink
	mu         sync.RWMutex
}

// EventSink receives every recorded event. Wired to the persistence layer by
// the application; the tracker itself stays in-memory.
type EventSink func(domain.AbsorptionEvent)

// NewAbsorptionTracker creates a tracker whose in-memory history extends
// windowSize into the past; older events are discarded on every Record call.
func NewAbsorptionTracker(windowSize time.Duration) *AbsorptionTracker {
	return &AbsorptionTracker{
		history:    make(map[string][]domain.AbsorptionEvent),
		windowSize: windowSize,
	}
}

// WithSink attaches a sink that is called synchronously after every Record,
// outside the tracker lock. Must be set before any strategy starts recording.
func (at *AbsorptionTracker) WithSink(sink EventSink) *AbsorptionTracker {
	at.sink = sink
	return at
}

// Record appends a new absorption event for its asset and trims events that
// have fallen outside the sliding window.
func (at *AbsorptionTracker) Record(evt domain.AbsorptionEvent) {
	at.mu.Lock()
	at.history[evt.AssetID] = append(at.history[evt.AssetID], evt)
	at.trim(evt.AssetID, evt.CreatedAt)
	at.mu.Unlock()

	if at.sink != nil {
		at.sink(evt)
	}
}

// Recent returns a copy of the events within the sliding window for the
// given asset, oldest first. The returned slice is safe to mutate.
func (at *AbsorptionTracker) Recent(assetID string) []domain.AbsorptionEvent {
	at.mu.RLock()
	defer at.mu.RUnlock()

	src := at.history[assetID]
	if len(src) == 0 {
		return nil
	}
	out := make([]domain.AbsorptionEvent, len(src))
	copy(out, src)
	return out
}

// Stats returns aggregate statistics over the events in the window for the
// given asset. A zero value is returned when nothing has been recorded.
func (at *AbsorptionTracker) Stats(assetID string) AbsorptionStats {
	at.mu.RLock()
	defer at.mu.RUnlock()

	evts := at.history[assetID]
	if len(evts) == 0 {
		return AbsorptionStats{}
	}

	var stats AbsorptionStats
	var bidSum, askSum float64
	for _, e := range evts {
		bidSum += e.BidVolume
		askSum += e.AskVolume
		if e.Acted() {
			stats.TradesTaken++
		}
	}
	stats.Events = len(evts)
	stats.AvgBidVolume = bidSum / float64(len(evts))
	stats.AvgAskVolume = askSum / float64(len(evts))
	stats.LastEvent = evts[len(evts)-1].CreatedAt
	return stats
}

// Assets returns the asset IDs that currently have recorded events.
func (at *AbsorptionTracker) Assets() []string {
	at.mu.RLock()
	defer at.mu.RUnlock()

	out := make([]string, 0, len(at.history))
	for id, evts := range at.history {
		if len(evts) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// trim removes all events older than windowSize relative to the reference
// time. The caller must hold at.mu.
func (at *AbsorptionTracker) trim(assetID string, now time.Time) {
	cutoff := now.Add(-at.windowSize)
	evts := at.history[assetID]

	i := 0
	for i < len(evts) && evts[i].CreatedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		at.history[assetID] = evts[i:]
	}
}
