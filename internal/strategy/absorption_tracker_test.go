package strategy

import (
	"testing"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

func trackerEvent(asset string, at time.Time, bid, ask float64) domain.AbsorptionEvent {
	return domain.AbsorptionEvent{
		AssetID:   asset,
		Strategy:  "absorption",
		BidVolume: bid,
		AskVolume: ask,
		CreatedAt: at,
	}
}

func TestTrackerRecordAndRecent(t *testing.T) {
	tr := NewAbsorptionTracker(time.Minute)
	now := time.Now()

	tr.Record(trackerEvent("a1", now.Add(-30*time.Second), 100, 50))
	tr.Record(trackerEvent("a1", now, 200, 80))
	tr.Record(trackerEvent("a2", now, 10, 20))

	got := tr.Recent("a1")
	if len(got) != 2 {
		t.Fatalf("Recent(a1) = %d events, want 2", len(got))
	}
	if got[0].BidVolume != 100 || got[1].BidVolume != 200 {
		t.Errorf("events out of order: %+v", got)
	}
	if len(tr.Recent("a2")) != 1 {
		t.Error("a2 events missing")
	}
	if tr.Recent("unknown") != nil {
		t.Error("unknown asset should return nil")
	}
}

func TestTrackerTrimsOldEvents(t *testing.T) {
	tr := NewAbsorptionTracker(time.Minute)
	now := time.Now()

	tr.Record(trackerEvent("a1", now.Add(-2*time.Minute), 100, 50))
	tr.Record(trackerEvent("a1", now, 200, 80))

	got := tr.Recent("a1")
	if len(got) != 1 {
		t.Fatalf("Recent = %d events after trim, want 1", len(got))
	}
	if got[0].BidVolume != 200 {
		t.Errorf("wrong event survived trim: %+v", got[0])
	}
}

func TestTrackerStats(t *testing.T) {
	tr := NewAbsorptionTracker(time.Minute)
	now := time.Now()

	tr.Record(trackerEvent("a1", now.Add(-10*time.Second), 100, 60))
	acted := trackerEvent("a1", now, 300, 40)
	acted.Side = domain.OrderSideBuy
	acted.TradeSize = 25
	tr.Record(acted)

	stats := tr.Stats("a1")
	if stats.Events != 2 {
		t.Errorf("Events = %d", stats.Events)
	}
	if stats.TradesTaken != 1 {
		t.Errorf("TradesTaken = %d", stats.TradesTaken)
	}
	if stats.AvgBidVolume != 200 {
		t.Errorf("AvgBidVolume = %v", stats.AvgBidVolume)
	}
	if stats.AvgAskVolume != 50 {
		t.Errorf("AvgAskVolume = %v", stats.AvgAskVolume)
	}
	if !stats.LastEvent.Equal(now) {
		t.Errorf("LastEvent = %v, want %v", stats.LastEvent, now)
	}

	if got := tr.Stats("none"); got.Events != 0 {
		t.Errorf("empty asset stats = %+v", got)
	}
}

func TestTrackerSinkReceivesEveryRecord(t *testing.T) {
	var seen []domain.AbsorptionEvent
	tr := NewAbsorptionTracker(time.Minute).WithSink(func(evt domain.AbsorptionEvent) {
		seen = append(seen, evt)
	})

	now := time.Now()
	tr.Record(trackerEvent("a1", now.Add(-2*time.Minute), 1, 1))
	tr.Record(trackerEvent("a1", now, 2, 2))

	// Trimming affects the in-memory window only; the sink sees everything.
	if len(seen) != 2 {
		t.Fatalf("sink received %d events, want 2", len(seen))
	}
}
