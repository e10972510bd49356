package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newFakeClock(t time.Time) *fakeClock    { return &fakeClock{t: t} }

func bookSnap(assetID string, ts time.Time, bids, asks [][2]float64) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{AssetID: assetID, Timestamp: ts}
	for _, b := range bids {
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: b[0], Size: b[1]})
	}
	for _, a := range asks {
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: a[0], Size: a[1]})
	}
	if len(snap.Bids) > 0 {
		snap.BestBid = snap.Bids[0].Price
	}
	if len(snap.Asks) > 0 {
		snap.BestAsk = snap.Asks[0].Price
	}
	return snap
}

func mustUpdate(t *testing.T, s Strategy, snap domain.OrderbookSnapshot) []domain.TradeSignal {
	t.Helper()
	sigs, err := s.OnBookUpdate(context.Background(), snap)
	if err != nil {
		t.Fatalf("OnBookUpdate: %v", err)
	}
	return sigs
}

func TestAbsorptionEntrySignal(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
	tracker := NewAbsorptionTracker(time.Hour)
	s := NewAbsorption(Config{
		InstrumentID: "tok-1",
		MarketID:     "mkt-1",
		Params:       map[string]any{"min_absorption_volume": 10.0},
	}, tracker, testLogger())
	s.now = clk.now

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 40}, {0.54, 25}, {0.53, 10}},
		[][2]float64{{0.57, 30}, {0.58, 20}},
	))

	// First sighting arms the cooldown; wait it out before the next cycle.
	clk.advance(11 * time.Second)
	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
		[][2]float64{{0.55, 10}, {0.54, 25}, {0.53, 10}},
		[][2]float64{{0.57, 30}, {0.58, 20}},
	))

	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Side != domain.OrderSideSell {
		t.Errorf("side = %s, want sell", sig.Side)
	}
	if sig.Type != domain.OrderTypeFOK {
		t.Errorf("type = %s, want FOK", sig.Type)
	}
	if sig.PriceTicks != domain.ToTicks(0.55) {
		t.Errorf("price ticks = %d, want %d", sig.PriceTicks, domain.ToTicks(0.55))
	}
	// 30 absorbed at 10% with cap 1000 sizes the entry at 3.
	if sig.SizeUnits != domain.ToTicks(3.0) {
		t.Errorf("size units = %d, want %d", sig.SizeUnits, domain.ToTicks(3.0))
	}
	if sig.Source != "absorption" {
		t.Errorf("source = %q, want absorption", sig.Source)
	}
	if sig.TokenID != "tok-1" || sig.MarketID != "mkt-1" {
		t.Errorf("routing = %q/%q", sig.TokenID, sig.MarketID)
	}
	if !sig.ExpiresAt.After(sig.CreatedAt) {
		t.Error("signal should carry an expiry")
	}

	evts := tracker.Recent("tok-1")
	if len(evts) != 1 {
		t.Fatalf("tracker events = %d, want 1", len(evts))
	}
	if evts[0].BidVolume != 30 || evts[0].AskVolume != 0 {
		t.Errorf("event volumes = %.1f/%.1f, want 30/0", evts[0].BidVolume, evts[0].AskVolume)
	}
	if !evts[0].Acted() {
		t.Error("event should record the entered trade")
	}
}

func TestAbsorptionEvalGateAccumulates(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
	s := NewAbsorption(Config{
		InstrumentID: "tok-1",
		Params:       map[string]any{"min_absorption_volume": 10.0},
	}, nil, testLogger())
	s.now = clk.now

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 40}},
		[][2]float64{{0.57, 30}},
	))
	clk.advance(11 * time.Second)

	// Inside the evaluation interval: skipped, previous capture retained.
	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(500*time.Millisecond),
		[][2]float64{{0.55, 25}},
		[][2]float64{{0.57, 30}},
	))
	if len(sigs) != 0 {
		t.Fatalf("gated update emitted %d signals", len(sigs))
	}

	// Next full cycle measures against the original capture, not the skipped one.
	sigs = mustUpdate(t, s, bookSnap("tok-1", t0.Add(1500*time.Millisecond),
		[][2]float64{{0.55, 25}},
		[][2]float64{{0.57, 30}},
	))
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	if got := sigs[0].Metadata["bid_volume"]; got != "15.000000" {
		t.Errorf("bid_volume metadata = %q, want 15.000000", got)
	}
}

func TestAbsorptionCooldownSuppressesReentry(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
	s := NewAbsorption(Config{
		InstrumentID: "tok-1",
		Params:       map[string]any{"min_absorption_volume": 5.0},
	}, nil, testLogger())
	s.now = clk.now

	t0 := clk.t
	snapAt := func(offset time.Duration, bidSize float64) domain.OrderbookSnapshot {
		return bookSnap("tok-1", t0.Add(offset),
			[][2]float64{{0.55, bidSize}},
			[][2]float64{{0.57, 30}},
		)
	}

	mustUpdate(t, s, snapAt(0, 60))
	clk.advance(11 * time.Second)

	if sigs := mustUpdate(t, s, snapAt(2*time.Second, 40)); len(sigs) != 1 {
		t.Fatalf("first entry: got %d signals", len(sigs))
	}

	// Further absorption during the cooldown is measured but not traded.
	clk.advance(2 * time.Second)
	if sigs := mustUpdate(t, s, snapAt(4*time.Second, 20)); len(sigs) != 0 {
		t.Fatalf("cooldown: got %d signals", len(sigs))
	}

	clk.advance(11 * time.Second)
	if sigs := mustUpdate(t, s, snapAt(6*time.Second, 5)); len(sigs) != 1 {
		t.Fatalf("post-cooldown: got %d signals", len(sigs))
	}
}

func TestAbsorptionIgnoresOtherInstruments(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
	s := NewAbsorption(Config{InstrumentID: "tok-1"}, nil, testLogger())
	s.now = clk.now

	sigs := mustUpdate(t, s, bookSnap("tok-2", clk.t,
		[][2]float64{{0.55, 40}},
		[][2]float64{{0.57, 30}},
	))
	if len(sigs) != 0 {
		t.Fatalf("foreign asset emitted %d signals", len(sigs))
	}
	if len(s.assets) != 0 {
		t.Error("foreign asset should not create state")
	}
}

func TestAbsorptionRepriceGuardParam(t *testing.T) {
	run := func(guard bool) []domain.TradeSignal {
		clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
		s := NewAbsorption(Config{
			InstrumentID: "tok-1",
			Params: map[string]any{
				"min_absorption_volume": 10.0,
				"reprice_guard":         guard,
			},
		}, nil, testLogger())
		s.now = clk.now

		t0 := clk.t
		mustUpdate(t, s, bookSnap("tok-1", t0,
			[][2]float64{{0.55, 40}},
			[][2]float64{{0.57, 30}},
		))
		clk.advance(11 * time.Second)
		// 0.55 vanished while a better bid at 0.56 appeared.
		return mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
			[][2]float64{{0.56, 15}},
			[][2]float64{{0.57, 30}},
		))
	}

	if sigs := run(true); len(sigs) != 0 {
		t.Errorf("guard on: repriced level traded, got %d signals", len(sigs))
	}
	if sigs := run(false); len(sigs) != 1 {
		t.Errorf("guard off: want 1 signal, got %d", len(sigs))
	}
}
