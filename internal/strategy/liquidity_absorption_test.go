package strategy

import (
	"testing"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

func newLiquidityFixture(t *testing.T, params map[string]any) (*LiquidityAbsorption, *fakeClock) {
	t.Helper()
	clk := newFakeClock(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))
	s := NewLiquidityAbsorption(Config{
		InstrumentID: "tok-1",
		MarketID:     "mkt-1",
		Params:       params,
	}, NewAbsorptionTracker(time.Hour), testLogger())
	s.now = clk.now
	return s, clk
}

func TestLiquidityAbsorptionEntryAtArea(t *testing.T) {
	s, clk := newLiquidityFixture(t, map[string]any{
		"liquidity_threshold":   50.0,
		"min_absorption_volume": 5.0,
	})

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 70}, {0.54, 30}},
		[][2]float64{{0.57, 20}},
	))
	clk.advance(11 * time.Second)

	// 0.55 still holds 55 (a liquidity area) and shrank by 15; 0.54 shrank
	// too but sits below the threshold now, so it does not count.
	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
		[][2]float64{{0.55, 55}, {0.54, 20}},
		[][2]float64{{0.57, 20}},
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
	if sig.SizeUnits != domain.ToTicks(defaultFilteredTradeSize) {
		t.Errorf("size units = %d, want fixed %v", sig.SizeUnits, defaultFilteredTradeSize)
	}
	if got := sig.Metadata["bid_volume"]; got != "15.000000" {
		t.Errorf("bid_volume metadata = %q, want 15.000000", got)
	}
}

func TestLiquidityAbsorptionAreasFromCurrentBook(t *testing.T) {
	s, clk := newLiquidityFixture(t, map[string]any{
		"liquidity_threshold":   50.0,
		"min_absorption_volume": 5.0,
	})

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 70}},
		[][2]float64{{0.57, 20}},
	))
	clk.advance(11 * time.Second)

	// The level fell below the threshold, so it no longer qualifies as a
	// liquidity area and its shrinkage is not measured.
	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
		[][2]float64{{0.55, 30}},
		[][2]float64{{0.57, 20}},
	))
	if len(sigs) != 0 {
		t.Fatalf("sub-threshold level traded, got %d signals", len(sigs))
	}
	if evts := s.tracker.Recent("tok-1"); len(evts) != 0 {
		t.Errorf("no absorption should be recorded, got %d events", len(evts))
	}
}

func TestLiquidityAbsorptionDominanceRule(t *testing.T) {
	s, clk := newLiquidityFixture(t, map[string]any{
		"liquidity_threshold":   50.0,
		"min_absorption_volume": 5.0,
	})

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 75}},
		[][2]float64{{0.57, 71}},
	))
	clk.advance(11 * time.Second)

	// Bid absorbed 15, ask absorbed 11: 15 < 11 * 1.5, neither side dominates.
	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
		[][2]float64{{0.55, 60}},
		[][2]float64{{0.57, 60}},
	))
	if len(sigs) != 0 {
		t.Fatalf("non-dominant absorption traded, got %d signals", len(sigs))
	}

	// The measurement is still recorded for reporting.
	evts := s.tracker.Recent("tok-1")
	if len(evts) != 1 {
		t.Fatalf("tracker events = %d, want 1", len(evts))
	}
	if evts[0].BidVolume != 15 || evts[0].AskVolume != 11 {
		t.Errorf("event volumes = %.1f/%.1f, want 15/11", evts[0].BidVolume, evts[0].AskVolume)
	}
	if evts[0].Acted() {
		t.Error("event should not record a trade")
	}
}

func TestLiquidityAbsorptionAskSideEntry(t *testing.T) {
	s, clk := newLiquidityFixture(t, map[string]any{
		"liquidity_threshold":   50.0,
		"min_absorption_volume": 5.0,
		"trade_size":            2.5,
	})

	t0 := clk.t
	mustUpdate(t, s, bookSnap("tok-1", t0,
		[][2]float64{{0.55, 40}},
		[][2]float64{{0.57, 80}},
	))
	clk.advance(11 * time.Second)

	sigs := mustUpdate(t, s, bookSnap("tok-1", t0.Add(2*time.Second),
		[][2]float64{{0.55, 40}},
		[][2]float64{{0.57, 60}},
	))
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Side != domain.OrderSideBuy {
		t.Errorf("side = %s, want buy", sig.Side)
	}
	if sig.PriceTicks != domain.ToTicks(0.57) {
		t.Errorf("price ticks = %d, want best ask", sig.PriceTicks)
	}
	if sig.SizeUnits != domain.ToTicks(2.5) {
		t.Errorf("size units = %d, want configured 2.5", sig.SizeUnits)
	}
}
