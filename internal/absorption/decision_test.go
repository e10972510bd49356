package absorption

import (
	"testing"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

var baseCfg = DecisionConfig{
	MinAbsorptionVolume: 10,
	DominanceFactor:     1.5,
	CooldownPeriod:      10 * time.Second,
	TradeSize:           1,
}

func TestDecideSellOnBidAbsorption(t *testing.T) {
	now := time.Now().UTC()
	// bid 12 > 10 and 12 > 3*1.5 -> SELL at best bid.
	intent, st := Decide(baseCfg, State{}, now, Result{Volume: 12}, Result{Volume: 3}, 0.55, 0.57)
	if intent == nil {
		t.Fatal("expected a SELL intent")
	}
	if intent.Side != domain.OrderSideSell || intent.Price != 0.55 || intent.Size != 1 {
		t.Fatalf("intent = %+v", intent)
	}
	if st.TradesTaken != 1 || !st.LastEntry.Equal(now) {
		t.Fatalf("state = %+v", st)
	}
}

func TestDecideBuyOnAskAbsorption(t *testing.T) {
	intent, _ := Decide(baseCfg, State{}, time.Now().UTC(), Result{Volume: 2}, Result{Volume: 20}, 0.55, 0.57)
	if intent == nil || intent.Side != domain.OrderSideBuy || intent.Price != 0.57 {
		t.Fatalf("intent = %+v", intent)
	}
}

func TestDecideDominanceNotMet(t *testing.T) {
	// bid 12, ask 9: 12 < 9*1.5 = 13.5 -> no intent on either side.
	intent, st := Decide(baseCfg, State{}, time.Now().UTC(), Result{Volume: 12}, Result{Volume: 9}, 0.55, 0.57)
	if intent != nil {
		t.Fatalf("expected no intent, got %+v", intent)
	}
	if st.TradesTaken != 0 || !st.LastEntry.IsZero() {
		t.Fatalf("state mutated without an entry: %+v", st)
	}
}

func TestDecideMinVolumeNotMet(t *testing.T) {
	intent, _ := Decide(baseCfg, State{}, time.Now().UTC(), Result{Volume: 9}, Result{Volume: 0}, 0.55, 0.57)
	if intent != nil {
		t.Fatalf("volume below minimum must not trigger, got %+v", intent)
	}
}

func TestDecideCooldownSuppressesEntries(t *testing.T) {
	now := time.Now().UTC()
	st := State{LastEntry: now.Add(-5 * time.Second), TradesTaken: 1}

	if st.Phase(now, baseCfg.CooldownPeriod) != PhaseCoolingDown {
		t.Fatal("expected cooling-down phase")
	}
	intent, out := Decide(baseCfg, st, now, Result{Volume: 100}, Result{Volume: 0}, 0.55, 0.57)
	if intent != nil {
		t.Fatalf("cooldown violated: %+v", intent)
	}
	if out != st {
		t.Fatalf("state changed during cooldown: %+v", out)
	}

	// Once the window elapses the same volumes trigger again.
	later := now.Add(6 * time.Second)
	if st.Phase(later, baseCfg.CooldownPeriod) != PhaseIdle {
		t.Fatal("expected idle phase after cooldown")
	}
	intent, _ = Decide(baseCfg, st, later, Result{Volume: 100}, Result{Volume: 0}, 0.55, 0.57)
	if intent == nil {
		t.Fatal("expected intent after cooldown elapsed")
	}
}

func TestDecideAtMostOneIntentPerCycle(t *testing.T) {
	// Both sides above threshold but neither dominant: nothing fires, and
	// there is structurally no way to emit two intents in one call.
	intent, _ := Decide(baseCfg, State{}, time.Now().UTC(), Result{Volume: 50}, Result{Volume: 50}, 0.55, 0.57)
	if intent != nil {
		t.Fatalf("expected no intent, got %+v", intent)
	}

	// Bid branch wins when both would qualify.
	cfg := baseCfg
	cfg.DominanceFactor = 0.1
	intent, _ = Decide(cfg, State{}, time.Now().UTC(), Result{Volume: 50}, Result{Volume: 40}, 0.55, 0.57)
	if intent == nil || intent.Side != domain.OrderSideSell {
		t.Fatalf("bid branch must take precedence, got %+v", intent)
	}
}

func TestDecideMissingBestPriceSuppressed(t *testing.T) {
	// Bid branch triggers but there is no best bid: silently no-op, state
	// untouched so the cooldown does not start.
	intent, st := Decide(baseCfg, State{}, time.Now().UTC(), Result{Volume: 12}, Result{Volume: 3}, 0, 0.57)
	if intent != nil {
		t.Fatalf("expected suppression, got %+v", intent)
	}
	if st.TradesTaken != 0 || !st.LastEntry.IsZero() {
		t.Fatalf("state mutated on suppressed entry: %+v", st)
	}
}

func TestDecidePercentageSizing(t *testing.T) {
	cfg := baseCfg
	cfg.TradePct = 0.1
	cfg.MaxTradeSize = 5

	intent, _ := Decide(cfg, State{}, time.Now().UTC(), Result{Volume: 30}, Result{Volume: 0}, 0.55, 0.57)
	if intent == nil || intent.Size != 3 {
		t.Fatalf("expected size 3 (30 * 0.1), got %+v", intent)
	}

	// Cap applies.
	intent, _ = Decide(cfg, State{}, time.Now().UTC(), Result{Volume: 500}, Result{Volume: 0}, 0.55, 0.57)
	if intent == nil || intent.Size != 5 {
		t.Fatalf("expected capped size 5, got %+v", intent)
	}
}
