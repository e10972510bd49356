package absorption

import (
	"reflect"
	"testing"
)

func TestRawShrinkage(t *testing.T) {
	// prev {100: 30, 99: 25}, cur {100: 5, 99: 25} -> volume 25, affected [100].
	prev := Snapshot{ticks(100): 30, ticks(99): 25}
	rank := []int64{ticks(100), ticks(99)}
	cur := Snapshot{ticks(100): 5, ticks(99): 25}

	res := Raw(prev, rank, cur, Bid, true)
	if res.Volume != 25 {
		t.Fatalf("volume = %v, want 25", res.Volume)
	}
	if want := []int64{ticks(100)}; !reflect.DeepEqual(res.Prices, want) {
		t.Fatalf("affected = %v, want %v", res.Prices, want)
	}
}

func TestRawGrowthContributesNothing(t *testing.T) {
	prev := Snapshot{ticks(100): 10, ticks(99): 10}
	rank := []int64{ticks(100), ticks(99)}
	cur := Snapshot{ticks(100): 15, ticks(99): 10}

	res := Raw(prev, rank, cur, Bid, true)
	if res.Volume != 0 || res.Prices != nil {
		t.Fatalf("growth/unchanged must contribute 0, got %+v", res)
	}
}

func TestRawDisappearanceWithRepriceGuard(t *testing.T) {
	prev := Snapshot{ticks(100): 30}
	rank := []int64{ticks(100)}

	// Level vanished and a new better-ranked bid appeared: attributed to
	// repricing, not absorption.
	cur := Snapshot{ticks(101): 12}
	res := Raw(prev, rank, cur, Bid, true)
	if res.Volume != 0 {
		t.Fatalf("guarded disappearance counted as absorption: %+v", res)
	}

	// Same books with the guard disabled: full previous quantity counts.
	res = Raw(prev, rank, cur, Bid, false)
	if res.Volume != 30 {
		t.Fatalf("unguarded volume = %v, want 30", res.Volume)
	}

	// A new worse-ranked bid does not trip the guard.
	cur = Snapshot{ticks(98): 12}
	res = Raw(prev, rank, cur, Bid, true)
	if res.Volume != 30 {
		t.Fatalf("worse-ranked newcomer must not trip the guard, got %+v", res)
	}
}

func TestRawRepriceGuardAskSide(t *testing.T) {
	// On the ask side "better ranked" means a lower price.
	prev := Snapshot{ticks(100): 30}
	rank := []int64{ticks(100)}
	cur := Snapshot{ticks(99): 12}

	res := Raw(prev, rank, cur, Ask, true)
	if res.Volume != 0 {
		t.Fatalf("new lower ask must trip the guard, got %+v", res)
	}

	cur = Snapshot{ticks(101): 12}
	res = Raw(prev, rank, cur, Ask, true)
	if res.Volume != 30 {
		t.Fatalf("new higher ask must not trip the guard, got %+v", res)
	}
}

func TestRawTotality(t *testing.T) {
	prev := Snapshot{ticks(100): 30, ticks(99): 25, ticks(98): 10}
	rank := []int64{ticks(100), ticks(99), ticks(98)}
	cur := Snapshot{ticks(100): 20, ticks(99): 5}

	res := Raw(prev, rank, cur, Bid, false)
	// 10 + 20 + 10: each contribution counted exactly once.
	if res.Volume != 40 {
		t.Fatalf("volume = %v, want 40", res.Volume)
	}
	if want := []int64{ticks(100), ticks(99), ticks(98)}; !reflect.DeepEqual(res.Prices, want) {
		t.Fatalf("affected = %v, want %v", res.Prices, want)
	}
}

func TestFilteredCompleteAbsorption(t *testing.T) {
	// liquidity_threshold=20, prev {100: 25}, area {100}, cur {} ->
	// volume 25 even though the level vanished, no guard applies.
	prev := Snapshot{ticks(100): 25}
	areas := []int64{ticks(100)}
	cur := Snapshot{}

	res := Filtered(prev, cur, areas)
	if res.Volume != 25 {
		t.Fatalf("volume = %v, want 25", res.Volume)
	}
	if want := []int64{ticks(100)}; !reflect.DeepEqual(res.Prices, want) {
		t.Fatalf("affected = %v, want %v", res.Prices, want)
	}
}

func TestFilteredIgnoresNonAreaAndNewPrices(t *testing.T) {
	prev := Snapshot{ticks(100): 30, ticks(99): 50}
	cur := Snapshot{ticks(100): 10, ticks(99): 10}

	// Only 99 is a liquidity area; the drop at 100 is out of scope.
	res := Filtered(prev, cur, []int64{ticks(99)})
	if res.Volume != 40 {
		t.Fatalf("volume = %v, want 40", res.Volume)
	}

	// An area price that never existed in prev contributes nothing.
	res = Filtered(prev, cur, []int64{ticks(101)})
	if res.Volume != 0 || res.Prices != nil {
		t.Fatalf("unknown area price contributed: %+v", res)
	}
}

func TestFilteredMonotonicity(t *testing.T) {
	prev := Snapshot{ticks(100): 10}
	cur := Snapshot{ticks(100): 10}
	if res := Filtered(prev, cur, []int64{ticks(100)}); res.Volume != 0 {
		t.Fatalf("unchanged quantity contributed %v", res.Volume)
	}
	cur[ticks(100)] = 12
	if res := Filtered(prev, cur, []int64{ticks(100)}); res.Volume != 0 {
		t.Fatalf("grown quantity contributed %v", res.Volume)
	}
}
