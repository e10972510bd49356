package absorption

import (
	"reflect"
	"testing"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

type lvl struct {
	price float64
	size  float64
}

func (l lvl) Price() float64 { return l.price }
func (l lvl) Size() float64  { return l.size }

func mkLevels(ls ...lvl) []Level {
	out := make([]Level, len(ls))
	for i, l := range ls {
		out[i] = l
	}
	return out
}

func ticks(price float64) int64 { return domain.ToTicks(price) }

func TestExtractSumsConstituentSizes(t *testing.T) {
	// Three resting orders at 0.52 across the ranked slice must aggregate
	// into a single snapshot entry.
	snap, ranked := Extract(mkLevels(
		lvl{0.52, 10}, lvl{0.52, 5}, lvl{0.51, 7}, lvl{0.52, 2.5},
	), 5)

	if got, want := snap[ticks(0.52)], 17.5; got != want {
		t.Fatalf("quantity at 0.52 = %v, want %v", got, want)
	}
	if got, want := snap[ticks(0.51)], 7.0; got != want {
		t.Fatalf("quantity at 0.51 = %v, want %v", got, want)
	}
	if want := []int64{ticks(0.52), ticks(0.51)}; !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranked = %v, want %v", ranked, want)
	}
}

func TestExtractMonitorLevelsCutoff(t *testing.T) {
	snap, ranked := Extract(mkLevels(
		lvl{0.60, 1}, lvl{0.59, 2}, lvl{0.58, 3}, lvl{0.57, 4},
	), 2)

	if len(snap) != 2 || len(ranked) != 2 {
		t.Fatalf("expected 2 levels, got snap=%v ranked=%v", snap, ranked)
	}
	if _, ok := snap[ticks(0.58)]; ok {
		t.Fatal("level beyond monitor_levels cutoff must be dropped")
	}
}

func TestExtractDropsZeroSizes(t *testing.T) {
	snap, ranked := Extract(mkLevels(lvl{0.50, 0}, lvl{0.49, 3}), 5)
	if _, ok := snap[ticks(0.50)]; ok {
		t.Fatal("zero quantity is equivalent to an absent level")
	}
	if want := []int64{ticks(0.49)}; !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranked = %v, want %v", ranked, want)
	}
}

func TestExtractDegenerateInputs(t *testing.T) {
	if snap, ranked := Extract(nil, 3); len(snap) != 0 || ranked != nil {
		t.Fatalf("empty input: snap=%v ranked=%v", snap, ranked)
	}
	if snap, _ := Extract(mkLevels(lvl{0.5, 1}), 0); len(snap) != 0 {
		t.Fatal("monitor_levels < 1 must yield an empty snapshot")
	}
}

func TestIdentifyLiquidityAreas(t *testing.T) {
	snap := Snapshot{
		ticks(100): 30,
		ticks(99):  20, // exactly at threshold, must be excluded
		ticks(98):  21,
	}
	ranked := []int64{ticks(100), ticks(99), ticks(98)}

	areas := IdentifyLiquidityAreas(snap, ranked, 20)
	want := []int64{ticks(100), ticks(98)}
	if !reflect.DeepEqual(areas, want) {
		t.Fatalf("areas = %v, want %v", areas, want)
	}

	// Idempotent: same snapshot, same result.
	again := IdentifyLiquidityAreas(snap, ranked, 20)
	if !reflect.DeepEqual(again, areas) {
		t.Fatalf("second identification differs: %v vs %v", again, areas)
	}
}

func TestIdentifyLiquidityAreasEmpty(t *testing.T) {
	if areas := IdentifyLiquidityAreas(Snapshot{}, nil, 10); areas != nil {
		t.Fatalf("areas = %v, want nil", areas)
	}
}
