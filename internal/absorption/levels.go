// Package absorption implements order-book absorption detection: level
// snapshot extraction, liquidity area identification, per-side absorption
// volume calculation, and the entry decision state machine.
//
// Everything in this package is a pure function over value types. Strategies
// own the mutable state (previous snapshots, decision state) and pass it in
// explicitly, so the whole pipeline is unit-testable without a live feed.
package absorption

import "github.com/alanyoungcy/absorbot/internal/domain"

// Level exposes the price and total resting size of one ranked book level.
type Level interface {
	Price() float64
	Size() float64
}

// Snapshot maps fixed-point price ticks to the total resting quantity at
// that price. Keys are ticks (1e6 scale) so equal prices compare exactly.
// A snapshot covers one side of the book at one evaluation cycle and is
// never mutated after capture.
type Snapshot map[int64]float64

// Extract reduces a ranked sequence of book levels into a Snapshot plus the
// rank-ordered list of its price keys (best level first). At most
// monitorLevels levels are considered; quantities at a repeated price are
// summed. Zero-size levels are dropped, since a quantity of zero is
// equivalent to the level being absent.
func Extract(levels []Level, monitorLevels int) (Snapshot, []int64) {
	if monitorLevels < 1 || len(levels) == 0 {
		return Snapshot{}, nil
	}
	if len(levels) > monitorLevels {
		levels = levels[:monitorLevels]
	}

	snap := make(Snapshot, len(levels))
	ranked := make([]int64, 0, len(levels))
	for _, lvl := range levels {
		size := lvl.Size()
		if size <= 0 {
			continue
		}
		ticks := domain.ToTicks(lvl.Price())
		if _, seen := snap[ticks]; !seen {
			ranked = append(ranked, ticks)
		}
		snap[ticks] += size
	}
	return snap, ranked
}

// IdentifyLiquidityAreas returns the prices from ranked whose snapshot
// quantity strictly exceeds threshold, preserving book rank order. A level
// sitting exactly at the threshold is not a liquidity area.
//
// The set is recomputed from scratch every evaluation cycle; it is never
// merged with a previous cycle's areas.
func IdentifyLiquidityAreas(snap Snapshot, ranked []int64, threshold float64) []int64 {
	var areas []int64
	for _, ticks := range ranked {
		if snap[ticks] > threshold {
			areas = append(areas, ticks)
		}
	}
	return areas
}
