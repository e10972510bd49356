package absorption

// BookSide identifies which side of the book a snapshot belongs to. The raw
// calculator needs it to decide which of two prices is ranked closer to the
// top of the book.
type BookSide int

const (
	Bid BookSide = iota
	Ask
)

// Result is the outcome of one absorption calculation for one side: the
// total absorbed volume and the prices that contributed to it, in discovery
// order.
type Result struct {
	Volume float64
	Prices []int64
}

// Filtered computes absorption between two consecutive snapshots restricted
// to the given liquidity areas, iterated in their existing order.
//
// A price contributes (prev - cur) when its quantity shrank, and its full
// previous quantity when the level vanished entirely. Vanishing always
// counts as complete absorption here: the liquidity-area filter already
// restricts attention to levels presumed stable, so no reprice guard is
// applied. Growth or unchanged quantity contributes nothing.
func Filtered(prev, cur Snapshot, areas []int64) Result {
	var res Result
	for _, ticks := range areas {
		prevQty, ok := prev[ticks]
		if !ok {
			continue
		}
		curQty, present := cur[ticks]
		switch {
		case present && curQty < prevQty:
			res.Volume += prevQty - curQty
			res.Prices = append(res.Prices, ticks)
		case !present:
			res.Volume += prevQty
			res.Prices = append(res.Prices, ticks)
		}
	}
	return res
}

// Raw computes absorption between two consecutive snapshots over every
// price in the previous snapshot, iterated in prevRank order.
//
// Shrinkage contributes (prev - cur) as in Filtered. A vanished level
// contributes its full previous quantity unless repriceGuard is set and a
// better-ranked price absent from the previous snapshot has appeared, in
// which case the disappearance is attributed to the book repricing rather
// than to trades. The guard is a heuristic, not an exact classification;
// callers that prefer the unconditional reading disable it.
func Raw(prev Snapshot, prevRank []int64, cur Snapshot, side BookSide, repriceGuard bool) Result {
	var res Result
	for _, ticks := range prevRank {
		prevQty := prev[ticks]
		curQty, present := cur[ticks]
		switch {
		case present && curQty < prevQty:
			res.Volume += prevQty - curQty
			res.Prices = append(res.Prices, ticks)
		case !present:
			if repriceGuard && repricedPast(prev, cur, side, ticks) {
				continue
			}
			res.Volume += prevQty
			res.Prices = append(res.Prices, ticks)
		}
	}
	return res
}

// repricedPast reports whether the current snapshot contains a new price
// (absent from prev) ranked better than the given vanished price.
func repricedPast(prev, cur Snapshot, side BookSide, vanished int64) bool {
	for ticks := range cur {
		if _, existed := prev[ticks]; existed {
			continue
		}
		if betterRanked(side, ticks, vanished) {
			return true
		}
	}
	return false
}

// betterRanked reports whether price a is closer to the top of the book
// than price b on the given side.
func betterRanked(side BookSide, a, b int64) bool {
	if side == Bid {
		return a > b
	}
	return a < b
}
