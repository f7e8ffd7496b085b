package engine

import "github.com/google/btree"

// PriceIndex is an ordered set of distinct prices with resting liquidity
// on one side of one pair's book. It stores only prices — quantities and
// order identity live in PriceLevel and OrderBook — giving O(log n)
// insert/remove and O(k) bounded walks from either end, backed by the
// same balanced B-tree the teacher's order book uses for its combined
// (price, time, id) ordering.
type PriceIndex struct {
	tree *btree.BTreeG[int64]
	desc bool // true for bid-side (descending = best-first) indexes
}

func priceLess(a, b int64) bool { return a < b }

// NewPriceIndex creates an empty PriceIndex. desc controls whether
// "best" means largest (bids) or smallest (asks).
func NewPriceIndex(desc bool) *PriceIndex {
	const degree = 32
	return &PriceIndex{
		tree: btree.NewG[int64](degree, priceLess),
		desc: desc,
	}
}

// Insert adds p to the index. No-op if already present.
func (idx *PriceIndex) Insert(p int64) {
	idx.tree.ReplaceOrInsert(p)
}

// Remove deletes p from the index. No-op if absent.
func (idx *PriceIndex) Remove(p int64) {
	idx.tree.Delete(p)
}

// Len returns the number of distinct prices in the index.
func (idx *PriceIndex) Len() int {
	return idx.tree.Len()
}

// BestMin returns the smallest price in the index.
func (idx *PriceIndex) BestMin() (int64, bool) {
	return idx.tree.Min()
}

// BestMax returns the largest price in the index.
func (idx *PriceIndex) BestMax() (int64, bool) {
	return idx.tree.Max()
}

// Best returns the index's preferred price: the max for a descending
// (bid-side) index, the min for an ascending (ask-side) one.
func (idx *PriceIndex) Best() (int64, bool) {
	if idx.desc {
		return idx.BestMax()
	}
	return idx.BestMin()
}

// Ascending calls fn with up to limit prices, smallest first. A limit of
// 0 or less means unbounded — the matching engine always calls it this
// way; bounded calls are only ever made by callers that pass an
// explicit UI-facing limit, never silently by the engine itself.
func (idx *PriceIndex) Ascending(limit int, fn func(price int64) bool) {
	n := 0
	idx.tree.Ascend(func(p int64) bool {
		if limit > 0 && n >= limit {
			return false
		}
		n++
		return fn(p)
	})
}

// Descending calls fn with up to limit prices, largest first.
func (idx *PriceIndex) Descending(limit int, fn func(price int64) bool) {
	n := 0
	idx.tree.Descend(func(p int64) bool {
		if limit > 0 && n >= limit {
			return false
		}
		n++
		return fn(p)
	})
}
