package engine

import "container/list"

// PriceLevel is the FIFO of resting order ids at one exact price on one
// side of a book. The teacher's book.go sorts whole order entries inside
// a single B-tree and relies on an intrusive next-pointer for per-price
// ordering; that collapses interior cancel into an O(1)-looking but
// head-only unlink. container/list gives a real doubly linked queue:
// O(1) push/pop at either end and O(1) removal of any element once its
// *list.Element handle is known.
type PriceLevel struct {
	Price          int64
	queue          *list.List
	elements       map[uint64]*list.Element
	totalLiquidity uint64
}

// NewPriceLevel creates an empty level at price.
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{
		Price:    price,
		queue:    list.New(),
		elements: make(map[uint64]*list.Element),
	}
}

// Push appends orderID to the back of the FIFO and adds remaining to the
// level's liquidity total.
func (pl *PriceLevel) Push(orderID uint64, remaining uint64) {
	pl.elements[orderID] = pl.queue.PushBack(orderID)
	pl.totalLiquidity += remaining
}

// Head returns the id of the order at the front of the FIFO.
func (pl *PriceLevel) Head() (uint64, bool) {
	front := pl.queue.Front()
	if front == nil {
		return 0, false
	}
	return front.Value.(uint64), true
}

// Remove unlinks orderID from the queue, wherever it sits, and subtracts
// delta (the order's remaining amount at the time of removal) from
// total_liquidity. No-op if orderID isn't present.
func (pl *PriceLevel) Remove(orderID uint64, delta uint64) {
	elem, ok := pl.elements[orderID]
	if !ok {
		return
	}
	pl.queue.Remove(elem)
	delete(pl.elements, orderID)
	pl.totalLiquidity -= delta
}

// AdjustLiquidity applies delta (positive or negative) to the level's
// liquidity total without touching the queue — used by fills (delta < 0)
// and by amend (delta either sign).
func (pl *PriceLevel) AdjustLiquidity(delta int64) {
	if delta >= 0 {
		pl.totalLiquidity += uint64(delta)
		return
	}
	pl.totalLiquidity -= uint64(-delta)
}

// TotalLiquidity returns the level's aggregate remaining base units.
func (pl *PriceLevel) TotalLiquidity() uint64 {
	return pl.totalLiquidity
}

// Empty reports whether the level has no resting orders. Per the data
// model invariant, Empty() == (TotalLiquidity() == 0) always holds.
func (pl *PriceLevel) Empty() bool {
	return pl.queue.Len() == 0
}

// Len returns the number of resting orders in the level's FIFO.
func (pl *PriceLevel) Len() int {
	return pl.queue.Len()
}

// OrderIDs returns the FIFO's current order ids, front to back. Used when
// persisting a level: since a level's queue only ever grows by appending
// newly minted, monotonically increasing ids, this is also always the
// level's id order by ascending id.
func (pl *PriceLevel) OrderIDs() []uint64 {
	ids := make([]uint64, 0, pl.queue.Len())
	pl.Each(func(id uint64) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Each walks the FIFO front-to-back without mutating it, calling fn with
// each order id. fn returns false to stop early. Used by market-order
// planning, which must read the queue's current shape before any fill is
// applied to it.
func (pl *PriceLevel) Each(fn func(orderID uint64) bool) {
	for e := pl.queue.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(uint64)) {
			return
		}
	}
}
