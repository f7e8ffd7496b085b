package engine

import (
	"time"

	"clobengine/internal/domain"
)

// OrderBook owns both sides of one pair's resting liquidity: a PriceIndex
// and a price->PriceLevel map per side, a dense orders table, and a
// by-trader index. It performs pure state transformations only — it never
// touches a Ledger, and it carries no lock of its own. Every method here
// is called exclusively from within the owning MatchingEngine's single
// critical section (adapted from the teacher's book.go, which wrapped a
// single B-tree of order entries; this version separates the ordered
// price set from the per-price FIFO per the anti-pattern the source's
// intrusive-linked-list design is meant to avoid).
type OrderBook struct {
	bids *PriceIndex
	asks *PriceIndex

	bidLevels map[int64]*PriceLevel
	askLevels map[int64]*PriceLevel

	orders   []*domain.Order // dense, indexed by id-1; never shrinks
	byTrader map[domain.Account][]uint64

	lastTradePrice int64
	nextOrderID    uint64
}

// NewOrderBook creates an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:      NewPriceIndex(true),
		asks:      NewPriceIndex(false),
		bidLevels: make(map[int64]*PriceLevel),
		askLevels: make(map[int64]*PriceLevel),
		byTrader:  make(map[domain.Account][]uint64),
	}
}

func (ob *OrderBook) levelsFor(side domain.Side) (map[int64]*PriceLevel, *PriceIndex) {
	if side == domain.Buy {
		return ob.bidLevels, ob.bids
	}
	return ob.askLevels, ob.asks
}

func (ob *OrderBook) levelFor(side domain.Side, price int64) (*PriceLevel, bool) {
	levels, _ := ob.levelsFor(side)
	pl, ok := levels[price]
	return pl, ok
}

// InsertResting appends a new resting order to the correct PriceLevel's
// FIFO, creating the level (and inserting its price into the side's
// PriceIndex) if this is the first order at that price. Assigns and
// returns the order's id from the book's monotone counter.
func (ob *OrderBook) InsertResting(trader domain.Account, side domain.Side, price uint64, amount uint64, timestamp time.Time) *domain.Order {
	ob.nextOrderID++
	id := ob.nextOrderID

	order := &domain.Order{
		ID:        id,
		Trader:    trader,
		Price:     price,
		Amount:    amount,
		Filled:    0,
		Side:      side,
		Timestamp: timestamp,
		Active:    true,
	}
	ob.orders = append(ob.orders, order)
	ob.byTrader[trader] = append(ob.byTrader[trader], id)

	levels, index := ob.levelsFor(side)
	p := int64(price)
	level, ok := levels[p]
	if !ok {
		level = NewPriceLevel(p)
		levels[p] = level
		index.Insert(p)
	}
	level.Push(id, amount)

	return order
}

// RestoreOrder re-inserts a previously persisted order into the book
// without minting a new id: slots it into the dense table at its
// original id's position, re-indexes it under its trader, and — if it
// is still active — re-queues it on its level's FIFO. Orders are
// expected to arrive in ascending id order, which LoadAllOrders' key
// order already gives, and which is also always a level's FIFO order,
// since a level's queue only ever grows by appending newly minted,
// monotonically increasing ids.
func (ob *OrderBook) RestoreOrder(order *domain.Order) {
	for uint64(len(ob.orders)) < order.ID-1 {
		ob.orders = append(ob.orders, nil)
	}
	ob.orders = append(ob.orders, order)
	ob.byTrader[order.Trader] = append(ob.byTrader[order.Trader], order.ID)

	if order.ID > ob.nextOrderID {
		ob.nextOrderID = order.ID
	}

	if !order.Active {
		return
	}

	levels, index := ob.levelsFor(order.Side)
	p := int64(order.Price)
	level, ok := levels[p]
	if !ok {
		level = NewPriceLevel(p)
		levels[p] = level
		index.Insert(p)
	}
	level.Push(order.ID, order.Remaining())
}

// SetNextOrderID raises the book's order-id counter to next if next is
// higher than what's already loaded — used on restore, after the
// persisted orders have been replayed, to apply the persisted order-id
// counter. It never lowers the counter.
func (ob *OrderBook) SetNextOrderID(next uint64) {
	if next > ob.nextOrderID {
		ob.nextOrderID = next
	}
}

// Head peeks the first resting order id at price on side, if any.
func (ob *OrderBook) Head(side domain.Side, price uint64) (uint64, bool) {
	level, ok := ob.levelFor(side, int64(price))
	if !ok {
		return 0, false
	}
	return level.Head()
}

// Order looks up an order by id via the dense table. Returns nil if id
// was never assigned by this book.
func (ob *OrderBook) Order(id uint64) *domain.Order {
	if id == 0 || id > uint64(len(ob.orders)) {
		return nil
	}
	return ob.orders[id-1]
}

// OrdersOf returns the ids of every order a trader has ever placed on
// this book, in placement order.
func (ob *OrderBook) OrdersOf(trader domain.Account) []uint64 {
	return ob.byTrader[trader]
}

// ApplyFill records filledDelta against order id. If the order becomes
// fully filled it is dequeued from its level, marked inactive, and — if
// that empties the level — the price is removed from the side's
// PriceIndex.
func (ob *OrderBook) ApplyFill(id uint64, filledDelta uint64) {
	order := ob.Order(id)
	if order == nil {
		return
	}
	order.Filled += filledDelta

	level, ok := ob.levelFor(order.Side, int64(order.Price))
	if !ok {
		return
	}
	level.AdjustLiquidity(-int64(filledDelta))

	if order.Remaining() == 0 {
		order.Active = false
		level.Remove(id, 0)
		ob.pruneIfEmpty(order.Side, level)
	}
}

// RemoveOrder unlinks order id from its level's FIFO regardless of
// position, marks it inactive, subtracts its remaining amount from the
// level's total_liquidity, and prunes the price from the PriceIndex if
// that empties the level. Used by Cancel.
func (ob *OrderBook) RemoveOrder(id uint64) {
	order := ob.Order(id)
	if order == nil || !order.Active {
		return
	}
	rem := order.Remaining()
	order.Active = false

	level, ok := ob.levelFor(order.Side, int64(order.Price))
	if !ok {
		return
	}
	level.Remove(id, rem)
	ob.pruneIfEmpty(order.Side, level)
}

func (ob *OrderBook) pruneIfEmpty(side domain.Side, level *PriceLevel) {
	if !level.Empty() {
		return
	}
	levels, index := ob.levelsFor(side)
	delete(levels, level.Price)
	index.Remove(level.Price)
}

// Liquidity returns the total resting base units at price on side, 0 if
// the level doesn't exist.
func (ob *OrderBook) Liquidity(side domain.Side, price uint64) uint64 {
	level, ok := ob.levelFor(side, int64(price))
	if !ok {
		return 0
	}
	return level.TotalLiquidity()
}

// LastTradePrice returns the price of the most recent executed trade, or
// 0 if none has happened yet.
func (ob *OrderBook) LastTradePrice() uint64 {
	return uint64(ob.lastTradePrice)
}

// SetLastTradePrice records p as the book's most recent trade price.
func (ob *OrderBook) SetLastTradePrice(p uint64) {
	ob.lastTradePrice = int64(p)
}

// LevelFor returns the PriceLevel at price on side, if one exists. Used
// by Amend, which mutates an order's Amount and the level's liquidity
// directly rather than through Push/Remove.
func (ob *OrderBook) LevelFor(side domain.Side, price uint64) (*PriceLevel, bool) {
	return ob.levelFor(side, int64(price))
}

// BidLevel returns the bid-side PriceLevel at price, if one exists.
func (ob *OrderBook) BidLevel(price uint64) (*PriceLevel, bool) {
	return ob.levelFor(domain.Buy, int64(price))
}

// AskLevel returns the ask-side PriceLevel at price, if one exists.
func (ob *OrderBook) AskLevel(price uint64) (*PriceLevel, bool) {
	return ob.levelFor(domain.Sell, int64(price))
}

// BestBid returns the highest active bid price, if any.
func (ob *OrderBook) BestBid() (uint64, bool) {
	p, ok := ob.bids.Best()
	return uint64(p), ok
}

// BestAsk returns the lowest active ask price, if any.
func (ob *OrderBook) BestAsk() (uint64, bool) {
	p, ok := ob.asks.Best()
	return uint64(p), ok
}

// AskPricesAscending walks ask prices ascending (cheapest first), unbounded.
func (ob *OrderBook) AskPricesAscending(fn func(price uint64) bool) {
	ob.asks.Ascending(0, func(p int64) bool { return fn(uint64(p)) })
}

// BidPricesDescending walks bid prices descending (richest first).
func (ob *OrderBook) BidPricesDescending(fn func(price uint64) bool) {
	ob.bids.Descending(0, func(p int64) bool { return fn(uint64(p)) })
}
