package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"clobengine/internal/domain"
	"clobengine/internal/ledger"
	"clobengine/internal/persist"
)

// MaxBatchSize is the largest number of legs a single Place call accepts.
const MaxBatchSize = 100

// Leg is one (price, amount) pair within a batch limit placement.
type Leg struct {
	Price  uint64
	Amount uint64
}

// MarketResult reports what an ExecuteMarket call actually moved.
// TotalBaseReceived is the base units that changed hands (what the buyer
// received on a BUY, what the seller gave up on a SELL); TotalQuoteReceived
// is the quote units that changed hands (what the buyer spent on a BUY,
// what the seller received on a SELL).
type MarketResult struct {
	TotalBaseReceived  uint64
	TotalQuoteReceived uint64
	Trades             []*domain.Trade
}

// MatchingEngine runs every lifecycle operation for a single trading
// pair over an OrderBook and a Ledger. Adapted/renamed from the
// teacher's process-wide Matcher (one instance per symbol there); this
// version is one instance per pair, instantiated by the registry, and
// serializes every operation — including every Ledger call — under a
// single mutex for the duration of the call, per spec.md §5's "MUST NOT
// release the engine's serialization lock".
type MatchingEngine struct {
	mu sync.Mutex

	pairKey string // persistence namespace and the Pair of every emitted Event
	base    domain.Asset
	quote   domain.Asset
	divisor uint64

	book   *OrderBook
	ledger ledger.Ledger
	events *Emitter
	store  *persist.Store
}

// NewMatchingEngine creates an engine for (base, quote) backed by l.
// events and store may be nil.
func NewMatchingEngine(pairKey string, base, quote domain.Asset, l ledger.Ledger, events *Emitter, store *persist.Store) *MatchingEngine {
	if events == nil {
		events = NewEmitter()
	}
	return &MatchingEngine{
		pairKey: pairKey,
		base:    base,
		quote:   quote,
		divisor: base.Divisor(),
		book:    NewOrderBook(),
		ledger:  l,
		events:  events,
		store:   store,
	}
}

// Restore rebuilds a MatchingEngine for pairKey from store: every
// persisted order, active or not, back into the dense table and
// by-trader index (restoring still-active ones onto their level's
// FIFO), plus the pair's last trade price and order-id counter. Returns
// a fresh, empty engine if store is nil.
func Restore(pairKey string, base, quote domain.Asset, l ledger.Ledger, events *Emitter, store *persist.Store) (*MatchingEngine, error) {
	m := NewMatchingEngine(pairKey, base, quote, l, events, store)
	if store == nil {
		return m, nil
	}

	orders, err := store.LoadAllOrders(pairKey)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		m.book.RestoreOrder(order)
	}

	lastTradePrice, err := store.LoadLastTradePrice(pairKey)
	if err != nil {
		return nil, err
	}
	m.book.SetLastTradePrice(lastTradePrice)

	counter, err := store.LoadOrderIDCounter(pairKey)
	if err != nil {
		return nil, err
	}
	m.book.SetNextOrderID(counter)

	return m, nil
}

// BaseAsset returns the pair's base asset.
func (m *MatchingEngine) BaseAsset() domain.Asset { return m.base }

// QuoteAsset returns the pair's quote asset.
func (m *MatchingEngine) QuoteAsset() domain.Asset { return m.quote }

// Order looks up an order by id.
func (m *MatchingEngine) Order(id uint64) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Order(id)
}

// OrdersOf returns the ids of every order trader has ever placed.
func (m *MatchingEngine) OrdersOf(trader domain.Account) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.OrdersOf(trader)
}

// Liquidity returns the resting base units at price on side.
func (m *MatchingEngine) Liquidity(side domain.Side, price uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Liquidity(side, price)
}

// LastTradePrice returns the most recent trade price, 0 if none yet.
func (m *MatchingEngine) LastTradePrice() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.LastTradePrice()
}

// Place validates and escrows a batch of limit legs, inserts each as a
// resting order in array order, and immediately attempts to cross each
// one at its exact placed price (spec.md §4.4). Matching never sweeps:
// a leg only ever matches against the opposite side at the same price.
func (m *MatchingEngine) Place(trader domain.Account, side domain.Side, legs []Leg) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(legs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if len(legs) > MaxBatchSize {
		return nil, domain.ErrBatchSizeTooLarge
	}

	quoteCosts := make([]uint64, len(legs))
	var totalEscrow uint64
	for i, leg := range legs {
		if leg.Price == 0 {
			return nil, domain.ErrInvalidPrice
		}
		if leg.Amount == 0 {
			return nil, domain.ErrInvalidAmount
		}
		cost, err := QuoteUnits(leg.Amount, leg.Price, m.divisor)
		if err != nil {
			return nil, err
		}
		quoteCosts[i] = cost
		if side == domain.Buy {
			totalEscrow += cost
		} else {
			totalEscrow += leg.Amount
		}
	}

	escrowAsset := m.quote
	if side == domain.Sell {
		escrowAsset = m.base
	}
	if err := m.debit(trader, escrowAsset, totalEscrow); err != nil {
		return nil, err
	}

	now := time.Now()
	orders := make([]*domain.Order, len(legs))
	for i, leg := range legs {
		order := m.book.InsertResting(trader, side, leg.Price, leg.Amount, now)
		orders[i] = order
		m.emitOrderCreated(order)
		if err := m.persistOrder(order); err != nil {
			return orders, err
		}
		if err := m.crossAtPrice(leg.Price); err != nil {
			return orders, err
		}
	}

	return orders, nil
}

// crossAtPrice drains the bid and ask FIFOs at price against each other,
// head-of-queue first, until either side empties (spec.md §4.5). Like
// applyMarketPlan, it stages every touched order and level into one
// Batch (when a Store is configured) and commits it once, after the last
// match at this price.
func (m *MatchingEngine) crossAtPrice(price uint64) error {
	var batch *persist.Batch
	if m.store != nil {
		batch = m.store.NewBatch()
	}

	for {
		buyID, okBuy := m.book.Head(domain.Buy, price)
		sellID, okSell := m.book.Head(domain.Sell, price)
		if !okBuy || !okSell {
			break
		}

		buy := m.book.Order(buyID)
		sell := m.book.Order(sellID)

		fill := min64(buy.Remaining(), sell.Remaining())
		if fill == 0 {
			break
		}
		value, err := quoteUnitsUnchecked(fill, price, m.divisor)
		if err != nil {
			discard(batch)
			return err
		}

		if err := m.credit(sell.Trader, m.quote, value); err != nil {
			discard(batch)
			return err
		}
		if err := m.credit(buy.Trader, m.base, fill); err != nil {
			discard(batch)
			return err
		}

		m.book.ApplyFill(buyID, fill)
		m.book.ApplyFill(sellID, fill)
		m.book.SetLastTradePrice(price)

		trade := &domain.Trade{
			TradeID:     uuid.New().String(),
			BuyOrderID:  buyID,
			SellOrderID: sellID,
			Buyer:       buy.Trader,
			Seller:      sell.Trader,
			Price:       price,
			BaseAmount:  fill,
			ExecutedAt:  time.Now(),
		}
		m.events.Emit(Event{Type: EventTradeExecuted, Pair: m.pairKey, Buyer: buy.Trader, Seller: sell.Trader, Price: price, BaseAmount: fill})
		m.emitOrderFilled(buy)
		m.emitOrderFilled(sell)
		_ = trade

		if batch != nil {
			if err := m.stageOrderAndLevel(batch, buy); err != nil {
				discard(batch)
				return err
			}
			if err := m.stageOrderAndLevel(batch, sell); err != nil {
				discard(batch)
				return err
			}
			if err := batch.SaveLastTradePrice(m.pairKey, price); err != nil {
				discard(batch)
				return err
			}
		}
	}

	if batch != nil {
		return batch.Commit()
	}
	return nil
}

// Cancel retires order id, unlinks it from its level, and refunds the
// trader whatever escrow is still outstanding for it.
func (m *MatchingEngine) Cancel(trader domain.Account, id uint64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := m.book.Order(id)
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Trader != trader {
		return nil, domain.ErrUnauthorized
	}
	if !order.Active {
		return nil, domain.ErrOrderInactive
	}

	rem := order.Remaining()
	price := order.Price
	side := order.Side
	m.book.RemoveOrder(id)

	var err error
	if side == domain.Buy {
		var value uint64
		value, err = quoteUnitsUnchecked(rem, price, m.divisor)
		if err == nil {
			err = m.credit(trader, m.quote, value)
		}
	} else {
		err = m.credit(trader, m.base, rem)
	}
	if err != nil {
		return nil, err
	}

	if m.store != nil {
		batch := m.store.NewBatch()
		if err := m.stageOrderAndLevel(batch, order); err != nil {
			discard(batch)
			return nil, err
		}
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}

	m.events.Emit(Event{Type: EventOrderCancelled, Pair: m.pairKey, OrderID: id, Trader: trader})
	return order, nil
}

// Amend changes order id's total amount, adjusting escrow and the
// level's liquidity by the delta while preserving the order's FIFO
// position (spec.md §4.7).
func (m *MatchingEngine) Amend(trader domain.Account, id uint64, newAmount uint64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := m.book.Order(id)
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Trader != trader {
		return nil, domain.ErrUnauthorized
	}
	if !order.Active {
		return nil, domain.ErrOrderInactive
	}
	if newAmount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if newAmount <= order.Filled {
		return nil, domain.ErrAmountLessThanFilled
	}

	delta := int64(newAmount) - int64(order.Amount)
	if err := m.settleAmendDelta(trader, order, delta); err != nil {
		return nil, err
	}

	if level, ok := m.book.LevelFor(order.Side, order.Price); ok {
		level.AdjustLiquidity(delta)
	}
	order.Amount = newAmount

	if m.store != nil {
		batch := m.store.NewBatch()
		if err := m.stageOrderAndLevel(batch, order); err != nil {
			discard(batch)
			return nil, err
		}
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}

	m.events.Emit(Event{Type: EventOrderAmended, Pair: m.pairKey, OrderID: id, Trader: trader, NewAmount: newAmount})
	return order, nil
}

func (m *MatchingEngine) settleAmendDelta(trader domain.Account, order *domain.Order, delta int64) error {
	asset := m.quote
	if order.Side == domain.Sell {
		asset = m.base
	}

	if delta == 0 {
		return nil
	}
	if delta > 0 {
		units := uint64(delta)
		if order.Side == domain.Buy {
			var err error
			units, err = QuoteUnits(units, order.Price, m.divisor)
			if err != nil {
				return err
			}
		}
		return m.debit(trader, asset, units)
	}

	units := uint64(-delta)
	if order.Side == domain.Buy {
		var err error
		units, err = quoteUnitsUnchecked(units, order.Price, m.divisor)
		if err != nil {
			return err
		}
	}
	return m.credit(trader, asset, units)
}

// ExecuteMarket sweeps the opposite side across the caller-supplied,
// pre-sorted price hints (spec.md §4.6). It plans the entire sweep
// read-only first; only if the plan clears the minReceived slippage
// guard does it apply the plan to the book and the ledger, and (when a
// Store is configured) commit the persisted writes in one Batch. A
// failed plan leaves the book and the ledger exactly as they were,
// minus the single debit/credit pair that escrowed and then refunded
// the caller's full amount.
func (m *MatchingEngine) ExecuteMarket(trader domain.Account, amount uint64, side domain.Side, hints []uint64, minReceived uint64, expiration time.Time) (*MarketResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if len(hints) == 0 {
		return nil, domain.ErrNoPricesProvided
	}
	if !expiration.IsZero() && time.Now().After(expiration) {
		return nil, domain.ErrOrderExpired
	}

	if side == domain.Buy {
		return m.executeMarketBuy(trader, amount, hints, minReceived)
	}
	return m.executeMarketSell(trader, amount, hints, minReceived)
}

type plannedFill struct {
	orderID uint64
	price   uint64
	fill    uint64
	value   uint64
	trader  domain.Account
}

func (m *MatchingEngine) executeMarketBuy(trader domain.Account, budget uint64, hints []uint64, minReceived uint64) (*MarketResult, error) {
	if err := m.debit(trader, m.quote, budget); err != nil {
		return nil, err
	}

	remainingBudget := budget
	var totalBaseReceived uint64
	var plan []plannedFill

	for _, p := range hints {
		if remainingBudget == 0 {
			break
		}
		level, ok := m.book.AskLevel(p)
		if !ok {
			continue
		}
		level.Each(func(id uint64) bool {
			order := m.book.Order(id)
			maxBaseByBudget, err := baseUnitsUnchecked(remainingBudget, p, m.divisor)
			if err != nil || maxBaseByBudget == 0 {
				return false
			}
			fill := min64(order.Remaining(), maxBaseByBudget)
			if fill == 0 {
				return false
			}
			cost, err := quoteUnitsUnchecked(fill, p, m.divisor)
			if err != nil || cost == 0 {
				return false
			}
			plan = append(plan, plannedFill{orderID: id, price: p, fill: fill, value: cost, trader: order.Trader})
			remainingBudget -= cost
			totalBaseReceived += fill
			return remainingBudget > 0
		})
	}

	if totalBaseReceived < minReceived {
		if err := m.credit(trader, m.quote, budget); err != nil {
			return nil, err
		}
		return nil, domain.ErrInsufficientBaseReceived
	}

	trades, err := m.applyMarketPlan(plan, domain.Buy, trader)
	if err != nil {
		return nil, err
	}
	if remainingBudget > 0 {
		if err := m.credit(trader, m.quote, remainingBudget); err != nil {
			return nil, err
		}
	}

	return &MarketResult{
		TotalBaseReceived:  totalBaseReceived,
		TotalQuoteReceived: budget - remainingBudget,
		Trades:             trades,
	}, nil
}

func (m *MatchingEngine) executeMarketSell(trader domain.Account, amount uint64, hints []uint64, minReceived uint64) (*MarketResult, error) {
	if err := m.debit(trader, m.base, amount); err != nil {
		return nil, err
	}

	remainingBase := amount
	var totalQuoteReceived uint64
	var plan []plannedFill

	for _, p := range hints {
		if remainingBase == 0 {
			break
		}
		level, ok := m.book.BidLevel(p)
		if !ok {
			continue
		}
		level.Each(func(id uint64) bool {
			order := m.book.Order(id)
			fill := min64(order.Remaining(), remainingBase)
			if fill == 0 {
				return false
			}
			proceeds, err := quoteUnitsUnchecked(fill, p, m.divisor)
			if err != nil {
				return false
			}
			plan = append(plan, plannedFill{orderID: id, price: p, fill: fill, value: proceeds, trader: order.Trader})
			remainingBase -= fill
			totalQuoteReceived += proceeds
			return remainingBase > 0
		})
	}

	if totalQuoteReceived < minReceived {
		if err := m.credit(trader, m.base, amount); err != nil {
			return nil, err
		}
		return nil, domain.ErrInsufficientQuoteReceived
	}

	trades, err := m.applyMarketPlan(plan, domain.Sell, trader)
	if err != nil {
		return nil, err
	}
	if remainingBase > 0 {
		if err := m.credit(trader, m.base, remainingBase); err != nil {
			return nil, err
		}
	}

	return &MarketResult{
		TotalBaseReceived:  amount - remainingBase,
		TotalQuoteReceived: totalQuoteReceived,
		Trades:             trades,
	}, nil
}

// applyMarketPlan applies a verified plan to the book and ledger, and —
// when a Store is configured — stages the touched orders and levels into
// one Batch, committed atomically once every fill has been applied.
// takerSide is the side of the incoming market order; each plannedFill's
// orderID is a resting order on the opposite side.
func (m *MatchingEngine) applyMarketPlan(plan []plannedFill, takerSide domain.Side, taker domain.Account) ([]*domain.Trade, error) {
	var batch *persist.Batch
	if m.store != nil {
		batch = m.store.NewBatch()
	}

	trades := make([]*domain.Trade, 0, len(plan))

	for _, f := range plan {
		restingOrder := m.book.Order(f.orderID)

		var buyer, seller domain.Account
		if takerSide == domain.Buy {
			buyer, seller = taker, f.trader
			if err := m.credit(f.trader, m.quote, f.value); err != nil {
				return nil, err
			}
			if err := m.credit(taker, m.base, f.fill); err != nil {
				return nil, err
			}
		} else {
			buyer, seller = f.trader, taker
			if err := m.credit(f.trader, m.base, f.fill); err != nil {
				return nil, err
			}
			if err := m.credit(taker, m.quote, f.value); err != nil {
				return nil, err
			}
		}

		m.book.ApplyFill(f.orderID, f.fill)
		m.book.SetLastTradePrice(f.price)
		m.emitOrderFilled(restingOrder)
		m.events.Emit(Event{Type: EventTradeExecuted, Pair: m.pairKey, Buyer: buyer, Seller: seller, Price: f.price, BaseAmount: f.fill})

		trades = append(trades, &domain.Trade{
			TradeID:    uuid.New().String(),
			Buyer:      buyer,
			Seller:     seller,
			Price:      f.price,
			BaseAmount: f.fill,
			ExecutedAt: time.Now(),
		})

		if batch != nil {
			if err := m.stageOrderAndLevel(batch, restingOrder); err != nil {
				return nil, err
			}
			if err := batch.SaveLastTradePrice(m.pairKey, f.price); err != nil {
				return nil, err
			}
		}
	}

	if batch != nil {
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}

	return trades, nil
}

// stageOrderAndLevel stages order's current persisted state into batch,
// along with the level it rests on — derived from order's own side and
// price, since a mutated order and the level it sits in always change
// together. Stages a delete if the level has drained to empty.
func (m *MatchingEngine) stageOrderAndLevel(batch *persist.Batch, order *domain.Order) error {
	if err := batch.SaveOrder(m.pairKey, order); err != nil {
		return err
	}

	side, price := order.Side, order.Price
	level, ok := m.book.LevelFor(side, price)
	if !ok || level.Empty() {
		return batch.DeleteLevel(m.pairKey, side, price)
	}
	return batch.SaveLevel(m.pairKey, side, persist.PersistedLevel{
		Price:          price,
		OrderIDs:       level.OrderIDs(),
		TotalLiquidity: level.TotalLiquidity(),
	})
}

// discard abandons batch, swallowing the close error: it only ever runs
// on an already-failing path, where the staged writes are being thrown
// away anyway.
func discard(batch *persist.Batch) {
	if batch != nil {
		_ = batch.Discard()
	}
}

func (m *MatchingEngine) debit(account domain.Account, asset domain.Asset, units uint64) error {
	if units == 0 {
		return nil
	}
	return m.ledger.Debit(account, asset, units)
}

func (m *MatchingEngine) credit(account domain.Account, asset domain.Asset, units uint64) error {
	if units == 0 {
		return nil
	}
	return m.ledger.Credit(account, asset, units)
}

func (m *MatchingEngine) emitOrderCreated(order *domain.Order) {
	m.events.Emit(Event{
		Type:    EventOrderCreated,
		Pair:    m.pairKey,
		OrderID: order.ID,
		Trader:  order.Trader,
		Price:   order.Price,
		Amount:  order.Amount,
		Side:    order.Side,
	})
}

func (m *MatchingEngine) emitOrderFilled(order *domain.Order) {
	m.events.Emit(Event{
		Type:      EventOrderFilled,
		Pair:      m.pairKey,
		OrderID:   order.ID,
		Trader:    order.Trader,
		Amount:    order.Amount,
		Filled:    order.Filled,
		Remaining: order.Remaining(),
		Side:      order.Side,
	})
}

// persistOrder saves order's just-inserted state and, since this only
// ever runs right after InsertResting mints order.ID, advances the
// pair's persisted next-order-id counter to match — spec.md §6's
// counters/<pair>/order_id.
func (m *MatchingEngine) persistOrder(order *domain.Order) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveOrder(m.pairKey, order); err != nil {
		return err
	}
	return m.store.SaveOrderIDCounter(m.pairKey, order.ID)
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
