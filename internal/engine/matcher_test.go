package engine

import (
	"testing"
	"time"

	"clobengine/internal/domain"
	"clobengine/internal/ledger"
)

var (
	testBase  = domain.Asset{ID: "BASE", Decimals: 8}
	testQuote = domain.Asset{ID: "QUOTE", Decimals: 6}
)

// newTestEngine creates a MatchingEngine over a fresh MemoryLedger with
// no persistence and no event listeners.
func newTestEngine() (*MatchingEngine, *ledger.MemoryLedger) {
	l := ledger.NewMemoryLedger()
	m := NewMatchingEngine("BASE/QUOTE", testBase, testQuote, l, nil, nil)
	return m, l
}

func fundQuote(l *ledger.MemoryLedger, trader domain.Account, units uint64) {
	l.Seed(trader, testQuote, units)
}

func fundBase(l *ledger.MemoryLedger, trader domain.Account, units uint64) {
	l.Seed(trader, testBase, units)
}

func TestPlace_BuyWithNoMatchRestsOnBook(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "alice", 100_000_000)

	orders, err := m.Place("alice", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("Place() error: %v", err)
	}
	if len(orders) != 1 || !orders[0].Active || orders[0].Filled != 0 {
		t.Fatalf("Place() = %+v, want one resting unfilled order", orders)
	}
	if got := m.Liquidity(domain.Buy, 100_000_000); got != 1_00000000 {
		t.Fatalf("Liquidity() = %d, want 100000000", got)
	}
}

func TestPlace_ExactPriceCrossFillsBoth(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller", 1_00000000)
	fundQuote(l, "buyer", 100_000_000)

	if _, err := m.Place("seller", domain.Sell, []Leg{{Price: 100_000_000, Amount: 1_00000000}}); err != nil {
		t.Fatalf("Place(seller) error: %v", err)
	}
	orders, err := m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("Place(buyer) error: %v", err)
	}

	buyOrder := m.Order(orders[0].ID)
	if buyOrder.Active {
		t.Fatalf("buy order still active after a full cross: %+v", buyOrder)
	}
	if buyOrder.Filled != 1_00000000 {
		t.Fatalf("buy order Filled = %d, want 100000000", buyOrder.Filled)
	}
	if got := l.Balance("buyer", testBase); got != 1_00000000 {
		t.Fatalf("buyer base balance = %d, want 100000000", got)
	}
	if got := l.Balance("seller", testQuote); got != 100_000_000 {
		t.Fatalf("seller quote balance = %d, want 100000000", got)
	}
	if got := m.LastTradePrice(); got != 100_000_000 {
		t.Fatalf("LastTradePrice() = %d, want 100000000", got)
	}
}

func TestPlace_PartialFillLeavesRemainderResting(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller", 1_00000000)
	fundQuote(l, "buyer", 200_000_000)

	if _, err := m.Place("seller", domain.Sell, []Leg{{Price: 100_000_000, Amount: 1_00000000}}); err != nil {
		t.Fatalf("Place(seller) error: %v", err)
	}
	orders, err := m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 2_00000000}})
	if err != nil {
		t.Fatalf("Place(buyer) error: %v", err)
	}

	buyOrder := m.Order(orders[0].ID)
	if !buyOrder.Active {
		t.Fatalf("buy order should still be resting for its unfilled remainder")
	}
	if buyOrder.Filled != 1_00000000 {
		t.Fatalf("buyOrder.Filled = %d, want 100000000", buyOrder.Filled)
	}
	if got := m.Liquidity(domain.Buy, 100_000_000); got != 1_00000000 {
		t.Fatalf("Liquidity() = %d, want the unfilled 100000000 remainder", got)
	}
}

func TestPlace_DifferentPricesDoNotCross(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller", 1_00000000)
	fundQuote(l, "buyer", 100_000_000)

	if _, err := m.Place("seller", domain.Sell, []Leg{{Price: 110_000_000, Amount: 1_00000000}}); err != nil {
		t.Fatalf("Place(seller) error: %v", err)
	}
	orders, err := m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("Place(buyer) error: %v", err)
	}

	if !m.Order(orders[0].ID).Active {
		t.Fatalf("buy at 100_000_000 should not cross a resting ask at 110_000_000")
	}
}

func TestPlace_InsufficientEscrowFails(t *testing.T) {
	m, _ := newTestEngine()
	_, err := m.Place("alice", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	if err == nil {
		t.Fatal("expected an error for an unfunded buy")
	}
}

func TestPlace_ZeroLegsRejected(t *testing.T) {
	m, _ := newTestEngine()
	if _, err := m.Place("alice", domain.Buy, nil); err != domain.ErrInvalidInput {
		t.Fatalf("Place(no legs) error = %v, want ErrInvalidInput", err)
	}
}

func TestPlace_BatchOverMaxSizeRejected(t *testing.T) {
	m, _ := newTestEngine()
	legs := make([]Leg, MaxBatchSize+1)
	for i := range legs {
		legs[i] = Leg{Price: 1, Amount: 1}
	}
	if _, err := m.Place("alice", domain.Buy, legs); err != domain.ErrBatchSizeTooLarge {
		t.Fatalf("Place(oversized batch) error = %v, want ErrBatchSizeTooLarge", err)
	}
}

func TestCancel_RefundsUnfilledBuyEscrow(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "alice", 100_000_000)

	orders, err := m.Place("alice", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("Place() error: %v", err)
	}

	if _, err := m.Cancel("alice", orders[0].ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if got := l.Balance("alice", testQuote); got != 100_000_000 {
		t.Fatalf("alice quote balance after cancel = %d, want the full 100000000 refund", got)
	}
	if got := m.Liquidity(domain.Buy, 100_000_000); got != 0 {
		t.Fatalf("Liquidity() after cancel = %d, want 0", got)
	}
}

func TestCancel_WrongTraderUnauthorized(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "alice", 100_000_000)
	orders, _ := m.Place("alice", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})

	if _, err := m.Cancel("mallory", orders[0].ID); err != domain.ErrUnauthorized {
		t.Fatalf("Cancel() by wrong trader error = %v, want ErrUnauthorized", err)
	}
}

func TestCancel_UnknownOrderNotFound(t *testing.T) {
	m, _ := newTestEngine()
	if _, err := m.Cancel("alice", 999); err != domain.ErrOrderNotFound {
		t.Fatalf("Cancel(unknown) error = %v, want ErrOrderNotFound", err)
	}
}

func TestAmend_IncreaseDebitsTheDelta(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "alice", 250_000_000)
	orders, _ := m.Place("alice", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})

	if _, err := m.Amend("alice", orders[0].ID, 2_00000000); err != nil {
		t.Fatalf("Amend() error: %v", err)
	}
	if got := l.Balance("alice", testQuote); got != 50_000_000 {
		t.Fatalf("alice quote balance after amend-up = %d, want 50000000 remaining unspent", got)
	}
	if got := m.Liquidity(domain.Buy, 100_000_000); got != 2_00000000 {
		t.Fatalf("Liquidity() after amend-up = %d, want 200000000", got)
	}
}

func TestAmend_DecreaseBelowFilledRejected(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller", 1_00000000)
	fundQuote(l, "buyer", 200_000_000)
	m.Place("seller", domain.Sell, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	orders, _ := m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 2_00000000}})

	if _, err := m.Amend("buyer", orders[0].ID, 50000000); err != domain.ErrAmountLessThanFilled {
		t.Fatalf("Amend(below filled) error = %v, want ErrAmountLessThanFilled", err)
	}
}

func TestExecuteMarket_BuySweepsAcrossHints(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller1", 1_00000000)
	fundBase(l, "seller2", 1_00000000)
	fundQuote(l, "taker", 10_000_000)

	m.Place("seller1", domain.Sell, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	m.Place("seller2", domain.Sell, []Leg{{Price: 110_000_000, Amount: 1_00000000}})

	result, err := m.ExecuteMarket("taker", 5_000_000, domain.Buy, []uint64{100_000_000, 110_000_000}, 0, time.Time{})
	if err != nil {
		t.Fatalf("ExecuteMarket() error: %v", err)
	}
	if result.TotalBaseReceived == 0 {
		t.Fatalf("ExecuteMarket() received zero base units")
	}
	if got := l.Balance("taker", testBase); got != result.TotalBaseReceived {
		t.Fatalf("taker base balance = %d, want %d", got, result.TotalBaseReceived)
	}
}

func TestExecuteMarket_SlippageGuardRevertsDebit(t *testing.T) {
	m, l := newTestEngine()
	fundBase(l, "seller", 10000)
	fundQuote(l, "taker", 1_000_000)

	m.Place("seller", domain.Sell, []Leg{{Price: 100_000_000, Amount: 10000}})

	before := l.Balance("taker", testQuote)
	_, err := m.ExecuteMarket("taker", 1_000_000, domain.Buy, []uint64{100_000_000}, 1<<40, time.Time{})
	if err != domain.ErrInsufficientBaseReceived {
		t.Fatalf("ExecuteMarket() error = %v, want ErrInsufficientBaseReceived", err)
	}
	if got := l.Balance("taker", testQuote); got != before {
		t.Fatalf("taker quote balance after a reverted sweep = %d, want unchanged %d", got, before)
	}
}

func TestExecuteMarket_NoHintsRejected(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "taker", 1_000_000)
	if _, err := m.ExecuteMarket("taker", 1000, domain.Buy, nil, 0, time.Time{}); err != domain.ErrNoPricesProvided {
		t.Fatalf("ExecuteMarket(no hints) error = %v, want ErrNoPricesProvided", err)
	}
}

func TestExecuteMarket_ExpiredRejected(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "taker", 1_000_000)
	past := time.Now().Add(-time.Hour)
	if _, err := m.ExecuteMarket("taker", 1000, domain.Buy, []uint64{100_000_000}, 0, past); err != domain.ErrOrderExpired {
		t.Fatalf("ExecuteMarket(expired) error = %v, want ErrOrderExpired", err)
	}
}

func TestExecuteMarket_SellSweepsBidsAndRefundsLeftover(t *testing.T) {
	m, l := newTestEngine()
	fundQuote(l, "buyer", 50000000)
	fundBase(l, "taker", 5_00000000)

	if _, err := m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 50000000}}); err != nil {
		t.Fatalf("Place(buyer) error: %v", err)
	}

	result, err := m.ExecuteMarket("taker", 1_00000000, domain.Sell, []uint64{100_000_000}, 0, time.Time{})
	if err != nil {
		t.Fatalf("ExecuteMarket() error: %v", err)
	}
	if result.TotalBaseReceived != 50000000 {
		t.Fatalf("TotalBaseReceived = %d, want 50000000 (only what the resting bid could absorb)", result.TotalBaseReceived)
	}
	if got := l.Balance("taker", testBase); got != 5_00000000-50000000 {
		t.Fatalf("taker base balance = %d, want the untraded remainder refunded", got)
	}
}

func TestEvents_EmitsOrderCreatedAndTradeExecuted(t *testing.T) {
	l := ledger.NewMemoryLedger()
	events := NewEmitter()
	var seen []EventType
	events.Subscribe(func(e Event) { seen = append(seen, e.Type) })
	m := NewMatchingEngine("BASE/QUOTE", testBase, testQuote, l, events, nil)

	fundBase(l, "seller", 1_00000000)
	fundQuote(l, "buyer", 100_000_000)
	m.Place("seller", domain.Sell, []Leg{{Price: 100_000_000, Amount: 1_00000000}})
	m.Place("buyer", domain.Buy, []Leg{{Price: 100_000_000, Amount: 1_00000000}})

	var gotTrade bool
	for _, evt := range seen {
		if evt == EventTradeExecuted {
			gotTrade = true
		}
	}
	if !gotTrade {
		t.Fatalf("seen events = %v, want a trade.executed among them", seen)
	}
}
