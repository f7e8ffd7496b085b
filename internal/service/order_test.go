package service

import (
	"errors"
	"testing"

	"clobengine/internal/domain"
	"clobengine/internal/engine"
	"clobengine/internal/ledger"
	"clobengine/internal/registry"
)

func newTestOrderService(t *testing.T) (*OrderService, *ledger.MemoryLedger) {
	t.Helper()
	l := ledger.NewMemoryLedger()
	r := registry.New(l, nil, nil)
	pairSvc := NewPairService(r)
	if err := pairSvc.AddQuote("USD", 2); err != nil {
		t.Fatalf("AddQuote() error: %v", err)
	}
	if _, err := pairSvc.Create(CreatePairRequest{BaseID: "BTC", BaseDecimals: 8, QuoteID: "USD", QuoteDecimals: 2}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return NewOrderService(pairSvc), l
}

func TestOrderService_UnknownPairReturnsErrPairNotFound(t *testing.T) {
	s, _ := newTestOrderService(t)

	_, err := s.PlaceLimit("BTC", "EUR", "alice", domain.Buy, []engine.Leg{{Price: 100, Amount: 1}})
	if !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("PlaceLimit() error = %v, want ErrPairNotFound", err)
	}

	if _, err := s.Get("BTC", "EUR", 1); !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("Get() error = %v, want ErrPairNotFound", err)
	}
	if _, err := s.Cancel("BTC", "EUR", "alice", 1); !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("Cancel() error = %v, want ErrPairNotFound", err)
	}
	if _, err := s.Amend("BTC", "EUR", "alice", 1, 5); !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("Amend() error = %v, want ErrPairNotFound", err)
	}
	if _, err := s.ListByTrader("BTC", "EUR", "alice"); !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("ListByTrader() error = %v, want ErrPairNotFound", err)
	}
}

func TestOrderService_PlaceLimitRestsThenCancelRefunds(t *testing.T) {
	s, l := newTestOrderService(t)
	l.Seed("alice", domain.Asset{ID: "USD"}, 100_00)

	orders, err := s.PlaceLimit("BTC", "USD", "alice", domain.Buy, []engine.Leg{{Price: 100_00, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("PlaceLimit() error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("PlaceLimit() returned %d orders, want 1", len(orders))
	}

	got, err := s.Get("BTC", "USD", orders[0].ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Active {
		t.Fatalf("Get() order = %+v, want Active", got)
	}

	cancelled, err := s.Cancel("BTC", "USD", "alice", orders[0].ID)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if cancelled.Active {
		t.Fatalf("Cancel() order = %+v, want inactive", cancelled)
	}
	if got := l.Balance("alice", domain.Asset{ID: "USD"}); got != 100_00 {
		t.Fatalf("alice USD balance = %d, want 10000 (full refund)", got)
	}
}

func TestOrderService_ListByTraderTracksPlacedOrders(t *testing.T) {
	s, l := newTestOrderService(t)
	l.Seed("alice", domain.Asset{ID: "USD"}, 1_000_00)

	orders, err := s.PlaceLimit("BTC", "USD", "alice", domain.Buy, []engine.Leg{{Price: 100_00, Amount: 1_00000000}})
	if err != nil {
		t.Fatalf("PlaceLimit() error: %v", err)
	}

	ids, err := s.ListByTrader("BTC", "USD", "alice")
	if err != nil {
		t.Fatalf("ListByTrader() error: %v", err)
	}
	if len(ids) != 1 || ids[0] != orders[0].ID {
		t.Fatalf("ListByTrader() = %v, want [%d]", ids, orders[0].ID)
	}
}

func TestOrderService_ExecuteMarketSweepsRestingLiquidity(t *testing.T) {
	s, l := newTestOrderService(t)
	l.Seed("seller", domain.Asset{ID: "BTC"}, 1_00000000)
	l.Seed("buyer", domain.Asset{ID: "USD"}, 100_00)

	if _, err := s.PlaceLimit("BTC", "USD", "seller", domain.Sell, []engine.Leg{{Price: 100_00, Amount: 1_00000000}}); err != nil {
		t.Fatalf("PlaceLimit(seller) error: %v", err)
	}

	result, err := s.ExecuteMarket(ExecuteMarketRequest{
		BaseID: "BTC", QuoteID: "USD", Trader: "buyer",
		Amount: 100_00, Side: domain.Buy, PriceHints: []uint64{100_00},
	})
	if err != nil {
		t.Fatalf("ExecuteMarket() error: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("ExecuteMarket() trades = %+v, want 1 trade", result.Trades)
	}
}
