package engine

import "testing"

func TestEmitter_EmitCallsListenersInOrder(t *testing.T) {
	e := NewEmitter()
	var order []int
	e.Subscribe(func(Event) { order = append(order, 1) })
	e.Subscribe(func(Event) { order = append(order, 2) })

	e.Emit(Event{Type: EventOrderCreated, OrderID: 1})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("listener call order = %v, want [1 2]", order)
	}
}

func TestEmitter_EmitWithNoListenersIsNoop(t *testing.T) {
	e := NewEmitter()
	e.Emit(Event{Type: EventTradeExecuted}) // must not panic
}

func TestEmitter_EmitDeliversPayload(t *testing.T) {
	e := NewEmitter()
	var got Event
	e.Subscribe(func(evt Event) { got = evt })

	e.Emit(Event{Type: EventTradeExecuted, Buyer: "alice", Seller: "bob", Price: 100, BaseAmount: 5})

	if got.Type != EventTradeExecuted || got.Buyer != "alice" || got.Seller != "bob" || got.Price != 100 || got.BaseAmount != 5 {
		t.Fatalf("Emit delivered wrong payload: %+v", got)
	}
}
