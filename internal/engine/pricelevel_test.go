package engine

import "testing"

func TestPriceLevel_PushHeadIsFIFO(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.Push(2, 20)
	pl.Push(3, 30)

	head, ok := pl.Head()
	if !ok || head != 1 {
		t.Fatalf("Head() = (%d, %v), want (1, true)", head, ok)
	}
	if got := pl.TotalLiquidity(); got != 60 {
		t.Errorf("TotalLiquidity() = %d, want 60", got)
	}
}

func TestPriceLevel_RemoveHead(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.Push(2, 20)

	pl.Remove(1, 10)
	head, ok := pl.Head()
	if !ok || head != 2 {
		t.Fatalf("Head() = (%d, %v), want (2, true)", head, ok)
	}
	if got := pl.TotalLiquidity(); got != 20 {
		t.Errorf("TotalLiquidity() = %d, want 20", got)
	}
}

func TestPriceLevel_RemoveInterior(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.Push(2, 20)
	pl.Push(3, 30)

	pl.Remove(2, 20)

	var order []uint64
	for e := pl.queue.Front(); e != nil; e = e.Next() {
		order = append(order, e.Value.(uint64))
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("queue order after interior remove = %v, want [1 3]", order)
	}
	if got := pl.TotalLiquidity(); got != 40 {
		t.Errorf("TotalLiquidity() = %d, want 40", got)
	}
}

func TestPriceLevel_RemoveUnknownIsNoop(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.Remove(99, 5)
	if got := pl.TotalLiquidity(); got != 10 {
		t.Errorf("TotalLiquidity() = %d, want 10 (unaffected)", got)
	}
	if got := pl.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestPriceLevel_EmptyMatchesZeroLiquidity(t *testing.T) {
	pl := NewPriceLevel(100)
	if !pl.Empty() {
		t.Fatal("new level should be Empty()")
	}
	pl.Push(1, 10)
	if pl.Empty() {
		t.Fatal("level with one order should not be Empty()")
	}
	pl.Remove(1, 10)
	if !pl.Empty() || pl.TotalLiquidity() != 0 {
		t.Fatalf("after removing sole order: Empty()=%v TotalLiquidity()=%d, want true,0", pl.Empty(), pl.TotalLiquidity())
	}
}

func TestPriceLevel_OrderIDsReflectsCurrentFIFO(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.Push(2, 20)
	pl.Push(3, 30)
	pl.Remove(2, 20)

	ids := pl.OrderIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("OrderIDs() = %v, want [1 3]", ids)
	}
}

func TestPriceLevel_OrderIDsEmptyLevel(t *testing.T) {
	pl := NewPriceLevel(100)
	if ids := pl.OrderIDs(); len(ids) != 0 {
		t.Fatalf("OrderIDs() on empty level = %v, want empty", ids)
	}
}

func TestPriceLevel_AdjustLiquidity(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.Push(1, 10)
	pl.AdjustLiquidity(-4)
	if got := pl.TotalLiquidity(); got != 6 {
		t.Errorf("TotalLiquidity() = %d, want 6", got)
	}
	pl.AdjustLiquidity(3)
	if got := pl.TotalLiquidity(); got != 9 {
		t.Errorf("TotalLiquidity() = %d, want 9", got)
	}
}
