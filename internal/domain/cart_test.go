package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

func TestCart_AddItem_SnapshotAndIncrement(t *testing.T) {
	t.Parallel()

	cart := domain.NewCart()
	item := validItem()

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	line, ok := cart.Line(item.ID)
	if !ok {
		t.Fatalf("expected cart line for %s", item.ID)
	}
	if line.Quantity != 1 {
		t.Fatalf("new line must start at quantity 1, got %d", line.Quantity)
	}
	if line.Name != item.Name || !line.Price.Equal(item.Price) {
		t.Fatalf("line must snapshot name and price at add time")
	}

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	line, _ = cart.Line(item.ID)
	if line.Quantity != 2 {
		t.Fatalf("adding an existing item must increment its line, got %d", line.Quantity)
	}
	if cart.Len() != 1 {
		t.Fatalf("one item id means one line, got %d", cart.Len())
	}
}

func TestCart_AddItem_CapacityExceeded(t *testing.T) {
	t.Parallel()

	cart := domain.NewCart()
	item := validItem()
	item.Quantity = 1

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := cart.AddItem(item); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	line, _ := cart.Line(item.ID)
	if line.Quantity != 1 {
		t.Fatalf("line must stay unchanged after capacity violation, got %d", line.Quantity)
	}
}

func TestCart_ChangeQuantity_Bounds(t *testing.T) {
	t.Parallel()

	cart := domain.NewCart()
	item := validItem()
	item.Quantity = 2

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.ChangeQuantity(item.ID, +1, item.Quantity); err != nil {
		t.Fatalf("increment to on-hand must succeed: %v", err)
	}

	// Остаток 2, в корзине 2: дальше расти нельзя.
	if err := cart.ChangeQuantity(item.ID, +1, item.Quantity); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	line, _ := cart.Line(item.ID)
	if line.Quantity != 2 {
		t.Fatalf("line must stay at 2 after capacity violation, got %d", line.Quantity)
	}

	if err := cart.ChangeQuantity(item.ID, -1, item.Quantity); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if err := cart.ChangeQuantity(item.ID, -1, item.Quantity); !errors.Is(err, domain.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	line, _ = cart.Line(item.ID)
	if line.Quantity != 1 {
		t.Fatalf("line must stay at 1 after minimum violation, got %d", line.Quantity)
	}

	if err := cart.ChangeQuantity("missing", +1, 10); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}
}

func TestCart_RemoveThenAddResetsQuantity(t *testing.T) {
	t.Parallel()

	cart := domain.NewCart()
	item := validItem()

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.ChangeQuantity(item.ID, +3, item.Quantity); err != nil {
		t.Fatalf("change failed: %v", err)
	}

	cart.RemoveItem(item.ID)
	if !cart.IsEmpty() {
		t.Fatalf("cart must be empty after removing its only line")
	}

	if err := cart.AddItem(item); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	line, _ := cart.Line(item.ID)
	if line.Quantity != 1 {
		t.Fatalf("re-added line must restart at 1, got %d", line.Quantity)
	}
}

func TestCart_RemoveKeepsOrderAndIndex(t *testing.T) {
	t.Parallel()

	cart := domain.NewCart()
	first := validItem()
	second := validItem()
	second.ID = "item-2"
	second.Name = "Case"
	third := validItem()
	third.ID = "item-3"
	third.Name = "Charger"

	for _, item := range []domain.StockItem{first, second, third} {
		if err := cart.AddItem(item); err != nil {
			t.Fatalf("add %s failed: %v", item.ID, err)
		}
	}

	cart.RemoveItem(second.ID)

	lines := cart.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ItemID != first.ID || lines[1].ItemID != third.ID {
		t.Fatalf("insertion order must survive removal, got %s, %s", lines[0].ItemID, lines[1].ItemID)
	}

	// Индекс после удаления должен по-прежнему находить оставшиеся строки.
	if err := cart.ChangeQuantity(third.ID, +1, third.Quantity); err != nil {
		t.Fatalf("change after removal failed: %v", err)
	}
	line, _ := cart.Line(third.ID)
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2 for %s, got %d", third.ID, line.Quantity)
	}
}

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	lines := []domain.CartLine{
		{ItemID: "a", Price: decimal.NewFromInt(100), Quantity: 2},
		{ItemID: "b", Price: decimal.RequireFromString("49.50"), Quantity: 1},
	}

	totals := domain.ComputeTotals(lines, decimal.RequireFromString("0.10"))

	wantSubtotal := decimal.RequireFromString("249.50")
	wantTax := decimal.RequireFromString("24.95")
	if !totals.Subtotal.Equal(wantSubtotal) {
		t.Fatalf("subtotal = %s, want %s", totals.Subtotal, wantSubtotal)
	}
	if !totals.Tax.Equal(wantTax) {
		t.Fatalf("tax = %s, want %s", totals.Tax, wantTax)
	}
	if !totals.Total.Equal(wantSubtotal.Add(wantTax)) {
		t.Fatalf("total = %s, want %s", totals.Total, wantSubtotal.Add(wantTax))
	}

	zero := domain.ComputeTotals(nil, decimal.Zero)
	if !zero.Total.Equal(decimal.Zero) {
		t.Fatalf("empty cart must total zero, got %s", zero.Total)
	}
}
