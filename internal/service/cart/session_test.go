package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/cart"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/ledger"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/memory"
)

func newLedger(t *testing.T, quantities map[string]int) (*ledger.Service, map[string]string) {
	t.Helper()

	store := memory.NewStockStore()
	svc := ledger.NewService(store, domain.NopNotifier{})
	ids := make(map[string]string, len(quantities))
	for name, quantity := range quantities {
		item, err := svc.Create(context.Background(), domain.StockItem{
			Name:     name,
			SKU:      "SKU-" + name,
			Brand:    "Acme",
			Category: domain.CategoryAccessory,
			Price:    decimal.NewFromInt(40),
			Quantity: quantity,
		})
		if err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
		ids[name] = item.ID
	}
	return svc, ids
}

func TestSession_AddItem(t *testing.T) {
	t.Parallel()

	ledgerSvc, ids := newLedger(t, map[string]int{"case": 2, "empty": 0})
	session := cart.NewSession(ledgerSvc, nil)

	if err := session.AddItem(ids["case"]); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	line, ok := session.Line(ids["case"])
	if !ok || line.Quantity != 1 {
		t.Fatalf("expected line with quantity 1, got %+v", line)
	}
	if line.Name != "case" {
		t.Fatalf("line must snapshot name at add time, got %q", line.Name)
	}

	if err := session.AddItem("ghost"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := session.AddItem(ids["empty"]); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("out-of-stock item must be rejected, got %v", err)
	}
}

func TestSession_ClampScenario(t *testing.T) {
	t.Parallel()

	// Остаток 2; корзина доводится до 2; +1 отклоняется без изменения строки;
	// remove + add возвращает количество к 1.
	ledgerSvc, ids := newLedger(t, map[string]int{"x": 2})
	session := cart.NewSession(ledgerSvc, nil)
	id := ids["x"]

	if err := session.AddItem(id); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := session.ChangeQuantity(id, +1); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	if err := session.ChangeQuantity(id, +1); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	line, _ := session.Line(id)
	if line.Quantity != 2 {
		t.Fatalf("line must stay at 2 after rejected increment, got %d", line.Quantity)
	}

	session.RemoveItem(id)
	if err := session.AddItem(id); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	line, _ = session.Line(id)
	if line.Quantity != 1 {
		t.Fatalf("re-added line must restart at 1, got %d", line.Quantity)
	}
}

func TestSession_SnapshotSurvivesPriceChange(t *testing.T) {
	t.Parallel()

	ledgerSvc, ids := newLedger(t, map[string]int{"case": 5})
	session := cart.NewSession(ledgerSvc, nil)
	id := ids["case"]

	if err := session.AddItem(id); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	newPrice := decimal.NewFromInt(99)
	if _, err := ledgerSvc.Update(context.Background(), id, domain.StockPatch{Price: &newPrice}); err != nil {
		t.Fatalf("ledger update failed: %v", err)
	}

	line, _ := session.Line(id)
	if !line.Price.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("cart line must keep the add-time price, got %s", line.Price)
	}
}

func TestSession_TotalsWithTaxRate(t *testing.T) {
	t.Parallel()

	ledgerSvc, ids := newLedger(t, map[string]int{"case": 5})
	session := cart.NewSession(ledgerSvc, nil)

	if err := session.AddItem(ids["case"]); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := session.ChangeQuantity(ids["case"], +1); err != nil {
		t.Fatalf("change failed: %v", err)
	}

	totals := session.Totals(decimal.RequireFromString("0.10"))
	if !totals.Subtotal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("subtotal = %s, want 80", totals.Subtotal)
	}
	if !totals.Tax.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("tax = %s, want 8", totals.Tax)
	}
	if !totals.Total.Equal(decimal.NewFromInt(88)) {
		t.Fatalf("total = %s, want 88", totals.Total)
	}

	// Нулевая ставка — кассовый чекаут без налога.
	flat := session.Totals(decimal.Zero)
	if !flat.Total.Equal(flat.Subtotal) {
		t.Fatalf("zero tax rate must give total == subtotal")
	}
}

func TestSession_IndependentSessions(t *testing.T) {
	t.Parallel()

	ledgerSvc, ids := newLedger(t, map[string]int{"case": 5})

	first := cart.NewSession(ledgerSvc, nil)
	second := cart.NewSession(ledgerSvc, nil)

	if err := first.AddItem(ids["case"]); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !second.IsEmpty() {
		t.Fatalf("sessions must not share cart state")
	}
}
