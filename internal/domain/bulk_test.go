package domain_test

import (
	"errors"
	"testing"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

func TestBulkOperation_Validate(t *testing.T) {
	t.Parallel()

	ok := domain.BulkOperation{
		ItemIDs:  []string{"a", "b"},
		Intent:   domain.BulkIntentSetQuantity,
		Quantity: 7,
	}
	if errs := ok.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid operation, got %v", errs)
	}

	noTargets := domain.BulkOperation{Intent: domain.BulkIntentDelete}
	if errs := noTargets.Validate(); !errors.Is(errors.Join(errs...), domain.ErrBulkTargetsRequired) {
		t.Fatalf("expected ErrBulkTargetsRequired, got %v", errs)
	}

	badIntent := domain.BulkOperation{ItemIDs: []string{"a"}, Intent: "archive"}
	if errs := badIntent.Validate(); !errors.Is(errors.Join(errs...), domain.ErrBulkIntentInvalid) {
		t.Fatalf("expected ErrBulkIntentInvalid, got %v", errs)
	}

	negative := domain.BulkOperation{ItemIDs: []string{"a"}, Intent: domain.BulkIntentSetQuantity, Quantity: -1}
	if errs := negative.Validate(); !errors.Is(errors.Join(errs...), domain.ErrQuantityNegative) {
		t.Fatalf("expected ErrQuantityNegative, got %v", errs)
	}
}
