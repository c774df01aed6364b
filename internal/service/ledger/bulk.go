package ledger

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// RemoveMany удаляет набор позиций одной авторитетной операцией.
// Отсутствующие id игнорируются — это не ошибка для bulk-формы.
func (s *Service) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return domain.ErrBulkTargetsRequired
	}

	if err := s.store.BulkDeleteStock(ctx, ids); err != nil {
		s.logger.WithError(err).WithField("count", len(ids)).Warn("bulk delete failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to delete selected items")
		return fmt.Errorf("bulk delete stock: %w", err)
	}

	s.dropLocal(ids...)
	s.notifier.Publish(domain.SeveritySuccess, "Stock", fmt.Sprintf("%d items deleted", len(ids)))
	s.emitEvent("stock.bulk_deleted", "", map[string]any{"item_ids": ids})
	return nil
}

// SetQuantitiesBulk применяет семантику SetQuantity ко всем id набора, но с
// одним агрегированным уведомлением вместо N отдельных.
func (s *Service) SetQuantitiesBulk(ctx context.Context, ids []string, quantity int) ([]domain.StockItem, error) {
	if len(ids) == 0 {
		return nil, domain.ErrBulkTargetsRequired
	}
	if quantity < 0 {
		s.notifier.Publish(domain.SeverityError, "Stock", "Quantity must be non-negative")
		return nil, domain.ErrQuantityNegative
	}

	updated, err := s.store.BulkSetQuantity(ctx, ids, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.notifier.Publish(domain.SeverityError, "Stock", "Some selected items no longer exist")
			return nil, err
		}
		s.logger.WithError(err).WithField("count", len(ids)).Warn("bulk set quantity failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to update quantities")
		return nil, fmt.Errorf("bulk set quantity: %w", err)
	}

	s.mu.Lock()
	for _, item := range updated {
		s.items[item.ID] = item
	}
	s.mu.Unlock()

	// Одно агрегированное уведомление: severity по новому остатку.
	switch domain.StatusFor(quantity) {
	case domain.StockStatusOutOfStock:
		s.notifier.Publish(domain.SeverityError, "Stock depleted", fmt.Sprintf("%d items set to zero stock", len(updated)))
		if s.metrics != nil {
			s.metrics.RecordStockAlert("depleted")
		}
	case domain.StockStatusLowStock:
		s.notifier.Publish(domain.SeverityWarning, "Low stock", fmt.Sprintf("%d items set to low stock (%d left)", len(updated), quantity))
		if s.metrics != nil {
			s.metrics.RecordStockAlert("low_stock")
		}
	default:
		s.notifier.Publish(domain.SeveritySuccess, "Stock", fmt.Sprintf("Quantity of %d items updated", len(updated)))
	}

	s.emitEvent("stock.bulk_quantity_set", "", map[string]any{
		"item_ids": ids,
		"quantity": quantity,
	})
	return updated, nil
}

// Mutator применяет BulkOperation к леджеру как одну логическую единицу:
// с точки зрения вызывающего операция либо применена ко всем целям, либо
// отклонена с ошибкой.
type Mutator struct {
	ledger *Service
	logger *log.Entry
}

// NewMutator создаёт BulkMutator поверх сервиса леджера.
func NewMutator(ledger *Service, logger *log.Entry) *Mutator {
	if logger == nil {
		logger = log.WithField("component", "bulk-mutator")
	}
	return &Mutator{ledger: ledger, logger: logger}
}

// Apply выполняет bulk-операцию и возвращает обновлённые позиции для
// set-quantity намерения (для delete возвращается nil).
func (m *Mutator) Apply(ctx context.Context, op domain.BulkOperation) ([]domain.StockItem, error) {
	if errs := op.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if m.ledger.metrics != nil {
		m.ledger.metrics.RecordBulkOperation()
	}

	switch op.Intent {
	case domain.BulkIntentDelete:
		if err := m.ledger.RemoveMany(ctx, op.ItemIDs); err != nil {
			return nil, err
		}
		return nil, nil
	case domain.BulkIntentSetQuantity:
		return m.ledger.SetQuantitiesBulk(ctx, op.ItemIDs, op.Quantity)
	default:
		return nil, domain.ErrBulkIntentInvalid
	}
}
