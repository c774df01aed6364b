package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// orderStoreInMemory — простая in-memory реализация OrderStore.
type orderStoreInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderStore возвращает in-memory хранилище заказов для локальной
// разработки и тестов.
func NewOrderStore() domain.OrderStore {
	return &orderStoreInMemory{
		orders: make(map[string]domain.Order),
	}
}

// CreateOrder сохраняет заказ, копируя строки, чтобы снимок оставался неизменным.
func (s *orderStoreInMemory) CreateOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines

	s.orders[order.ID] = order
	return order, nil
}

// ListOrders возвращает заказы, новые первыми, ограничивая выборку limit (если >0).
func (s *orderStoreInMemory) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// GetOrder возвращает заказ или ErrOrderNotFound, если его нет.
func (s *orderStoreInMemory) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// UpdateOrderStatus переводит заказ в новый статус с проверкой допустимости перехода.
func (s *orderStoreInMemory) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !order.CanTransition(status) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	s.orders[id] = order
	return cloneOrder(order), nil
}

// DeleteOrder удаляет заказ по id.
func (s *orderStoreInMemory) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
