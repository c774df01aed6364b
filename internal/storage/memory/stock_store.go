package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// stockStoreInMemory — простая in-memory реализация StockStore.
type stockStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.StockItem
}

// NewStockStore возвращает in-memory хранилище позиций для локальной
// разработки и тестов.
func NewStockStore() domain.StockStore {
	return &stockStoreInMemory{
		items: make(map[string]domain.StockItem),
	}
}

// ListStock возвращает позиции, отсортированные по времени создания.
func (s *stockStoreInMemory) ListStock(_ context.Context) ([]domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockItem, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// CreateStock сохраняет новую позицию, назначая id при его отсутствии.
func (s *stockStoreInMemory) CreateStock(_ context.Context, item domain.StockItem) (domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	s.items[item.ID] = item
	return item, nil
}

// UpdateStock применяет patch к существующей позиции.
func (s *stockStoreInMemory) UpdateStock(_ context.Context, id string, patch domain.StockPatch) (domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.StockItem{}, domain.ErrItemNotFound
	}

	item = patch.Apply(item)
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	return item, nil
}

// DeleteStock удаляет позицию по id.
func (s *stockStoreInMemory) DeleteStock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

// BulkDeleteStock удаляет набор позиций; отсутствующие id не считаются ошибкой.
func (s *stockStoreInMemory) BulkDeleteStock(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

// BulkSetQuantity выставляет всем перечисленным позициям одинаковый остаток.
func (s *stockStoreInMemory) BulkSetQuantity(_ context.Context, ids []string, quantity int) ([]domain.StockItem, error) {
	if quantity < 0 {
		return nil, domain.ErrQuantityNegative
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Сначала проверяем все цели: операция применяется целиком или никак.
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			return nil, domain.ErrItemNotFound
		}
	}

	now := time.Now().UTC()
	result := make([]domain.StockItem, 0, len(ids))
	for _, id := range ids {
		item := s.items[id]
		item.Quantity = quantity
		item.UpdatedAt = now
		s.items[id] = item
		result = append(result, item)
	}

	return result, nil
}

var _ domain.StockStore = (*stockStoreInMemory)(nil)
