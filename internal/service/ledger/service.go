package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/metrics"
)

const defaultLowStockAlertDelay = 500 * time.Millisecond

// Options задаёт параметры сервиса леджера.
type Options struct {
	Logger             *log.Entry
	Metrics            *metrics.EngineMetrics
	Outbox             domain.EventOutbox
	LowStockAlertDelay time.Duration
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger для сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics подключает метрики движка.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithOutbox подключает outbox для публикации событий леджера.
func WithOutbox(outbox domain.EventOutbox) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithLowStockAlertDelay задаёт задержку отложенного low-stock алерта после
// создания позиции. Алерт намеренно следует за подтверждением добавления,
// а не совпадает с ним.
func WithLowStockAlertDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.LowStockAlertDelay = delay
	}
}

// Service — единственный источник правды о позициях и остатках для сессии.
// Локальное зеркало обновляется только после успешной авторитетной записи:
// отказ хранилища оставляет зеркало нетронутым.
type Service struct {
	store    domain.StockStore
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.EngineMetrics
	outbox   domain.EventOutbox

	lowStockAlertDelay time.Duration

	mu    sync.RWMutex
	items map[string]domain.StockItem
	order []string
}

// NewService создаёт сервис леджера поверх авторитетного хранилища.
func NewService(store domain.StockStore, notifier domain.Notifier, options ...Option) *Service {
	opts := Options{
		LowStockAlertDelay: defaultLowStockAlertDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "stock-ledger")
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}

	return &Service{
		store:              store,
		notifier:           notifier,
		logger:             logger,
		metrics:            opts.Metrics,
		outbox:             opts.Outbox,
		lowStockAlertDelay: opts.LowStockAlertDelay,
		items:              make(map[string]domain.StockItem),
	}
}

// Reload заменяет локальное зеркало полным авторитетным списком.
func (s *Service) Reload(ctx context.Context) error {
	items, err := s.store.ListStock(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to reload stock from store")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to load stock items")
		return fmt.Errorf("reload stock: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.StockItem, len(items))
	s.order = make([]string, 0, len(items))
	for _, item := range items {
		s.items[item.ID] = item
		s.order = append(s.order, item.ID)
	}
	return nil
}

// Items возвращает текущие позиции в порядке зеркала; без побочных эффектов.
func (s *Service) Items() []domain.StockItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockItem, 0, len(s.order))
	for _, id := range s.order {
		if item, ok := s.items[id]; ok {
			result = append(result, item)
		}
	}
	return result
}

// Item возвращает позицию из зеркала по id.
func (s *Service) Item(id string) (domain.StockItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	return item, ok
}

// Create валидирует и сохраняет новую позицию. При попадании новой позиции в
// low-stock зону отложенно публикуется предупреждение — после подтверждения
// добавления, не одновременно с ним.
func (s *Service) Create(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	if errs := item.ValidateInvariants(); len(errs) > 0 {
		err := errors.Join(errs...)
		s.notifier.Publish(domain.SeverityError, "Stock", "Invalid stock item: "+err.Error())
		return domain.StockItem{}, err
	}

	stored, err := s.store.CreateStock(ctx, item)
	if err != nil {
		s.logger.WithError(err).WithField("sku", item.SKU).Warn("create stock failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to add item")
		return domain.StockItem{}, fmt.Errorf("create stock: %w", err)
	}

	s.mu.Lock()
	s.items[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	s.mu.Unlock()

	s.notifier.Publish(domain.SeveritySuccess, "Stock", fmt.Sprintf("Item %q added", stored.Name))
	s.emitEvent("stock.created", stored.ID, map[string]any{
		"sku":      stored.SKU,
		"quantity": stored.Quantity,
	})

	if stored.Status() == domain.StockStatusLowStock {
		s.scheduleLowStockAlert(stored)
	}

	return stored, nil
}

// Update применяет частичное обновление к позиции и пересчитывает её статус.
func (s *Service) Update(ctx context.Context, id string, patch domain.StockPatch) (domain.StockItem, error) {
	// Patch проверяется сам по себе: зеркало может быть холодным после
	// неудачного Reload, но некорректное поле не должно дойти до хранилища.
	if errs := patch.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		s.notifier.Publish(domain.SeverityError, "Stock", "Invalid stock update: "+err.Error())
		return domain.StockItem{}, err
	}
	if current, ok := s.Item(id); ok {
		merged := patch.Apply(current)
		if errs := merged.ValidateInvariants(); len(errs) > 0 {
			err := errors.Join(errs...)
			s.notifier.Publish(domain.SeverityError, "Stock", "Invalid stock update: "+err.Error())
			return domain.StockItem{}, err
		}
	}

	updated, err := s.store.UpdateStock(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.notifier.Publish(domain.SeverityError, "Stock", "Item not found")
			return domain.StockItem{}, err
		}
		s.logger.WithError(err).WithField("item_id", id).Warn("update stock failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to update item")
		return domain.StockItem{}, fmt.Errorf("update stock: %w", err)
	}

	s.mu.Lock()
	s.items[updated.ID] = updated
	s.mu.Unlock()

	s.notifier.Publish(domain.SeveritySuccess, "Stock", fmt.Sprintf("Item %q updated", updated.Name))
	s.emitEvent("stock.updated", updated.ID, map[string]any{
		"quantity": updated.Quantity,
	})
	return updated, nil
}

// Remove удаляет одну позицию; отсутствие позиции — ошибка.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteStock(ctx, id); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.notifier.Publish(domain.SeverityError, "Stock", "Item not found")
			return err
		}
		s.logger.WithError(err).WithField("item_id", id).Warn("delete stock failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to delete item")
		return fmt.Errorf("delete stock: %w", err)
	}

	s.dropLocal(id)
	s.notifier.Publish(domain.SeveritySuccess, "Stock", "Item deleted")
	s.emitEvent("stock.deleted", id, nil)
	return nil
}

// SetQuantity выставляет остаток позиции. Уведомление ровно одно и зависит от
// нового количества: 0 — depleted (error), ниже порога — low stock (warning),
// иначе обычное подтверждение.
func (s *Service) SetQuantity(ctx context.Context, id string, quantity int) (domain.StockItem, error) {
	if quantity < 0 {
		s.notifier.Publish(domain.SeverityError, "Stock", "Quantity must be non-negative")
		return domain.StockItem{}, domain.ErrQuantityNegative
	}

	updated, err := s.store.UpdateStock(ctx, id, domain.StockPatch{Quantity: &quantity})
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.notifier.Publish(domain.SeverityError, "Stock", "Item not found")
			return domain.StockItem{}, err
		}
		s.logger.WithError(err).WithField("item_id", id).Warn("set quantity failed")
		s.notifier.Publish(domain.SeverityError, "Stock", "Failed to update quantity")
		return domain.StockItem{}, fmt.Errorf("set quantity: %w", err)
	}

	s.mu.Lock()
	s.items[updated.ID] = updated
	s.mu.Unlock()

	s.publishQuantityAlert(updated)
	s.emitEvent("stock.quantity_set", updated.ID, map[string]any{
		"quantity": updated.Quantity,
	})
	return updated, nil
}

// publishQuantityAlert публикует ровно одно уведомление по новому остатку.
// Три исхода взаимоисключающие.
func (s *Service) publishQuantityAlert(item domain.StockItem) {
	switch item.Status() {
	case domain.StockStatusOutOfStock:
		s.notifier.Publish(domain.SeverityError, "Stock depleted", fmt.Sprintf("Item %q is out of stock", item.Name))
		if s.metrics != nil {
			s.metrics.RecordStockAlert("depleted")
		}
	case domain.StockStatusLowStock:
		s.notifier.Publish(domain.SeverityWarning, "Low stock", fmt.Sprintf("Item %q is running low (%d left)", item.Name, item.Quantity))
		if s.metrics != nil {
			s.metrics.RecordStockAlert("low_stock")
		}
	default:
		s.notifier.Publish(domain.SeveritySuccess, "Stock", fmt.Sprintf("Quantity of %q updated", item.Name))
	}
}

// scheduleLowStockAlert откладывает low-stock предупреждение для только что
// созданной позиции.
func (s *Service) scheduleLowStockAlert(item domain.StockItem) {
	time.AfterFunc(s.lowStockAlertDelay, func() {
		// Метрика пишется вместе с публикацией: алерт считается показанным,
		// когда кассир его видит, а не когда он запланирован.
		if s.metrics != nil {
			s.metrics.RecordStockAlert("low_stock")
		}
		s.notifier.Publish(domain.SeverityWarning, "Low stock", fmt.Sprintf("Item %q is running low (%d left)", item.Name, item.Quantity))
	})
}

// dropLocal убирает позиции из зеркала после подтверждённого удаления.
func (s *Service) dropLocal(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.items, id)
	}
	filtered := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.items[id]; ok {
			filtered = append(filtered, id)
		}
	}
	s.order = filtered
}

// emitEvent ставит событие леджера в outbox; отказ только логируется.
func (s *Service) emitEvent(eventType, itemID string, payload map[string]any) {
	if s.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["item_id"] = itemID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}
	event := domain.EventRecord{
		AggregateType: "stock",
		AggregateID:   itemID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(event); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	}
}
