package domain

import (
	"context"
	"time"
)

// StockStore — авторитетное хранилище позиций. Движок не применяет локальные
// изменения, пока авторитетная запись не подтверждена: любая ошибка здесь
// означает, что состояние хранилища не изменилось с точки зрения вызывающего.
type StockStore interface {
	// ListStock возвращает полный список позиций.
	ListStock(ctx context.Context) ([]StockItem, error)
	// CreateStock сохраняет новую позицию и возвращает её сохранённый вид.
	CreateStock(ctx context.Context, item StockItem) (StockItem, error)
	// UpdateStock применяет частичное обновление и возвращает результат
	// или ErrItemNotFound.
	UpdateStock(ctx context.Context, id string, patch StockPatch) (StockItem, error)
	// DeleteStock удаляет позицию; ErrItemNotFound, если её нет.
	DeleteStock(ctx context.Context, id string) error
	// BulkDeleteStock удаляет набор позиций; отсутствующие id игнорируются.
	BulkDeleteStock(ctx context.Context, ids []string) error
	// BulkSetQuantity выставляет всем перечисленным позициям одинаковый
	// остаток и возвращает обновлённые записи.
	BulkSetQuantity(ctx context.Context, ids []string, quantity int) ([]StockItem, error)
}

// OrderStore — авторитетное хранилище заказов.
type OrderStore interface {
	// CreateOrder сохраняет заказ и возвращает его сохранённый вид.
	CreateOrder(ctx context.Context, order Order) (Order, error)
	// ListOrders возвращает заказы, новые первыми.
	ListOrders(ctx context.Context, limit int) ([]Order, error)
	// GetOrder возвращает заказ или ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (Order, error)
	// UpdateOrderStatus переводит заказ в новый статус с проверкой перехода.
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (Order, error)
	// DeleteOrder удаляет заказ; ErrOrderNotFound, если его нет.
	DeleteOrder(ctx context.Context, id string) error
}

// EventRecord хранит данные события движка для последующей публикации.
type EventRecord struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// EventPublisher публикует события наружу; должен быть идемпотентным.
type EventPublisher interface {
	Publish(event EventRecord) error
}

// EventOutbox позволяет сохранять события для последующей публикации.
type EventOutbox interface {
	Enqueue(event EventRecord) (EventRecord, error)
	PullPending(limit int) ([]EventRecord, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxStats описывает текущее состояние backlog событий.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
