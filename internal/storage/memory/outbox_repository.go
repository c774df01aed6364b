package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// outboxRecord хранит событие и служебные поля для in-memory реализации.
type outboxRecord struct {
	event      domain.EventRecord
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxInMemory — простое in-memory хранилище событий движка.
type outboxInMemory struct {
	mu      sync.RWMutex
	records map[string]*outboxRecord
	order   []string
}

// NewEventOutbox создаёт in-memory реализацию EventOutbox.
func NewEventOutbox() *outboxInMemory {
	return &outboxInMemory{records: make(map[string]*outboxRecord)}
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его с назначенным id.
func (r *outboxInMemory) Enqueue(event domain.EventRecord) (domain.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.records[event.ID] = &outboxRecord{
		event:     event,
		status:    "pending",
		createdAt: now,
		updatedAt: now,
	}
	r.order = append(r.order, event.ID)
	return event, nil
}

// PullPending возвращает до limit событий со статусом `pending` в порядке постановки.
func (r *outboxInMemory) PullPending(limit int) ([]domain.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	result := make([]domain.EventRecord, 0, limit)
	for _, id := range r.order {
		rec, ok := r.records[id]
		if !ok || rec.status != "pending" {
			continue
		}
		result = append(result, rec.event)
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxInMemory) MarkSent(id string) error {
	return r.mark(id, "sent")
}

// MarkFailed фиксирует ошибку публикации.
func (r *outboxInMemory) MarkFailed(id string) error {
	return r.mark(id, "failed")
}

func (r *outboxInMemory) mark(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.ErrEventPublish
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = time.Now().UTC()
	return nil
}

// Stats возвращает состояние backlog: размер и возраст самой старой записи.
func (r *outboxInMemory) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OutboxStats{}
	for _, rec := range r.records {
		if rec.status != "pending" {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = rec.createdAt
		}
	}
	return stats, nil
}

// AllPending возвращает копию всех событий со статусом `pending` (используется в тестах).
func (r *outboxInMemory) AllPending() []domain.EventRecord {
	r.mu.RLock()
	limit := len(r.order)
	r.mu.RUnlock()

	if limit == 0 {
		return nil
	}
	pending, _ := r.PullPending(limit)
	return pending
}

var _ domain.EventOutbox = (*outboxInMemory)(nil)
