package memory_test

import (
	"testing"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/memory"
)

func TestEventOutbox_EnqueuePullMark(t *testing.T) {
	t.Parallel()

	outbox := memory.NewEventOutbox()

	first, err := outbox.Enqueue(domain.EventRecord{
		AggregateType: "stock",
		AggregateID:   "item-1",
		EventType:     "stock.created",
		Payload:       []byte(`{"quantity":4}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("enqueue must assign an id")
	}

	second, err := outbox.Enqueue(domain.EventRecord{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("pending events must keep enqueue order")
	}

	if err := outbox.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err = outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("sent events must leave the pending set")
	}

	if err := outbox.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if err := outbox.MarkSent("ghost"); err == nil {
		t.Fatalf("marking unknown id must fail")
	}
}

func TestEventOutbox_AllPending(t *testing.T) {
	t.Parallel()

	outbox := memory.NewEventOutbox()
	if got := outbox.AllPending(); got != nil {
		t.Fatalf("empty outbox must report no pending events, got %v", got)
	}

	first, err := outbox.Enqueue(domain.EventRecord{AggregateType: "stock", EventType: "stock.created"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	second, err := outbox.Enqueue(domain.EventRecord{AggregateType: "order", EventType: "order.created"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// AllPending безопасен при конкурентных Enqueue: чтение размера очереди
	// идёт под тем же локом, что и сама очередь.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, _ = outbox.Enqueue(domain.EventRecord{AggregateType: "stock", EventType: "stock.updated"})
		}
	}()
	for i := 0; i < 50; i++ {
		_ = outbox.AllPending()
	}
	<-done

	if err := outbox.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending := outbox.AllPending()
	if len(pending) != 51 {
		t.Fatalf("expected 51 pending events, got %d", len(pending))
	}
	if pending[0].ID != second.ID {
		t.Fatalf("sent events must not appear in AllPending")
	}
}

func TestEventOutbox_Stats(t *testing.T) {
	t.Parallel()

	outbox := memory.NewEventOutbox()

	stats, err := outbox.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("empty outbox must report zero stats, got %+v", stats)
	}

	event, err := outbox.Enqueue(domain.EventRecord{AggregateType: "stock", EventType: "stock.created"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = outbox.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatalf("oldest pending timestamp must be set")
	}

	if err := outbox.MarkSent(event.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	stats, _ = outbox.Stats()
	if stats.PendingCount != 0 {
		t.Fatalf("expected 0 pending after send, got %d", stats.PendingCount)
	}
}
