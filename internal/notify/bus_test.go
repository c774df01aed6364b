package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// captureSink собирает доставленные уведомления.
type captureSink struct {
	mu       sync.Mutex
	received []domain.Notification
	signal   chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{signal: make(chan struct{}, 16)}
}

func (s *captureSink) Deliver(n domain.Notification) {
	s.mu.Lock()
	s.received = append(s.received, n)
	s.mu.Unlock()
	s.signal <- struct{}{}
}

func (s *captureSink) all() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.received))
	copy(out, s.received)
	return out
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for sink delivery")
	}
}

func TestBus_PublishAndActive(t *testing.T) {
	t.Parallel()

	bus := NewBus(WithUnit(time.Minute))
	defer bus.Close()

	bus.Publish(domain.SeveritySuccess, "Stock", "Item added")
	bus.Publish(domain.SeverityWarning, "Low stock", "Running low")

	active := bus.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 active notifications, got %d", len(active))
	}
	if active[0].Title != "Stock" || active[1].Title != "Low stock" {
		t.Fatalf("active notifications must keep publish order")
	}
}

func TestBus_TTLBySeverity(t *testing.T) {
	t.Parallel()

	unit := 5 * time.Millisecond
	bus := NewBus(WithUnit(unit))
	defer bus.Close()

	bus.Publish(domain.SeverityInfo, "Orders", "Order cancelled")
	bus.Publish(domain.SeverityError, "Stock depleted", "Item is out of stock")

	// Обычное уведомление живёт 5 единиц, error — 8: после 6 единиц остаётся
	// только error.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		active := bus.Active()
		if len(active) == 1 {
			if active[0].Severity != domain.SeverityError {
				t.Fatalf("expected the error notification to outlive the info one")
			}
			break
		}
		time.Sleep(unit)
	}
	if len(bus.Active()) > 1 {
		t.Fatalf("info notification must expire before the error one")
	}

	deadline = time.Now().Add(time.Second)
	for len(bus.Active()) != 0 && time.Now().Before(deadline) {
		time.Sleep(unit)
	}
	if got := len(bus.Active()); got != 0 {
		t.Fatalf("all notifications must expire eventually, %d left", got)
	}
}

func TestBus_Dismiss(t *testing.T) {
	t.Parallel()

	bus := NewBus(WithUnit(time.Minute))
	defer bus.Close()

	bus.Publish(domain.SeveritySuccess, "Stock", "Item added")
	active := bus.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active notification, got %d", len(active))
	}

	if !bus.Dismiss(active[0].ID) {
		t.Fatalf("dismiss of an active notification must succeed")
	}
	if len(bus.Active()) != 0 {
		t.Fatalf("dismissed notification must disappear")
	}
	if bus.Dismiss(active[0].ID) {
		t.Fatalf("second dismiss must report false")
	}
	if bus.Dismiss("ghost") {
		t.Fatalf("dismiss of unknown id must report false")
	}
}

func TestBus_SinkDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus(WithUnit(time.Minute))
	defer bus.Close()

	sink := newCaptureSink()
	bus.AddSink(sink)

	bus.Publish(domain.SeverityWarning, "Low stock", "3 left")
	waitSignal(t, sink.signal)

	received := sink.all()
	if len(received) != 1 {
		t.Fatalf("expected 1 delivered notification, got %d", len(received))
	}
	if received[0].Severity != domain.SeverityWarning || received[0].Message != "3 left" {
		t.Fatalf("unexpected delivery %+v", received[0])
	}
}

// panicSink проверяет изоляцию шины от падающих получателей.
type panicSink struct{}

func (panicSink) Deliver(domain.Notification) { panic("sink exploded") }

func TestBus_SinkPanicIsIsolated(t *testing.T) {
	t.Parallel()

	bus := NewBus(WithUnit(time.Minute))
	defer bus.Close()

	sink := newCaptureSink()
	bus.AddSink(panicSink{})
	bus.AddSink(sink)

	bus.Publish(domain.SeveritySuccess, "Stock", "Item added")
	waitSignal(t, sink.signal)

	if len(bus.Active()) != 1 {
		t.Fatalf("panicking sink must not affect the bus state")
	}
}

func TestBus_ClosedBusDropsPublishes(t *testing.T) {
	t.Parallel()

	bus := NewBus(WithUnit(time.Minute))
	bus.Publish(domain.SeveritySuccess, "Stock", "Item added")
	bus.Close()

	bus.Publish(domain.SeverityError, "Stock", "Ignored after close")
	if got := len(bus.Active()); got != 0 {
		t.Fatalf("closed bus must hold no notifications, got %d", got)
	}
}
