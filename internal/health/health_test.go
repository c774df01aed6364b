package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/memory"
)

type staticChecker struct {
	status  Status
	message string
}

func (c staticChecker) Check() Check {
	return Check{Name: "static", Status: c.status, Message: c.message}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	return resp
}

func TestHandler_AllHealthy(t *testing.T) {
	t.Parallel()

	handler := NewHandler("test")
	handler.RegisterChecker("storage", staticChecker{status: StatusHealthy})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "test" {
		t.Fatalf("expected version label in response, got %q", resp.Version)
	}
}

func TestHandler_UnhealthyDominates(t *testing.T) {
	t.Parallel()

	handler := NewHandler("test")
	handler.RegisterChecker("storage", staticChecker{status: StatusHealthy})
	handler.RegisterChecker("outbox", staticChecker{status: StatusDegraded})
	handler.RegisterChecker("broker", staticChecker{status: StatusUnhealthy, message: "down"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy overall, got %s", resp.Status)
	}
	if len(resp.Checks) != 3 {
		t.Fatalf("expected 3 checks in response, got %d", len(resp.Checks))
	}
}

func TestHandler_DegradedKeeps200(t *testing.T) {
	t.Parallel()

	handler := NewHandler("test")
	handler.RegisterChecker("outbox", staticChecker{status: StatusDegraded, message: "backlog"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded must not turn into 503, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != StatusDegraded {
		t.Fatalf("expected degraded overall, got %s", resp.Status)
	}
}

func TestHandler_Readiness(t *testing.T) {
	t.Parallel()

	handler := NewHandler("test")
	handler.RegisterChecker("outbox", staticChecker{status: StatusDegraded})

	rec := httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded component must not block readiness, got %d", rec.Code)
	}

	handler.RegisterChecker("storage", staticChecker{status: StatusUnhealthy})
	rec = httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy component must block readiness, got %d", rec.Code)
	}
}

func TestSimpleChecker(t *testing.T) {
	t.Parallel()

	ok := NewSimpleChecker("db", func() error { return nil })
	if check := ok.Check(); check.Status != StatusHealthy || check.Name != "db" {
		t.Fatalf("unexpected check %+v", check)
	}

	bad := NewSimpleChecker("db", func() error { return errors.New("connection refused") })
	check := bad.Check()
	if check.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", check.Status)
	}
	if check.Message != "connection refused" {
		t.Fatalf("expected the error message to surface, got %q", check.Message)
	}
}

type failingOutbox struct{}

func (failingOutbox) Enqueue(domain.EventRecord) (domain.EventRecord, error) {
	return domain.EventRecord{}, domain.ErrStoreUnavailable
}
func (failingOutbox) PullPending(int) ([]domain.EventRecord, error) {
	return nil, domain.ErrStoreUnavailable
}
func (failingOutbox) MarkSent(string) error   { return domain.ErrStoreUnavailable }
func (failingOutbox) MarkFailed(string) error { return domain.ErrStoreUnavailable }
func (failingOutbox) Stats() (domain.OutboxStats, error) {
	return domain.OutboxStats{}, domain.ErrStoreUnavailable
}

func TestOutboxChecker(t *testing.T) {
	t.Parallel()

	outbox := memory.NewEventOutbox()
	checker := NewOutboxChecker(outbox, 2)

	if check := checker.Check(); check.Status != StatusHealthy {
		t.Fatalf("empty outbox must be healthy, got %+v", check)
	}

	for i := 0; i < 3; i++ {
		if _, err := outbox.Enqueue(domain.EventRecord{
			AggregateType: "stock",
			EventType:     "stock.updated",
		}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	check := checker.Check()
	if check.Status != StatusDegraded {
		t.Fatalf("backlog over the limit must be degraded, got %s", check.Status)
	}
	if check.Message == "" {
		t.Fatalf("degraded check must explain the backlog")
	}
}

func TestOutboxChecker_StatsError(t *testing.T) {
	t.Parallel()

	checker := NewOutboxChecker(failingOutbox{}, 0)
	if check := checker.Check(); check.Status != StatusUnhealthy {
		t.Fatalf("stats failure must be unhealthy, got %+v", check)
	}
}
