package checkout_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/cart"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/checkout"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/ledger"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/memory"
)

// failingOrderStore отклоняет любую запись транспортной ошибкой.
type failingOrderStore struct{}

func (failingOrderStore) CreateOrder(context.Context, domain.Order) (domain.Order, error) {
	return domain.Order{}, domain.ErrStoreUnavailable
}
func (failingOrderStore) ListOrders(context.Context, int) ([]domain.Order, error) {
	return nil, domain.ErrStoreUnavailable
}
func (failingOrderStore) GetOrder(context.Context, string) (domain.Order, error) {
	return domain.Order{}, domain.ErrStoreUnavailable
}
func (failingOrderStore) UpdateOrderStatus(context.Context, string, domain.OrderStatus) (domain.Order, error) {
	return domain.Order{}, domain.ErrStoreUnavailable
}
func (failingOrderStore) DeleteOrder(context.Context, string) error {
	return domain.ErrStoreUnavailable
}

// rejectingOrderStore отклоняет запись с причиной от сервера.
type rejectingOrderStore struct {
	failingOrderStore
	reason string
}

func (s rejectingOrderStore) CreateOrder(context.Context, domain.Order) (domain.Order, error) {
	return domain.Order{}, &domain.StoreRejectionError{Reason: s.reason}
}

// noteRecorder собирает уведомления пайплайна.
type noteRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *noteRecorder) Publish(_ domain.Severity, _ string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, message)
}

func (r *noteRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

type fixture struct {
	ledger   *ledger.Service
	session  *cart.Session
	pipeline *checkout.Pipeline
	orders   domain.OrderStore
	itemID   string
}

func newFixture(t *testing.T, orders domain.OrderStore) *fixture {
	t.Helper()

	store := memory.NewStockStore()
	ledgerSvc := ledger.NewService(store, domain.NopNotifier{})

	item, err := ledgerSvc.Create(context.Background(), domain.StockItem{
		Name:     "USB-C Charger",
		SKU:      "CHG-65W",
		Brand:    "Acme",
		Category: domain.CategoryAccessory,
		Price:    decimal.NewFromInt(50),
		Quantity: 10,
	})
	require.NoError(t, err)

	if orders == nil {
		orders = memory.NewOrderStore()
	}

	session := cart.NewSession(ledgerSvc, nil)
	pipeline := checkout.NewPipeline(orders, ledgerSvc, domain.NopNotifier{})

	return &fixture{
		ledger:   ledgerSvc,
		session:  session,
		pipeline: pipeline,
		orders:   orders,
		itemID:   item.ID,
	}
}

func TestPipeline_CommitSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.session.AddItem(f.itemID))
	require.NoError(t, f.session.ChangeQuantity(f.itemID, +1))

	order, err := f.pipeline.Commit(ctx, f.session, "", domain.PaymentMethodCash, decimal.RequireFromString("0.10"))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.WalkInCustomer, order.CustomerName)
	assert.True(t, strings.HasPrefix(order.Number, "POS-"), "order number %q must carry the POS prefix", order.Number)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)

	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(100)), "subtotal = %s", order.Subtotal)
	assert.True(t, order.Tax.Equal(decimal.NewFromInt(10)), "tax = %s", order.Tax)
	assert.True(t, order.Subtotal.Add(order.Tax).Equal(order.Total), "subtotal + tax must equal total exactly")

	assert.True(t, f.session.IsEmpty(), "cart must be cleared after a successful commit")

	stored, err := f.pipeline.Orders(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, order.ID, stored[0].ID)
}

func TestPipeline_CommitFailureKeepsCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingOrderStore{})
	ctx := context.Background()

	require.NoError(t, f.session.AddItem(f.itemID))

	_, err := f.pipeline.Commit(ctx, f.session, "Alice", domain.PaymentMethodCard, decimal.Zero)
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err), "commit failure must surface as a transport error")

	require.Len(t, f.session.Lines(), 1)
	line := f.session.Lines()[0]
	assert.Equal(t, f.itemID, line.ItemID)
	assert.Equal(t, 1, line.Quantity)
}

func TestPipeline_CommitFailureShowsServerReason(t *testing.T) {
	t.Parallel()

	store := memory.NewStockStore()
	ledgerSvc := ledger.NewService(store, domain.NopNotifier{})

	item, err := ledgerSvc.Create(context.Background(), domain.StockItem{
		Name:     "Case",
		SKU:      "CASE-1",
		Brand:    "Acme",
		Category: domain.CategoryAccessory,
		Price:    decimal.NewFromInt(20),
		Quantity: 5,
	})
	require.NoError(t, err)

	recorder := &noteRecorder{}
	session := cart.NewSession(ledgerSvc, nil)
	pipeline := checkout.NewPipeline(
		rejectingOrderStore{reason: "card declined by acquirer"}, ledgerSvc, recorder)

	require.NoError(t, session.AddItem(item.ID))

	_, err = pipeline.Commit(context.Background(), session, "", domain.PaymentMethodCard, decimal.Zero)
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err), "rejection must still read as a transport failure")

	messages := recorder.all()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[len(messages)-1], "card declined by acquirer",
		"failure notification must carry the server-supplied reason")
	assert.False(t, session.IsEmpty(), "rejected commit must leave the cart intact")
}

func TestPipeline_CommitEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.pipeline.Commit(context.Background(), f.session, "", domain.PaymentMethodCash, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestPipeline_CommitInvalidPaymentMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	require.NoError(t, f.session.AddItem(f.itemID))

	_, err := f.pipeline.Commit(context.Background(), f.session, "", "cheque", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrPaymentMethodInvalid)
	assert.False(t, f.session.IsEmpty(), "rejected commit must leave the cart intact")
}

func TestPipeline_OrderSnapshotImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.session.AddItem(f.itemID))
	order, err := f.pipeline.Commit(ctx, f.session, "", domain.PaymentMethodQR, decimal.Zero)
	require.NoError(t, err)

	// Изменение цены в леджере не трогает зафиксированный заказ.
	newPrice := decimal.NewFromInt(500)
	_, err = f.ledger.Update(ctx, f.itemID, domain.StockPatch{Price: &newPrice})
	require.NoError(t, err)

	stored, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Lines[0].Price.Equal(decimal.NewFromInt(50)),
		"order line must keep the commit-time price, got %s", stored.Lines[0].Price)
}

func TestPipeline_StatusTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.session.AddItem(f.itemID))
	order, err := f.pipeline.Commit(ctx, f.session, "", domain.PaymentMethodCash, decimal.Zero)
	require.NoError(t, err)

	paid, err := f.pipeline.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)

	// Оплата однонаправленна: paid → pending не существует.
	_, err = f.pipeline.MarkPaid(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	cancelled, err := f.pipeline.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	_, err = f.pipeline.MarkPaid(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestPipeline_DeleteOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.session.AddItem(f.itemID))
	order, err := f.pipeline.Commit(ctx, f.session, "", domain.PaymentMethodCash, decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, f.pipeline.Delete(ctx, order.ID))
	assert.ErrorIs(t, f.pipeline.Delete(ctx, order.ID), domain.ErrOrderNotFound)
}

func TestPipeline_CommitEmitsOutboxEvent(t *testing.T) {
	t.Parallel()

	outbox := memory.NewEventOutbox()
	store := memory.NewStockStore()
	ledgerSvc := ledger.NewService(store, domain.NopNotifier{})

	item, err := ledgerSvc.Create(context.Background(), domain.StockItem{
		Name:     "Case",
		SKU:      "CASE-1",
		Brand:    "Acme",
		Category: domain.CategoryAccessory,
		Price:    decimal.NewFromInt(20),
		Quantity: 5,
	})
	require.NoError(t, err)

	session := cart.NewSession(ledgerSvc, nil)
	pipeline := checkout.NewPipeline(memory.NewOrderStore(), ledgerSvc, domain.NopNotifier{},
		checkout.WithOutbox(outbox))

	require.NoError(t, session.AddItem(item.ID))
	order, err := pipeline.Commit(context.Background(), session, "", domain.PaymentMethodCash, decimal.Zero)
	require.NoError(t, err)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "order.created", pending[0].EventType)
	assert.Equal(t, order.ID, pending[0].AggregateID)
}
