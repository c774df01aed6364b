package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/metrics"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/cart"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/ledger"
)

// Options задаёт параметры пайплайна чекаута.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.EngineMetrics
	Outbox  domain.EventOutbox
}

// Option настраивает Pipeline.
type Option func(*Options)

// WithLogger задаёт logger для пайплайна.
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

// WithOutbox подключает outbox для публикации событий заказов.
func WithOutbox(outbox domain.EventOutbox) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// Pipeline превращает непустую корзину в зафиксированный заказ и согласует
// остатки. Протокол последовательный: один вызывающий, без внутренней
// конкурентности; фиксация, начатая один раз, доводится до успеха или отказа.
type Pipeline struct {
	orders   domain.OrderStore
	ledger   *ledger.Service
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.EngineMetrics
	outbox   domain.EventOutbox
}

// NewPipeline создаёт пайплайн чекаута.
func NewPipeline(orders domain.OrderStore, ledgerSvc *ledger.Service, notifier domain.Notifier, options ...Option) *Pipeline {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-pipeline")
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}

	return &Pipeline{
		orders:   orders,
		ledger:   ledgerSvc,
		notifier: notifier,
		logger:   logger,
		metrics:  opts.Metrics,
		outbox:   opts.Outbox,
	}
}

// Commit фиксирует корзину в заказ. При успехе корзина очищается, а леджер
// перечитывается целиком: после фиксации движок не доверяет клиентской
// арифметике остатков. При отказе корзина остаётся нетронутой, чтобы кассир
// мог повторить попытку.
func (p *Pipeline) Commit(ctx context.Context, session *cart.Session, customerName string, method domain.PaymentMethod, taxRate decimal.Decimal) (domain.Order, error) {
	start := time.Now()

	if session.IsEmpty() {
		p.notifier.Publish(domain.SeverityError, "Checkout", "Cart is empty")
		return domain.Order{}, domain.ErrCartEmpty
	}
	if !method.Valid() {
		p.notifier.Publish(domain.SeverityError, "Checkout", "Unsupported payment method")
		return domain.Order{}, domain.ErrPaymentMethodInvalid
	}

	order := p.buildOrder(session, customerName, method, taxRate)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		err := errors.Join(errs...)
		p.notifier.Publish(domain.SeverityError, "Checkout", "Invalid order: "+err.Error())
		return domain.Order{}, err
	}

	stored, err := p.orders.CreateOrder(ctx, order)
	if err != nil {
		p.logger.WithError(err).WithField("order_number", order.Number).Warn("order commit failed")
		if p.metrics != nil {
			p.metrics.RecordOrderFailed()
		}
		p.notifier.Publish(domain.SeverityError, "Checkout", commitFailureMessage(err))
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	session.Clear()
	if err := p.ledger.Reload(ctx); err != nil {
		// Заказ уже зафиксирован; устаревшее зеркало — не причина откатывать успех.
		p.logger.WithError(err).Warn("stock reload after commit failed")
	}

	if p.metrics != nil {
		p.metrics.RecordOrderCommitted()
		p.metrics.RecordCommitDuration(time.Since(start))
	}
	p.notifier.Publish(domain.SeveritySuccess, "Checkout", fmt.Sprintf("Order %s committed", stored.Number))
	p.emitEvent("order.created", stored.ID, map[string]any{
		"number": stored.Number,
		"total":  stored.Total.String(),
	})

	return stored, nil
}

// MarkPaid переводит заказ pending → paid. Оплата однонаправленна.
func (p *Pipeline) MarkPaid(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := p.transition(ctx, orderID, domain.OrderStatusPaid)
	if err != nil {
		return domain.Order{}, err
	}
	p.notifier.Publish(domain.SeveritySuccess, "Orders", fmt.Sprintf("Order %s marked as paid", order.Number))
	p.emitEvent("order.paid", order.ID, map[string]any{"number": order.Number})
	return order, nil
}

// Cancel переводит заказ в cancelled из pending или paid.
func (p *Pipeline) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := p.transition(ctx, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}
	if p.metrics != nil {
		p.metrics.RecordOrderCancelled()
	}
	p.notifier.Publish(domain.SeverityInfo, "Orders", fmt.Sprintf("Order %s cancelled", order.Number))
	p.emitEvent("order.cancelled", order.ID, map[string]any{"number": order.Number})
	return order, nil
}

// Delete удаляет заказ из набора: удаление — это не статус, а снятие записи.
func (p *Pipeline) Delete(ctx context.Context, orderID string) error {
	if err := p.orders.DeleteOrder(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			p.notifier.Publish(domain.SeverityError, "Orders", "Order not found")
			return err
		}
		p.logger.WithError(err).WithField("order_id", orderID).Warn("delete order failed")
		p.notifier.Publish(domain.SeverityError, "Orders", "Failed to delete order")
		return fmt.Errorf("delete order: %w", err)
	}
	p.notifier.Publish(domain.SeveritySuccess, "Orders", "Order deleted")
	p.emitEvent("order.deleted", orderID, nil)
	return nil
}

// Orders возвращает заказы из авторитетного хранилища, новые первыми.
func (p *Pipeline) Orders(ctx context.Context, limit int) ([]domain.Order, error) {
	orders, err := p.orders.ListOrders(ctx, limit)
	if err != nil {
		p.logger.WithError(err).Warn("list orders failed")
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (p *Pipeline) transition(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	order, err := p.orders.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			p.notifier.Publish(domain.SeverityError, "Orders", "Order not found")
		case errors.Is(err, domain.ErrInvalidStatusTransition):
			p.notifier.Publish(domain.SeverityError, "Orders", "Status change is not allowed")
		default:
			p.logger.WithError(err).WithField("order_id", orderID).Warn("order status update failed")
			p.notifier.Publish(domain.SeverityError, "Orders", "Failed to update order")
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (p *Pipeline) buildOrder(session *cart.Session, customerName string, method domain.PaymentMethod, taxRate decimal.Decimal) domain.Order {
	if strings.TrimSpace(customerName) == "" {
		customerName = domain.WalkInCustomer
	}

	cartLines := session.Lines()
	lines := make([]domain.OrderLine, 0, len(cartLines))
	for _, line := range cartLines {
		lines = append(lines, domain.OrderLine{
			ItemID:   line.ItemID,
			Name:     line.Name,
			Price:    line.Price,
			Quantity: line.Quantity,
		})
	}

	totals := session.Totals(taxRate)
	now := time.Now().UTC()
	return domain.Order{
		ID:            uuid.NewString(),
		Number:        newOrderNumber(now),
		CustomerName:  customerName,
		PaymentMethod: method,
		Status:        domain.OrderStatusPending,
		Lines:         lines,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// newOrderNumber генерирует человекочитаемый номер заказа: дата + суффикс.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("POS-%s-%s", now.Format("20060102"), suffix)
}

// commitFailureMessage выбирает сообщение для кассира: причина сервера, если
// она есть, иначе общий текст.
func commitFailureMessage(err error) string {
	if reason, ok := domain.StoreRejectionReason(err); ok {
		return "Failed to commit order: " + reason
	}
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return "Failed to commit order, please retry"
	}
	return "Failed to commit order: " + err.Error()
}

// emitEvent ставит событие заказа в outbox; отказ только логируется.
func (p *Pipeline) emitEvent(eventType, orderID string, payload map[string]any) {
	if p.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["order_id"] = orderID
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}
	event := domain.EventRecord{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := p.outbox.Enqueue(event); err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	}
}
