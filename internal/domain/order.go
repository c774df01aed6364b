package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ зафиксирован, оплата не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена кассиром.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod определяет способ оплаты на кассе.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodQR   PaymentMethod = "qr"
	PaymentMethodCard PaymentMethod = "card"
)

// Valid проверяет, что способ оплаты относится к поддерживаемым значениям.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodQR, PaymentMethodCard:
		return true
	default:
		return false
	}
}

// WalkInCustomer — значение по умолчанию для покупателя без имени.
const WalkInCustomer = "walk-in"

// OrderLine — снимок строки корзины на момент фиксации заказа.
// Хранится копией: последующие изменения цены в леджере заказ не трогают.
type OrderLine struct {
	ItemID   string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Order — неизменяемая запись зафиксированного заказа. Единственная
// допустимая мутация — переход статуса; удаление моделируется как удаление
// записи из хранилища, а не как статус.
type Order struct {
	ID            string
	Number        string
	CustomerName  string
	PaymentMethod PaymentMethod
	Status        OrderStatus
	Lines         []OrderLine
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrCartEmpty)
	}

	// Сверяем итог заказа с суммой строк и налогом.
	calc := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrQuantityNegative)
		}
		if line.Price.IsNegative() {
			errs = append(errs, ErrPriceInvalid)
		}
		calc = calc.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if !calc.Equal(o.Subtotal) || !o.Subtotal.Add(o.Tax).Equal(o.Total) {
		errs = append(errs, ErrTotalsMismatch)
	}

	return errs
}

// CanTransition сообщает, допустим ли переход статуса заказа.
// Оплата однонаправленна: paid → pending не существует.
func (o *Order) CanTransition(next OrderStatus) bool {
	switch o.Status {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusCancelled
	default:
		return false
	}
}
