package cart

import (
	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/ledger"
)

// Session — корзина одной кассовой сессии поверх леджера. Ничего не
// резервирует и не мутирует в леджере: только накапливает намерение покупки,
// проверяя каждое изменение против текущего остатка.
//
// Несколько терминалов — несколько независимых Session; общего состояния нет.
type Session struct {
	cart   *domain.Cart
	ledger *ledger.Service
	logger *log.Entry
}

// NewSession создаёт пустую корзину для новой сессии.
func NewSession(ledgerSvc *ledger.Service, logger *log.Entry) *Session {
	if logger == nil {
		logger = log.WithField("component", "cart-session")
	}
	return &Session{
		cart:   domain.NewCart(),
		ledger: ledgerSvc,
		logger: logger,
	}
}

// AddItem добавляет товар по id. Превышение остатка возвращается явным
// ErrCapacityExceeded; вызывающий волен показать его или молча оставить
// значение на месте — состояние корзины в обоих случаях не меняется.
func (s *Session) AddItem(itemID string) error {
	item, ok := s.ledger.Item(itemID)
	if !ok {
		return domain.ErrItemNotFound
	}
	if item.Quantity < 1 {
		// Позиции без остатка не должны предлагаться к добавлению.
		return domain.ErrCapacityExceeded
	}
	if err := s.cart.AddItem(item); err != nil {
		s.logger.WithField("item_id", itemID).Debug("cart add capped at stock on hand")
		return err
	}
	return nil
}

// ChangeQuantity сдвигает количество строки на delta с теми же границами:
// не ниже единицы и не выше текущего остатка в леджере.
func (s *Session) ChangeQuantity(itemID string, delta int) error {
	item, ok := s.ledger.Item(itemID)
	if !ok {
		return domain.ErrItemNotFound
	}
	return s.cart.ChangeQuantity(itemID, delta, item.Quantity)
}

// RemoveItem удаляет строку безусловно.
func (s *Session) RemoveItem(itemID string) {
	s.cart.RemoveItem(itemID)
}

// Clear опустошает корзину.
func (s *Session) Clear() {
	s.cart.Clear()
}

// Lines возвращает копию строк корзины.
func (s *Session) Lines() []domain.CartLine {
	return s.cart.Lines()
}

// Line возвращает строку по id товара.
func (s *Session) Line(itemID string) (domain.CartLine, bool) {
	return s.cart.Line(itemID)
}

// IsEmpty сообщает, пуста ли корзина.
func (s *Session) IsEmpty() bool {
	return s.cart.IsEmpty()
}

// Totals считает subtotal/tax/total по переданной налоговой ставке.
func (s *Session) Totals(taxRate decimal.Decimal) domain.Totals {
	return domain.ComputeTotals(s.cart.Lines(), taxRate)
}

// Cart открывает доступ к доменной корзине для пайплайна чекаута.
func (s *Session) Cart() *domain.Cart {
	return s.cart
}
