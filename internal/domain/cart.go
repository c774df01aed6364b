package domain

import (
	"github.com/shopspring/decimal"
)

// CartLine — одна строка корзины. Имя и цена фиксируются в момент добавления
// и не перечитываются из леджера: котировка чекаута должна быть стабильной.
type CartLine struct {
	ItemID   string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Subtotal возвращает стоимость строки: цена × количество.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart — сессионная корзина: накопленное намерение покупки, ещё не
// зафиксированное в заказ. На каждый товар в корзине приходится ровно одна
// строка; порядок добавления сохраняется.
type Cart struct {
	lines []CartLine
	index map[string]int
}

// NewCart создаёт пустую корзину для новой сессии кассира.
func NewCart() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Lines возвращает копию строк корзины в порядке добавления.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len возвращает число строк в корзине.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Line возвращает строку по идентификатору товара.
func (c *Cart) Line(itemID string) (CartLine, bool) {
	i, ok := c.index[itemID]
	if !ok {
		return CartLine{}, false
	}
	return c.lines[i], true
}

// AddItem добавляет товар в корзину. Существующая строка увеличивается на
// единицу только если остатка хватает, иначе возвращается ErrCapacityExceeded,
// а строка остаётся на прежнем значении. Новая строка создаётся с количеством 1
// и снимком имени/цены на момент добавления.
func (c *Cart) AddItem(item StockItem) error {
	if i, ok := c.index[item.ID]; ok {
		if c.lines[i].Quantity+1 > item.Quantity {
			return ErrCapacityExceeded
		}
		c.lines[i].Quantity++
		return nil
	}
	c.upsert(CartLine{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Quantity: 1,
	})
	return nil
}

// ChangeQuantity сдвигает количество строки на delta. Значение не может
// опуститься ниже единицы (ErrBelowMinimum; для нуля есть RemoveItem) и не
// может превысить остаток onHand (ErrCapacityExceeded). При нарушении границы
// строка не меняется.
func (c *Cart) ChangeQuantity(itemID string, delta, onHand int) error {
	i, ok := c.index[itemID]
	if !ok {
		return ErrCartLineNotFound
	}
	next := c.lines[i].Quantity + delta
	if next < 1 {
		return ErrBelowMinimum
	}
	if next > onHand {
		return ErrCapacityExceeded
	}
	c.lines[i].Quantity = next
	return nil
}

// RemoveItem удаляет строку безусловно; отсутствие строки — не ошибка.
func (c *Cart) RemoveItem(itemID string) {
	c.remove(itemID)
}

// upsert добавляет строку или заменяет количество существующей.
func (c *Cart) upsert(line CartLine) {
	if i, ok := c.index[line.ItemID]; ok {
		c.lines[i] = line
		return
	}
	c.index[line.ItemID] = len(c.lines)
	c.lines = append(c.lines, line)
}

// remove удаляет строку безусловно; отсутствие строки — не ошибка.
func (c *Cart) remove(itemID string) {
	i, ok := c.index[itemID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, itemID)
	for id, j := range c.index {
		if j > i {
			c.index[id] = j - 1
		}
	}
}

// Clear опустошает корзину.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

// Totals — результат расчёта стоимости корзины или заказа.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals считает subtotal/tax/total для заданной налоговой ставки.
// Ставка — параметр вызова: 0 для кассового чекаута, 0.10 для выставления
// счетов; движок её не зашивает.
func ComputeTotals(lines []CartLine, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}
	tax := subtotal.Mul(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
