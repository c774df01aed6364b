package domain

import "errors"

var (
	// Ошибка отсутствующего названия товара.
	ErrNameRequired = errors.New("item name is required")
	// Ошибка отсутствующего SKU.
	ErrSKURequired = errors.New("item sku is required")
	// Ошибка отсутствующего бренда.
	ErrBrandRequired = errors.New("item brand is required")
	// Ошибка неподдерживаемой категории.
	ErrCategoryInvalid = errors.New("item category is invalid")
	// Ошибка, если цена не положительная.
	ErrPriceInvalid = errors.New("item price must be greater than zero")
	// Ошибка отрицательного остатка.
	ErrQuantityNegative = errors.New("item quantity must be non-negative")
	// ErrItemNotFound возвращается, если позиция не найдена в хранилище.
	ErrItemNotFound = errors.New("stock item not found")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartEmpty — попытка оформить заказ по пустой корзине.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCartLineNotFound — в корзине нет строки с таким товаром.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrCapacityExceeded — запрошенное количество превышает остаток на складе.
	ErrCapacityExceeded = errors.New("requested quantity exceeds stock on hand")
	// ErrBelowMinimum — количество в строке корзины не может опуститься ниже единицы.
	ErrBelowMinimum = errors.New("cart line quantity cannot drop below one")
	// Ошибка отсутствующего набора целей для bulk-операции.
	ErrBulkTargetsRequired = errors.New("bulk operation requires at least one target id")
	// Ошибка неизвестного намерения bulk-операции.
	ErrBulkIntentInvalid = errors.New("bulk operation intent is invalid")
	// Ошибка несоответствия итогов заказа сумме строк.
	ErrTotalsMismatch = errors.New("order totals do not match line sum")
	// Ошибка недопустимого перехода статуса заказа.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// Ошибка некорректного способа оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method is invalid")
	// ErrStoreUnavailable — авторитетное хранилище недоступно или ответило отказом.
	ErrStoreUnavailable = errors.New("authoritative store unavailable")
	// ErrEventPublish — ошибка при публикации события из outbox.
	ErrEventPublish = errors.New("event publish failed")
)

// StoreRejectionError — явный отказ хранилища с причиной от сервера.
// Для вызывающего это тот же транспортный сбой (IsTransport возвращает true),
// но причина пригодна для показа кассиру в уведомлении.
type StoreRejectionError struct {
	Reason string
}

func (e *StoreRejectionError) Error() string {
	if e.Reason == "" {
		return ErrStoreUnavailable.Error()
	}
	return ErrStoreUnavailable.Error() + ": " + e.Reason
}

func (e *StoreRejectionError) Unwrap() error {
	return ErrStoreUnavailable
}

// StoreRejectionReason достаёт причину отказа сервера из цепочки ошибок,
// если она там есть.
func StoreRejectionReason(err error) (string, bool) {
	var rejection *StoreRejectionError
	if errors.As(err, &rejection) && rejection.Reason != "" {
		return rejection.Reason, true
	}
	return "", false
}

// IsCapacityExceeded проверяет, является ли ошибка превышением остатка.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsTransport проверяет, относится ли ошибка к отказу авторитетного хранилища.
func IsTransport(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
