package domain

// BulkIntent определяет, что именно bulk-операция делает с целями.
type BulkIntent string

const (
	// BulkIntentDelete — удалить все целевые позиции.
	BulkIntentDelete BulkIntent = "delete"
	// BulkIntentSetQuantity — выставить всем целям одинаковый абсолютный остаток.
	BulkIntentSetQuantity BulkIntent = "set_quantity"
)

// BulkOperation — одна логическая операция над набором позиций леджера.
// С точки зрения вызывающего применяется целиком или отклоняется целиком.
type BulkOperation struct {
	ItemIDs  []string
	Intent   BulkIntent
	Quantity int
}

// Validate проверяет корректность bulk-операции и возвращает ошибки, если они есть.
func (op *BulkOperation) Validate() []error {
	var errs []error

	if len(op.ItemIDs) == 0 {
		errs = append(errs, ErrBulkTargetsRequired)
	}
	switch op.Intent {
	case BulkIntentDelete:
	case BulkIntentSetQuantity:
		if op.Quantity < 0 {
			errs = append(errs, ErrQuantityNegative)
		}
	default:
		errs = append(errs, ErrBulkIntentInvalid)
	}

	return errs
}
