package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus описывает производный статус позиции на складе.
type StockStatus string

const (
	// StockStatusInStock — запаса достаточно.
	StockStatusInStock StockStatus = "in_stock"
	// StockStatusLowStock — остаток ниже порогового значения.
	StockStatusLowStock StockStatus = "low_stock"
	// StockStatusOutOfStock — остаток исчерпан.
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// LowStockThreshold — порог, ниже которого остаток считается низким.
const LowStockThreshold = 5

// Category определяет категорию товара в каталоге.
type Category string

const (
	CategoryPhone     Category = "phone"
	CategoryAccessory Category = "accessory"
	CategoryPart      Category = "part"
)

// Valid проверяет, что категория относится к поддерживаемым значениям.
func (c Category) Valid() bool {
	switch c {
	case CategoryPhone, CategoryAccessory, CategoryPart:
		return true
	default:
		return false
	}
}

// StockItem представляет товарную позицию в леджере.
// Статус не хранится: он всегда выводится из текущего количества.
type StockItem struct {
	ID        string
	Name      string
	SKU       string
	Brand     string
	Category  Category
	Price     decimal.Decimal
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusFor возвращает статус для заданного количества.
func StatusFor(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity < LowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// Status возвращает производный статус позиции.
func (s *StockItem) Status() StockStatus {
	return StatusFor(s.Quantity)
}

// ValidateInvariants проверяет базовые инварианты позиции и возвращает список замечаний.
func (s *StockItem) ValidateInvariants() []error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if s.SKU == "" {
		errs = append(errs, ErrSKURequired)
	}
	if s.Brand == "" {
		errs = append(errs, ErrBrandRequired)
	}
	if !s.Category.Valid() {
		errs = append(errs, ErrCategoryInvalid)
	}
	if s.Price.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, ErrPriceInvalid)
	}
	if s.Quantity < 0 {
		errs = append(errs, ErrQuantityNegative)
	}

	return errs
}

// StockPatch описывает частичное обновление позиции: nil-поля не трогаются.
type StockPatch struct {
	Name     *string
	SKU      *string
	Brand    *string
	Category *Category
	Price    *decimal.Decimal
	Quantity *int
}

// Validate проверяет заданные поля patch по тем же инвариантам, что и
// ValidateInvariants. Patch проверяется сам по себе: леджер может не знать
// текущее состояние позиции, а некорректное поле не должно дойти до хранилища.
func (p StockPatch) Validate() []error {
	var errs []error

	if p.Name != nil && *p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if p.SKU != nil && *p.SKU == "" {
		errs = append(errs, ErrSKURequired)
	}
	if p.Brand != nil && *p.Brand == "" {
		errs = append(errs, ErrBrandRequired)
	}
	if p.Category != nil && !p.Category.Valid() {
		errs = append(errs, ErrCategoryInvalid)
	}
	if p.Price != nil && p.Price.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, ErrPriceInvalid)
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		errs = append(errs, ErrQuantityNegative)
	}

	return errs
}

// Apply накладывает patch на позицию и возвращает обновлённую копию.
func (p StockPatch) Apply(item StockItem) StockItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.SKU != nil {
		item.SKU = *p.SKU
	}
	if p.Brand != nil {
		item.Brand = *p.Brand
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	return item
}
