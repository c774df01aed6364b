package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

const opTimeout = 5 * time.Second

type stockStore struct {
	db *sql.DB
}

// NewStockStore создаёт PostgreSQL-реализацию StockStore.
func NewStockStore(store *Store) domain.StockStore {
	return &stockStore{db: store.DB()}
}

func (s *stockStore) ListStock(ctx context.Context) ([]domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, brand, category, price, quantity, created_at, updated_at
		FROM stock_items
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	items := make([]domain.StockItem, 0)
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}

	return items, nil
}

func (s *stockStore) CreateStock(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_items (
			id, name, sku, brand, category, price, quantity, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		item.ID, item.Name, item.SKU, item.Brand, string(item.Category),
		item.Price, item.Quantity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("insert stock item: %w", err)
	}

	return item, nil
}

func (s *stockStore) UpdateStock(ctx context.Context, id string, patch domain.StockPatch) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var item domain.StockItem
	var category string
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, sku, brand, category, price, quantity, created_at, updated_at
		FROM stock_items
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&item.ID, &item.Name, &item.SKU, &item.Brand, &category,
		&item.Price, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrItemNotFound
			return domain.StockItem{}, err
		}
		return domain.StockItem{}, fmt.Errorf("select stock item: %w", err)
	}
	item.Category = domain.Category(category)

	item = patch.Apply(item)
	item.UpdatedAt = time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE stock_items
		SET name = $1, sku = $2, brand = $3, category = $4,
		    price = $5, quantity = $6, updated_at = $7
		WHERE id = $8
	`,
		item.Name, item.SKU, item.Brand, string(item.Category),
		item.Price, item.Quantity, item.UpdatedAt, item.ID,
	); err != nil {
		return domain.StockItem{}, fmt.Errorf("update stock item: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.StockItem{}, fmt.Errorf("commit update stock: %w", err)
	}

	return item, nil
}

func (s *stockStore) DeleteStock(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stock item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *stockStore) BulkDeleteStock(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Отсутствующие id игнорируются: bulk-форма удаляет то, что нашла.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id::text = ANY($1)`, ids); err != nil {
		return fmt.Errorf("bulk delete stock: %w", err)
	}
	return nil
}

func (s *stockStore) BulkSetQuantity(ctx context.Context, ids []string, quantity int) ([]domain.StockItem, error) {
	if quantity < 0 {
		return nil, domain.ErrQuantityNegative
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	rows, err := tx.QueryContext(ctx, `
		UPDATE stock_items
		SET quantity = $1, updated_at = $2
		WHERE id::text = ANY($3)
		RETURNING id, name, sku, brand, category, price, quantity, created_at, updated_at
	`, quantity, now, ids)
	if err != nil {
		return nil, fmt.Errorf("bulk set quantity: %w", err)
	}

	items := make([]domain.StockItem, 0, len(ids))
	for rows.Next() {
		item, scanErr := scanStockItem(rows)
		if scanErr != nil {
			rows.Close()
			err = scanErr
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate updated rows: %w", err)
	}
	rows.Close()

	// Все цели должны существовать: частичное применение откатывается.
	if len(items) != len(ids) {
		err = domain.ErrItemNotFound
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk set quantity: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStockItem(row rowScanner) (domain.StockItem, error) {
	var item domain.StockItem
	var category string
	if err := row.Scan(
		&item.ID, &item.Name, &item.SKU, &item.Brand, &category,
		&item.Price, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return domain.StockItem{}, fmt.Errorf("scan stock row: %w", err)
	}
	item.Category = domain.Category(category)
	return item, nil
}

var _ domain.StockStore = (*stockStore)(nil)
