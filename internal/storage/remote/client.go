// Package remote реализует StockStore и OrderStore поверх HTTP API магазина.
// Все ответы приходят в едином конверте success/message/data; любой ответ без
// явного success трактуется как отказ хранилища.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// parsePrice терпимо относится к пустым значениям: магазин отдаёт "" для
// нулевых сумм в старых записях.
func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

const defaultRequestTimeout = 10 * time.Second

// Client — HTTP-клиент авторитетного хранилища.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет транспорт (удобно для тестов).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger задаёт логгер клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создаёт клиента для заданного базового URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     log.WithField("component", "remote_store"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope — единый конверт ответов API магазина.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stockItemDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Brand     string    `json:"brand"`
	Category  string    `json:"category"`
	Price     string    `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func stockItemFromDTO(dto stockItemDTO) (domain.StockItem, error) {
	price, err := parsePrice(dto.Price)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("parse stock price %q: %w", dto.Price, err)
	}
	return domain.StockItem{
		ID:        dto.ID,
		Name:      dto.Name,
		SKU:       dto.SKU,
		Brand:     dto.Brand,
		Category:  domain.Category(dto.Category),
		Price:     price,
		Quantity:  dto.Quantity,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,
	}, nil
}

func stockItemToDTO(item domain.StockItem) stockItemDTO {
	return stockItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		SKU:       item.SKU,
		Brand:     item.Brand,
		Category:  string(item.Category),
		Price:     item.Price.String(),
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

type stockPatchDTO struct {
	Name     *string `json:"name,omitempty"`
	SKU      *string `json:"sku,omitempty"`
	Brand    *string `json:"brand,omitempty"`
	Category *string `json:"category,omitempty"`
	Price    *string `json:"price,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

func stockPatchToDTO(patch domain.StockPatch) stockPatchDTO {
	dto := stockPatchDTO{
		Name:     patch.Name,
		SKU:      patch.SKU,
		Quantity: patch.Quantity,
		Brand:    patch.Brand,
	}
	if patch.Category != nil {
		category := string(*patch.Category)
		dto.Category = &category
	}
	if patch.Price != nil {
		price := patch.Price.String()
		dto.Price = &price
	}
	return dto
}

type orderLineDTO struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	Number        string         `json:"number"`
	CustomerName  string         `json:"customer_name"`
	PaymentMethod string         `json:"payment_method"`
	Status        string         `json:"status"`
	Lines         []orderLineDTO `json:"lines"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func orderFromDTO(dto orderDTO) (domain.Order, error) {
	subtotal, err := parsePrice(dto.Subtotal)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse order subtotal %q: %w", dto.Subtotal, err)
	}
	tax, err := parsePrice(dto.Tax)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse order tax %q: %w", dto.Tax, err)
	}
	total, err := parsePrice(dto.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse order total %q: %w", dto.Total, err)
	}

	lines := make([]domain.OrderLine, 0, len(dto.Lines))
	for _, line := range dto.Lines {
		price, err := parsePrice(line.Price)
		if err != nil {
			return domain.Order{}, fmt.Errorf("parse order line price %q: %w", line.Price, err)
		}
		lines = append(lines, domain.OrderLine{
			ItemID:   line.ItemID,
			Name:     line.Name,
			Price:    price,
			Quantity: line.Quantity,
		})
	}

	return domain.Order{
		ID:            dto.ID,
		Number:        dto.Number,
		CustomerName:  dto.CustomerName,
		PaymentMethod: domain.PaymentMethod(dto.PaymentMethod),
		Status:        domain.OrderStatus(dto.Status),
		Lines:         lines,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         total,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
	}, nil
}

func orderToDTO(order domain.Order) orderDTO {
	lines := make([]orderLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDTO{
			ItemID:   line.ItemID,
			Name:     line.Name,
			Price:    line.Price.String(),
			Quantity: line.Quantity,
		})
	}
	return orderDTO{
		ID:            order.ID,
		Number:        order.Number,
		CustomerName:  order.CustomerName,
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		Lines:         lines,
		Subtotal:      order.Subtotal.String(),
		Tax:           order.Tax.String(),
		Total:         order.Total.String(),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func (c *Client) ListStock(ctx context.Context) ([]domain.StockItem, error) {
	var dtos []stockItemDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/stock", nil, &dtos, domain.ErrItemNotFound); err != nil {
		return nil, err
	}

	items := make([]domain.StockItem, 0, len(dtos))
	for _, dto := range dtos {
		item, err := stockItemFromDTO(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) CreateStock(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	var dto stockItemDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/stock", stockItemToDTO(item), &dto, domain.ErrItemNotFound); err != nil {
		return domain.StockItem{}, err
	}
	return stockItemFromDTO(dto)
}

func (c *Client) UpdateStock(ctx context.Context, id string, patch domain.StockPatch) (domain.StockItem, error) {
	var dto stockItemDTO
	path := "/api/v1/stock/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, stockPatchToDTO(patch), &dto, domain.ErrItemNotFound); err != nil {
		return domain.StockItem{}, err
	}
	return stockItemFromDTO(dto)
}

func (c *Client) DeleteStock(ctx context.Context, id string) error {
	path := "/api/v1/stock/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, domain.ErrItemNotFound)
}

func (c *Client) BulkDeleteStock(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodPost, "/api/v1/stock/bulk/delete", body, nil, domain.ErrItemNotFound)
}

func (c *Client) BulkSetQuantity(ctx context.Context, ids []string, quantity int) ([]domain.StockItem, error) {
	if quantity < 0 {
		return nil, domain.ErrQuantityNegative
	}
	body := struct {
		IDs      []string `json:"ids"`
		Quantity int      `json:"quantity"`
	}{IDs: ids, Quantity: quantity}

	var dtos []stockItemDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/stock/bulk/quantity", body, &dtos, domain.ErrItemNotFound); err != nil {
		return nil, err
	}

	items := make([]domain.StockItem, 0, len(dtos))
	for _, dto := range dtos {
		item, err := stockItemFromDTO(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var dto orderDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", orderToDTO(order), &dto, domain.ErrOrderNotFound); err != nil {
		return domain.Order{}, err
	}
	return orderFromDTO(dto)
}

func (c *Client) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	path := "/api/v1/orders"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var dtos []orderDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos, domain.ErrOrderNotFound); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(dtos))
	for _, dto := range dtos {
		order, err := orderFromDTO(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var dto orderDTO
	path := "/api/v1/orders/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &dto, domain.ErrOrderNotFound); err != nil {
		return domain.Order{}, err
	}
	return orderFromDTO(dto)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	body := struct {
		Status string `json:"status"`
	}{Status: string(status)}

	var dto orderDTO
	path := "/api/v1/orders/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, body, &dto, domain.ErrOrderNotFound); err != nil {
		return domain.Order{}, err
	}
	return orderFromDTO(dto)
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	path := "/api/v1/orders/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, domain.ErrOrderNotFound)
}

// do выполняет запрос и разбирает конверт. 404 транслируется в notFound;
// любой другой отказ, сетевой или логический, заворачивается в
// ErrStoreUnavailable — для движка это один и тот же транспортный сбой.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, notFound error) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"method": method,
			"path":   path,
		}).Warn("store request failed")
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrStoreUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return notFound
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: malformed envelope: %v", domain.ErrStoreUnavailable, err)
	}
	if !env.Success {
		c.logger.WithFields(log.Fields{
			"method":  method,
			"path":    path,
			"status":  resp.StatusCode,
			"message": env.Message,
		}).Warn("store rejected request")
		// Причина сервера сохраняется в типе ошибки: пайплайн показывает
		// её кассиру вместо общего текста.
		return &domain.StoreRejectionError{Reason: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode payload: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var (
	_ domain.StockStore = (*Client)(nil)
	_ domain.OrderStore = (*Client)(nil)
)
