package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/messaging/kafka"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/memory"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/postgres"
	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/remote"
)

// Dependencies содержит внешние зависимости движка: хранилища, outbox и
// опциональный Kafka producer.
type Dependencies struct {
	StockStore domain.StockStore
	OrderStore domain.OrderStore
	Outbox     domain.EventOutbox

	Postgres *postgres.Store
	Producer *kafka.Producer

	Logger *log.Entry
}

// NewDependencies инициализирует зависимости согласно выбранному драйверу
// хранилища. Kafka опциональна: пустой список брокеров отключает публикацию.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageMemory:
		deps.StockStore = memory.NewStockStore()
		deps.OrderStore = memory.NewOrderStore()
		deps.Outbox = memory.NewEventOutbox()
		logger.Info("using in-memory storage")

	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		deps.Postgres = store
		deps.StockStore = postgres.NewStockStore(store)
		deps.OrderStore = postgres.NewOrderStore(store)
		deps.Outbox = postgres.NewEventOutbox(store)
		logger.Info("using postgres storage")

	case StorageRemote:
		client := remote.NewClient(cfg.RemoteBaseURL,
			remote.WithLogger(logger.WithField("component", "remote_store")))
		deps.StockStore = client
		deps.OrderStore = client
		// Удалённый API не даёт транзакционного outbox; события копятся локально.
		deps.Outbox = memory.NewEventOutbox()
		logger.WithField("base_url", cfg.RemoteBaseURL).Info("using remote storage")

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			deps.Producer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	return deps, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}

	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			d.Logger.Info("kafka producer closed")
		}
	}

	if d.Postgres != nil {
		if err := d.Postgres.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
