package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/Hok1707/intelligent-pos-sub000/internal/health"
	"github.com/Hok1707/intelligent-pos-sub000/internal/messaging/kafka"
	"github.com/Hok1707/intelligent-pos-sub000/internal/metrics"
	"github.com/Hok1707/intelligent-pos-sub000/internal/notify"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/cart"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/checkout"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/ledger"
	"github.com/Hok1707/intelligent-pos-sub000/internal/service/outbox"
	"github.com/Hok1707/intelligent-pos-sub000/internal/version"
)

// Engine собирает компоненты движка консистентности для одного процесса.
// Каждый кассовый терминал получает собственную сессию корзины через
// NewSession; леджер, пайплайн и шина уведомлений общие.
type Engine struct {
	Ledger   *ledger.Service
	Mutator  *ledger.Mutator
	Pipeline *checkout.Pipeline
	Bus      *notify.Bus

	taxRate decimal.Decimal
	logger  *log.Entry
}

// NewEngine строит движок поверх готовых зависимостей.
func NewEngine(deps *Dependencies, cfg Config) *Engine {
	logger := deps.Logger
	engineMetrics := metrics.NewEngineMetrics()

	bus := notify.NewBus(
		notify.WithLogger(logger.WithField("component", "notification-bus")),
		notify.WithMetrics(engineMetrics),
	)
	bus.AddSink(notify.NewLogSink(logger.WithField("component", "notification-log")))
	if deps.Producer != nil {
		bus.AddSink(kafka.NewNotificationSink(deps.Producer, logger.WithField("component", "kafka-notification-sink")))
	}

	ledgerSvc := ledger.NewService(deps.StockStore, bus,
		ledger.WithLogger(logger.WithField("component", "stock-ledger")),
		ledger.WithMetrics(engineMetrics),
		ledger.WithOutbox(deps.Outbox),
		ledger.WithLowStockAlertDelay(cfg.LowStockAlertDelay),
	)

	pipeline := checkout.NewPipeline(deps.OrderStore, ledgerSvc, bus,
		checkout.WithLogger(logger.WithField("component", "order-pipeline")),
		checkout.WithMetrics(engineMetrics),
		checkout.WithOutbox(deps.Outbox),
	)

	return &Engine{
		Ledger:   ledgerSvc,
		Mutator:  ledger.NewMutator(ledgerSvc, logger.WithField("component", "bulk-mutator")),
		Pipeline: pipeline,
		Bus:      bus,
		taxRate:  cfg.TaxRateDecimal(),
		logger:   logger,
	}
}

// TaxRate возвращает сконфигурированную ставку налога. Терминал передаёт её
// в Totals и Commit; ставка остаётся параметром вызова, а не состоянием
// корзины.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// NewSession создаёт сессию корзины для нового кассового терминала.
func (e *Engine) NewSession() *cart.Session {
	return cart.NewSession(e.Ledger, e.logger.WithField("component", "cart-session"))
}

// Close останавливает шину уведомлений движка.
func (e *Engine) Close() {
	e.Bus.Close()
}

// Run запускает движок: подключает хранилище, прогревает леджер, поднимает
// outbox worker и HTTP-сервер метрик/health, после чего ждёт отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.Info(version.String())

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	engine := NewEngine(deps, cfg)
	defer engine.Close()

	if err := engine.Ledger.Reload(ctx); err != nil {
		// Движок стартует и с пустым зеркалом: леджер перечитается при
		// первой успешной операции.
		logger.WithError(err).Warn("initial stock reload failed")
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Postgres != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			return deps.Postgres.Ping(context.Background())
		}))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.Outbox, cfg.OutboxMaxPending))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	if deps.Producer != nil {
		worker := outbox.NewWorker(deps.Outbox, kafka.NewEventPublisher(deps.Producer),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
		go worker.Run(ctx)
	} else {
		logger.Info("kafka is not configured, outbox worker is disabled")
	}

	logger.Info("consistency engine is running")
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping engine")
	return ctx.Err()
}

// startMetricsServer поднимает HTTP-обработчики /metrics и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
