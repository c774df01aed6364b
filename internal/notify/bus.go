package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
	"github.com/Hok1707/intelligent-pos-sub000/internal/metrics"
)

const (
	// errorTTLUnits — время жизни error-уведомлений в единицах времени шины.
	errorTTLUnits = 8
	// defaultTTLUnits — время жизни остальных уведомлений.
	defaultTTLUnits = 5
)

// Sink получает опубликованные уведомления. Доставка best-effort: ошибка или
// паника sink не влияет на вызывающего.
type Sink interface {
	Deliver(notification domain.Notification)
}

// Options задаёт параметры шины уведомлений.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.EngineMetrics
	// Unit — длительность одной единицы времени жизни уведомления.
	// В продакшене секунда; тесты ставят миллисекунды.
	Unit time.Duration
}

// Option настраивает Bus.
type Option func(*Options)

// WithLogger задаёт logger для шины.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics подключает метрики движка.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithUnit задаёт единицу времени жизни уведомлений.
func WithUnit(unit time.Duration) Option {
	return func(opts *Options) {
		opts.Unit = unit
	}
}

// Bus — best-effort шина уведомлений. Publish возвращается немедленно;
// каждое уведомление автоматически снимается по истечении TTL (error живёт
// дольше остальных), если кассир не закрыл его раньше. Шина не участвует в
// корректности: её падение не трогает состояние леджера/корзины/заказов.
type Bus struct {
	logger  *log.Entry
	metrics *metrics.EngineMetrics
	unit    time.Duration

	mu     sync.Mutex
	active map[string]domain.Notification
	order  []string
	timers map[string]*time.Timer
	sinks  []Sink
	closed bool
}

// NewBus создаёт шину уведомлений.
func NewBus(options ...Option) *Bus {
	opts := Options{Unit: time.Second}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notification-bus")
	}
	if opts.Unit <= 0 {
		opts.Unit = time.Second
	}

	return &Bus{
		logger:  logger,
		metrics: opts.Metrics,
		unit:    opts.Unit,
		active:  make(map[string]domain.Notification),
		timers:  make(map[string]*time.Timer),
	}
}

// AddSink регистрирует получателя уведомлений.
func (b *Bus) AddSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish публикует уведомление и немедленно возвращает управление.
func (b *Bus) Publish(severity domain.Severity, title, message string) {
	ttl := time.Duration(defaultTTLUnits) * b.unit
	if severity == domain.SeverityError {
		ttl = time.Duration(errorTTLUnits) * b.unit
	}

	now := time.Now().UTC()
	notification := domain.Notification{
		ID:        uuid.NewString(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.active[notification.ID] = notification
	b.order = append(b.order, notification.ID)
	b.timers[notification.ID] = time.AfterFunc(ttl, func() {
		b.retract(notification.ID)
	})
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordNotification(string(severity))
		b.metrics.NotificationShown()
	}

	// Доставка в sink-и асинхронная и изолированная: уведомления не участвуют
	// в корректности движка.
	for _, sink := range sinks {
		go b.deliver(sink, notification)
	}
}

// Dismiss снимает уведомление раньше срока по действию пользователя.
func (b *Bus) Dismiss(id string) bool {
	b.mu.Lock()
	timer, ok := b.timers[id]
	b.mu.Unlock()
	if !ok {
		return false
	}
	timer.Stop()
	b.retract(id)
	return true
}

// Active возвращает видимые уведомления в порядке публикации.
func (b *Bus) Active() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]domain.Notification, 0, len(b.active))
	for _, id := range b.order {
		if n, ok := b.active[id]; ok {
			result = append(result, n)
		}
	}
	return result
}

// Close останавливает таймеры и перестаёт принимать публикации.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, timer := range b.timers {
		timer.Stop()
		delete(b.timers, id)
	}
	b.active = make(map[string]domain.Notification)
	b.order = nil
}

func (b *Bus) retract(id string) {
	b.mu.Lock()
	_, ok := b.active[id]
	if ok {
		delete(b.active, id)
		delete(b.timers, id)
		filtered := b.order[:0]
		for _, existing := range b.order {
			if existing != id {
				filtered = append(filtered, existing)
			}
		}
		b.order = filtered
	}
	b.mu.Unlock()

	if ok && b.metrics != nil {
		b.metrics.NotificationRetracted()
	}
}

func (b *Bus) deliver(sink Sink, notification domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("panic", r).Warn("notification sink panicked")
		}
	}()
	sink.Deliver(notification)
}

var _ domain.Notifier = (*Bus)(nil)

// LogSink пишет уведомления в структурированный лог.
type LogSink struct {
	logger *log.Entry
}

// NewLogSink создаёт sink поверх logrus.
func NewLogSink(logger *log.Entry) *LogSink {
	if logger == nil {
		logger = log.WithField("component", "notification-log")
	}
	return &LogSink{logger: logger}
}

// Deliver логирует уведомление с уровнем по его severity.
func (s *LogSink) Deliver(notification domain.Notification) {
	entry := s.logger.WithFields(log.Fields{
		"severity": notification.Severity,
		"title":    notification.Title,
	})
	switch notification.Severity {
	case domain.SeverityError:
		entry.Error(notification.Message)
	case domain.SeverityWarning:
		entry.Warn(notification.Message)
	default:
		entry.Info(notification.Message)
	}
}

var _ Sink = (*LogSink)(nil)
