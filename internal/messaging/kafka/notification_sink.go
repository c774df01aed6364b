package kafka

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// NotificationSink зеркалирует пользовательские уведомления во внешний topic.
// Доставка best-effort: ошибка публикации логируется и не возвращается —
// уведомления не участвуют в корректности движка.
type NotificationSink struct {
	producer *Producer
	logger   *log.Entry
}

// NewNotificationSink создаёт Kafka sink для шины уведомлений.
func NewNotificationSink(producer *Producer, logger *log.Entry) *NotificationSink {
	if logger == nil {
		logger = log.WithField("component", "kafka-notification-sink")
	}
	return &NotificationSink{producer: producer, logger: logger}
}

// Deliver отправляет уведомление в TopicNotifications.
func (s *NotificationSink) Deliver(notification domain.Notification) {
	if s == nil || s.producer == nil {
		return
	}

	payload := struct {
		ID        string    `json:"id"`
		Severity  string    `json:"severity"`
		Title     string    `json:"title,omitempty"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		ID:        notification.ID,
		Severity:  string(notification.Severity),
		Title:     notification.Title,
		Message:   notification.Message,
		CreatedAt: notification.CreatedAt,
		ExpiresAt: notification.ExpiresAt,
	}

	if err := s.producer.PublishJSON(TopicNotifications, notification.ID, payload); err != nil {
		s.logger.WithError(err).Warn("failed to mirror notification to kafka")
	}
}
