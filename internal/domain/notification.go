package domain

import "time"

// Severity задаёт уровень уведомления для пользователя.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Notification — best-effort алерт для кассира. Не персистентен, не
// дедуплицируется и не участвует в корректности движка.
type Notification struct {
	ID        string
	Severity  Severity
	Title     string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Notifier — порт для публикации уведомлений из сервисов движка.
// Publish возвращает управление немедленно и никогда не возвращает ошибку:
// падение канала уведомлений не должно влиять на состояние леджера/корзины/заказов.
type Notifier interface {
	Publish(severity Severity, title, message string)
}

// NopNotifier — заглушка для тестов и сценариев без UI.
type NopNotifier struct{}

func (NopNotifier) Publish(Severity, string, string) {}

var _ Notifier = NopNotifier{}
