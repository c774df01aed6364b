package kafka

// Topics для Kafka
const (
	// TopicStockEvents — события леджера: создание, обновление остатков, удаление.
	TopicStockEvents = "pos.stock.events"
	// TopicOrderEvents — события жизненного цикла заказов.
	TopicOrderEvents = "pos.order.events"
	// TopicNotifications — зеркало пользовательских уведомлений для внешних потребителей.
	TopicNotifications = "pos.notifications"
)

// TopicFor возвращает topic для типа агрегата из outbox.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case "order":
		return TopicOrderEvents
	default:
		return TopicStockEvents
	}
}
