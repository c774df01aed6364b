package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Hok1707/intelligent-pos-sub000/internal/domain"
)

// EventTopicPublisher публикует события из outbox в Kafka, выбирая topic по
// типу агрегата (stock/order).
type EventTopicPublisher struct {
	producer *Producer
}

// NewEventPublisher создаёт Kafka-паблишер для outbox движка.
func NewEventPublisher(producer *Producer) domain.EventPublisher {
	return &EventTopicPublisher{producer: producer}
}

func (p *EventTopicPublisher) Publish(event domain.EventRecord) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka event publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishJSON(TopicFor(event.AggregateType), key, envelope)
}

var _ domain.EventPublisher = (*EventTopicPublisher)(nil)
