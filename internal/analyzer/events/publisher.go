package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

const (
	TopicSearchRequested   = "search.requested"
	TopicAnalysisCompleted = "analysis.completed"
)

type EventPublisher struct {
	producer sarama.SyncProducer
}

func NewEventPublisher(brokers []string) (*EventPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return NewEventPublisherWithProducer(producer), nil
}

// NewEventPublisherWithProducer wraps an existing producer.
func NewEventPublisherWithProducer(producer sarama.SyncProducer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (p *EventPublisher) PublishSearchRequested(ctx context.Context,
	event *domain.SearchEvent) error {

	kafkaEvent := map[string]interface{}{
		"event_type": "search_requested",
		"timestamp":  event.Timestamp,
		"data": map[string]interface{}{
			"keyword":   event.Keyword,
			"client_ip": event.ClientIP,
		},
	}

	return p.publish(TopicSearchRequested, event.Keyword, kafkaEvent)
}

func (p *EventPublisher) PublishAnalysisCompleted(ctx context.Context,
	event *domain.AnalysisEvent) error {

	kafkaEvent := map[string]interface{}{
		"event_type": "analysis_completed",
		"timestamp":  event.Timestamp,
		"data": map[string]interface{}{
			"keyword":          event.Keyword,
			"requested":        event.Requested,
			"returned":         event.Returned,
			"potentially_fake": event.PotentiallyFake,
			"unclassified":     event.Unclassified,
		},
	}

	return p.publish(TopicAnalysisCompleted, event.Keyword, kafkaEvent)
}

func (p *EventPublisher) publish(topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishSearchRequested(context.Context, *domain.SearchEvent) error {
	return nil
}

func (NoopPublisher) PublishAnalysisCompleted(context.Context, *domain.AnalysisEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var (
	_ domain.EventPublisher = (*EventPublisher)(nil)
	_ domain.EventPublisher = NoopPublisher{}
)
