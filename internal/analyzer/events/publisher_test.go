package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

func decodeMessage(t *testing.T, msg *sarama.ProducerMessage) map[string]interface{} {
	t.Helper()
	raw, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	return out
}

func TestPublishAnalysisCompleted(t *testing.T) {
	// Arrange
	producer := mocks.NewSyncProducer(t, nil)
	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})
	p := NewEventPublisherWithProducer(producer)

	// Act
	err := p.PublishAnalysisCompleted(context.Background(), &domain.AnalysisEvent{
		Keyword:         "golang",
		Requested:       10,
		Returned:        8,
		PotentiallyFake: 2,
		Timestamp:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sent.Topic != TopicAnalysisCompleted {
		t.Errorf("expected topic %s, got %s", TopicAnalysisCompleted, sent.Topic)
	}
	key, _ := sent.Key.Encode()
	if string(key) != "golang" {
		t.Errorf("expected key golang, got %s", key)
	}
	body := decodeMessage(t, sent)
	if body["event_type"] != "analysis_completed" {
		t.Errorf("unexpected event type %v", body["event_type"])
	}
	data := body["data"].(map[string]interface{})
	if data["returned"] != float64(8) || data["potentially_fake"] != float64(2) {
		t.Errorf("unexpected data %v", data)
	}

	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestPublishSearchRequested(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var body map[string]interface{}
		if err := json.Unmarshal(val, &body); err != nil {
			return err
		}
		data := body["data"].(map[string]interface{})
		if data["keyword"] != "rust" || data["client_ip"] != "10.0.0.1" {
			return errors.New("unexpected payload")
		}
		return nil
	})
	p := NewEventPublisherWithProducer(producer)

	err := p.PublishSearchRequested(context.Background(),
		&domain.SearchEvent{Keyword: "rust", ClientIP: "10.0.0.1", Timestamp: time.Now()})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestPublish_ProducerFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewEventPublisherWithProducer(producer)

	err := p.PublishSearchRequested(context.Background(), &domain.SearchEvent{Keyword: "go"})

	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("expected wrapped ErrOutOfBrokers, got %v", err)
	}
	_ = p.Close()
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	if err := p.PublishSearchRequested(context.Background(), &domain.SearchEvent{}); err != nil {
		t.Error(err)
	}
	if err := p.PublishAnalysisCompleted(context.Background(), &domain.AnalysisEvent{}); err != nil {
		t.Error(err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}
