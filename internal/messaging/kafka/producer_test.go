package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithSyncProducer(mockProducer, log.WithField("component", "kafka-producer-test"))

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicOrderEvents {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != HeaderEventType {
			return errors.New("event type header is missing")
		}
		return nil
	})

	event := NewOrderCreatedEvent(domain.Order{ID: "order-123", CustomerID: "cust-1"})
	err := producer.PublishEvent(TopicOrderEvents, "order-123", event, map[string]string{
		HeaderEventType: string(EventTypeOrderCreated),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithSyncProducer(mockProducer, nil)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", map[string]string{"k": "v"}, nil)
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithSyncProducer(mockProducer, nil)

	if err := producer.PublishEvent(TopicOrderEvents, "k", make(chan int), nil); err == nil {
		t.Fatal("expected marshal error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderCreatedEvent(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:          "order-1",
		CustomerID:  "C1",
		AmountMinor: 750,
		CreatedAt:   createdAt,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "P1", PriceMinor: 250, Quantity: 3},
		},
	}

	event := NewOrderCreatedEvent(order)

	if event.EventType != EventTypeOrderCreated {
		t.Errorf("expected event type %s, got %s", EventTypeOrderCreated, event.EventType)
	}
	if event.OrderID != "order-1" || event.CustomerID != "C1" || event.AmountMinor != 750 {
		t.Errorf("unexpected event header fields: %+v", event)
	}
	if len(event.Items) != 1 || event.Items[0] != (OrderCreatedItem{ProductID: "P1", PriceMinor: 250, Quantity: 3}) {
		t.Errorf("unexpected items: %+v", event.Items)
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if decoded["event_type"] != "order.created" {
		t.Errorf("unexpected event_type %v", decoded["event_type"])
	}
}
