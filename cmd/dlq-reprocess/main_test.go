package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/service/outbox"
)

const (
	testSourceTopic = "shop.dlq"
	testTargetTopic = "shop.order.events"
)

func deadLetterValue(t *testing.T, id, eventType, payload string) []byte {
	t.Helper()

	letter, err := json.Marshal(outbox.DeadLetter{
		OutboxID:       id,
		AggregateType:  kafka.AggregateTypeOrder,
		AggregateID:    "order-" + id,
		EventType:      eventType,
		Payload:        json.RawMessage(payload),
		PublishError:   "kafka: client has run out of available brokers",
		DLQPublishedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal dead letter: %v", err)
	}

	value, err := json.Marshal(kafka.Envelope{
		ID:            id,
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   "order-" + id,
		EventType:     eventType,
		Payload:       letter,
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return value
}

func orderCreatedLetter(t *testing.T, id string) []byte {
	return deadLetterValue(t, id, string(kafka.EventTypeOrderCreated), `{"order_id":"order-`+id+`","amount_minor":750}`)
}

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" broker-1:9092, ,broker-2:9092 ")
	if len(brokers) != 2 {
		t.Fatalf("unexpected brokers count: got=%d want=2", len(brokers))
	}
	if brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestDecodeDeadLetter(t *testing.T) {
	event, err := decodeDeadLetter(orderCreatedLetter(t, "evt-1"))
	if err != nil {
		t.Fatalf("decodeDeadLetter failed: %v", err)
	}
	if event.ID != "evt-1" || event.AggregateID != "order-evt-1" {
		t.Fatalf("unexpected identifiers: %+v", event)
	}
	if event.EventType != string(kafka.EventTypeOrderCreated) || event.AggregateType != kafka.AggregateTypeOrder {
		t.Fatalf("unexpected event type: %+v", event)
	}
	if string(event.Payload) != `{"order_id":"order-evt-1","amount_minor":750}` {
		t.Fatalf("unexpected original payload: %s", event.Payload)
	}
}

func TestDecodeDeadLetter_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		value   []byte
		wantErr string
	}{
		{name: "not json", value: []byte("plain text"), wantErr: errNotDeadLetter.Error()},
		{name: "no payload", value: []byte(`{"id":"x"}`), wantErr: errNotDeadLetter.Error()},
		{name: "payload is not a dead letter", value: []byte(`{"id":"x","payload":"not-an-object"}`), wantErr: "decode dead letter"},
		{name: "dead letter without original payload", value: deadLetterValue(t, "evt-2", "order.created", "null"), wantErr: "has no original payload"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeDeadLetter(tc.value)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "value", "other"); got != "value" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := firstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}

func TestReadConfig_FromFlags(t *testing.T) {
	withFlagArgs(t, []string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-source-topic=" + testSourceTopic,
		"-target-topic=" + testTargetTopic,
		"-event-type= order.created ",
		"-limit=10",
		"-execute=true",
		"-from-newest=true",
		"-idle-timeout=3s",
	}, func() {
		cfg, err := readConfig()
		if err != nil {
			t.Fatalf("readConfig failed: %v", err)
		}
		if len(cfg.brokers) != 2 {
			t.Fatalf("unexpected brokers count: %d", len(cfg.brokers))
		}
		if cfg.limit != 10 {
			t.Fatalf("unexpected limit: %d", cfg.limit)
		}
		if cfg.eventType != "order.created" {
			t.Fatalf("unexpected event type: %q", cfg.eventType)
		}
		if !cfg.execute || !cfg.fromNewest {
			t.Fatalf("expected execute and fromNewest, got %+v", cfg)
		}
		if cfg.idleTimeout != 3*time.Second {
			t.Fatalf("unexpected idle-timeout: %s", cfg.idleTimeout)
		}
	})
}

func TestReadConfig_BrokersFromEnv(t *testing.T) {
	t.Setenv(envKafkaBrokers, "env-broker:9092")
	withFlagArgs(t, nil, func() {
		cfg, err := readConfig()
		if err != nil {
			t.Fatalf("readConfig failed: %v", err)
		}
		if len(cfg.brokers) != 1 || cfg.brokers[0] != "env-broker:9092" {
			t.Fatalf("unexpected brokers: %+v", cfg.brokers)
		}
		if cfg.sourceTopic != kafka.TopicDeadLetterQueue || cfg.targetTopic != kafka.TopicOrderEvents {
			t.Fatalf("unexpected default topics: %s -> %s", cfg.sourceTopic, cfg.targetTopic)
		}
	})
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	t.Setenv(envKafkaBrokers, "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "brokers", args: []string{"-brokers="}, wantErr: "kafka brokers are required"},
		{name: "source topic", args: []string{"-brokers=broker:9092", "-source-topic="}, wantErr: "source-topic is required"},
		{name: "target topic", args: []string{"-brokers=broker:9092", "-target-topic="}, wantErr: "target-topic is required"},
		{name: "same topics", args: []string{"-brokers=broker:9092", "-source-topic=t", "-target-topic=t"}, wantErr: "must differ"},
		{name: "limit", args: []string{"-brokers=broker:9092", "-limit=0"}, wantErr: "limit must be > 0"},
		{name: "idle timeout", args: []string{"-brokers=broker:9092", "-idle-timeout=0s"}, wantErr: "idle-timeout must be > 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withFlagArgs(t, tc.args, func() {
				_, err := readConfig()
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
			})
		})
	}
}

func TestReplayMessage(t *testing.T) {
	msg := &sarama.ConsumerMessage{Value: orderCreatedLetter(t, "evt-1")}

	t.Run("dry run does not publish", func(t *testing.T) {
		publisher := &recordingPublisher{}
		cfg := config{targetTopic: testTargetTopic}
		if err := replayMessage(publisher, cfg, msg); err != nil {
			t.Fatalf("replayMessage failed: %v", err)
		}
		if len(publisher.events) != 0 {
			t.Fatalf("dry run must not publish, got %d events", len(publisher.events))
		}
	})

	t.Run("execute publishes original event", func(t *testing.T) {
		publisher := &recordingPublisher{}
		cfg := config{targetTopic: testTargetTopic, execute: true}
		if err := replayMessage(publisher, cfg, msg); err != nil {
			t.Fatalf("replayMessage failed: %v", err)
		}
		if len(publisher.events) != 1 || publisher.events[0].ID != "evt-1" {
			t.Fatalf("unexpected published events: %+v", publisher.events)
		}
	})

	t.Run("event type filter", func(t *testing.T) {
		publisher := &recordingPublisher{}
		cfg := config{targetTopic: testTargetTopic, execute: true, eventType: "order.cancelled"}
		if err := replayMessage(publisher, cfg, msg); !errors.Is(err, errEventTypeFilter) {
			t.Fatalf("expected filter error, got %v", err)
		}
		if len(publisher.events) != 0 {
			t.Fatalf("filtered message must not be published")
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("send failed")}
		cfg := config{targetTopic: testTargetTopic, execute: true}
		if err := replayMessage(publisher, cfg, msg); !errors.Is(err, errReplayPublish) {
			t.Fatalf("expected publish error, got %v", err)
		}
	})
}

func TestReplayMessage_RepublishesEnvelopeToTargetTopic(t *testing.T) {
	syncProducer := mocks.NewSyncProducer(t, nil)
	syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != testTargetTopic {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "order-evt-7" {
			return fmt.Errorf("unexpected key %s", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope kafka.Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.ID != "evt-7" || envelope.EventType != string(kafka.EventTypeOrderCreated) {
			return fmt.Errorf("unexpected envelope %+v", envelope)
		}
		if string(envelope.Payload) != `{"order_id":"order-evt-7","amount_minor":750}` {
			return fmt.Errorf("unexpected payload %s", envelope.Payload)
		}
		return nil
	})

	producer := kafka.NewProducerWithSyncProducer(syncProducer, nil)
	publisher := kafka.NewOutboxPublisher(producer, testTargetTopic)

	cfg := config{targetTopic: testTargetTopic, execute: true}
	if err := replayMessage(publisher, cfg, &sarama.ConsumerMessage{Value: orderCreatedLetter(t, "evt-7")}); err != nil {
		t.Fatalf("replayMessage failed: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("close producer: %v", err)
	}
}

func TestProcessPartition_DryRun(t *testing.T) {
	deps := replayDependencies{
		client: &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}},
		consumer: &stubPartitionConsumerSource{
			consumers: map[int32]partitionConsumer{
				0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")}}),
			},
		},
	}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), deps, cfg, 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.processed != 1 || stats.replayed != 1 || stats.skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	consumer := deps.consumer.(*stubPartitionConsumerSource)
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 0 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestProcessPartition_ExecuteSkipsUnsupported(t *testing.T) {
	publisher := &recordingPublisher{}
	deps := replayDependencies{
		client: &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}},
		consumer: &stubPartitionConsumerSource{
			consumers: map[int32]partitionConsumer{
				0: closedPartitionConsumer([]*sarama.ConsumerMessage{
					{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")},
					{Partition: 0, Offset: 1, Value: []byte(`{"id":"x","payload":"not-an-object"}`)},
					{Partition: 0, Offset: 2, Value: orderCreatedLetter(t, "evt-3")},
				}),
			},
		},
		publisher: publisher,
	}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, execute: true, idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), deps, cfg, 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.processed != 3 || stats.replayed != 2 || stats.skipped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(publisher.events) != 2 || publisher.events[1].ID != "evt-3" {
		t.Fatalf("unexpected published events: %+v", publisher.events)
	}
}

func TestProcessPartition_FromNewest(t *testing.T) {
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{0: closedPartitionConsumer(nil)},
	}
	deps := replayDependencies{
		client:   &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 5, newest: 20}}},
		consumer: consumer,
	}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, fromNewest: true, idleTimeout: 20 * time.Millisecond}

	if _, err := processPartition(context.Background(), deps, cfg, 0, 4); err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 16 {
		t.Fatalf("expected start offset 16, got %+v", consumer.calls)
	}
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, execute: true, idleTimeout: 20 * time.Millisecond}
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}

	offsetErr := replayDependencies{
		client:    &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}},
		consumer:  &stubPartitionConsumerSource{},
		publisher: &recordingPublisher{},
	}
	if _, err := processPartition(context.Background(), offsetErr, cfg, 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	consumeErr := replayDependencies{
		client:    client,
		consumer:  &stubPartitionConsumerSource{consumeErr: errors.New("consume")},
		publisher: &recordingPublisher{},
	}
	if _, err := processPartition(context.Background(), consumeErr, cfg, 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	close(pcWithErr.errors)
	withConsumerErr := replayDependencies{
		client:    client,
		consumer:  &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}},
		publisher: &recordingPublisher{},
	}
	if _, err := processPartition(context.Background(), withConsumerErr, cfg, 0, 1); err == nil {
		t.Fatal("expected consumer error branch")
	}
	close(pcWithErr.messages)

	publishErr := replayDependencies{
		client: client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")}}),
		}},
		publisher: &recordingPublisher{err: errors.New("send fail")},
	}
	stats, err := processPartition(context.Background(), publishErr, cfg, 0, 1)
	if !errors.Is(err, errReplayPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if stats.processed != 1 || stats.replayed != 0 {
		t.Fatalf("unexpected stats after publish error: %+v", stats)
	}
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, idleTimeout: 10 * time.Millisecond}

	idleConsumer := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	deps := replayDependencies{
		client:   client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idleConsumer}},
	}
	stats, err := processPartition(context.Background(), deps, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}
	if !idleConsumer.closed {
		t.Fatal("partition consumer must be closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	canceledPC := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	deps.consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: canceledPC}}
	if _, err := processPartition(ctx, deps, cfg, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRunReplay(t *testing.T) {
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, limit: 1, idleTimeout: 20 * time.Millisecond}

	if _, err := runReplay(context.Background(), cfg, replayDependencies{}); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			2: {oldest: 0, newest: 2},
		},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")}}),
			2: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 2, Offset: 0, Value: orderCreatedLetter(t, "evt-2")}}),
		},
	}
	deps := replayDependencies{client: client, consumer: consumer}

	stats, err := runReplay(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}
	if stats.processed != 1 {
		t.Fatalf("expected one processed message due limit=1, got %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].partition != 0 {
		t.Fatalf("expected only first sorted partition=0, got %+v", consumer.calls)
	}

	executeCfg := cfg
	executeCfg.execute = true
	if _, err := runReplay(context.Background(), executeCfg, deps); err == nil {
		t.Fatal("expected execute mode to require publisher")
	}

	empty := replayDependencies{client: &stubOffsetClient{}, consumer: consumer}
	if _, err := runReplay(context.Background(), cfg, empty); err != nil {
		t.Fatalf("expected nil error for empty partitions, got %v", err)
	}
}

func TestRun_UsesDependencies(t *testing.T) {
	oldDeps := newReplayDependencies
	defer func() { newReplayDependencies = oldDeps }()

	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, limit: 1, execute: true, idleTimeout: 20 * time.Millisecond}

	newReplayDependencies = func(config) (replayDependencies, error) {
		return replayDependencies{}, errors.New("deps failed")
	}
	if err := run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "deps failed") {
		t.Fatalf("expected deps error, got %v", err)
	}

	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 2}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")}}),
		},
	}
	publisher := &recordingPublisher{}
	producerClosed := false

	newReplayDependencies = func(config) (replayDependencies, error) {
		return replayDependencies{
			client:    client,
			consumer:  consumer,
			publisher: publisher,
			closeFn: func() error {
				producerClosed = true
				return nil
			},
		}, nil
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one replayed event, got %d", len(publisher.events))
	}
	if !client.closed || !consumer.closed || !producerClosed {
		t.Fatalf("expected all deps to be closed: client=%v consumer=%v producer=%v", client.closed, consumer.closed, producerClosed)
	}
}

func TestMain_SuccessWithStubbedDeps(t *testing.T) {
	oldDeps := newReplayDependencies
	defer func() { newReplayDependencies = oldDeps }()

	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 2}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: orderCreatedLetter(t, "evt-1")}}),
		},
	}
	newReplayDependencies = func(config) (replayDependencies, error) {
		return replayDependencies{client: client, consumer: consumer}, nil
	}

	withFlagArgs(t, []string{"-brokers=broker:9092", "-limit=1", "-idle-timeout=50ms"}, func() {
		main()
	})
}

func TestFailExits(t *testing.T) {
	if os.Getenv("DLQ_TEST_FAIL_EXIT") == "1" {
		fail("boom")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "DLQ_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}

func withFlagArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"dlq-reprocess"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

type recordingPublisher struct {
	events []domain.OutboxMessage
	err    error
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}
