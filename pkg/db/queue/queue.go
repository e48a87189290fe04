package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/IBM/sarama"

	"github.com/erain9/tickmatch/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "tickmatch-exec-reports"
)

const maxRetry = 5

// SetBrokerList overrides the Kafka broker list (comma separated)
func SetBrokerList(brokers string) {
	brokerList = brokers
}

// SetTopic overrides the exec report topic
func SetTopic(t string) {
	topic = t
}

// newSyncProducer is swapped out in tests
var newSyncProducer = sarama.NewSyncProducer

// QueueMessageSender implements the messaging.Sender interface for
// sending exec reports to Kafka via sarama
type QueueMessageSender struct {
	producer sarama.SyncProducer
}

// NewQueueMessageSender creates a sender backed by a sarama sync producer
func NewQueueMessageSender() (*QueueMessageSender, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = maxRetry

	producer, err := newSyncProducer(strings.Split(brokerList, ","), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer}, nil
}

// SendExecMessage sends the ExecMessage to the Kafka queue
func (q *QueueMessageSender) SendExecMessage(_ context.Context, msg *messaging.ExecMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal exec message: %w", err)
	}

	producerMsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(msg.OrderID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(producerMsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

// newConsumer is swapped out in tests
var newConsumer = sarama.NewConsumer

// QueueMessageConsumer consumes exec reports from the Kafka queue for
// downstream reporting collaborators
type QueueMessageConsumer struct {
	consumer sarama.Consumer
	done     chan struct{}
}

// NewQueueMessageConsumer creates a consumer for the exec report topic
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	consumer, err := newConsumer(strings.Split(brokerList, ","), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &QueueMessageConsumer{
		consumer: consumer,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeExecMessages consumes exec reports and invokes handler for each
// one. It blocks until Close is called or the partition consumer stops.
func (c *QueueMessageConsumer) ConsumeExecMessages(handler func(*messaging.ExecMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}

			var execMsg messaging.ExecMessage
			if err := json.Unmarshal(msg.Value, &execMsg); err != nil {
				return fmt.Errorf("failed to unmarshal exec message: %w", err)
			}

			if err := handler(&execMsg); err != nil {
				return err
			}
		case <-c.done:
			return nil
		}
	}
}

// Close stops consumption and closes the underlying consumer
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}

// Ensure QueueMessageSender implements messaging.Sender
var _ messaging.Sender = (*QueueMessageSender)(nil)
