package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/erain9/tickmatch/pkg/messaging"
)

// KafkaSender implements messaging.Sender using a kafka-go writer
type KafkaSender struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaSender creates a new Kafka exec report sender
func NewKafkaSender(brokerAddr, topic string) (*KafkaSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendExecMessage sends an exec report to Kafka. Messages are keyed by
// order id so reports for one order stay in partition order.
func (k *KafkaSender) SendExecMessage(ctx context.Context, msg *messaging.ExecMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal exec message: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(strconv.FormatUint(msg.OrderID, 10)),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaSender) Close() error {
	return k.writer.Close()
}

// Ensure KafkaSender implements messaging.Sender
var _ messaging.Sender = (*KafkaSender)(nil)
