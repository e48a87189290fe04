package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/tickmatch/pkg/messaging"
)

type mockConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockConsumer) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return &mockPartitionConsumer{
		messages: m.messages,
		errors:   m.errors,
	}, nil
}

func (m *mockConsumer) Topics() ([]string, error) {
	return []string{}, nil
}

func (m *mockConsumer) Partitions(topic string) ([]int32, error) {
	return []int32{}, nil
}

func (m *mockConsumer) HighWaterMarks() map[string]map[int32]int64 {
	return nil
}

func (m *mockConsumer) Close() error {
	close(m.messages)
	close(m.errors)
	return nil
}

func (m *mockConsumer) Pause(topicPartitions map[string][]int32) {}

func (m *mockConsumer) Resume(topicPartitions map[string][]int32) {}

func (m *mockConsumer) PauseAll() {}

func (m *mockConsumer) ResumeAll() {}

type mockPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockPartitionConsumer) AsyncClose() {}

func (m *mockPartitionConsumer) Close() error {
	return nil
}

func (m *mockPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return m.messages
}

func (m *mockPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	return m.errors
}

func (m *mockPartitionConsumer) HighWaterMarkOffset() int64 {
	return 0
}

func (m *mockPartitionConsumer) IsPaused() bool {
	return false
}

func (m *mockPartitionConsumer) Pause() {}

func (m *mockPartitionConsumer) Resume() {}

func testExecMessage() *messaging.ExecMessage {
	return &messaging.ExecMessage{
		OrderID:         42,
		Status:          "PARTIALLY_FILLED",
		ExecutedVolume:  400,
		RemainingVolume: 600,
		Stored:          true,
		Trades: []messaging.TradeMessage{
			{
				BuyOrderID:  42,
				SellOrderID: 7,
				Price:       33,
				Volume:      400,
			},
		},
	}
}

func TestQueueMessageSender_SendExecMessage(t *testing.T) {
	execMessage := testExecMessage()

	mockProd := &mockProducer{}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return mockProd, nil
	}

	sender, err := NewQueueMessageSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendExecMessage(context.Background(), execMessage)
	require.NoError(t, err)

	require.Len(t, mockProd.sentMessages, 1)
	msg := mockProd.sentMessages[0]

	require.Equal(t, topic, msg.Topic)

	// Keying by order id keeps one order's reports in partition order
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	require.Equal(t, "42", string(key))

	var decoded messaging.ExecMessage
	err = json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded)
	require.NoError(t, err)

	require.Equal(t, execMessage.OrderID, decoded.OrderID)
	require.Equal(t, execMessage.Status, decoded.Status)
	require.Equal(t, execMessage.ExecutedVolume, decoded.ExecutedVolume)
	require.Equal(t, execMessage.RemainingVolume, decoded.RemainingVolume)
	require.Equal(t, execMessage.Stored, decoded.Stored)
	require.Equal(t, execMessage.Trades, decoded.Trades)
}

func TestQueueMessageConsumer_ConsumeExecMessages(t *testing.T) {
	expectedMessage := testExecMessage()

	mockCons := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}

	consumer := &QueueMessageConsumer{
		consumer: mockCons,
		done:     make(chan struct{}),
	}

	receivedMessage := make(chan *messaging.ExecMessage, 1)

	go func() {
		err := consumer.ConsumeExecMessages(func(msg *messaging.ExecMessage) error {
			receivedMessage <- msg
			return nil
		})
		assert.NoError(t, err)
	}()

	data, err := json.Marshal(expectedMessage)
	require.NoError(t, err)
	mockCons.messages <- &sarama.ConsumerMessage{Value: data}

	select {
	case msg := <-receivedMessage:
		assert.Equal(t, expectedMessage.OrderID, msg.OrderID)
		assert.Equal(t, expectedMessage.Status, msg.Status)
		assert.Equal(t, expectedMessage.ExecutedVolume, msg.ExecutedVolume)
		assert.Equal(t, expectedMessage.RemainingVolume, msg.RemainingVolume)
		assert.Equal(t, expectedMessage.Stored, msg.Stored)
		assert.Equal(t, expectedMessage.Trades, msg.Trades)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	err = consumer.Close()
	require.NoError(t, err)
}

func TestSendMessageUsesOverrideSender(t *testing.T) {
	mock := messaging.NewMockSender()
	SetSender(mock)
	defer SetSender(nil)

	err := SendMessage(context.Background(), testExecMessage())
	require.NoError(t, err)

	messages := mock.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, uint64(42), messages[0].OrderID)
}
