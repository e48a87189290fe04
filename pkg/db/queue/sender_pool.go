package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erain9/tickmatch/pkg/messaging"
)

var (
	senderPool   chan messaging.Sender
	poolInitOnce sync.Once
	maxPoolSize  = 32

	overrideMu     sync.RWMutex
	senderOverride messaging.Sender
)

// SetSender installs a fixed sender, bypassing the Kafka pool. Used by
// tests and in-process deployments that have no broker. Pass nil to
// restore pooled sending.
func SetSender(sender messaging.Sender) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	senderOverride = sender
}

// initSenderPool pre-populates the producer pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.Sender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueMessageSender()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to create queue sender for pool")
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.Sender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		log.Warn().Msg("Queue sender pool is empty")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.Sender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		log.Warn().Msg("Queue sender pool is full")
		_ = sender.Close()
	}
}

// SendMessage sends an exec report using the override sender if one is
// installed, otherwise a pooled Kafka sender
func SendMessage(ctx context.Context, msg *messaging.ExecMessage) error {
	overrideMu.RLock()
	override := senderOverride
	overrideMu.RUnlock()

	if override != nil {
		return override.SendExecMessage(ctx, msg)
	}

	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	if err := sender.SendExecMessage(ctx, msg); err != nil {
		// A failed sender may hold a broken connection; drop it instead
		// of returning it to the pool.
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}
