package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"

	"tuma-ledger/internal/logger"
	"tuma-ledger/internal/models"
)

// KafkaEmitter implements EventEmitter using Kafka. Messages are keyed by
// ledger name and record id so all events of one record land in one partition
// in order.
type KafkaEmitter struct {
	writer *kafka.Writer
	mu     sync.Mutex
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddress),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *KafkaEmitter) EmitEvent(event models.LedgerEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	key := event.Ledger.String() + "-" + strconv.FormatUint(event.RecordID, 10)
	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %v", err)
	}

	logger.GetLogger().Info().
		Str("ledger", event.Ledger.String()).
		Uint64("recordId", event.RecordID).
		Str("kind", string(event.Kind)).
		Msg("Successfully emitted event to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
