package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

var _ Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier produces events keyed by exploration id, so events of one
// exploration stay ordered within a partition.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaNotifier(brokers, topic string) (*KafkaNotifier, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	return &KafkaNotifier{producer: producer, topic: topic}, nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ExplorationID),
		Value:          value,
	}, delivery)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected kafka event: %v", e)
		}
		return msg.TopicPartition.Error
	}
}

// Close flushes pending messages and closes the producer.
func (k *KafkaNotifier) Close() {
	if left := k.producer.Flush(5000); left > 0 {
		logrus.Warnf("kafka notifier closed with %d undelivered events", left)
	}
	k.producer.Close()
}
