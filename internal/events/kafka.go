package events

import (
	"context"

	"github.com/IBM/sarama"
)

type KafkaPublisher struct {
	producer sarama.SyncProducer
}

func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "tutorwallet"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewKafkaPublisherFromProducer(producer), nil
}

func NewKafkaPublisherFromProducer(producer sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish waits for the broker ack or for ctx, whichever comes first. A message abandoned
// on ctx may still be delivered.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	done := make(chan error, 1)
	go func() {
		_, _, err := p.producer.SendMessage(msg)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
