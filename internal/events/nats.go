package events

import (
	"context"

	"github.com/nats-io/nats.go"
)

type NatsPublisher struct {
	nc *nats.Conn
}

func ConnectNats(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("tutorwallet"))
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{nc: nc}, nil
}

// Publish ignores key; a NATS subject is already ordered per publisher.
func (p *NatsPublisher) Publish(_ context.Context, topic, _ string, value []byte) error {
	return p.nc.Publish(topic, value)
}

func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
