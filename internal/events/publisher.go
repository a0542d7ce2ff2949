package events

import (
	"context"
	"encoding/json"

	"tutorwallet/internal/domain"
	"tutorwallet/pkg/log"
)

// Publisher sends one message to a topic. key groups messages that must stay in order.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// BusNotifier publishes session events to "<prefix>.<event type>".
type BusNotifier struct {
	Publisher Publisher
	Prefix    string
	Log       log.Log
}

func NewBusNotifier(p Publisher, prefix string, logger log.Log) *BusNotifier {
	return &BusNotifier{Publisher: p, Prefix: prefix, Log: logger}
}

func (b *BusNotifier) Topic(eventType string) string {
	if b.Prefix == "" {
		return eventType
	}
	return b.Prefix + "." + eventType
}

func (b *BusNotifier) NotifySession(ctx context.Context, ev domain.SessionEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		b.Log.Error("events/bus", "failed to marshal event", "NotifySession", err.Error())
		return err
	}
	if err := b.Publisher.Publish(ctx, b.Topic(ev.Type), ev.SessionID, value); err != nil {
		b.Log.Error("events/bus", "error send message", "NotifySession", err.Error())
		return err
	}
	return nil
}
