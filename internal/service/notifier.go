package service

import (
	"context"
	"fmt"

	"tutorwallet/internal/domain"
	"tutorwallet/pkg/log"
)

// SessionNotifier delivers session events to whoever listens for them.
type SessionNotifier interface {
	NotifySession(ctx context.Context, ev domain.SessionEvent) error
}

// MultiNotifier fans an event out to every sink. Delivery is best effort: a failing
// sink is logged and the rest still run.
type MultiNotifier struct {
	sinks []SessionNotifier
	log   log.Log
}

func NewMultiNotifier(logger log.Log, sinks ...SessionNotifier) *MultiNotifier {
	m := &MultiNotifier{log: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiNotifier) NotifySession(ctx context.Context, ev domain.SessionEvent) error {
	for _, s := range m.sinks {
		if err := s.NotifySession(ctx, ev); err != nil {
			m.log.Warn("notifier", err.Error(), ev.Type, fmt.Sprintf("session=%s sink=%T", ev.SessionID, s))
		}
	}
	return nil
}
