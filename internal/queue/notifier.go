package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind names what happened to an exploration.
type EventKind string

const (
	EventContentChange EventKind = "content_change"
	EventStatusChange  EventKind = "status_change"
)

// ExplorationEventTopic is the topic and channel events are published on.
var ExplorationEventTopic = "exploration.events"

// Event is one notification about an exploration.
type Event struct {
	Kind          EventKind `json:"kind"`
	ExplorationID string    `json:"exploration_id"`
	Version       int64     `json:"version,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Notifier delivers events to the outside world.
type Notifier interface {
	// Notify publishes an event.
	Notify(ctx context.Context, event Event) error
}

var (
	_ Notifier = (*NopNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (Multi)(nil)
)

type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

// LogNotifier writes events to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, event Event) error {
	logrus.WithFields(logrus.Fields{
		"kind":        event.Kind,
		"exploration": event.ExplorationID,
		"version":     event.Version,
		"status":      event.Status,
	}).Info("exploration event")
	return nil
}

// Multi delivers every event to all notifiers, even when some fail.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
