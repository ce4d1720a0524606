package jobs

import (
	"context"

	"github.com/emrgen/exploration/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "exploration",
	Name:      "events_received_total",
	Help:      "Exploration events received from the event channel.",
}, []string{"kind"})

// Subscriber delivers published exploration events.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan queue.Event, error)
}

// EventWatcher follows the exploration event channel until it is stopped.
type EventWatcher struct {
	subscriber Subscriber
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventWatcher(subscriber Subscriber) *EventWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventWatcher{
		subscriber: subscriber,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *EventWatcher) Name() string {
	return "event_watcher"
}

// Run blocks while the subscription is open.
func (w *EventWatcher) Run() {
	events, err := w.subscriber.Subscribe(w.ctx)
	if err != nil {
		logrus.WithError(err).Error("event subscription failed")
		return
	}

	for event := range events {
		eventsReceived.WithLabelValues(string(event.Kind)).Inc()
		logrus.WithFields(logrus.Fields{
			"kind":        event.Kind,
			"exploration": event.ExplorationID,
			"version":     event.Version,
		}).Debug("exploration event")
	}
}

func (w *EventWatcher) Stop() {
	w.cancel()
}
