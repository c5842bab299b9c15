package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dimasukma/backend-etalase/internal/obs"
)

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Str("session_id", event.SessionID).
		RawJSON("payload", event.Payload).
		Msg("cart_event")
	return nil
}

// PrimeMetrics seeds a zero sample for every known topic so the per-topic
// series exist in /metrics before the first event fires.
func PrimeMetrics() {
	if obs.CartEventsTotal == nil {
		return
	}
	for _, topic := range DefaultTopics() {
		obs.CartEventsTotal.WithLabelValues(topic).Add(0)
	}
}

// MetricsNotifier counts emitted events per topic.
type MetricsNotifier struct{}

// Notify implements Notifier.
func (MetricsNotifier) Notify(_ context.Context, event Event) error {
	if obs.CartEventsTotal != nil {
		obs.CartEventsTotal.WithLabelValues(event.Topic).Inc()
	}
	return nil
}
