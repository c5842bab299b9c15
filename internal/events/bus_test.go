package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dimasukma/backend-etalase/internal/events"
	"github.com/dimasukma/backend-etalase/internal/obs"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitFansOutToNotifiers(t *testing.T) {
	first := &captureNotifier{}
	second := &captureNotifier{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Notifiers: []events.Notifier{first, second},
		Now:       func() time.Time { return now },
	}

	event, err := bus.Emit(context.Background(), events.TopicItemAdded, "sess-1", map[string]any{"productId": 7})
	require.NoError(t, err)
	require.Equal(t, events.TopicItemAdded, event.Topic)
	require.Equal(t, "sess-1", event.SessionID)
	require.Equal(t, now, event.OccurredAt)
	require.JSONEq(t, `{"productId":7}`, string(event.Payload))
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.EqualValues(t, 7, decoded["productId"])
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), "  ", "sess", nil)
	require.Error(t, err)
}

func TestEmitNilPayloadBecomesEmptyObject(t *testing.T) {
	capture := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{capture}}
	event, err := bus.Emit(context.Background(), events.TopicCartCleared, "sess", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(event.Payload))
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failing := &captureNotifier{err: errors.New("boom")}
	ok := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{failing, ok}}
	_, err := bus.Emit(context.Background(), events.TopicItemRemoved, "sess", nil)
	require.Error(t, err)
	// later notifiers still run
	require.Len(t, ok.events, 1)
}

func TestPrimeMetricsSeedsAllTopics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("etalase_test", reg)

	events.PrimeMetrics()
	for _, topic := range events.DefaultTopics() {
		counter := obs.CartEventsTotal.WithLabelValues(topic)
		require.Zero(t, testutil.ToFloat64(counter))
	}
}
