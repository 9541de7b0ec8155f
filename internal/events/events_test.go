package events

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpEventBus(t *testing.T) {
	bus := NewNoOpEventBus()
	assert.NotPanics(t, func() { bus.Emit(events.Event{Type: events.SequenceStart}) })
}

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := NewChannelEventBus(1, logger.NewDiscardLogger())

	bus.Emit(events.Event{Type: events.SequenceStart})
	bus.Emit(events.Event{Type: events.StimulusPresented})

	assert.Equal(t, 1, bus.Dropped())
	ev := <-bus.GetChannel()
	assert.Equal(t, events.SequenceStart, ev.Type)

	bus.Close()
	bus.Close()
	assert.NotPanics(t, func() { bus.Emit(events.Event{Type: events.SequenceEnd}) })
	_, ok := <-bus.GetChannel()
	assert.False(t, ok)
}

func TestChannelEventBus_PanicsWithoutLogger(t *testing.T) {
	assert.Panics(t, func() { NewChannelEventBus(0, nil) })
}

func TestMetricsEventListener_CountsEvents(t *testing.T) {
	log := logger.NewDiscardLogger()
	bus := NewChannelEventBus(16, log)
	reg := prometheus.NewRegistry()
	listener := NewMetricsEventListener(bus, reg, log)

	done := make(chan struct{})
	go func() {
		listener.Start(context.Background())
		close(done)
	}()

	bus.Emit(events.Event{Type: events.SuspensionEnded, Index: -1})
	bus.Emit(events.Event{Type: events.SuspensionEnded, Index: -1})
	bus.Emit(events.Event{Type: events.PresentationFailed, Sequence: "flicker", Index: 2})
	bus.Emit(events.Event{Type: events.StimulusPresented, Index: 0})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after Close")
	}

	assert.Equal(t, 2.0, counterValue(t, listener.suspensions))
	assert.Equal(t, 1.0, counterValue(t, listener.presentationFailure.WithLabelValues("flicker")))

	// a second listener on the same registry reuses the collectors
	again := NewMetricsEventListener(NewChannelEventBus(1, log), reg, log)
	require.NotNil(t, again)
	assert.Equal(t, 2.0, counterValue(t, again.suspensions))
}

func TestMetricsEventListener_StopsOnContext(t *testing.T) {
	log := logger.NewDiscardLogger()
	listener := NewMetricsEventListener(NewChannelEventBus(1, log), prometheus.NewRegistry(), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener ignored context cancellation")
	}
}

func counterValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}
