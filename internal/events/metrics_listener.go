package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	intMetrics "github.com/stimkit/stimkit/internal/metrics"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// MetricsEventListener consumes a ChannelEventBus and updates the counters
// that are derived from events rather than maintained by the painter itself.
type MetricsEventListener struct {
	bus                 *ChannelEventBus
	log                 stimlog.Logger
	suspensions         prometheus.Counter
	presentationFailure *prometheus.CounterVec
}

// NewMetricsEventListener creates the listener and registers its collectors
// on reg. Collectors that are already registered are reused.
func NewMetricsEventListener(bus *ChannelEventBus, reg prometheus.Registerer, log stimlog.Logger) *MetricsEventListener {
	if bus == nil || reg == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Registerer and Logger")
	}
	l := &MetricsEventListener{
		bus: bus,
		log: log.With("component", "MetricsEventListener"),
	}
	l.suspensions = intMetrics.RegisterOrReuse(reg, l.log, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stimkit_suspensions_total",
		Help: "Number of times a sequence blocked on a suspended flag.",
	}))
	l.presentationFailure = intMetrics.RegisterOrReuse(reg, l.log, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stimkit_presentation_failures_total",
		Help: "Renderer failures that aborted a sequence, by sequence name.",
	}, []string{"sequence"}))
	return l
}

// Start consumes events until the bus is closed or ctx is done.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.SuspensionEnded:
		l.suspensions.Inc()
	case events.PresentationFailed:
		l.presentationFailure.WithLabelValues(event.Sequence).Inc()
	}
}
