package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of painter spans.
const TracerName = "stimkit-engine"

// Attribute keys set on sequence spans and presentation events.
const (
	AttrSequence      = attribute.Key("stimkit.sequence")
	AttrStimulusIndex = attribute.Key("stimkit.stimulus.index")
	AttrIntervalUnit  = attribute.Key("stimkit.interval.unit")
	AttrFixedCadence  = attribute.Key("stimkit.wait.fixed_cadence")
	AttrSuspendable   = attribute.Key("stimkit.suspendable")
	AttrPresentations = attribute.Key("stimkit.presentations")
	AttrIntended      = attribute.Key("stimkit.onset.intended_ms")
	AttrActual        = attribute.Key("stimkit.onset.actual_ms")
)

// GetTracer returns a tracer from the global provider. Prefer an injected
// TracerProvider; this is for code paths that have none.
func GetTracer() oteltrace.Tracer {
	return otel.Tracer(TracerName)
}

// RecordError marks span as failed with err. It does nothing for a nil
// error or a span that is not recording.
func RecordError(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
