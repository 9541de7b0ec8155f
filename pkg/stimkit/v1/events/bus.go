package events

import "time"

// EventType represents the type of a painter event.
type EventType string

const (
	SequenceStart      EventType = "SequenceStart"
	SequenceEnd        EventType = "SequenceEnd"
	StimulusPresented  EventType = "StimulusPresented"
	WaitCompleted      EventType = "WaitCompleted"
	LateWakeup         EventType = "LateWakeup"         // target time had already passed
	TimingInterrupted  EventType = "TimingInterrupted"  // sleep returned an error
	SuspensionEnded    EventType = "SuspensionEnded"    // flag released after blocking
	PresentationFailed EventType = "PresentationFailed" // renderer returned an error
)

// Event is a notable occurrence during a sequence run.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	// Sequence names the sequence the event belongs to, if it has a name.
	Sequence string `json:"sequence,omitempty"`
	// Index is the zero-based stimulus index, or -1 when not applicable.
	Index   int                    `json:"index"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus publishes events. Emit must not block the painter: it runs on the
// presentation goroutine between timed waits.
type Bus interface {
	Emit(event Event)
}
