package engine

// State is the position of a painter in its run loop.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StatePresenting
	StateWaiting
	// StateDraining performs the final wait after the last stimulus.
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePresenting:
		return "presenting"
	case StateWaiting:
		return "waiting"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Run outcomes, used as report status and metric label.
const (
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)
