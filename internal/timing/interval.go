package timing

import (
	"fmt"
	"math"
	"time"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
)

// Unit tells how an Interval is measured.
type Unit int

const (
	UnitSeconds Unit = iota
	UnitFrames
)

func (u Unit) String() string {
	if u == UnitFrames {
		return "frames"
	}
	return "seconds"
}

// Interval is how long a stimulus stays visible: either a duration or a
// number of display frames.
type Interval struct {
	Unit     Unit
	Duration time.Duration
	Frames   int
}

// Seconds builds a time interval from seconds, keeping microsecond precision.
func Seconds(s float64) Interval {
	return Interval{Unit: UnitSeconds, Duration: time.Duration(math.Round(s*1e6)) * time.Microsecond}
}

// FrameCount builds a frame interval.
func FrameCount(n int) Interval {
	return Interval{Unit: UnitFrames, Frames: n}
}

func (i Interval) String() string {
	if i.Unit == UnitFrames {
		return fmt.Sprintf("%d frames", i.Frames)
	}
	return i.Duration.String()
}

// Schedule is an immutable, non-empty, cyclic list of intervals.
type Schedule struct {
	intervals []Interval
}

// NewSchedule validates intervals and copies them into a Schedule. All
// intervals must share one unit.
func NewSchedule(intervals []Interval) (Schedule, error) {
	if len(intervals) == 0 {
		return Schedule{}, stimerrors.NewConfigError("stimulus schedule cannot be empty", nil)
	}
	unit := intervals[0].Unit
	for i, iv := range intervals {
		if iv.Unit != unit {
			return Schedule{}, stimerrors.NewConfigError(
				fmt.Sprintf("interval %d is in %s but the schedule is in %s", i, iv.Unit, unit), nil)
		}
		if iv.Duration < 0 || iv.Frames < 0 {
			return Schedule{}, stimerrors.NewValidationError(fmt.Sprintf("interval %d is negative: %s", i, iv), nil)
		}
	}
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	return Schedule{intervals: out}, nil
}

// Len returns the cycle length.
func (s Schedule) Len() int { return len(s.intervals) }

// Unit returns the unit shared by all intervals.
func (s Schedule) Unit() Unit {
	if len(s.intervals) == 0 {
		return UnitSeconds
	}
	return s.intervals[0].Unit
}

// At returns the n-th interval of the endless cycle.
func (s Schedule) At(n int) Interval {
	return s.intervals[n%len(s.intervals)]
}

// Intervals returns a copy of one cycle.
func (s Schedule) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}
