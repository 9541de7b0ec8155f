package timing

import (
	"math"
	"time"
)

// Freq is a display refresh rate.
type Freq float64

// Hz is the unit of Freq.
const Hz Freq = 1

// Period returns the duration of one frame, rounded to the nanosecond.
// It panics on a zero frequency; callers validate the rate first.
func (f Freq) Period() time.Duration {
	if f <= 0 {
		panic("timing: refresh rate must be positive")
	}
	return time.Duration(math.Round(float64(time.Second) / float64(f)))
}

// FramesFor converts seconds to the nearest whole number of frames.
func (f Freq) FramesFor(seconds float64) int {
	return int(math.Round(seconds * float64(f)))
}

// SnapSeconds returns seconds moved to the nearest whole frame boundary,
// rounded to microsecond precision.
//
//	          Input
//	            |
//	|-----------|----|----------|----->
//	                 |
//	                 Output
func (f Freq) SnapSeconds(seconds float64) float64 {
	frames := f.FramesFor(seconds)
	return roundMicro(float64(frames) * (1.0 / float64(f)))
}

// FramesIn returns the number of frames needed to cover d, rounding up.
func (f Freq) FramesIn(d time.Duration) int {
	if d <= 0 || f <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()*float64(f) - 1e-9))
}

// Duration returns how long n frames last.
func (f Freq) Duration(frames int) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(frames) * float64(time.Second) / float64(f)))
}

func roundMicro(seconds float64) float64 {
	return math.Round(seconds*1e6) / 1e6
}
