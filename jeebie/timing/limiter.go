// Package timing paces a frontend to the DMG refresh rate.
package timing

import (
	"fmt"
	"time"

	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}

// ClockHz is the DMG dot clock.
const ClockHz = 4194304

// TargetFPS is the DMG refresh rate, about 59.73 Hz.
func TargetFPS() float64 {
	return float64(ClockHz) / float64(video.DotsPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// Pacing names a limiter implementation.
type Pacing string

const (
	PacingAdaptive Pacing = "adaptive"
	PacingTicker   Pacing = "ticker"
	PacingNone     Pacing = "none"
)

// New returns the limiter for p.
func New(p Pacing) (Limiter, error) {
	switch p {
	case PacingAdaptive, "":
		return NewAdaptiveLimiter(), nil
	case PacingTicker:
		return NewTickerLimiter(), nil
	case PacingNone:
		return NewNoOpLimiter(), nil
	}
	return nil, fmt.Errorf("unknown pacing %q", p)
}
