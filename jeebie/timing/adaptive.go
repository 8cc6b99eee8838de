package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	target    time.Duration
	next      time.Time
	started   time.Time
	frames    int64
	now       func() time.Time
	sleep     func(time.Duration)
	logger    *slog.Logger
	maxBehind time.Duration
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	a := &AdaptiveLimiter{
		target:    FrameDuration(),
		now:       time.Now,
		sleep:     time.Sleep,
		logger:    slog.Default(),
		maxBehind: 5 * time.Millisecond,
	}
	a.Reset()
	return a
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := a.now()
	wait := a.next.Sub(now)

	switch {
	case wait >= 2*time.Millisecond:
		a.sleep(wait - time.Millisecond)
		a.spin()
	case wait > 0:
		// busy-wait under 2ms, sleep is too coarse
		a.spin()
	case wait < -a.maxBehind:
		// too far behind to catch up, drop the debt
		a.next = now
	}

	a.next = a.next.Add(a.target)
	a.frames++

	if a.frames%60 == 0 {
		drift := a.now().Sub(a.next)
		if drift.Abs() > 10*time.Millisecond {
			a.next = a.next.Add(drift / 10)
			a.logger.Debug("frame timing drift correction",
				"drift_ms", drift.Milliseconds(),
				"fps", a.FPS())
		}
	}
}

func (a *AdaptiveLimiter) spin() {
	for a.now().Before(a.next) {
	}
}

// FPS is the average rate since the last Reset.
func (a *AdaptiveLimiter) FPS() float64 {
	elapsed := a.now().Sub(a.started)
	if elapsed <= 0 {
		return 0
	}
	return float64(a.frames) / elapsed.Seconds()
}

func (a *AdaptiveLimiter) Reset() {
	a.started = a.now()
	a.next = a.started
	a.frames = 0
}
