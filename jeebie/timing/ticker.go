package timing

import "time"

// tickSource starts a periodic tick and returns its channel with a stop
// function. time.NewTicker in production.
type tickSource func(d time.Duration) (<-chan time.Time, func())

func stdTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// TickerLimiter paces frames on a periodic ticker. It never sleeps by itself
// so it cannot oversleep, but a slow frame only catches up one tick at a
// time because the ticker drops the ticks it could not deliver.
type TickerLimiter struct {
	period time.Duration
	source tickSource

	ticks <-chan time.Time
	stop  func()
	late  uint64
}

// NewTickerLimiter paces to FrameDuration. The ticker starts on the first
// WaitForNextFrame.
func NewTickerLimiter() *TickerLimiter {
	return newTickerLimiter(FrameDuration(), stdTicker)
}

func newTickerLimiter(period time.Duration, source tickSource) *TickerLimiter {
	return &TickerLimiter{period: period, source: source}
}

func (t *TickerLimiter) WaitForNextFrame() {
	if t.ticks == nil {
		t.ticks, t.stop = t.source(t.period)
	}
	select {
	case <-t.ticks:
		// a tick was already waiting: the frame overran its slot
		t.late++
	default:
		<-t.ticks
	}
}

// Late is the number of frames that found their tick already due.
func (t *TickerLimiter) Late() uint64 { return t.late }

// Reset drops the running ticker; the next wait starts a fresh one so a
// pause is not paid back with a burst of frames.
func (t *TickerLimiter) Reset() {
	t.Stop()
	t.late = 0
}

// Stop releases the ticker. It is safe to call more than once.
func (t *TickerLimiter) Stop() {
	if t.stop != nil {
		t.stop()
	}
	t.ticks, t.stop = nil, nil
}
