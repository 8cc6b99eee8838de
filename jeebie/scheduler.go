package jeebie

// Ticker is a component advanced once per machine cycle.
type Ticker interface {
	Tick()
}

// Scheduler owns the machine cycle counter and the ordered set of components
// advanced on every cycle. The CPU drives it: each bus access or internal
// delay calls tick once before the access completes.
type Scheduler struct {
	cycles  uint64
	tickers []Ticker
}

// Register appends components to the tick order.
func (s *Scheduler) Register(t ...Ticker) {
	s.tickers = append(s.tickers, t...)
}

func (s *Scheduler) tick() {
	for _, t := range s.tickers {
		t.Tick()
	}
	s.cycles++
}

// Cycles returns the number of machine cycles elapsed.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}
