package cartridge

import (
	"time"

	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Clock is the time source of the MBC3 real time clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// RTC register selects, as written to 0x4000-0x5FFF.
const (
	rtcSeconds  = 0x08
	rtcMinutes  = 0x09
	rtcHours    = 0x0A
	rtcDaysLow  = 0x0B
	rtcDaysHigh = 0x0C
)

const (
	dhDayBit8 = 1 << 0
	dhHalt    = 1 << 6
	dhCarry   = 1 << 7
)

// rtc counts whole seconds of clock time into its live registers. The CPU
// reads a latched copy, refreshed by writing 0 then 1 to 0x6000-0x7FFF.
type rtc struct {
	clock Clock
	// last is the clock time already folded into the live registers.
	last time.Time

	seconds, minutes, hours uint8
	days                    uint16
	halted, carry           bool

	latched   [5]uint8
	prepLatch bool
}

func newRTC(clock Clock) *rtc {
	return &rtc{clock: clock, last: clock.Now()}
}

func (r *rtc) setClock(clock Clock) {
	r.clock = clock
	r.last = clock.Now()
}

// sync folds the time elapsed since the last sync into the live registers.
func (r *rtc) sync() {
	now := r.clock.Now()
	if r.halted || !now.After(r.last) {
		r.last = now
		return
	}
	elapsed := now.Sub(r.last).Truncate(time.Second)
	r.last = r.last.Add(elapsed)
	r.advance(uint64(elapsed / time.Second))
}

func (r *rtc) advance(n uint64) {
	if n == 0 {
		return
	}
	total := n + uint64(r.seconds) + 60*uint64(r.minutes) + 3600*uint64(r.hours)
	r.seconds = uint8(total % 60)
	total /= 60
	r.minutes = uint8(total % 60)
	total /= 60
	r.hours = uint8(total % 24)
	days := uint64(r.days) + total/24
	if days > 0x1FF {
		r.carry = true
		days &= 0x1FF
	}
	r.days = uint16(days)
}

func (r *rtc) daysHigh() uint8 {
	v := uint8(r.days>>8) & dhDayBit8
	if r.halted {
		v |= dhHalt
	}
	if r.carry {
		v |= dhCarry
	}
	return v
}

func (r *rtc) writeLatch(value uint8) {
	if value == 0x00 {
		r.prepLatch = true
		return
	}
	if value == 0x01 && r.prepLatch {
		r.sync()
		r.latched = r.live()
	}
	r.prepLatch = false
}

func (r *rtc) read(reg uint8) uint8 {
	return r.latched[reg-rtcSeconds]
}

// write sets a live register; the latched copy follows so the value reads
// back without a new latch.
func (r *rtc) write(reg uint8, value uint8) {
	r.sync()
	switch reg {
	case rtcSeconds:
		r.seconds = value & 0x3F
		// the sub-second divider restarts
		r.last = r.clock.Now()
	case rtcMinutes:
		r.minutes = value & 0x3F
	case rtcHours:
		r.hours = value & 0x1F
	case rtcDaysLow:
		r.days = r.days&0x100 | uint16(value)
	case rtcDaysHigh:
		r.days = r.days&0xFF | uint16(value&dhDayBit8)<<8
		r.halted = value&dhHalt != 0
		r.carry = value&dhCarry != 0
	}
	r.latched[reg-rtcSeconds] = r.live()[reg-rtcSeconds]
}

func (r *rtc) live() [5]uint8 {
	return [5]uint8{r.seconds, r.minutes, r.hours, uint8(r.days), r.daysHigh()}
}

func (r *rtc) save(s *state.State) {
	s.Write64(uint64(r.last.UnixNano()))
	s.Write8(r.seconds)
	s.Write8(r.minutes)
	s.Write8(r.hours)
	s.Write16(r.days)
	s.WriteBool(r.halted)
	s.WriteBool(r.carry)
	s.WriteData(r.latched[:])
	s.WriteBool(r.prepLatch)
}

func (r *rtc) load(s *state.State) {
	r.last = time.Unix(0, int64(s.Read64()))
	r.seconds = s.Read8()
	r.minutes = s.Read8()
	r.hours = s.Read8()
	r.days = s.Read16()
	r.halted = s.ReadBool()
	r.carry = s.ReadBool()
	s.ReadData(r.latched[:])
	r.prepLatch = s.ReadBool()
}
