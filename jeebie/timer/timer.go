package timer

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// tacBits maps TAC input clock select (bits 1–0) to the bit of the 16-bit
// system counter feeding the TIMA edge detector.
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacBits = [4]uint8{9, 3, 5, 7}

// overflowDelay is the number of clock ticks TIMA reads 0x00 after an
// overflow before TMA is loaded.
const overflowDelay = 4

// PostBootCounter is the DMG system counter value when the boot ROM hands
// over control at 0x0100 (DIV reads 0xAB).
const PostBootCounter uint16 = 0xABCC

// Requester receives interrupt requests.
type Requester interface {
	Request(interrupt.Source)
}

// Timer is the DIV/TIMA/TMA/TAC block. TIMA increments on the falling edge of
// (TAC enable AND selected counter bit), so writes to DIV or TAC can produce
// spurious increments.
type Timer struct {
	counter uint16

	tima byte
	tma  byte
	tac  byte

	// overflow counts down the clock ticks left before the reload.
	overflow int
	// reloading is set for the machine cycle in which TIMA was reloaded.
	reloading bool

	irq Requester
}

// New returns a timer wired to irq, with the system counter at zero.
func New(irq Requester) *Timer {
	return &Timer{irq: irq}
}

// Reset sets the system counter without edge detection and clears all
// registers and pending reloads.
func (t *Timer) Reset(counter uint16) {
	t.counter = counter
	t.tima, t.tma, t.tac = 0, 0, 0
	t.overflow = 0
	t.reloading = false
}

// Counter exposes the full 16-bit system counter.
func (t *Timer) Counter() uint16 { return t.counter }

// Tick advances the timer by one machine cycle (4 clock ticks).
func (t *Timer) Tick() {
	t.reloading = false
	for range 4 {
		t.step()
	}
}

func (t *Timer) step() {
	if t.overflow > 0 {
		t.overflow--
		if t.overflow == 0 {
			t.tima = t.tma
			t.reloading = true
			t.irq.Request(interrupt.Timer)
		}
	}
	t.setCounter(t.counter + 1)
}

func (t *Timer) input() bool {
	return bit.IsSet(2, t.tac) && bit.IsSet16(tacBits[t.tac&0x03], t.counter)
}

func (t *Timer) setCounter(value uint16) {
	before := t.input()
	t.counter = value
	if before && !t.input() {
		t.increment()
	}
}

func (t *Timer) increment() {
	if t.tima == 0xFF {
		t.tima = 0
		t.overflow = overflowDelay
		return
	}
	t.tima++
}

// ResetDivider clears the system counter as a DIV write does. STOP uses it too.
func (t *Timer) ResetDivider() {
	t.setCounter(0)
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return bit.High(t.counter)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.ResetDivider()
	case addr.TIMA:
		// the reload wins over a write in the same cycle
		if t.reloading {
			return
		}
		t.tima = value
		t.overflow = 0
	case addr.TMA:
		t.tma = value
		if t.reloading {
			t.tima = value
		}
	case addr.TAC:
		before := t.input()
		t.tac = value & 0x07
		if before && !t.input() {
			t.increment()
		}
	}
}

// OverflowPending reports whether TIMA overflowed and the reload has not
// happened yet.
func (t *Timer) OverflowPending() bool { return t.overflow > 0 }

func (t *Timer) Save(s *state.State) {
	s.Write16(t.counter)
	s.Write8(t.tima)
	s.Write8(t.tma)
	s.Write8(t.tac)
	s.WriteInt(t.overflow)
	s.WriteBool(t.reloading)
}

func (t *Timer) Load(s *state.State) {
	t.counter = s.Read16()
	t.tima = s.Read8()
	t.tma = s.Read8()
	t.tac = s.Read8()
	t.overflow = s.ReadInt()
	t.reloading = s.ReadBool()
}
