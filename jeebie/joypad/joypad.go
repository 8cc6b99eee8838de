package joypad

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Key represents a key on the Gameboy joypad
type Key uint8

const (
	Right Key = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

var keyNames = [...]string{"right", "left", "up", "down", "a", "b", "select", "start"}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "unknown"
}

// Requester receives interrupt requests.
type Requester interface {
	Request(interrupt.Source)
}

// Joypad models the P1 register.
//
// In real hw, P1 is just a selector (bits 4-5) that controls which set of
// buttons the low bits (0-3) are mapped to:
//   - if bit 4 is clear, bits 0-3 are mapped to the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 are mapped to A, B, Select, Start
//   - if both are clear, the two sets are ANDed
//   - if neither is clear, the lines float high (0x0F)
//
// Note that 1 -> released, 0 -> pressed. Bits 6-7 always read as 1.
type Joypad struct {
	selection uint8
	buttons   uint8
	dpad      uint8

	irq Requester
}

// New returns a joypad with nothing pressed and no group selected.
func New(irq Requester) *Joypad {
	return &Joypad{
		selection: 0x30,
		buttons:   0x0F,
		dpad:      0x0F,
		irq:       irq,
	}
}

// Lines returns the current state of the 4 input lines for the selected groups.
func (j *Joypad) Lines() uint8 {
	lines := uint8(0x0F)
	if !bit.IsSet(4, j.selection) {
		lines &= j.dpad
	}
	if !bit.IsSet(5, j.selection) {
		lines &= j.buttons
	}
	return lines
}

// Low reports whether any selected input line is held low. STOP uses this
// as its wake condition.
func (j *Joypad) Low() bool {
	return j.Lines() != 0x0F
}

func (j *Joypad) Read(address uint16) byte {
	if address != addr.P1 {
		return 0xFF
	}
	return 0xC0 | j.selection | j.Lines()
}

func (j *Joypad) Write(address uint16, value byte) {
	if address != addr.P1 {
		return
	}
	j.update(func() { j.selection = value & 0x30 })
}

// Press marks k as held down.
func (j *Joypad) Press(k Key) {
	j.update(func() { j.set(k, false) })
}

// Release marks k as released.
func (j *Joypad) Release(k Key) {
	j.update(func() { j.set(k, true) })
}

func (j *Joypad) set(k Key, released bool) {
	if k < A {
		j.dpad = bit.SetTo(uint8(k), j.dpad, released)
		return
	}
	j.buttons = bit.SetTo(uint8(k-A), j.buttons, released)
}

// update applies change and requests the joypad interrupt when any visible
// line goes from high to low.
func (j *Joypad) update(change func()) {
	before := j.Lines()
	change()
	if before&^j.Lines() != 0 {
		j.irq.Request(interrupt.Joypad)
	}
}

func (j *Joypad) Save(s *state.State) {
	s.Write8(j.selection)
	s.Write8(j.buttons)
	s.Write8(j.dpad)
}

func (j *Joypad) Load(s *state.State) {
	j.selection = s.Read8()
	j.buttons = s.Read8()
	j.dpad = s.Read8()
}
