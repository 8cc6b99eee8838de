package jeebie

import (
	"bytes"
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/state"
)

var stateMagic = []byte("JEEBIE\x00\x02")

func (d *DMG) components() []state.Stater {
	return []state.Stater{d.cpu, d.irq, d.timer, d.ppu, d.bus, d.cart, d.joypad, d.serial, d.apu}
}

// SaveState serialises every timing-relevant field of the machine. The
// buffer is only meaningful to LoadState of the same build.
func (d *DMG) SaveState() []byte {
	s := state.New()
	s.WriteData(stateMagic)
	s.Write64(d.sched.cycles)
	s.Write64(d.frames)
	for _, c := range d.components() {
		c.Save(s)
	}
	return s.Bytes()
}

// LoadState restores a buffer produced by SaveState. The machine must have
// been built from the same program. A fatal CPU error is cleared.
func (d *DMG) LoadState(data []byte) error {
	s := state.FromBytes(data)
	magic := make([]byte, len(stateMagic))
	s.ReadData(magic)
	if s.Err() != nil || !bytes.Equal(magic, stateMagic) {
		return fmt.Errorf("%w: bad header", ErrBadState)
	}

	// components load in place, keep the current state to undo a bad buffer
	restored := d.SaveState()
	cycles := s.Read64()
	frames := s.Read64()
	for _, c := range d.components() {
		c.Load(s)
	}
	err := s.Err()
	if err == nil && s.Remaining() != 0 {
		err = fmt.Errorf("%d trailing bytes", s.Remaining())
	}
	if err != nil {
		return d.rollback(restored, err)
	}

	d.sched.cycles = cycles
	d.frames = frames
	d.err = nil
	return nil
}

func (d *DMG) rollback(previous []byte, cause error) error {
	s := state.FromBytes(previous)
	s.ReadData(make([]byte, len(stateMagic)))
	s.Read64()
	s.Read64()
	for _, c := range d.components() {
		c.Load(s)
	}
	return fmt.Errorf("%w: %v", ErrBadState, cause)
}
