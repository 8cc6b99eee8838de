// Package audio implements the DMG sound register file. No waveforms are
// synthesised: the APU keeps the registers, the power switch, the frame
// sequencer and the length counters so that software polling NR52 sees the
// same channel status as on hardware.
package audio

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// sequencerCycles is the frame sequencer period (512 Hz) in machine cycles.
const sequencerCycles = 2048

// readMasks holds the bits that always read as 1 for FF10-FF2F.
var readMasks = [0x20]byte{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // FF27-FF2F
}

// channel describes where each channel keeps its registers.
type channel struct {
	lengthReg  uint16
	dacReg     uint16
	controlReg uint16
	lengthMax  int
	lengthMask byte
	dacMask    byte
}

var channels = [4]channel{
	{addr.NR11, addr.NR12, addr.NR14, 64, 0x3F, 0xF8},
	{addr.NR21, addr.NR22, addr.NR24, 64, 0x3F, 0xF8},
	{addr.NR31, addr.NR30, addr.NR34, 256, 0xFF, 0x80},
	{addr.NR41, addr.NR42, addr.NR44, 64, 0x3F, 0xF8},
}

// APU is the audio register file collaborator.
type APU struct {
	registers [0x30]byte
	powered   bool

	enabled [4]bool
	length  [4]int

	cycles int
	step   int
}

// New returns an APU in the DMG post-boot state.
func New() *APU {
	a := &APU{}
	a.Reset()
	return a
}

// Reset loads the post-boot register values.
func (a *APU) Reset() {
	a.registers = [0x30]byte{}
	a.powered = true
	a.set(addr.NR10, 0x80)
	a.set(addr.NR11, 0xBF)
	a.set(addr.NR12, 0xF3)
	a.set(addr.NR14, 0xBF)
	a.set(addr.NR21, 0x3F)
	a.set(addr.NR24, 0xBF)
	a.set(addr.NR30, 0x7F)
	a.set(addr.NR31, 0xFF)
	a.set(addr.NR32, 0x9F)
	a.set(addr.NR34, 0xBF)
	a.set(addr.NR41, 0xFF)
	a.set(addr.NR44, 0xBF)
	a.set(addr.NR50, 0x77)
	a.set(addr.NR51, 0xF3)
	a.enabled = [4]bool{true, false, false, false}
	a.length = [4]int{}
	a.cycles, a.step = 0, 0
}

func (a *APU) get(address uint16) byte { return a.registers[address-addr.AudioStart] }

func (a *APU) set(address uint16, v byte) { a.registers[address-addr.AudioStart] = v }

// Tick advances the frame sequencer by one machine cycle. Length counters
// are clocked on even sequencer steps (256 Hz).
func (a *APU) Tick() {
	if !a.powered {
		return
	}
	a.cycles++
	if a.cycles < sequencerCycles {
		return
	}
	a.cycles = 0
	if a.step%2 == 0 {
		a.clockLength()
	}
	a.step = (a.step + 1) % 8
}

func (a *APU) clockLength() {
	for i, ch := range channels {
		if !bit.IsSet(6, a.get(ch.controlReg)) || a.length[i] == 0 {
			continue
		}
		a.length[i]--
		if a.length[i] == 0 {
			a.enabled[i] = false
		}
	}
}

func (a *APU) Read(address uint16) byte {
	switch {
	case address == addr.NR52:
		status := byte(0x70)
		if a.powered {
			status |= 0x80
		}
		for i, on := range a.enabled {
			if on {
				status |= 1 << i
			}
		}
		return status
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		return a.get(address)
	case address >= addr.AudioStart && address < addr.WaveRAMStart:
		return a.get(address) | readMasks[address-addr.AudioStart]
	}
	return 0xFF
}

func (a *APU) Write(address uint16, value byte) {
	switch {
	case address == addr.NR52:
		a.setPower(bit.IsSet(7, value))
		return
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		a.set(address, value)
		return
	case address < addr.AudioStart || address >= addr.WaveRAMStart:
		return
	}

	if !a.powered {
		return
	}
	a.set(address, value)

	for i, ch := range channels {
		switch address {
		case ch.lengthReg:
			a.length[i] = ch.lengthMax - int(value&ch.lengthMask)
		case ch.dacReg:
			if value&ch.dacMask == 0 {
				a.enabled[i] = false
			}
		case ch.controlReg:
			if bit.IsSet(7, value) {
				a.trigger(i)
			}
		}
	}
}

func (a *APU) trigger(i int) {
	ch := channels[i]
	if a.length[i] == 0 {
		a.length[i] = ch.lengthMax
	}
	a.enabled[i] = a.get(ch.dacReg)&ch.dacMask != 0
}

func (a *APU) setPower(on bool) {
	if on == a.powered {
		return
	}
	a.powered = on
	if on {
		a.step = 0
		a.cycles = 0
		return
	}
	for address := addr.AudioStart; address < addr.NR52; address++ {
		a.set(address, 0)
	}
	a.enabled = [4]bool{}
}

// ChannelEnabled reports the NR52 status bit of channel i (0-3).
func (a *APU) ChannelEnabled(i int) bool {
	return a.enabled[i]
}

func (a *APU) Save(s *state.State) {
	s.WriteData(a.registers[:])
	s.WriteBool(a.powered)
	for i := range a.enabled {
		s.WriteBool(a.enabled[i])
		s.WriteInt(a.length[i])
	}
	s.WriteInt(a.cycles)
	s.WriteInt(a.step)
}

func (a *APU) Load(s *state.State) {
	s.ReadData(a.registers[:])
	a.powered = s.ReadBool()
	for i := range a.enabled {
		a.enabled[i] = s.ReadBool()
		a.length[i] = s.ReadInt()
	}
	a.cycles = s.ReadInt()
	a.step = s.ReadInt()
}
