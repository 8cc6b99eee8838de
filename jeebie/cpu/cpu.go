package cpu

import (
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Bus is the CPU's view of the machine. Tick advances every other component
// by one machine cycle and is called before each memory access, so a value
// written by a device in cycle N is visible to an access in cycle N.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Tick()
}

// Interrupts is the interrupt controller as seen by the dispatcher.
type Interrupts interface {
	Pending() uint8
	Dispatch() (interrupt.Source, bool)
}

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// eiDelay is the number of instruction boundaries between EI and IME being
// set, so the instruction after EI always runs first.
const eiDelay = 2

// UnimplementedOpcodeError is returned when the CPU fetches one of the 11
// opcodes the DMG does not define. The CPU locks up on real hardware, so the
// error is sticky.
type UnimplementedOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("unimplemented opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}

// CPU is the SM83 core. Every memory access and internal delay costs one
// machine cycle, during which the rest of the machine is ticked.
type CPU struct {
	// registers
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	ime     bool
	eiDelay int
	halted  bool
	stopped bool

	// haltBug makes the next opcode fetch skip its PC increment. Set by HALT
	// with IME=0 and an interrupt already pending.
	haltBug bool

	currentOpcode uint16
	currentPC     uint16
	cycles        uint64
	instructions  uint64
	err           error

	bus Bus
	irq Interrupts

	resetDivider func()
	wake         func() bool
}

// New returns a CPU in the state the DMG boot ROM leaves it in.
func New(bus Bus, irq Interrupts) *CPU {
	c := &CPU{bus: bus, irq: irq}
	c.SetPostBoot()
	return c
}

// SetPostBoot loads the register values observed at 0x0100 on a DMG.
func (c *CPU) SetPostBoot() {
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
}

// ResetForBootROM zeroes the registers so execution starts at 0x0000.
func (c *CPU) ResetForBootROM() {
	c.setAF(0)
	c.setBC(0)
	c.setDE(0)
	c.setHL(0)
	c.sp = 0
	c.pc = 0
}

// SetStopHooks wires STOP: resetDivider is called when STOP executes and
// wake is polled while stopped.
func (c *CPU) SetStopHooks(resetDivider func(), wake func() bool) {
	c.resetDivider = resetDivider
	c.wake = wake
}

// Step executes one instruction, services one interrupt, or idles one cycle
// while halted or stopped. It returns the machine cycles consumed.
func (c *CPU) Step() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	start := c.cycles

	if c.stopped {
		if !c.stopWake() {
			c.idle()
			return int(c.cycles - start), nil
		}
		c.stopped = false
	}

	if c.halted {
		if c.irq.Pending() == 0 {
			c.idle()
			return int(c.cycles - start), nil
		}
		c.halted = false
	}

	if c.ime && c.irq.Pending() != 0 {
		c.dispatch()
		return int(c.cycles - start), nil
	}

	pc := c.pc
	opcode := c.read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}

	c.currentPC = pc
	if opcode == 0xCB {
		cb := c.fetch()
		c.currentOpcode = bit.Combine(0xCB, cb)
		opcodesCB[cb].exec(c)
	} else {
		c.currentOpcode = uint16(opcode)
		in := &opcodes[opcode]
		if in.exec == nil {
			c.err = &UnimplementedOpcodeError{Opcode: opcode, PC: pc}
			return int(c.cycles - start), c.err
		}
		in.exec(c)
	}
	c.instructions++

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}
	return int(c.cycles - start), nil
}

func (c *CPU) stopWake() bool {
	if c.irq.Pending()&interrupt.Joypad.Mask() != 0 {
		return true
	}
	return c.wake != nil && c.wake()
}

// dispatch services the highest priority interrupt in 5 machine cycles. The
// vector is chosen after the high byte of PC is pushed, so a push that lands
// on IE can cancel the dispatch, in which case execution continues at 0x0000.
// A pending halt bug is consumed here: the return address is the HALT itself.
func (c *CPU) dispatch() {
	c.ime = false
	c.eiDelay = 0
	c.idle()
	c.idle()

	pc := c.pc
	if c.haltBug {
		c.haltBug = false
		pc--
	}
	c.sp--
	c.write(c.sp, bit.High(pc))

	// the vector is picked after the high byte lands, a push onto IE can
	// cancel the dispatch
	c.pc = 0x0000
	if src, ok := c.irq.Dispatch(); ok {
		c.pc = src.Vector()
	}

	c.sp--
	c.write(c.sp, bit.Low(pc))
	c.idle()
}

// read performs one bus read cycle.
func (c *CPU) read(address uint16) uint8 {
	c.bus.Tick()
	c.cycles++
	return c.bus.Read(address)
}

// write performs one bus write cycle.
func (c *CPU) write(address uint16, value uint8) {
	c.bus.Tick()
	c.cycles++
	c.bus.Write(address, value)
}

// idle is an internal cycle with no bus access.
func (c *CPU) idle() {
	c.bus.Tick()
	c.cycles++
}

// fetch reads the immediate byte at PC and advances PC.
func (c *CPU) fetch() uint8 {
	n := c.read(c.pc)
	c.pc++
	return n
}

// fetchWord reads a little-endian immediate word.
func (c *CPU) fetchWord() uint16 {
	low := c.fetch()
	high := c.fetch()
	return bit.Combine(high, low)
}

func (c *CPU) pushStack(value uint16) {
	c.idle()
	c.sp--
	c.write(c.sp, bit.High(value))
	c.sp--
	c.write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.read(c.sp)
	c.sp++
	high := c.read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= uint8(flag ^ 0xFF)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}
	c.setFlag(flag)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c *CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Registers is a copy of the register file.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Registers returns the current register values.
func (c *CPU) Registers() Registers {
	return Registers{
		A: c.a, F: c.f, B: c.b, C: c.c, D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
	}
}

// SetRegisters overwrites the register file. The low nibble of F is dropped.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.f = r.A, r.F&0xF0
	c.b, c.c, c.d, c.e, c.h, c.l = r.B, r.C, r.D, r.E, r.H, r.L
	c.sp, c.pc = r.SP, r.PC
}

func (c *CPU) PC() uint16        { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }
func (c *CPU) IME() bool         { return c.ime }
func (c *CPU) IsHalted() bool    { return c.halted }
func (c *CPU) IsStopped() bool   { return c.stopped }

// CurrentOpcode returns the last opcode executed, 0xCBxx for prefixed ones.
func (c *CPU) CurrentOpcode() uint16 { return c.currentOpcode }

// CurrentPC is the address the last executed opcode was fetched from.
func (c *CPU) CurrentPC() uint16 { return c.currentPC }

// Instructions counts executed instructions. Interrupt dispatches and
// halted cycles are not included.
func (c *CPU) Instructions() uint64 { return c.instructions }

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if c.isSetFlag(f.flag) {
			flags[i] = f.name
		}
	}
	return string(flags)
}

func (c *CPU) Save(s *state.State) {
	for _, r := range []uint8{c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l} {
		s.Write8(r)
	}
	s.Write16(c.sp)
	s.Write16(c.pc)
	s.WriteBool(c.ime)
	s.WriteInt(c.eiDelay)
	s.WriteBool(c.halted)
	s.WriteBool(c.stopped)
	s.WriteBool(c.haltBug)
	s.Write16(c.currentOpcode)
	s.Write16(c.currentPC)
	s.Write64(c.cycles)
	s.Write64(c.instructions)
}

func (c *CPU) Load(s *state.State) {
	for _, r := range []*uint8{&c.a, &c.f, &c.b, &c.c, &c.d, &c.e, &c.h, &c.l} {
		*r = s.Read8()
	}
	c.f &= 0xF0
	c.sp = s.Read16()
	c.pc = s.Read16()
	c.ime = s.ReadBool()
	c.eiDelay = s.ReadInt()
	c.halted = s.ReadBool()
	c.stopped = s.ReadBool()
	c.haltBug = s.ReadBool()
	c.currentOpcode = s.Read16()
	c.currentPC = s.Read16()
	c.cycles = s.Read64()
	c.instructions = s.Read64()
	c.err = nil
}
