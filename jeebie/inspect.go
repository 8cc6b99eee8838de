package jeebie

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/cartridge"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// Snapshot is a point-in-time copy of the observable machine state.
type Snapshot struct {
	Registers    cpu.Registers
	IME          bool
	Halted       bool
	Stopped      bool
	Cycles       uint64
	Instructions uint64
	Frames       uint64

	IF uint8
	IE uint8

	LY       uint8
	Mode     video.Mode
	Dot      int
	LCDOn    bool
	DIV      uint8
	TIMA     uint8
	TMA      uint8
	TAC      uint8
	DMA      bool
	BootROM  bool
	Opcode   uint16
	OpcodePC uint16
}

// Snapshot captures registers and timing state without side effects.
func (d *DMG) Snapshot() Snapshot {
	return Snapshot{
		Registers:    d.cpu.Registers(),
		IME:          d.cpu.IME(),
		Halted:       d.cpu.IsHalted(),
		Stopped:      d.cpu.IsStopped(),
		Cycles:       d.sched.cycles,
		Instructions: d.cpu.Instructions(),
		Frames:       d.frames,
		IF:           d.irq.Read(addr.IF),
		IE:           d.irq.Read(addr.IE),
		LY:           d.ppu.LY(),
		Mode:         d.ppu.Mode(),
		Dot:          d.ppu.Dot(),
		LCDOn:        d.ppu.LCDEnabled(),
		DIV:          d.timer.Read(addr.DIV),
		TIMA:         d.timer.Read(addr.TIMA),
		TMA:          d.timer.Read(addr.TMA),
		TAC:          d.timer.Read(addr.TAC),
		DMA:          d.bus.DMA().Active(),
		BootROM:      d.bus.BootROMEnabled(),
		Opcode:       d.cpu.CurrentOpcode(),
		OpcodePC:     d.cpu.CurrentPC(),
	}
}

// Peek reads memory without side effects, ignoring PPU locks and DMA.
func (d *DMG) Peek(address uint16) uint8 {
	return d.bus.Peek(address)
}

// SerialOutput returns every byte sent over the serial port so far.
func (d *DMG) SerialOutput() []byte {
	return d.serial.Output()
}

// Frame returns the PPU frame buffer.
func (d *DMG) Frame() *video.FrameBuffer {
	return d.ppu.Frame()
}

// Header returns the decoded cartridge header.
func (d *DMG) Header() cartridge.Header {
	return d.cart.Header
}

// OAM decodes the object table as seen on the current line.
func (d *DMG) OAM() *debug.OAMData {
	height := 8
	if d.bus.Peek(addr.LCDC)&0x04 != 0 {
		height = 16
	}
	return debug.ExtractOAMData(d.bus, int(d.ppu.LY()), height)
}

// SetBreakpoint installs fn, called after every executed instruction with
// its opcode (0xCB for prefixed ones) and address. When fn returns true,
// Step returns ErrBreakpoint. A nil fn removes the hook.
func (d *DMG) SetBreakpoint(fn func(opcode uint8, pc uint16) bool) {
	d.breakpoint = fn
}

// SetScanlineConsumer registers c to receive each line as it is drawn.
func (d *DMG) SetScanlineConsumer(c video.ScanlineConsumer) {
	d.ppu.SetScanlineConsumer(c)
}
