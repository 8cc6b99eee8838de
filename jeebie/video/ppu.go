// Package video implements the DMG picture processing unit: the per-dot
// mode sequencer, the STAT interrupt line, VRAM/OAM access locks and a
// scanline renderer producing palette-mapped shades.
package video

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Mode is the PPU mode as reported in STAT bits 1-0.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMScan
	PixelTransfer
)

var modeNames = [...]string{"hblank", "vblank", "oam", "transfer"}

func (m Mode) String() string {
	return modeNames[m&3]
}

const (
	DotsPerLine   = 456
	LinesPerFrame = 154
	DotsPerFrame  = DotsPerLine * LinesPerFrame

	visibleLines = 144
	oamScanDots  = 80
	transferBase = 172
	transferMax  = 289
	windowDelay  = 6

	// noSource means no mode-based STAT condition is asserted.
	noSource int8 = -1
	// noCompare means the LY==LYC comparator is not being evaluated.
	noCompare = -1
)

// STAT interrupt enable bits.
const (
	statHBlank   = 1 << 3
	statVBlank   = 1 << 4
	statOAM      = 1 << 5
	statLYC      = 1 << 6
	statEnables  = statHBlank | statVBlank | statOAM | statLYC
	lcdcEnabled  = 7
	lcdcWinMap   = 6
	lcdcWindow   = 5
	lcdcTileData = 4
	lcdcBGMap    = 3
	lcdcObjSize  = 2
	lcdcObj      = 1
	lcdcBG       = 0
)

// Requester receives interrupt requests.
type Requester interface {
	Request(interrupt.Source)
}

// PPU advances 4 dots per machine cycle. Lines 0-143 run
// OAMScan -> PixelTransfer -> HBlank, lines 144-153 are VBlank.
type PPU struct {
	vram [0x2000]uint8
	oam  [addr.OAMSize]uint8

	lcdc uint8
	stat uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8

	mode Mode
	line int
	dot  int

	transferEnd int

	// compare is the LY value fed to the LY==LYC comparator this dot, or
	// noCompare.
	compare  int
	lycMatch bool
	lycInt   bool
	// intMode is the mode condition currently driving the STAT line. The OAM
	// condition is only asserted on entry to OAMScan.
	intMode  int8
	statLine bool

	windowTriggered bool
	windowThisLine  bool
	windowLine      int

	sprites     [maxLineSprites]Sprite
	spriteCount int
	priority    SpritePriorityBuffer

	frameReady bool
	fb         *FrameBuffer
	frames     FrameConsumer
	scanlines  ScanlineConsumer
	consumeErr error

	irq Requester
}

// New returns a PPU in its power-on state: LCD off, all memory cleared.
func New(irq Requester) *PPU {
	return &PPU{
		irq:     irq,
		fb:      NewFrameBuffer(),
		compare: noCompare,
		intMode: noSource,
	}
}

// SetPostBoot puts the PPU in the state the boot ROM leaves behind: LCD and
// background on, the default palettes, and line 0 starting its OAM scan.
func (p *PPU) SetPostBoot() {
	p.lcdc = 0x91
	p.bgp = 0xFC
	p.obp0 = 0xFF
	p.obp1 = 0xFF
	p.line, p.ly, p.dot = 0, 0, 0
	p.mode = OAMScan
	p.intMode = noSource
	p.compare = 0
	p.lycMatch = p.lyc == 0
	p.lycInt = p.lycMatch
	p.checkWindowTrigger()
}

// SetFrameConsumer registers c to receive completed frames.
func (p *PPU) SetFrameConsumer(c FrameConsumer) {
	p.frames = c
}

// SetScanlineConsumer registers c to receive each drawn line.
func (p *PPU) SetScanlineConsumer(c ScanlineConsumer) {
	p.scanlines = c
}

func (p *PPU) lcdOn() bool {
	return bit.IsSet(lcdcEnabled, p.lcdc)
}

// Tick advances the PPU by one machine cycle (4 dots). Nothing happens while
// the LCD is off.
func (p *PPU) Tick() {
	if !p.lcdOn() {
		return
	}
	for range 4 {
		p.step()
	}
}

func (p *PPU) step() {
	p.dot++
	if p.dot == DotsPerLine {
		p.dot = 0
		p.nextLine()
	} else {
		switch {
		case p.dot == oamScanDots && p.mode == OAMScan:
			p.startTransfer()
		case p.mode == PixelTransfer && p.dot == p.transferEnd:
			p.finishTransfer()
		case p.line == LinesPerFrame-1 && p.dot == 4:
			p.ly = 0
		}
	}
	p.updateCompare()
	p.updateStat(p.stat)
}

func (p *PPU) nextLine() {
	p.line++
	if p.line == LinesPerFrame {
		p.line = 0
	}
	p.ly = uint8(p.line)

	switch {
	case p.line < visibleLines:
		if p.line == 0 {
			p.windowTriggered = false
			p.windowLine = 0
		}
		p.checkWindowTrigger()
		p.mode = OAMScan
		p.intMode = int8(OAMScan)
		p.updateCompare()
		p.updateStat(p.stat)
		p.intMode = noSource
	case p.line == visibleLines:
		p.mode = VBlank
		p.intMode = int8(VBlank)
		p.irq.Request(interrupt.VBlank)
		// entering VBlank also raises the OAM condition on DMG
		if !p.statLine && p.stat&statOAM != 0 {
			p.irq.Request(interrupt.LCDStat)
		}
		p.frameReady = true
		if p.frames != nil {
			if err := p.frames.ConsumeFrame(p.fb); err != nil && p.consumeErr == nil {
				p.consumeErr = err
			}
		}
	}
}

func (p *PPU) checkWindowTrigger() {
	if p.ly == p.wy {
		p.windowTriggered = true
	}
}

func (p *PPU) startTransfer() {
	p.mode = PixelTransfer
	p.intMode = noSource

	p.spriteCount = 0
	if bit.IsSet(lcdcObj, p.lcdc) {
		p.selectSprites()
	}
	p.windowThisLine = bit.IsSet(lcdcBG, p.lcdc) && bit.IsSet(lcdcWindow, p.lcdc) &&
		p.windowTriggered && p.wx <= 166

	length := transferBase + int(p.scx&7)
	if p.windowThisLine {
		length += windowDelay
	}
	for i := range p.spriteCount {
		length += p.objectPenalty(&p.sprites[i])
	}
	p.transferEnd = oamScanDots + min(length, transferMax)
}

func (p *PPU) finishTransfer() {
	p.renderLine()
	p.mode = HBlank
	p.intMode = int8(HBlank)
	if p.scanlines != nil {
		p.scanlines.ConsumeScanline(p.line, p.fb.Row(p.line))
	}
}

// updateCompare feeds the comparator. It is idle for the first 4 dots of
// every line but 0. Line 153 reports 153 for dots 4-7, nothing for 8-11 and
// 0 from dot 12.
func (p *PPU) updateCompare() {
	switch {
	case p.line == LinesPerFrame-1:
		switch {
		case p.dot < 4:
			p.compare = noCompare
		case p.dot < 8:
			p.compare = LinesPerFrame - 1
		case p.dot < 12:
			p.compare = noCompare
		default:
			p.compare = 0
		}
	case p.line != 0 && p.dot < 4:
		p.compare = noCompare
	default:
		p.compare = p.line
	}

	if p.compare == noCompare {
		p.lycMatch = false
		return
	}
	p.lycMatch = p.compare == int(p.lyc)
	p.lycInt = p.lycMatch
}

// updateStat evaluates the STAT line against the given enable bits and
// requests LCDStat on a rising edge.
func (p *PPU) updateStat(enables uint8) {
	line := p.lycInt && enables&statLYC != 0
	switch p.intMode {
	case int8(HBlank):
		line = line || enables&statHBlank != 0
	case int8(VBlank):
		line = line || enables&statVBlank != 0
	case int8(OAMScan):
		line = line || enables&statOAM != 0
	}
	if line && !p.statLine {
		p.irq.Request(interrupt.LCDStat)
	}
	p.statLine = line
}

func (p *PPU) disable() {
	p.line, p.ly, p.dot = 0, 0, 0
	p.mode = HBlank
	p.intMode = noSource
	p.compare = noCompare
	p.lycInt = false
	p.statLine = false
	p.spriteCount = 0
	p.fb.Clear()
}

// enable restarts the display at the OAM scan of line 0.
func (p *PPU) enable() {
	p.line, p.ly, p.dot = 0, 0, 0
	p.mode = OAMScan
	p.windowTriggered = false
	p.windowLine = 0
	p.checkWindowTrigger()
	p.intMode = int8(OAMScan)
	p.updateCompare()
	p.updateStat(p.stat)
	p.intMode = noSource
}

// Mode returns the current STAT mode.
func (p *PPU) Mode() Mode {
	return p.mode
}

// LY returns the value software reads from the LY register.
func (p *PPU) LY() uint8 {
	return p.ly
}

// Dot returns the position within the current line.
func (p *PPU) Dot() int {
	return p.dot
}

// LCDEnabled reports LCDC bit 7.
func (p *PPU) LCDEnabled() bool {
	return p.lcdOn()
}

// FrameReady reports and clears the frame completion signal.
func (p *PPU) FrameReady() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

// ConsumerErr returns and clears the first error reported by the frame
// consumer.
func (p *PPU) ConsumerErr() error {
	err := p.consumeErr
	p.consumeErr = nil
	return err
}

// Frame returns the frame buffer. Lines are overwritten as they are drawn.
func (p *PPU) Frame() *FrameBuffer {
	return p.fb
}

// VRAMLocked reports whether CPU access to VRAM is blocked.
func (p *PPU) VRAMLocked() bool {
	return p.lcdOn() && p.mode == PixelTransfer
}

// OAMLocked reports whether CPU access to OAM is blocked.
func (p *PPU) OAMLocked() bool {
	return p.lcdOn() && (p.mode == OAMScan || p.mode == PixelTransfer)
}

// Read serves VRAM, OAM and the LCD registers to the CPU, honouring the mode
// locks.
func (p *PPU) Read(address uint16) uint8 {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		if p.VRAMLocked() {
			return 0xFF
		}
		return p.vram[address-addr.VRAMStart]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if p.OAMLocked() {
			return 0xFF
		}
		return p.oam[address-addr.OAMStart]
	}

	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		v := 0x80 | p.stat | uint8(p.mode)
		if p.lycMatch {
			v |= 0x04
		}
		return v
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

// Write is the CPU side of Read.
func (p *PPU) Write(address uint16, value uint8) {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		if !p.VRAMLocked() {
			p.vram[address-addr.VRAMStart] = value
		}
		return
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if !p.OAMLocked() {
			p.oam[address-addr.OAMStart] = value
		}
		return
	}

	switch address {
	case addr.LCDC:
		was := p.lcdOn()
		p.lcdc = value
		switch {
		case was && !p.lcdOn():
			p.disable()
		case !was && p.lcdOn():
			p.enable()
		}
	case addr.STAT:
		if p.lcdOn() {
			// DMG quirk: the write briefly behaves as if every source
			// were enabled
			p.updateStat(statEnables)
		}
		p.stat = value & statEnables
		if p.lcdOn() {
			p.updateStat(p.stat)
		}
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only
	case addr.LYC:
		p.lyc = value
		if p.lcdOn() {
			p.updateCompare()
			p.updateStat(p.stat)
		}
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

// WriteOAM stores a byte transferred by OAM DMA. DMA has priority over the
// PPU's own OAM access so the mode locks do not apply.
func (p *PPU) WriteOAM(index int, value uint8) {
	p.oam[index] = value
}

// Peek reads VRAM, OAM or a register without honouring locks.
func (p *PPU) Peek(address uint16) uint8 {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		return p.vram[address-addr.VRAMStart]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return p.oam[address-addr.OAMStart]
	}
	return p.Read(address)
}

func (p *PPU) Save(s *state.State) {
	s.WriteData(p.vram[:])
	s.WriteData(p.oam[:])
	for _, r := range []uint8{p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc, p.bgp, p.obp0, p.obp1, p.wy, p.wx} {
		s.Write8(r)
	}
	s.Write8(uint8(p.mode))
	s.WriteInt(p.line)
	s.WriteInt(p.dot)
	s.WriteInt(p.transferEnd)
	s.WriteInt(p.compare)
	s.WriteBool(p.lycMatch)
	s.WriteBool(p.lycInt)
	s.Write8(uint8(p.intMode))
	s.WriteBool(p.statLine)
	s.WriteBool(p.windowTriggered)
	s.WriteBool(p.windowThisLine)
	s.WriteInt(p.windowLine)
	s.WriteInt(p.spriteCount)
	for i := range p.spriteCount {
		s.Write8(uint8(p.sprites[i].OAMIndex))
		s.Write8(p.sprites[i].Y)
		s.Write8(p.sprites[i].X)
		s.Write8(p.sprites[i].TileIndex)
		s.Write8(p.sprites[i].Flags)
	}
	s.WriteBool(p.frameReady)
	s.WriteData(p.fb.Bytes())
}

func (p *PPU) Load(s *state.State) {
	s.ReadData(p.vram[:])
	s.ReadData(p.oam[:])
	for _, r := range []*uint8{&p.lcdc, &p.stat, &p.scy, &p.scx, &p.ly, &p.lyc, &p.bgp, &p.obp0, &p.obp1, &p.wy, &p.wx} {
		*r = s.Read8()
	}
	p.mode = Mode(s.Read8() & 3)
	p.line = s.ReadInt()
	p.dot = s.ReadInt()
	p.transferEnd = s.ReadInt()
	p.compare = s.ReadInt()
	p.lycMatch = s.ReadBool()
	p.lycInt = s.ReadBool()
	p.intMode = int8(s.Read8())
	p.statLine = s.ReadBool()
	p.windowTriggered = s.ReadBool()
	p.windowThisLine = s.ReadBool()
	p.windowLine = s.ReadInt()
	p.spriteCount = min(max(s.ReadInt(), 0), maxLineSprites)
	for i := range p.spriteCount {
		sp := Sprite{OAMIndex: int(s.Read8())}
		sp.Y = s.Read8()
		sp.X = s.Read8()
		sp.TileIndex = s.Read8()
		sp.Flags = s.Read8()
		sp.parseFlags()
		p.sprites[i] = sp
	}
	p.frameReady = s.ReadBool()
	s.ReadData(p.fb.Bytes())
}
