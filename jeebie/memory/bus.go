// Package memory is the system bus: it decodes every CPU address to its
// owner through a page table, arbitrates OAM DMA, and keeps the work and
// high RAM.
package memory

import (
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

type memRegion uint8

const (
	regionCart memRegion = iota
	regionVRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// Device is anything mapped on the bus.
type Device interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Video is the PPU as seen from the bus: VRAM, OAM and its registers, plus
// the DMA write port into OAM.
type Video interface {
	Device
	WriteOAM(index int, value uint8)
	Peek(address uint16) uint8
}

// BootROMSize is the size of the DMG boot ROM overlay.
const BootROMSize = 0x100

// Bus routes CPU reads and writes by address.
type Bus struct {
	regionMap [256]memRegion
	io        [0x80]Device

	cart Device
	ppu  Video
	ie   Device

	wram [0x2000]uint8
	hram [0x7F]uint8

	boot        []uint8
	bootEnabled bool

	dma DMA
}

// New returns a bus with the cartridge, the PPU and the interrupt enable
// register mapped. I/O devices are attached with MapIO.
func New(cart Device, ppu Video, ie Device) *Bus {
	b := &Bus{cart: cart, ppu: ppu, ie: ie}
	initRegionMap(b)
	return b
}

func initRegionMap(b *Bus) {
	for i := 0x00; i <= 0xFF; i++ {
		switch {
		case i <= 0x7F, i >= 0xA0 && i <= 0xBF:
			b.regionMap[i] = regionCart
		case i <= 0x9F:
			b.regionMap[i] = regionVRAM
		case i <= 0xDF:
			b.regionMap[i] = regionWRAM
		case i <= 0xFD:
			b.regionMap[i] = regionEcho
		case i == 0xFE:
			b.regionMap[i] = regionOAM
		default:
			b.regionMap[i] = regionIO
		}
	}
}

// MapIO attaches dev to every register in [from, to]. Mapping outside
// 0xFF00-0xFF7F is a programming error.
func (b *Bus) MapIO(from, to uint16, dev Device) {
	if from < addr.IOStart || to >= addr.HRAMStart || from > to {
		panic(fmt.Sprintf("invalid I/O mapping 0x%04X-0x%04X", from, to))
	}
	for a := from; a <= to; a++ {
		b.io[a-addr.IOStart] = dev
	}
}

// SetBootROM overlays data on 0x0000-0x00FF until 0xFF50 is written.
func (b *Bus) SetBootROM(data []uint8) {
	b.boot = data
	b.bootEnabled = len(data) == BootROMSize
}

// BootROMEnabled reports whether the overlay is still mapped.
func (b *Bus) BootROMEnabled() bool {
	return b.bootEnabled
}

func (b *Bus) Read(address uint16) uint8 {
	if b.regionMap[address>>8] == regionOAM && address < addr.UnusableStart && b.dma.Active() {
		return b.dma.last
	}
	return b.read(address, false)
}

// Peek reads like the CPU would but without DMA interception, PPU locks or
// any other side effect.
func (b *Bus) Peek(address uint16) uint8 {
	return b.read(address, true)
}

func (b *Bus) read(address uint16, peek bool) uint8 {
	switch b.regionMap[address>>8] {
	case regionCart:
		if b.bootEnabled && address < BootROMSize {
			return b.boot[address]
		}
		return b.cart.Read(address)
	case regionVRAM:
		if peek {
			return b.ppu.Peek(address)
		}
		return b.ppu.Read(address)
	case regionWRAM:
		return b.wram[address-addr.WRAMStart]
	case regionEcho:
		return b.wram[address-addr.EchoStart]
	case regionOAM:
		if address >= addr.UnusableStart {
			return 0xFF
		}
		if peek {
			return b.ppu.Peek(address)
		}
		return b.ppu.Read(address)
	}

	switch {
	case address == addr.IE:
		return b.ie.Read(address)
	case address >= addr.HRAMStart:
		return b.hram[address-addr.HRAMStart]
	case address == addr.DMA:
		return b.dma.reg
	case address == addr.BootOff:
		return 0xFF
	}
	if dev := b.io[address-addr.IOStart]; dev != nil {
		return dev.Read(address)
	}
	return 0xFF
}

func (b *Bus) Write(address uint16, value uint8) {
	switch b.regionMap[address>>8] {
	case regionCart:
		b.cart.Write(address, value)
		return
	case regionVRAM:
		b.ppu.Write(address, value)
		return
	case regionWRAM:
		b.wram[address-addr.WRAMStart] = value
		return
	case regionEcho:
		b.wram[address-addr.EchoStart] = value
		return
	case regionOAM:
		if address < addr.UnusableStart && !b.dma.Active() {
			b.ppu.Write(address, value)
		}
		return
	}

	switch {
	case address == addr.IE:
		b.ie.Write(address, value)
	case address >= addr.HRAMStart:
		b.hram[address-addr.HRAMStart] = value
	case address == addr.DMA:
		b.dma.start(value)
	case address == addr.BootOff:
		if value != 0 {
			b.bootEnabled = false
		}
	default:
		if dev := b.io[address-addr.IOStart]; dev != nil {
			dev.Write(address, value)
		}
	}
}

// Tick advances the OAM DMA engine by one machine cycle.
func (b *Bus) Tick() {
	b.dma.tick(b)
}

// DMA exposes the transfer state for inspection.
func (b *Bus) DMA() *DMA {
	return &b.dma
}

func (b *Bus) Save(s *state.State) {
	s.WriteData(b.wram[:])
	s.WriteData(b.hram[:])
	s.WriteBool(b.bootEnabled)
	b.dma.Save(s)
}

func (b *Bus) Load(s *state.State) {
	s.ReadData(b.wram[:])
	s.ReadData(b.hram[:])
	b.bootEnabled = s.ReadBool() && len(b.boot) == BootROMSize
	b.dma.Load(s)
}
