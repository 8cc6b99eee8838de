package memory

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// DMA copies 160 bytes from source<<8 into OAM, one byte per machine cycle,
// after a one cycle start delay. While a transfer runs the CPU reads the
// byte last copied from OAM and its writes are dropped.
//
// A write to 0xFF46 while a transfer is running restarts it: the old
// transfer keeps going through the delay cycle so OAM stays blocked.
type DMA struct {
	reg uint8

	active bool
	source uint16
	index  int
	last   uint8

	pending bool
	next    uint16
	delay   int
}

const dmaStartDelay = 1

func (d *DMA) start(value uint8) {
	d.reg = value
	d.next = uint16(value) << 8
	d.pending = true
	d.delay = dmaStartDelay
}

func (d *DMA) tick(b *Bus) {
	if d.pending {
		if d.delay > 0 {
			d.delay--
		} else {
			d.pending = false
			d.active = true
			d.source = d.next
			d.index = 0
		}
	}
	if !d.active {
		return
	}

	src := d.source + uint16(d.index)
	if src >= addr.EchoStart {
		src &^= 0x2000
	}
	d.last = b.read(src, true)
	b.ppu.WriteOAM(d.index, d.last)
	d.index++
	if d.index == addr.OAMSize {
		d.active = false
	}
}

// Active reports whether OAM is currently owned by a transfer.
func (d *DMA) Active() bool {
	return d.active
}

// Source returns the value last written to 0xFF46.
func (d *DMA) Source() uint8 {
	return d.reg
}

func (d *DMA) Save(s *state.State) {
	s.Write8(d.reg)
	s.WriteBool(d.active)
	s.Write16(d.source)
	s.WriteInt(d.index)
	s.Write8(d.last)
	s.WriteBool(d.pending)
	s.Write16(d.next)
	s.WriteInt(d.delay)
}

func (d *DMA) Load(s *state.State) {
	d.reg = s.Read8()
	d.active = s.ReadBool()
	d.source = s.Read16()
	d.index = s.ReadInt()
	d.last = s.Read8()
	d.pending = s.ReadBool()
	d.next = s.Read16()
	d.delay = s.ReadInt()
}
