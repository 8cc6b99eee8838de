package video

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

type irqRecorder struct {
	counts [5]int
}

func (r *irqRecorder) Request(s interrupt.Source) {
	r.counts[s]++
}

func tick(p *PPU, n int) {
	for range n {
		p.Tick()
	}
}

const (
	ticksPerLine  = DotsPerLine / 4
	ticksPerFrame = DotsPerFrame / 4
)

// newPostBoot returns a PPU at line 0 dot 0 of a normal frame.
func newPostBoot(setup func(p *PPU)) (*PPU, *irqRecorder) {
	irq := &irqRecorder{}
	p := New(irq)
	if setup != nil {
		setup(p)
	}
	p.SetPostBoot()
	return p, irq
}

func TestModeTiming(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(p *PPU)
		transferEnd int // in machine cycles from line start
	}{
		{"plain line", nil, 63},
		{"fine scroll adds dots", func(p *PPU) { p.Write(addr.SCX, 5) }, 65},
		{"object adds penalty", func(p *PPU) {
			p.Write(addr.OAMStart, 16)
			p.Write(addr.OAMStart+1, 8)
		}, 66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPostBoot(tt.setup)
			p.Write(addr.LCDC, 0x93)
			assert.Equal(t, OAMScan, p.Mode())

			tick(p, 19)
			assert.Equal(t, OAMScan, p.Mode())
			tick(p, 1)
			assert.Equal(t, PixelTransfer, p.Mode())

			tick(p, tt.transferEnd-21)
			assert.Equal(t, PixelTransfer, p.Mode())
			tick(p, 1)
			assert.Equal(t, HBlank, p.Mode())

			tick(p, ticksPerLine-tt.transferEnd-1)
			assert.Equal(t, HBlank, p.Mode())
			assert.Equal(t, uint8(0), p.LY())
			tick(p, 1)
			assert.Equal(t, OAMScan, p.Mode())
			assert.Equal(t, uint8(1), p.LY())
		})
	}
}

func TestTransferLengthIsCapped(t *testing.T) {
	p, _ := newPostBoot(func(p *PPU) {
		p.Write(addr.SCX, 7)
		for i := range 10 {
			p.Write(addr.OAMStart+uint16(i*4), 16)
			p.Write(addr.OAMStart+uint16(i*4)+1, 1)
		}
	})
	// objects and window both add to the transfer
	p.Write(addr.LCDC, 0xB3)

	tick(p, oamScanDots/4)
	assert.Equal(t, oamScanDots+transferMax, p.transferEnd)
	assert.Len(t, p.Sprites(), 10)
}

func TestFrameTiming(t *testing.T) {
	p, irq := newPostBoot(nil)

	tick(p, 144*ticksPerLine-1)
	assert.Equal(t, 0, irq.counts[interrupt.VBlank])
	tick(p, 1)
	assert.Equal(t, 1, irq.counts[interrupt.VBlank])
	assert.Equal(t, VBlank, p.Mode())
	assert.True(t, p.FrameReady())
	assert.False(t, p.FrameReady(), "frame signal is consumed on read")

	tick(p, ticksPerFrame-1)
	assert.Equal(t, 1, irq.counts[interrupt.VBlank])
	tick(p, 1)
	assert.Equal(t, 2, irq.counts[interrupt.VBlank])
}

func TestStatSources(t *testing.T) {
	tests := []struct {
		name     string
		stat     uint8
		lyc      uint8
		perFrame int
	}{
		{"hblank", 0x08, 0xFF, 144},
		{"vblank", 0x10, 0xFF, 1},
		{"oam entries and line 144", 0x20, 0xFF, 145},
		{"lyc", 0x40, 10, 1},
		{"hblank and oam share the line", 0x28, 0xFF, 145},
		{"nothing enabled", 0x00, 0xFF, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, irq := newPostBoot(func(p *PPU) {
				p.Write(addr.LYC, tt.lyc)
				p.Write(addr.STAT, tt.stat)
			})
			tick(p, ticksPerFrame)
			assert.Equal(t, tt.perFrame, irq.counts[interrupt.LCDStat])
		})
	}
}

func TestLYCCompare(t *testing.T) {
	p, irq := newPostBoot(func(p *PPU) {
		p.Write(addr.LYC, 10)
		p.Write(addr.STAT, 0x40)
	})

	tick(p, 10*ticksPerLine)
	assert.Equal(t, uint8(10), p.LY())
	assert.Zero(t, p.Read(addr.STAT)&0x04, "comparison idle for the first dots of a line")
	assert.Equal(t, 0, irq.counts[interrupt.LCDStat])

	tick(p, 1)
	assert.NotZero(t, p.Read(addr.STAT)&0x04)
	assert.Equal(t, 1, irq.counts[interrupt.LCDStat])

	tick(p, ticksPerLine)
	assert.Zero(t, p.Read(addr.STAT)&0x04)
	assert.Equal(t, 1, irq.counts[interrupt.LCDStat])
}

func TestLine153(t *testing.T) {
	t.Run("LY reads 0 after 4 dots", func(t *testing.T) {
		p, _ := newPostBoot(nil)
		tick(p, 153*ticksPerLine)
		assert.Equal(t, uint8(153), p.LY())
		tick(p, 1)
		assert.Equal(t, uint8(0), p.LY())
		assert.Equal(t, VBlank, p.Mode())
	})

	t.Run("LYC=153 matches briefly", func(t *testing.T) {
		p, irq := newPostBoot(func(p *PPU) {
			p.Write(addr.LYC, 153)
			p.Write(addr.STAT, 0x40)
		})
		tick(p, 153*ticksPerLine)
		assert.Equal(t, 0, irq.counts[interrupt.LCDStat])
		tick(p, 1)
		assert.Equal(t, 1, irq.counts[interrupt.LCDStat])
		assert.NotZero(t, p.Read(addr.STAT)&0x04)
		tick(p, 1)
		assert.Zero(t, p.Read(addr.STAT)&0x04)
	})

	t.Run("LYC=0 matches from dot 12", func(t *testing.T) {
		p, irq := newPostBoot(func(p *PPU) {
			p.Write(addr.LYC, 0)
			p.Write(addr.STAT, 0x40)
		})
		tick(p, 153*ticksPerLine+2)
		before := irq.counts[interrupt.LCDStat]
		tick(p, 1)
		assert.Equal(t, before+1, irq.counts[interrupt.LCDStat])

		// the match carries into line 0 without a new edge
		tick(p, ticksPerLine)
		assert.Equal(t, before+1, irq.counts[interrupt.LCDStat])
	})
}

func TestLCDDisableEnable(t *testing.T) {
	p, irq := newPostBoot(nil)
	tick(p, 50*ticksPerLine+30)
	require.Equal(t, uint8(50), p.LY())

	p.Write(addr.LCDC, 0x11)
	assert.Equal(t, uint8(0), p.LY())
	assert.Equal(t, HBlank, p.Mode())
	assert.Equal(t, uint8(0x80), p.Read(addr.STAT)&0x83)

	tick(p, ticksPerFrame)
	assert.Equal(t, uint8(0), p.LY())
	assert.Equal(t, 0, irq.counts[interrupt.VBlank])
	assert.False(t, p.VRAMLocked())
	assert.False(t, p.OAMLocked())

	for cycle := 1; cycle <= 2; cycle++ {
		p.Write(addr.LCDC, 0x91)
		assert.Equal(t, OAMScan, p.Mode(), "enable restarts at the OAM scan of line 0")
		assert.Equal(t, uint8(0), p.LY())
		assert.True(t, p.OAMLocked())

		tick(p, 19)
		assert.Equal(t, OAMScan, p.Mode())
		tick(p, 1)
		assert.Equal(t, PixelTransfer, p.Mode())

		// first VBlank lands 144 full lines after the enable write
		tick(p, 144*ticksPerLine-21)
		assert.Equal(t, cycle-1, irq.counts[interrupt.VBlank])
		tick(p, 1)
		assert.Equal(t, cycle, irq.counts[interrupt.VBlank])
		assert.Equal(t, uint8(144), p.LY())

		p.Write(addr.LCDC, 0x11)
		assert.Equal(t, uint8(0), p.LY())
	}
}

func TestEnableRaisesOAMStat(t *testing.T) {
	p, irq := newPostBoot(nil)
	p.Write(addr.LCDC, 0x11)
	p.Write(addr.STAT, 0x20)
	require.Equal(t, 0, irq.counts[interrupt.LCDStat])

	p.Write(addr.LCDC, 0x91)
	assert.Equal(t, 1, irq.counts[interrupt.LCDStat])
	assert.Equal(t, uint8(0x82), p.Read(addr.STAT)&0x83)
}

func TestAccessLocks(t *testing.T) {
	p, _ := newPostBoot(func(p *PPU) {
		p.Write(0x8000, 0x11)
		p.Write(addr.OAMStart, 0x22)
	})

	// OAM scan: OAM locked, VRAM open
	assert.Equal(t, uint8(0xFF), p.Read(addr.OAMStart))
	assert.Equal(t, uint8(0x11), p.Read(0x8000))
	p.Write(addr.OAMStart, 0x99)
	assert.Equal(t, uint8(0x22), p.Peek(addr.OAMStart))

	// pixel transfer: both locked
	tick(p, 20)
	require.Equal(t, PixelTransfer, p.Mode())
	assert.Equal(t, uint8(0xFF), p.Read(0x8000))
	assert.Equal(t, uint8(0xFF), p.Read(addr.OAMStart))
	p.Write(0x8000, 0x99)
	assert.Equal(t, uint8(0x11), p.Peek(0x8000))

	// DMA bypasses the locks
	p.WriteOAM(0, 0x33)
	assert.Equal(t, uint8(0x33), p.Peek(addr.OAMStart))

	// hblank: both open
	tick(p, 50)
	require.Equal(t, HBlank, p.Mode())
	assert.Equal(t, uint8(0x11), p.Read(0x8000))
	assert.Equal(t, uint8(0x33), p.Read(addr.OAMStart))
}

func TestStatWriteQuirk(t *testing.T) {
	t.Run("write during hblank fires", func(t *testing.T) {
		p, irq := newPostBoot(nil)
		tick(p, 70)
		require.Equal(t, HBlank, p.Mode())
		p.Write(addr.STAT, 0x00)
		assert.Equal(t, 1, irq.counts[interrupt.LCDStat])
	})

	t.Run("write during transfer does not fire", func(t *testing.T) {
		p, irq := newPostBoot(func(p *PPU) { p.Write(addr.LYC, 0xFF) })
		tick(p, 30)
		require.Equal(t, PixelTransfer, p.Mode())
		p.Write(addr.STAT, 0x00)
		assert.Equal(t, 0, irq.counts[interrupt.LCDStat])
	})

	t.Run("only the upper enables are writable", func(t *testing.T) {
		p, _ := newPostBoot(nil)
		p.Write(addr.STAT, 0xFF)
		assert.Equal(t, uint8(0xF8), p.Read(addr.STAT)&0xF8)
		assert.Equal(t, uint8(OAMScan), p.Read(addr.STAT)&0x03)
	})
}

// solidTile fills tile index with the given 2-bit color.
func solidTile(p *PPU, index int, color int) {
	var low, high uint8
	if color&1 != 0 {
		low = 0xFF
	}
	if color&2 != 0 {
		high = 0xFF
	}
	for row := range 8 {
		p.vram[index*16+row*2] = low
		p.vram[index*16+row*2+1] = high
	}
}

func renderFrame(setup func(p *PPU)) *PPU {
	p := New(&irqRecorder{})
	setup(p)
	tick(p, ticksPerFrame)
	return p
}

func TestRenderBackground(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *PPU)
		expected map[[2]int]Shade
	}{
		{
			name: "tile map and palette",
			setup: func(p *PPU) {
				solidTile(p, 1, 1)
				p.vram[0x1800] = 1
				p.Write(addr.BGP, 0xE4)
				p.Write(addr.LCDC, 0x91)
			},
			expected: map[[2]int]Shade{{0, 0}: LightGrey, {7, 7}: LightGrey, {8, 0}: White, {0, 8}: White},
		},
		{
			name: "signed tile addressing",
			setup: func(p *PPU) {
				solidTile(p, 0x100, 3)
				p.vram[0x1800] = 0
				p.Write(addr.BGP, 0xE4)
				p.Write(addr.LCDC, 0x81)
			},
			expected: map[[2]int]Shade{{0, 0}: Black, {8, 0}: Black},
		},
		{
			name: "scroll",
			setup: func(p *PPU) {
				solidTile(p, 1, 2)
				p.vram[0x1800+1] = 1
				p.Write(addr.SCX, 4)
				p.Write(addr.BGP, 0xE4)
				p.Write(addr.LCDC, 0x91)
			},
			expected: map[[2]int]Shade{{3, 0}: White, {4, 0}: DarkGrey, {11, 0}: DarkGrey, {12, 0}: White},
		},
		{
			name: "background disabled is white",
			setup: func(p *PPU) {
				solidTile(p, 0, 3)
				p.Write(addr.BGP, 0xE4)
				p.Write(addr.LCDC, 0x90)
			},
			expected: map[[2]int]Shade{{0, 0}: White, {80, 80}: White},
		},
		{
			name: "window",
			setup: func(p *PPU) {
				solidTile(p, 1, 3)
				p.vram[0x1C00] = 1
				p.Write(addr.WX, 7+16)
				p.Write(addr.WY, 0)
				p.Write(addr.BGP, 0xE4)
				p.Write(addr.LCDC, 0xF1)
			},
			expected: map[[2]int]Shade{{15, 0}: White, {16, 0}: Black, {23, 7}: Black, {24, 0}: White, {16, 8}: White},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := renderFrame(tt.setup)
			for xy, shade := range tt.expected {
				assert.Equal(t, shade, p.Frame().GetPixel(xy[0], xy[1]), "pixel %v", xy)
			}
		})
	}
}

func TestRenderSprites(t *testing.T) {
	base := func(p *PPU) {
		solidTile(p, 1, 1)
		solidTile(p, 2, 3)
		p.Write(addr.BGP, 0xE4)
		p.Write(addr.OBP0, 0xE4)
		p.Write(addr.OBP1, 0x1B)
	}
	object := func(p *PPU, i int, y, x, tile, flags uint8) {
		p.Write(addr.OAMStart+uint16(i*4), y)
		p.Write(addr.OAMStart+uint16(i*4)+1, x)
		p.Write(addr.OAMStart+uint16(i*4)+2, tile)
		p.Write(addr.OAMStart+uint16(i*4)+3, flags)
	}

	tests := []struct {
		name     string
		setup    func(p *PPU)
		expected map[[2]int]Shade
	}{
		{
			name: "object over background",
			setup: func(p *PPU) {
				object(p, 0, 16, 8+16, 2, 0)
				p.Write(addr.LCDC, 0x93)
			},
			expected: map[[2]int]Shade{{15, 0}: White, {16, 0}: Black, {23, 7}: Black, {24, 0}: White, {16, 8}: White},
		},
		{
			name: "objects disabled",
			setup: func(p *PPU) {
				object(p, 0, 16, 8+16, 2, 0)
				p.Write(addr.LCDC, 0x91)
			},
			expected: map[[2]int]Shade{{16, 0}: White},
		},
		{
			name: "OBP1 palette",
			setup: func(p *PPU) {
				object(p, 0, 16, 8, 2, 0x10)
				p.Write(addr.LCDC, 0x93)
			},
			expected: map[[2]int]Shade{{0, 0}: White},
		},
		{
			name: "behind non-zero background",
			setup: func(p *PPU) {
				p.vram[0x1800] = 1
				object(p, 0, 16, 8+4, 2, 0x80)
				p.Write(addr.LCDC, 0x93)
			},
			expected: map[[2]int]Shade{{4, 0}: LightGrey, {7, 0}: LightGrey, {8, 0}: Black},
		},
		{
			name: "lower X wins on overlap",
			setup: func(p *PPU) {
				object(p, 0, 16, 8+4, 2, 0x10)
				object(p, 1, 16, 8, 2, 0)
				p.Write(addr.LCDC, 0x93)
			},
			expected: map[[2]int]Shade{{4, 0}: Black, {7, 0}: Black, {8, 0}: White},
		},
		{
			name: "tall objects",
			setup: func(p *PPU) {
				object(p, 0, 16, 8, 3, 0)
				p.Write(addr.LCDC, 0x97)
			},
			expected: map[[2]int]Shade{{0, 0}: Black, {0, 7}: Black, {0, 8}: White},
		},
		{
			name: "ten objects per line",
			setup: func(p *PPU) {
				for i := range 11 {
					object(p, i, 16, uint8(8+i*8), 2, 0)
				}
				p.Write(addr.LCDC, 0x93)
			},
			expected: map[[2]int]Shade{{0, 0}: Black, {79, 0}: Black, {80, 0}: White},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := renderFrame(func(p *PPU) {
				base(p)
				tt.setup(p)
			})
			for xy, shade := range tt.expected {
				assert.Equal(t, shade, p.Frame().GetPixel(xy[0], xy[1]), "pixel %v", xy)
			}
		})
	}
}

type frameSink struct {
	frames int
	err    error
	lines  []int
}

func (f *frameSink) ConsumeFrame(*FrameBuffer) error {
	f.frames++
	return f.err
}

func (f *frameSink) ConsumeScanline(ly int, _ []uint8) {
	f.lines = append(f.lines, ly)
}

func TestConsumers(t *testing.T) {
	p, _ := newPostBoot(nil)
	sink := &frameSink{err: errors.New("sink closed")}
	p.SetFrameConsumer(sink)
	p.SetScanlineConsumer(sink)

	tick(p, ticksPerFrame)
	assert.Equal(t, 1, sink.frames)
	assert.Len(t, sink.lines, 144)
	assert.Equal(t, 143, sink.lines[143])
	assert.EqualError(t, p.ConsumerErr(), "sink closed")
	assert.NoError(t, p.ConsumerErr())
}

func TestSaveLoad(t *testing.T) {
	p, _ := newPostBoot(func(p *PPU) {
		solidTile(p, 1, 2)
		p.vram[0x1800+3] = 1
		p.Write(addr.OAMStart, 40)
		p.Write(addr.OAMStart+1, 30)
		p.Write(addr.OAMStart+2, 1)
		p.Write(addr.STAT, 0x48)
		p.Write(addr.LYC, 60)
	})
	p.Write(addr.LCDC, 0x93)
	tick(p, 30*ticksPerLine+25)

	s := state.New()
	p.Save(s)

	restoredIRQ := &irqRecorder{}
	restored := New(restoredIRQ)
	loaded := state.FromBytes(s.Bytes())
	restored.Load(loaded)
	require.NoError(t, loaded.Err())

	originalIRQ := &irqRecorder{}
	p.irq = originalIRQ

	for range ticksPerFrame {
		p.Tick()
		restored.Tick()
		require.Equal(t, p.Mode(), restored.Mode())
		require.Equal(t, p.LY(), restored.LY())
	}
	assert.Equal(t, originalIRQ.counts, restoredIRQ.counts)
	assert.Equal(t, p.Frame().Bytes(), restored.Frame().Bytes())
}
