package cartridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// makeImage builds an image of the given number of 16KB banks where every
// byte holds its bank number, with a header of the given type.
func makeImage(banks int, cartType, romCode, ramCode byte) []byte {
	rom := make([]byte, banks*romBankSize)
	for i := range rom {
		rom[i] = byte(i / romBankSize)
	}
	copy(rom[titleAddress:], "TEST")
	rom[cartridgeTypeAddress] = cartType
	rom[romSizeAddress] = romCode
	rom[ramSizeAddress] = ramCode
	return rom
}

func TestHeader(t *testing.T) {
	t.Run("decodes type and sizes", func(t *testing.T) {
		h, err := ParseHeader(makeImage(8, 0x03, 0x02, 0x03))
		require.NoError(t, err)
		assert.Equal(t, "TEST", h.Title)
		assert.Equal(t, MBC1, h.Kind)
		assert.True(t, h.HasBattery)
		assert.Equal(t, 128*1024, h.ROMSize)
		assert.Equal(t, 32*1024, h.RAMSize)
	})

	t.Run("mapper kinds", func(t *testing.T) {
		tests := []struct {
			cartType byte
			kind     Kind
			battery  bool
			rtc      bool
		}{
			{0x05, MBC2, false, false},
			{0x06, MBC2, true, false},
			{0x0F, MBC3, true, true},
			{0x10, MBC3, true, true},
			{0x11, MBC3, false, false},
			{0x12, MBC3, false, false},
			{0x13, MBC3, true, false},
		}
		for _, tt := range tests {
			h, err := ParseHeader(makeImage(2, tt.cartType, 0x00, 0x00))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, h.Kind, "type 0x%02X", tt.cartType)
			assert.Equal(t, tt.battery, h.HasBattery, "type 0x%02X", tt.cartType)
			assert.Equal(t, tt.rtc, h.HasRTC, "type 0x%02X", tt.cartType)
		}
	})

	t.Run("too small", func(t *testing.T) {
		_, err := ParseHeader(make([]byte, 0x100))
		assert.ErrorIs(t, err, ErrImageTooSmall)
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		_, err := New(makeImage(2, 0x20, 0x00, 0x00))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("checksum", func(t *testing.T) {
		img := makeImage(2, 0x00, 0x00, 0x00)
		var sum byte
		for _, b := range img[titleAddress:headerChecksumAddress] {
			sum = sum - b - 1
		}
		img[headerChecksumAddress] = sum
		assert.True(t, ChecksumOK(img))
		img[headerChecksumAddress]++
		assert.False(t, ChecksumOK(img))
	})
}

func TestROMOnly(t *testing.T) {
	t.Run("small images are padded with 0xFF", func(t *testing.T) {
		img := make([]byte, 0x200)
		img[0x150] = 0x42
		c, err := New(img)
		require.NoError(t, err)
		assert.Equal(t, uint8(0x42), c.Read(0x150))
		assert.Equal(t, uint8(0xFF), c.Read(0x7FFF))
	})

	t.Run("ROM writes are ignored and no RAM reads 0xFF", func(t *testing.T) {
		c, err := New(makeImage(2, 0x00, 0x00, 0x00))
		require.NoError(t, err)
		c.Write(0x4000, 0x99)
		assert.Equal(t, uint8(1), c.Read(0x4000))
		c.Write(0xA000, 0x12)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000))
	})
}

func TestMBC1(t *testing.T) {
	t.Run("ROM bank switching", func(t *testing.T) {
		c, err := New(makeImage(8, 0x01, 0x02, 0x00))
		require.NoError(t, err)

		tests := []struct {
			name  string
			write byte
			bank  byte
		}{
			{"bank 0 selects bank 1", 0x00, 1},
			{"bank 2", 0x02, 2},
			{"bank 7", 0x07, 7},
			{"out of range wraps", 0x09, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c.Write(0x2000, tt.write)
				assert.Equal(t, tt.bank, c.Read(0x4000))
				assert.Equal(t, uint8(0), c.Read(0x0000))
			})
		}
	})

	t.Run("upper bits and mode 1", func(t *testing.T) {
		c, err := New(makeImage(64, 0x01, 0x05, 0x00))
		require.NoError(t, err)
		c.Write(0x2000, 0x01)
		c.Write(0x4000, 0x01)
		assert.Equal(t, uint8(33), c.Read(0x4000))
		assert.Equal(t, uint8(0), c.Read(0x0000))

		c.Write(0x6000, 0x01)
		assert.Equal(t, uint8(32), c.Read(0x0000))
	})

	t.Run("RAM needs enabling", func(t *testing.T) {
		c, err := New(makeImage(2, 0x02, 0x00, 0x03))
		require.NoError(t, err)
		c.Write(0xA000, 0x55)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000))

		c.Write(0x0000, 0x0A)
		c.Write(0xA000, 0x55)
		assert.Equal(t, uint8(0x55), c.Read(0xA000))

		// RAM banking only applies in mode 1
		c.Write(0x4000, 0x01)
		assert.Equal(t, uint8(0x55), c.Read(0xA000))
		c.Write(0x6000, 0x01)
		assert.Equal(t, uint8(0x00), c.Read(0xA000))

		c.Write(0x0000, 0x00)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000))
	})
}

func TestMBC5(t *testing.T) {
	c, err := New(makeImage(4, 0x1B, 0x01, 0x03))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), c.Read(0x4000))

	c.Write(0x2000, 0x00)
	assert.Equal(t, uint8(0), c.Read(0x4000), "bank 0 is selectable")
	c.Write(0x2000, 0x03)
	assert.Equal(t, uint8(3), c.Read(0x4000))

	c.Write(0x0000, 0x0A)
	c.Write(0x4000, 0x02)
	c.Write(0xA010, 0x77)
	c.Write(0x4000, 0x00)
	assert.Equal(t, uint8(0x00), c.Read(0xA010))
	c.Write(0x4000, 0x02)
	assert.Equal(t, uint8(0x77), c.Read(0xA010))
}

func TestMBC2(t *testing.T) {
	c, err := New(makeImage(16, 0x06, 0x03, 0x00))
	require.NoError(t, err)
	assert.Equal(t, mbc2RAMSize, c.Header.RAMSize)

	t.Run("ROM bank needs address bit 8", func(t *testing.T) {
		c.Write(0x2000, 0x05)
		assert.Equal(t, uint8(1), c.Read(0x4000), "bit 8 clear writes RAM enable")
		c.Write(0x2100, 0x05)
		assert.Equal(t, uint8(5), c.Read(0x4000))
		c.Write(0x0100, 0x10)
		assert.Equal(t, uint8(1), c.Read(0x4000), "bank 0 selects bank 1")
		c.Write(0x3F00, 0x0F)
		assert.Equal(t, uint8(15), c.Read(0x4000))
	})

	t.Run("4-bit RAM", func(t *testing.T) {
		c.Write(0xA000, 0x0C)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000))

		c.Write(0x0000, 0x0A)
		c.Write(0xA000, 0xBC)
		assert.Equal(t, uint8(0xFC), c.Read(0xA000), "upper nibble reads as 1")
		assert.Equal(t, uint8(0xFC), c.Read(0xA200), "RAM echoes every 512 bytes")
		assert.Equal(t, uint8(0xFC), c.Read(0xBE00))

		c.Write(0x0100, 0x0A)
		assert.Equal(t, uint8(0xFC), c.Read(0xA000), "bit 8 set does not touch RAM enable")
		c.Write(0x0000, 0x00)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000))
	})
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestMBC3(t *testing.T) {
	t.Run("ROM and RAM banking", func(t *testing.T) {
		c, err := New(makeImage(128, 0x13, 0x06, 0x03))
		require.NoError(t, err)

		c.Write(0x2000, 0x00)
		assert.Equal(t, uint8(1), c.Read(0x4000))
		c.Write(0x2000, 0xFF)
		assert.Equal(t, uint8(127), c.Read(0x4000), "7-bit bank register")

		c.Write(0x0000, 0x0A)
		for bank := range uint8(4) {
			c.Write(0x4000, bank)
			c.Write(0xB000, 0x10+bank)
		}
		for bank := range uint8(4) {
			c.Write(0x4000, bank)
			assert.Equal(t, 0x10+bank, c.Read(0xB000))
		}

		c.Write(0x4000, rtcSeconds)
		assert.Equal(t, uint8(0xFF), c.Read(0xA000), "no clock on this type")
	})

	t.Run("clock latch", func(t *testing.T) {
		clk := &fakeClock{now: time.Unix(1000, 0)}
		c, err := New(makeImage(4, 0x10, 0x01, 0x03))
		require.NoError(t, err)
		c.SetClock(clk)
		c.Write(0x0000, 0x0A)

		clk.now = clk.now.Add(26*time.Hour + 3*time.Minute + 7*time.Second + 500*time.Millisecond)
		c.Write(0x4000, rtcSeconds)
		assert.Equal(t, uint8(0), c.Read(0xA000), "unlatched registers are zero")

		c.Write(0x6000, 0x00)
		c.Write(0x6000, 0x01)

		tests := []struct {
			reg  uint8
			want uint8
		}{
			{rtcSeconds, 7},
			{rtcMinutes, 3},
			{rtcHours, 2},
			{rtcDaysLow, 1},
			{rtcDaysHigh, 0},
		}
		for _, tt := range tests {
			c.Write(0x4000, tt.reg)
			assert.Equal(t, tt.want, c.Read(0xA000), "register 0x%02X", tt.reg)
		}

		// latched values hold until the next 0 -> 1 sequence
		clk.now = clk.now.Add(time.Minute)
		c.Write(0x4000, rtcMinutes)
		assert.Equal(t, uint8(3), c.Read(0xA000))
		c.Write(0x6000, 0x01)
		assert.Equal(t, uint8(3), c.Read(0xA000), "1 without a preceding 0 does not latch")
		c.Write(0x6000, 0x00)
		c.Write(0x6000, 0x01)
		assert.Equal(t, uint8(4), c.Read(0xA000))
	})

	t.Run("halt and day carry", func(t *testing.T) {
		clk := &fakeClock{now: time.Unix(0, 0)}
		c, err := New(makeImage(4, 0x0F, 0x01, 0x00))
		require.NoError(t, err)
		c.SetClock(clk)
		c.Write(0x0000, 0x0A)
		latch := func() {
			c.Write(0x6000, 0x00)
			c.Write(0x6000, 0x01)
		}

		c.Write(0x4000, rtcDaysHigh)
		c.Write(0xA000, dhHalt)
		clk.now = clk.now.Add(time.Hour)
		latch()
		c.Write(0x4000, rtcHours)
		assert.Equal(t, uint8(0), c.Read(0xA000), "a halted clock does not count")

		c.Write(0x4000, rtcDaysLow)
		c.Write(0xA000, 0xFF)
		c.Write(0x4000, rtcDaysHigh)
		c.Write(0xA000, dhDayBit8)
		assert.Equal(t, uint8(dhDayBit8), c.Read(0xA000))

		clk.now = clk.now.Add(24 * time.Hour)
		latch()
		assert.Equal(t, uint8(dhCarry), c.Read(0xA000), "day 511 rolls over and sets carry")
		c.Write(0x4000, rtcDaysLow)
		assert.Equal(t, uint8(0), c.Read(0xA000))
	})

	t.Run("save and load", func(t *testing.T) {
		clk := &fakeClock{now: time.Unix(50, 0)}
		c, err := New(makeImage(4, 0x10, 0x01, 0x02))
		require.NoError(t, err)
		c.SetClock(clk)
		c.Write(0x0000, 0x0A)
		c.Write(0x2000, 0x03)
		c.Write(0xA123, 0x77)
		clk.now = clk.now.Add(90 * time.Second)
		c.Write(0x6000, 0x00)
		c.Write(0x6000, 0x01)
		c.Write(0x4000, rtcMinutes)

		s := state.New()
		c.Save(s)

		restored, err := New(makeImage(4, 0x10, 0x01, 0x02))
		require.NoError(t, err)
		restored.SetClock(clk)
		loaded := state.FromBytes(s.Bytes())
		restored.Load(loaded)
		require.NoError(t, loaded.Err())

		assert.Equal(t, uint8(3), restored.Read(0x4000))
		assert.Equal(t, uint8(1), restored.Read(0xA000))
		restored.Write(0x4000, 0x00)
		assert.Equal(t, uint8(0x77), restored.Read(0xA123))
	})
}
