// Package cartridge is the program image collaborator: header decoding,
// bank switching and external RAM. The bus only sees Read and Write.
package cartridge

import (
	"log/slog"
	"time"

	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Cartridge is a loaded program image behind its mapper.
type Cartridge struct {
	Header Header
	mapper mapper
	rtc    *rtc
}

// New decodes the header of data and selects the mapper. Images are padded
// with 0xFF to a whole number of 16KB banks, and to at least 32KB.
func New(data []byte) (*Cartridge, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if !ChecksumOK(data) {
		slog.Warn("cartridge header checksum mismatch", "title", h.Title)
	}

	size := max(len(data), 2*romBankSize)
	if rem := size % romBankSize; rem != 0 {
		size += romBankSize - rem
	}
	rom := make([]byte, size)
	copy(rom, data)
	for i := len(data); i < size; i++ {
		rom[i] = 0xFF
	}

	ram := make([]byte, h.RAMSize)

	c := &Cartridge{Header: h}
	switch h.Kind {
	case ROMOnly:
		c.mapper = &romOnly{rom: rom, ram: ram}
	case MBC1:
		c.mapper = &mbc1{rom: rom, ram: ram, bank1: 1}
	case MBC2:
		c.mapper = &mbc2{rom: rom, romBank: 1}
	case MBC3:
		m := &mbc3{rom: rom, ram: ram, romBank: 1}
		if h.HasRTC {
			c.rtc = newRTC(ClockFunc(time.Now))
			m.rtc = c.rtc
		}
		c.mapper = m
	case MBC5:
		c.mapper = &mbc5{rom: rom, ram: ram, romBank: 1}
	}

	slog.Debug("cartridge loaded", "title", h.Title, "type", h.Kind, "rom", len(rom), "ram", len(ram))
	return c, nil
}

// SetClock replaces the time source of the cartridge clock, if it has one.
func (c *Cartridge) SetClock(clock Clock) {
	if c.rtc != nil {
		c.rtc.setClock(clock)
	}
}

// Read serves 0x0000-0x7FFF and 0xA000-0xBFFF.
func (c *Cartridge) Read(address uint16) byte {
	return c.mapper.read(address)
}

// Write serves mapper registers and external RAM.
func (c *Cartridge) Write(address uint16, value byte) {
	c.mapper.write(address, value)
}

func (c *Cartridge) Save(s *state.State) { c.mapper.save(s) }

func (c *Cartridge) Load(s *state.State) { c.mapper.load(s) }
