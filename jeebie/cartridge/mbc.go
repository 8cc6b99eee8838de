package cartridge

import (
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// mapper is sealed: the variants below are the only implementations.
type mapper interface {
	read(address uint16) uint8
	write(address uint16, value uint8)
	save(*state.State)
	load(*state.State)
}

// romOnly maps up to 32KB of ROM directly at 0x0000-0x7FFF, with an optional
// single unbanked RAM at 0xA000-0xBFFF.
type romOnly struct {
	rom []uint8
	ram []uint8
}

func (m *romOnly) read(address uint16) uint8 {
	switch {
	case address < 0x8000:
		return m.rom[int(address)%len(m.rom)]
	case address >= 0xA000 && address < 0xC000 && len(m.ram) > 0:
		return m.ram[int(address-0xA000)%len(m.ram)]
	}
	return 0xFF
}

func (m *romOnly) write(address uint16, value uint8) {
	if address >= 0xA000 && address < 0xC000 && len(m.ram) > 0 {
		m.ram[int(address-0xA000)%len(m.ram)] = value
	}
}

func (m *romOnly) save(s *state.State) { s.WriteData(m.ram) }
func (m *romOnly) load(s *state.State) { s.ReadData(m.ram) }

// mbc1 supports up to 2MB ROM and 32KB RAM. The 2-bit secondary register is
// either the upper ROM bank bits or the RAM bank, depending on the mode:
//   - mode 0: secondary bits only affect 0x4000-0x7FFF
//   - mode 1: secondary bits also bank 0x0000-0x3FFF and the RAM window
type mbc1 struct {
	rom        []uint8
	ram        []uint8
	bank1      uint8
	bank2      uint8
	mode       uint8
	ramEnabled bool
}

func (m *mbc1) romOffset(bank int) int {
	banks := len(m.rom) / romBankSize
	return (bank % banks) * romBankSize
}

func (m *mbc1) read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2) << 5
		}
		return m.rom[m.romOffset(bank)+int(address)]
	case address < 0x8000:
		bank := int(m.bank2)<<5 | int(m.bank1)
		return m.rom[m.romOffset(bank)+int(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(address)]
	}
	return 0xFF
}

func (m *mbc1) ramOffset(address uint16) int {
	bank := 0
	if m.mode == 1 {
		bank = int(m.bank2)
	}
	return (bank*ramBankSize + int(address-0xA000)) % len(m.ram)
}

func (m *mbc1) write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		m.bank1 = value & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case address < 0x6000:
		m.bank2 = value & 0x03
	case address < 0x8000:
		m.mode = value & 0x01
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramOffset(address)] = value
		}
	}
}

func (m *mbc1) save(s *state.State) {
	s.Write8(m.bank1)
	s.Write8(m.bank2)
	s.Write8(m.mode)
	s.WriteBool(m.ramEnabled)
	s.WriteData(m.ram)
}

func (m *mbc1) load(s *state.State) {
	m.bank1 = s.Read8()
	m.bank2 = s.Read8()
	m.mode = s.Read8()
	m.ramEnabled = s.ReadBool()
	s.ReadData(m.ram)
}

// mbc5 has a 9-bit ROM bank register (bank 0 is selectable in the upper
// window) and 16 RAM banks.
type mbc5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
}

func (m *mbc5) read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		banks := len(m.rom) / romBankSize
		offset := (int(m.romBank) % banks) * romBankSize
		return m.rom[offset+int(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(address)]
	}
	return 0xFF
}

func (m *mbc5) ramOffset(address uint16) int {
	return (int(m.ramBank)*ramBankSize + int(address-0xA000)) % len(m.ram)
}

func (m *mbc5) write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x3000:
		m.romBank = m.romBank&0x100 | uint16(value)
	case address < 0x4000:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case address < 0x6000:
		m.ramBank = value & 0x0F
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramOffset(address)] = value
		}
	}
}

func (m *mbc5) save(s *state.State) {
	s.Write16(m.romBank)
	s.Write8(m.ramBank)
	s.WriteBool(m.ramEnabled)
	s.WriteData(m.ram)
}

func (m *mbc5) load(s *state.State) {
	m.romBank = s.Read16()
	m.ramBank = s.Read8()
	m.ramEnabled = s.ReadBool()
	s.ReadData(m.ram)
}

// mbc2 has up to 16 ROM banks and 512 half-bytes of built-in RAM. Address bit
// 8 picks the register written in 0x0000-0x3FFF: clear for RAM enable, set
// for the ROM bank.
type mbc2 struct {
	rom        []uint8
	ram        [mbc2RAMSize]uint8
	romBank    uint8
	ramEnabled bool
}

const mbc2RAMSize = 512

func (m *mbc2) read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		banks := len(m.rom) / romBankSize
		offset := (int(m.romBank) % banks) * romBankSize
		return m.rom[offset+int(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return 0xFF
		}
		// only the low nibble exists, the RAM echoes through the window
		return m.ram[address&0x1FF] | 0xF0
	}
	return 0xFF
}

func (m *mbc2) write(address uint16, value uint8) {
	switch {
	case address < 0x4000:
		if address&0x100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
			return
		}
		m.romBank = value & 0x0F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled {
			m.ram[address&0x1FF] = value & 0x0F
		}
	}
}

func (m *mbc2) save(s *state.State) {
	s.Write8(m.romBank)
	s.WriteBool(m.ramEnabled)
	s.WriteData(m.ram[:])
}

func (m *mbc2) load(s *state.State) {
	m.romBank = s.Read8()
	m.ramEnabled = s.ReadBool()
	s.ReadData(m.ram[:])
}

// mbc3 has a 7-bit ROM bank register, up to 4 RAM banks and, on the timer
// variants, a real time clock mapped in place of RAM through selects
// 0x08-0x0C.
type mbc3 struct {
	rom        []uint8
	ram        []uint8
	rtc        *rtc
	romBank    uint8
	selected   uint8
	ramEnabled bool
}

func (m *mbc3) read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		banks := len(m.rom) / romBankSize
		offset := (int(m.romBank) % banks) * romBankSize
		return m.rom[offset+int(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return 0xFF
		}
		switch {
		case m.selected <= 0x03 && len(m.ram) > 0:
			return m.ram[m.ramOffset(address)]
		case m.selected >= rtcSeconds && m.selected <= rtcDaysHigh && m.rtc != nil:
			return m.rtc.read(m.selected)
		}
	}
	return 0xFF
}

func (m *mbc3) ramOffset(address uint16) int {
	return (int(m.selected)*ramBankSize + int(address-0xA000)) % len(m.ram)
}

func (m *mbc3) write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address < 0x6000:
		m.selected = value
	case address < 0x8000:
		if m.rtc != nil {
			m.rtc.writeLatch(value)
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return
		}
		switch {
		case m.selected <= 0x03 && len(m.ram) > 0:
			m.ram[m.ramOffset(address)] = value
		case m.selected >= rtcSeconds && m.selected <= rtcDaysHigh && m.rtc != nil:
			m.rtc.write(m.selected, value)
		}
	}
}

func (m *mbc3) save(s *state.State) {
	s.Write8(m.romBank)
	s.Write8(m.selected)
	s.WriteBool(m.ramEnabled)
	s.WriteData(m.ram)
	if m.rtc != nil {
		m.rtc.save(s)
	}
}

func (m *mbc3) load(s *state.State) {
	m.romBank = s.Read8()
	m.selected = s.Read8()
	m.ramEnabled = s.ReadBool()
	s.ReadData(m.ram)
	if m.rtc != nil {
		m.rtc.load(s)
	}
}
