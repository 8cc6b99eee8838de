package cartridge

import (
	"errors"
	"fmt"
)

const (
	titleAddress          = 0x134
	titleLength           = 16
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	headerEnd             = 0x150
)

var (
	// ErrImageTooSmall is returned for images that cannot hold a header.
	ErrImageTooSmall = errors.New("program image too small to contain a header")
	// ErrUnsupportedType is returned for mapper types this core does not model.
	ErrUnsupportedType = errors.New("unsupported cartridge type")
)

// Kind is the closed set of mappers selectable from the header type byte.
type Kind uint8

const (
	ROMOnly Kind = iota
	MBC1
	MBC2
	MBC3
	MBC5
)

func (k Kind) String() string {
	switch k {
	case ROMOnly:
		return "ROM"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	}
	return "unknown"
}

// Header is the decoded cartridge header at 0x0134-0x014F.
type Header struct {
	Title          string
	Type           byte
	Kind           Kind
	ROMSize        int
	RAMSize        int
	Version        uint8
	HeaderChecksum uint8
	HasBattery     bool
	HasRTC         bool
}

// ParseHeader decodes the header of a program image.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerEnd {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrImageTooSmall, len(data))
	}

	h := Header{
		Title:          cleanGameboyTitle(data[titleAddress : titleAddress+titleLength]),
		Type:           data[cartridgeTypeAddress],
		Version:        data[versionNumberAddress],
		HeaderChecksum: data[headerChecksumAddress],
		ROMSize:        0x8000 << (data[romSizeAddress] & 0x0F),
	}

	switch h.Type {
	case 0x00:
		h.Kind = ROMOnly
	case 0x08, 0x09:
		h.Kind = ROMOnly
		h.HasBattery = h.Type == 0x09
	case 0x01, 0x02, 0x03:
		h.Kind = MBC1
		h.HasBattery = h.Type == 0x03
	case 0x05, 0x06:
		h.Kind = MBC2
		h.HasBattery = h.Type == 0x06
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		h.Kind = MBC3
		h.HasRTC = h.Type == 0x0F || h.Type == 0x10
		h.HasBattery = h.Type == 0x0F || h.Type == 0x10 || h.Type == 0x13
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		h.Kind = MBC5
		h.HasBattery = h.Type == 0x1B || h.Type == 0x1E
	default:
		return h, fmt.Errorf("%w: 0x%02X", ErrUnsupportedType, h.Type)
	}

	switch data[ramSizeAddress] {
	case 0x02:
		h.RAMSize = 8 * 1024
	case 0x03:
		h.RAMSize = 32 * 1024
	case 0x04:
		h.RAMSize = 128 * 1024
	case 0x05:
		h.RAMSize = 64 * 1024
	}
	// ROM+RAM carts declaring no RAM still get one bank
	if h.RAMSize == 0 && (h.Type == 0x08 || h.Type == 0x09) {
		h.RAMSize = 8 * 1024
	}
	if h.Kind == MBC2 {
		h.RAMSize = mbc2RAMSize
	}

	return h, nil
}

// ChecksumOK verifies the header checksum the boot ROM checks.
func ChecksumOK(data []byte) bool {
	if len(data) < headerEnd {
		return false
	}
	var sum byte
	for _, b := range data[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum == data[headerChecksumAddress]
}
