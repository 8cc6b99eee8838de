package video

import "github.com/valerio/go-jeebie-core/jeebie/bit"

// TileRow represents one row of a tile pattern (8 pixels).
//
// Each tile row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a pixel color (0-3) from the tile row.
// pixelX should be 0-7, where 0 is the leftmost pixel.
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint8(7 - pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}
	return pixel
}

// GetPixelFlipped extracts a pixel color with horizontal flip.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	return t.GetPixel(7 - pixelX)
}

// tileRow reads one row from VRAM. offset is relative to 0x8000.
func (p *PPU) tileRow(offset uint16) TileRow {
	return TileRow{
		Low:  p.vram[offset&0x1FFF],
		High: p.vram[(offset+1)&0x1FFF],
	}
}

// bgTileOffset resolves a background/window tile index to its VRAM offset,
// honouring the LCDC.4 addressing mode: unsigned from 0x8000 or signed
// around 0x9000.
func (p *PPU) bgTileOffset(index uint8) uint16 {
	if bit.IsSet(4, p.lcdc) {
		return uint16(index) * 16
	}
	return uint16(0x1000 + int(int8(index))*16)
}

// applyPalette maps a 2-bit color index through a DMG palette register.
func applyPalette(palette uint8, color int) Shade {
	return Shade((palette >> (uint(color) * 2)) & 0x03)
}
