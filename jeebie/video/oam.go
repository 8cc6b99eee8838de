package video

import (
	"github.com/valerio/go-jeebie-core/jeebie/bit"
)

const (
	oamEntries       = 40
	maxLineSprites   = 10
	objectPenaltyMax = 11
)

// Sprite is a decoded OAM entry. X and Y hold the raw OAM values, which are
// offset by 8 and 16 from screen coordinates.
type Sprite struct {
	Y         uint8
	X         uint8
	TileIndex uint8
	Flags     uint8
	OAMIndex  int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

func (p *PPU) spriteHeight() int {
	if bit.IsSet(2, p.lcdc) {
		return 16
	}
	return 8
}

func (p *PPU) readSprite(index int) Sprite {
	base := index * 4
	s := Sprite{
		Y:         p.oam[base],
		X:         p.oam[base+1],
		TileIndex: p.oam[base+2],
		Flags:     p.oam[base+3],
		OAMIndex:  index,
	}
	s.parseFlags()
	return s
}

// selectSprites performs the OAM scan for the current line: the first 10
// entries in OAM order whose vertical span covers LY. Objects off-screen
// horizontally still count towards the limit.
func (p *PPU) selectSprites() {
	p.spriteCount = 0
	height := p.spriteHeight()
	line := int(p.ly) + 16

	for i := range oamEntries {
		y := int(p.oam[i*4])
		if line < y || line >= y+height {
			continue
		}
		p.sprites[p.spriteCount] = p.readSprite(i)
		p.spriteCount++
		if p.spriteCount == maxLineSprites {
			return
		}
	}
}

// objectPenalty is the number of extra dots an object adds to pixel
// transfer, depending on where it lands relative to the background fetch.
func (p *PPU) objectPenalty(s *Sprite) int {
	return objectPenaltyMax - min(5, int((s.X+p.scx)&7))
}

// Sprites returns the objects selected for the current line.
func (p *PPU) Sprites() []Sprite {
	return p.sprites[:p.spriteCount]
}

// AllSprites decodes all 40 OAM entries. Useful for debug tools.
func (p *PPU) AllSprites() []Sprite {
	result := make([]Sprite, oamEntries)
	for i := range oamEntries {
		result[i] = p.readSprite(i)
	}
	return result
}
