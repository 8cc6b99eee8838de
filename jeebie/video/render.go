package video

import "github.com/valerio/go-jeebie-core/jeebie/bit"

// renderLine draws the current line into the frame buffer. It runs once, at
// the end of pixel transfer, using the register values in effect then.
func (p *PPU) renderLine() {
	row := p.fb.Row(p.line)
	var bgColor [FramebufferWidth]int

	if !bit.IsSet(lcdcBG, p.lcdc) {
		for x := range row {
			row[x] = uint8(White)
		}
	} else {
		p.renderBackground(&bgColor)
		if p.windowThisLine {
			p.renderWindow(&bgColor)
		}
		for x := range row {
			row[x] = uint8(applyPalette(p.bgp, bgColor[x]))
		}
	}

	if p.spriteCount > 0 && bit.IsSet(lcdcObj, p.lcdc) {
		p.renderSprites(row, &bgColor)
	}
}

func (p *PPU) tileMapBase(mapBit uint8) uint16 {
	if bit.IsSet(mapBit, p.lcdc) {
		return 0x1C00
	}
	return 0x1800
}

func (p *PPU) renderBackground(colors *[FramebufferWidth]int) {
	mapBase := p.tileMapBase(lcdcBGMap)
	y := (p.line + int(p.scy)) & 0xFF
	mapRow := mapBase + uint16(y/8)*32

	for x := range FramebufferWidth {
		px := (x + int(p.scx)) & 0xFF
		index := p.vram[mapRow+uint16(px/8)]
		tr := p.tileRow(p.bgTileOffset(index) + uint16(y%8)*2)
		colors[x] = tr.GetPixel(px % 8)
	}
}

func (p *PPU) renderWindow(colors *[FramebufferWidth]int) {
	mapBase := p.tileMapBase(lcdcWinMap)
	y := p.windowLine
	mapRow := mapBase + uint16(y/8)*32
	start := int(p.wx) - 7

	for x := max(start, 0); x < FramebufferWidth; x++ {
		wx := x - start
		index := p.vram[mapRow+uint16(wx/8)]
		tr := p.tileRow(p.bgTileOffset(index) + uint16(y%8)*2)
		colors[x] = tr.GetPixel(wx % 8)
	}
	p.windowLine++
}

func (p *PPU) renderSprites(row []uint8, bgColor *[FramebufferWidth]int) {
	height := p.spriteHeight()
	p.priority.Clear()

	for i := range p.spriteCount {
		sp := &p.sprites[i]
		spriteRow := p.line + 16 - int(sp.Y)
		if sp.FlipY {
			spriteRow = height - 1 - spriteRow
		}
		tile := sp.TileIndex
		if height == 16 {
			tile &^= 1
		}
		tr := p.tileRow(uint16(tile)*16 + uint16(spriteRow)*2)

		palette := p.obp0
		if sp.PaletteOBP1 {
			palette = p.obp1
		}
		for px := range 8 {
			color := tr.GetPixel(px)
			if sp.FlipX {
				color = tr.GetPixelFlipped(px)
			}
			p.priority.TryClaimPixel(int(sp.X)-8+px, sp, color, palette)
		}
	}

	for x := range FramebufferWidth {
		if p.priority.GetOwner(x) == -1 {
			continue
		}
		if p.priority.behindBG[x] && bgColor[x] != 0 {
			continue
		}
		row[x] = uint8(applyPalette(p.priority.palette[x], p.priority.color[x]))
	}
}
