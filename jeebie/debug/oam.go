package debug

import (
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/addr"
)

const (
	OAMSpriteCount    = 40
	OAMBytesPerSprite = 4
	SpriteYOffset     = 16
	SpriteXOffset     = 8
	MaxSpritesPerLine = 10
)

// Sprite attribute bit positions
const (
	AttrBackgroundPriority = 7
	AttrFlipY              = 6
	AttrFlipX              = 5
	AttrPaletteNumber      = 4
)

// MemoryReader is a side-effect-free view of the address space.
type MemoryReader interface {
	Peek(address uint16) uint8
}

type SpriteInfo struct {
	Index      int
	Y          int
	X          int
	TileIndex  uint8
	Attributes uint8
	IsVisible  bool
}

type SpriteAttributes struct {
	BackgroundPriority bool
	FlipY              bool
	FlipX              bool
	PaletteNumber      int
}

type OAMData struct {
	Sprites       []SpriteInfo
	CurrentLine   int
	ActiveSprites int
	SpriteHeight  int
}

// ExtractOAMData decodes all 40 OAM entries. An entry is visible when it
// covers currentLine, regardless of the 10 per line limit.
func ExtractOAMData(reader MemoryReader, currentLine int, spriteHeight int) *OAMData {
	data := &OAMData{
		Sprites:      make([]SpriteInfo, OAMSpriteCount),
		CurrentLine:  currentLine,
		SpriteHeight: spriteHeight,
	}

	for i := range OAMSpriteCount {
		base := addr.OAMStart + uint16(i*OAMBytesPerSprite)
		info := SpriteInfo{
			Index:      i,
			Y:          int(reader.Peek(base)) - SpriteYOffset,
			X:          int(reader.Peek(base+1)) - SpriteXOffset,
			TileIndex:  reader.Peek(base + 2),
			Attributes: reader.Peek(base + 3),
		}
		info.IsVisible = info.Y <= currentLine && info.Y+spriteHeight > currentLine
		if info.IsVisible {
			data.ActiveSprites++
		}
		data.Sprites[i] = info
	}

	return data
}

func (s *SpriteInfo) DecodeAttributes() SpriteAttributes {
	return SpriteAttributes{
		BackgroundPriority: (s.Attributes & (1 << AttrBackgroundPriority)) != 0,
		FlipY:              (s.Attributes & (1 << AttrFlipY)) != 0,
		FlipX:              (s.Attributes & (1 << AttrFlipX)) != 0,
		PaletteNumber:      int((s.Attributes & (1 << AttrPaletteNumber)) >> AttrPaletteNumber),
	}
}

func (s *SpriteInfo) String() string {
	status := "OFF"
	if s.IsVisible {
		status = "ACTIVE"
	}
	return fmt.Sprintf("Sprite %2d: Y=%3d X=%3d  Tile=0x%02X Flags=0x%02X [%s]",
		s.Index, s.Y, s.X, s.TileIndex, s.Attributes, status)
}

func (data *OAMData) GetVisibleSprites() []SpriteInfo {
	visible := make([]SpriteInfo, 0, data.ActiveSprites)
	for _, sprite := range data.Sprites {
		if sprite.IsVisible {
			visible = append(visible, sprite)
		}
	}
	return visible
}

func (data *OAMData) FormatSummary() string {
	return fmt.Sprintf("Current Line: %d | Active Sprites: %d/%d | Height: %dpx",
		data.CurrentLine, data.ActiveSprites, MaxSpritesPerLine, data.SpriteHeight)
}
