package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

const upperHalf = '▀'

// palette maps shades to terminal colours, lightest first.
var palette = [4]tcell.Color{
	tcell.NewRGBColor(0xE0, 0xF8, 0xD0),
	tcell.NewRGBColor(0x88, 0xC0, 0x70),
	tcell.NewRGBColor(0x34, 0x68, 0x56),
	tcell.NewRGBColor(0x08, 0x18, 0x20),
}

// ShadeColor returns the terminal colour for s.
func ShadeColor(s video.Shade) tcell.Color {
	return palette[s&3]
}

// HalfBlock packs two vertically adjacent pixels into one cell: the upper
// half block drawn in the top shade over a background of the bottom shade.
func HalfBlock(top, bottom video.Shade) (rune, tcell.Style) {
	return upperHalf, tcell.StyleDefault.Foreground(ShadeColor(top)).Background(ShadeColor(bottom))
}

var asciiShades = [4]rune{' ', '░', '▒', '█'}

// FrameToText renders a frame as text, one character per pixel pair. Pairs
// of differing shades use the darker one. Handy for logs and golden files.
func FrameToText(fb *video.FrameBuffer) []string {
	lines := make([]string, 0, video.FramebufferHeight/2)
	for y := 0; y < video.FramebufferHeight; y += 2 {
		line := make([]rune, video.FramebufferWidth)
		for x := range video.FramebufferWidth {
			line[x] = asciiShades[max(fb.GetPixel(x, y), fb.GetPixel(x, y+1))&3]
		}
		lines = append(lines, string(line))
	}
	return lines
}
