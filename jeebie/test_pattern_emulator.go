package jeebie

import (
	"github.com/valerio/go-jeebie-core/jeebie/joypad"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

const (
	testPatternTileSize        = 8
	testPatternAnimationFrames = 30
	testPatternCount           = 4
)

// TestPattern produces fixed frames without emulating anything. Frontends use
// it to check their output path. Pressing Select cycles the pattern.
type TestPattern struct {
	frame   *video.FrameBuffer
	pattern int
	counter int
	offset  int
}

func NewTestPattern() *TestPattern {
	e := &TestPattern{frame: video.NewFrameBuffer()}
	e.draw()
	return e
}

func (e *TestPattern) RunUntilFrame() error {
	e.counter++
	if e.counter%testPatternAnimationFrames == 0 {
		e.offset++
		e.draw()
	}
	return nil
}

func (e *TestPattern) Frame() *video.FrameBuffer {
	return e.frame
}

func (e *TestPattern) Press(k joypad.Key) {
	if k == joypad.Select {
		e.pattern = (e.pattern + 1) % testPatternCount
		e.draw()
	}
}

func (e *TestPattern) Release(joypad.Key) {}

// Pattern returns the index of the pattern on screen.
func (e *TestPattern) Pattern() int {
	return e.pattern
}

func (e *TestPattern) draw() {
	for y := range video.FramebufferHeight {
		for x := range video.FramebufferWidth {
			var shade video.Shade
			switch e.pattern {
			case 0: // checkerboard
				if ((x/testPatternTileSize)+(y/testPatternTileSize)+e.offset)%2 != 0 {
					shade = video.Black
				}
			case 1: // gradient
				shade = video.Shade(x * 4 / video.FramebufferWidth)
			case 2: // stripes
				shade = video.Shade(((y / testPatternTileSize) + e.offset) % 4)
			default: // diagonal
				shade = video.Shade(((x+y)/testPatternTileSize + e.offset) % 4)
			}
			e.frame.SetPixel(x, y, shade)
		}
	}
}
