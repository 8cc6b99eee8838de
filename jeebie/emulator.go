package jeebie

import (
	"github.com/valerio/go-jeebie-core/jeebie/joypad"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// Emulator is what a frontend drives: one frame at a time, with host input
// forwarded to the joypad.
type Emulator interface {
	RunUntilFrame() error
	Frame() *video.FrameBuffer
	Press(k joypad.Key)
	Release(k joypad.Key)
}

var (
	_ Emulator = (*DMG)(nil)
	_ Emulator = (*TestPattern)(nil)
)
