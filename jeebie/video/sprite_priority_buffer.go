package video

// SpritePriorityBuffer resolves which object pixel is shown at each screen
// column of the current line, see
// https://gbdev.io/pandocs/OAM.html#drawing-priority.
//
// On DMG:
//   - objects with lower X coordinates have priority
//   - when X coordinates match, lower OAM indices win
//   - a transparent pixel (color 0) never claims a column, so the object
//     below it shows through
//
// Example: overlap with same X coordinates
//
//	Pixels:    10 11 12 13 14 15 16 17 18 19 20 21 22 23 24 25
//	Sprite 1:           [-----D-----]                          (X=12, OAM=1)
//	Sprite 3:           [-----C-----]                          (X=12, OAM=3)
//	Sprite 5:  [-----E-----]                                   (X=10, OAM=5)
//	Result:    [-----E-----]--D-----]
//
// The winner's background priority flag is applied after resolution: a
// behind-BG winner is hidden by background colors 1-3 even when a lower
// priority object without the flag covers the same column.
type SpritePriorityBuffer struct {
	// ownerIndex tracks which object (by OAM index) owns each column,
	// -1 means no object owns it
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int

	color    [FramebufferWidth]int
	palette  [FramebufferWidth]uint8
	behindBG [FramebufferWidth]bool
}

// Clear resets the buffer for a new scanline.
func (s *SpritePriorityBuffer) Clear() {
	for i := range FramebufferWidth {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel attempts to claim a column for an object pixel. Returns true
// if the object wins priority.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX int, sp *Sprite, color int, palette uint8) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth || color == 0 {
		return false
	}

	current := s.ownerIndex[pixelX]
	spriteX := int(sp.X)
	switch {
	case current == -1:
	case spriteX < s.ownerX[pixelX]:
	case spriteX == s.ownerX[pixelX] && sp.OAMIndex < current:
	default:
		return false
	}

	s.ownerIndex[pixelX] = sp.OAMIndex
	s.ownerX[pixelX] = spriteX
	s.color[pixelX] = color
	s.palette[pixelX] = palette
	s.behindBG[pixelX] = sp.BehindBG
	return true
}

// GetOwner returns the OAM index that owns a column, or -1 if none.
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
