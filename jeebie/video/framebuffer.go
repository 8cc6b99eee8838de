package video

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
)

// Shade is a DMG grey level after palette mapping: 0 is the lightest, 3 the
// darkest.
type Shade uint8

const (
	White Shade = iota
	LightGrey
	DarkGrey
	Black
)

// FrameBuffer holds one shade per pixel, row-major.
type FrameBuffer struct {
	buffer [FramebufferWidth * FramebufferHeight]uint8
}

// NewFrameBuffer returns an all-white frame.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

func (fb *FrameBuffer) GetPixel(x, y int) Shade {
	return Shade(fb.buffer[y*FramebufferWidth+x])
}

func (fb *FrameBuffer) SetPixel(x, y int, s Shade) {
	fb.buffer[y*FramebufferWidth+x] = uint8(s)
}

// Row returns the pixels of line y. The slice aliases the buffer.
func (fb *FrameBuffer) Row(y int) []uint8 {
	return fb.buffer[y*FramebufferWidth : (y+1)*FramebufferWidth]
}

// Bytes returns the whole frame. The slice aliases the buffer.
func (fb *FrameBuffer) Bytes() []uint8 {
	return fb.buffer[:]
}

func (fb *FrameBuffer) Clear() {
	clear(fb.buffer[:])
}

// FrameConsumer receives every completed frame when the PPU enters VBlank. A
// returned error is surfaced to the caller driving the machine.
type FrameConsumer interface {
	ConsumeFrame(fb *FrameBuffer) error
}

// ScanlineConsumer receives each visible line as soon as it is drawn.
type ScanlineConsumer interface {
	ConsumeScanline(ly int, pixels []uint8)
}

// FrameConsumers fans a frame out to several consumers, stopping at the
// first error.
type FrameConsumers []FrameConsumer

func (fc FrameConsumers) ConsumeFrame(fb *FrameBuffer) error {
	for _, c := range fc {
		if err := c.ConsumeFrame(fb); err != nil {
			return err
		}
	}
	return nil
}
