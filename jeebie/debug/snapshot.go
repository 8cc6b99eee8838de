package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/valerio/go-jeebie-core/jeebie/video"
	"golang.org/x/image/draw"
)

// grey levels for the 4 DMG shades
var shadeLevels = [4]uint8{0xFF, 0xAA, 0x55, 0x00}

// FrameImage converts a frame buffer to a greyscale image.
func FrameImage(frame *video.FrameBuffer) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for y := range video.FramebufferHeight {
		for x := range video.FramebufferWidth {
			img.SetGray(x, y, color.Gray{Y: shadeLevels[frame.GetPixel(x, y)&3]})
		}
	}
	return img
}

// ScaleImage enlarges img by an integer factor without smoothing.
func ScaleImage(img image.Image, scale int) image.Image {
	if scale <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteFramePNG encodes frame as a PNG, scale times its native size.
func WriteFramePNG(w io.Writer, frame *video.FrameBuffer, scale int) error {
	if err := png.Encode(w, ScaleImage(FrameImage(frame), scale)); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return nil
}

// SaveFramePNG writes frame to dir/name.png at native size, creating dir if
// needed.
func SaveFramePNG(frame *video.FrameBuffer, dir, name string) (string, error) {
	return SaveScaledFramePNG(frame, dir, name, 1)
}

func SaveScaledFramePNG(frame *video.FrameBuffer, dir, name string, scale int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteFramePNG(f, frame, scale); err != nil {
		return "", err
	}
	slog.Debug("frame snapshot saved", "path", path)
	return path, nil
}
