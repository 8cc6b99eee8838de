// Package digest fingerprints emulator output so runs can be compared
// without storing frames.
package digest

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// Frames is a frame consumer that keeps a running hash chain over every
// frame it sees. Two runs produced the same output iff their chains match.
type Frames struct {
	chain  uint64
	last   uint64
	count  uint64
	unique map[uint64]uint64
	buf    [16]byte
}

func NewFrames() *Frames {
	return &Frames{unique: make(map[uint64]uint64)}
}

// Frame hashes a single frame buffer.
func Frame(fb *video.FrameBuffer) uint64 {
	return xxhash.Sum64(fb.Bytes())
}

func (f *Frames) ConsumeFrame(fb *video.FrameBuffer) error {
	f.last = Frame(fb)
	binary.LittleEndian.PutUint64(f.buf[:8], f.chain)
	binary.LittleEndian.PutUint64(f.buf[8:], f.last)
	f.chain = xxhash.Sum64(f.buf[:])
	if _, seen := f.unique[f.last]; !seen {
		f.unique[f.last] = f.count
	}
	f.count++
	return nil
}

// Chain returns the hash over all frames so far, 0 before the first.
func (f *Frames) Chain() uint64 { return f.chain }

// Last returns the hash of the most recent frame.
func (f *Frames) Last() uint64 { return f.last }

func (f *Frames) Count() uint64 { return f.count }

// Unique returns the number of distinct frames seen.
func (f *Frames) Unique() int { return len(f.unique) }

// FirstSeen returns the index of the first frame with hash h.
func (f *Frames) FirstSeen(h uint64) (uint64, bool) {
	i, ok := f.unique[h]
	return i, ok
}

func (f *Frames) String() string {
	return fmt.Sprintf("frames=%d unique=%d chain=%016x", f.count, len(f.unique), f.chain)
}
