// Package state implements the in-memory snapshot buffer used to save and
// restore a running machine. Components append their fields in a fixed order
// on Save and consume them in the same order on Load.
package state

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is reported when a snapshot ends before every component
// has been restored.
var ErrShortBuffer = errors.New("state: snapshot truncated")

// Stater is implemented by every component holding timing-relevant state.
type Stater interface {
	Save(*State)
	Load(*State)
}

// State is an append-only byte buffer with a read cursor. Read errors are
// sticky: after the first short read all further reads return zero values and
// Err reports ErrShortBuffer.
type State struct {
	raw []byte
	pos int
	err error
}

// New returns an empty state ready for writing.
func New() *State {
	return &State{raw: make([]byte, 0, 64*1024)}
}

// FromBytes wraps a snapshot produced by Bytes for reading.
func FromBytes(raw []byte) *State {
	return &State{raw: raw}
}

// Bytes returns the written snapshot.
func (s *State) Bytes() []byte { return s.raw }

// Err returns the first read error, if any.
func (s *State) Err() error { return s.err }

// Remaining is the number of unread bytes.
func (s *State) Remaining() int { return len(s.raw) - s.pos }

func (s *State) Write8(v uint8) { s.raw = append(s.raw, v) }

func (s *State) Write16(v uint16) { s.raw = binary.LittleEndian.AppendUint16(s.raw, v) }

func (s *State) Write32(v uint32) { s.raw = binary.LittleEndian.AppendUint32(s.raw, v) }

func (s *State) Write64(v uint64) { s.raw = binary.LittleEndian.AppendUint64(s.raw, v) }

func (s *State) WriteInt(v int) { s.Write64(uint64(int64(v))) }

func (s *State) WriteBool(v bool) {
	if v {
		s.Write8(1)
		return
	}
	s.Write8(0)
}

// WriteData appends a length-prefixed byte slice.
func (s *State) WriteData(p []byte) {
	s.Write32(uint32(len(p)))
	s.raw = append(s.raw, p...)
}

func (s *State) take(n int) []byte {
	if s.err != nil {
		return nil
	}
	if s.pos+n > len(s.raw) {
		s.err = ErrShortBuffer
		return nil
	}
	b := s.raw[s.pos : s.pos+n]
	s.pos += n
	return b
}

func (s *State) Read8() uint8 {
	b := s.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (s *State) Read16() uint16 {
	b := s.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (s *State) Read32() uint32 {
	b := s.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (s *State) Read64() uint64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (s *State) ReadInt() int { return int(int64(s.Read64())) }

func (s *State) ReadBool() bool { return s.Read8() != 0 }

// ReadData fills p from a length-prefixed slice written by WriteData. A
// length mismatch is treated as a truncated snapshot.
func (s *State) ReadData(p []byte) {
	n := int(s.Read32())
	if s.err != nil {
		return
	}
	if n != len(p) {
		s.err = ErrShortBuffer
		return
	}
	copy(p, s.take(n))
}
