package serial

import (
	"log/slog"

	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// transferCycles is the length of an internally clocked byte transfer on DMG
// (8 bits at 8192 Hz), in machine cycles.
const transferCycles = 1024

// Requester receives interrupt requests.
type Requester interface {
	Request(interrupt.Source)
}

// LogSink implements a serial port with no peer attached. Outgoing bytes are
// captured for harnesses and logged line by line, incoming bytes read 0xFF.
type LogSink struct {
	irq            Requester
	sb, sc         byte
	transferActive bool
	countdown      int
	logger         *slog.Logger

	// settings
	immediate bool
	defaultRX byte

	output []byte
	line   []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming makes transfers complete after 1024 machine cycles instead
// of immediately.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.immediate = false } }

// WithLogger sets the logger used for completed lines.
func WithLogger(l *slog.Logger) LogSinkOption { return func(s *LogSink) { s.logger = l } }

// NewLogSink creates a new logging serial device wired to irq.
func NewLogSink(irq Requester, opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irq:       irq,
		immediate: true,
		defaultRX: 0xFF,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value & 0x81
		s.maybeStartTransfer()
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	}
	return 0xFF
}

// Tick advances a pending transfer by one machine cycle.
func (s *LogSink) Tick() {
	if !s.transferActive {
		return
	}
	s.countdown--
	if s.countdown <= 0 {
		s.completeTransfer()
	}
}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.transferActive = false
	s.countdown = 0
	s.output = s.output[:0]
	s.line = s.line[:0]
}

// Output returns every byte sent so far.
func (s *LogSink) Output() []byte {
	return s.output
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// a transfer starts when bit 7 (start) and bit 0 (internal clock) of SC are set.
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	s.output = append(s.output, b)
	if b == 0 || b == '\n' || b == '\r' {
		s.flushLine()
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}

	s.transferActive = true
	s.countdown = transferCycles
}

func (s *LogSink) flushLine() {
	if len(s.line) == 0 {
		return
	}
	s.logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	s.countdown = 0
	s.irq.Request(interrupt.Serial)
}

func (s *LogSink) Save(st *state.State) {
	st.Write8(s.sb)
	st.Write8(s.sc)
	st.WriteBool(s.transferActive)
	st.WriteInt(s.countdown)
}

// Load restores the port registers. Captured output is not part of the
// machine state and is left untouched.
func (s *LogSink) Load(st *state.State) {
	s.sb = st.Read8()
	s.sc = st.Read8()
	s.transferActive = st.ReadBool()
	s.countdown = st.ReadInt()
}
