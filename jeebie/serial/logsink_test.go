package serial

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
)

func send(s *LogSink, b byte) {
	s.Write(addr.SB, b)
	s.Write(addr.SC, 0x81)
}

func TestImmediateTransfer(t *testing.T) {
	ic := interrupt.New()
	var logs bytes.Buffer
	s := NewLogSink(ic, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	for _, b := range []byte("Passed\n") {
		send(s, b)
	}

	assert.Equal(t, []byte("Passed\n"), s.Output())
	assert.Equal(t, uint8(0xFF), s.Read(addr.SB))
	assert.Equal(t, uint8(0x7F), s.Read(addr.SC))
	assert.NotZero(t, ic.Read(addr.IF)&interrupt.Serial.Mask())
	assert.Contains(t, logs.String(), "line=Passed")
}

func TestFixedTimingTransfer(t *testing.T) {
	ic := interrupt.New()
	s := NewLogSink(ic, WithFixedTiming())
	send(s, 'A')

	for range transferCycles - 1 {
		s.Tick()
	}
	assert.Zero(t, ic.Read(addr.IF)&interrupt.Serial.Mask())
	assert.Equal(t, uint8(0xFF), s.Read(addr.SC))

	s.Tick()
	assert.NotZero(t, ic.Read(addr.IF)&interrupt.Serial.Mask())
	assert.Equal(t, uint8(0x7F), s.Read(addr.SC))
}

func TestExternalClockNeverCompletes(t *testing.T) {
	ic := interrupt.New()
	s := NewLogSink(ic)
	s.Write(addr.SB, 'x')
	s.Write(addr.SC, 0x80)
	for range 2 * transferCycles {
		s.Tick()
	}
	assert.Empty(t, s.Output())
	assert.Zero(t, ic.Read(addr.IF)&interrupt.Serial.Mask())
}
