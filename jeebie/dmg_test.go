package jeebie

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/cartridge"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// buildROM returns a 32KB ROM-only image with program at 0x0100 and any
// extra chunks placed at their address.
func buildROM(program []byte, chunks map[uint16][]byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x100:], program)
	for at, chunk := range chunks {
		copy(rom[at:], chunk)
	}
	copy(rom[0x134:], "TEST")
	var sum byte
	for _, b := range rom[0x134:0x14D] {
		sum = sum - b - 1
	}
	rom[0x14D] = sum
	return rom
}

func newTestDMG(t *testing.T, program []byte, opts ...Option) *DMG {
	t.Helper()
	d, err := New(buildROM(program, nil), opts...)
	require.NoError(t, err)
	return d
}

var spin = []byte{0x18, 0xFE} // JR -2

func TestNewValidation(t *testing.T) {
	t.Run("missing program", func(t *testing.T) {
		_, err := New(nil)
		require.ErrorIs(t, err, ErrConfiguration)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "program", cfgErr.Field)
	})

	t.Run("boot rom size", func(t *testing.T) {
		_, err := New(buildROM(spin, nil), WithBootROM(make([]byte, 10)))
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("unsupported cartridge", func(t *testing.T) {
		rom := buildROM(spin, nil)
		rom[0x147] = 0x0F
		_, err := New(rom)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, cartridge.ErrUnsupportedType)
	})

	t.Run("image too small", func(t *testing.T) {
		_, err := New(make([]byte, 0x100))
		assert.ErrorIs(t, err, cartridge.ErrImageTooSmall)
	})
}

func TestPostBootState(t *testing.T) {
	d := newTestDMG(t, spin)
	s := d.Snapshot()

	assert.Equal(t, cpu.Registers{A: 0x01, F: 0xB0, B: 0x00, C: 0x13, D: 0x00, E: 0xD8, H: 0x01, L: 0x4D, SP: 0xFFFE, PC: 0x0100}, s.Registers)
	assert.Equal(t, uint8(0xAB), s.DIV)
	assert.Equal(t, uint8(0xE1), s.IF)
	assert.Equal(t, uint8(0xF8), s.TAC)
	assert.True(t, s.LCDOn)
	assert.Equal(t, video.OAMScan, s.Mode)
	assert.False(t, s.BootROM)
	assert.Equal(t, uint8(0x91), d.Peek(addr.LCDC))
	assert.Equal(t, "TEST", d.Header().Title)
}

func TestBootROMStart(t *testing.T) {
	boot := make([]byte, 256)
	boot[0] = 0x00
	d := newTestDMG(t, spin, WithBootROM(boot))

	s := d.Snapshot()
	assert.Equal(t, uint16(0x0000), s.Registers.PC)
	assert.True(t, s.BootROM)
	assert.False(t, s.LCDOn)
	assert.Equal(t, uint8(0x00), s.DIV)
}

func TestStepCountsCycles(t *testing.T) {
	d := newTestDMG(t, []byte{0x00, 0xC3, 0x00, 0x01})

	n, err := d.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = d.Step()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(5), d.Cycles())
	assert.Equal(t, uint64(2), d.Snapshot().Instructions)
}

func TestCartridgeClockFollowsMachine(t *testing.T) {
	rom := buildROM(spin, nil)
	rom[0x147] = 0x10 // MBC3+TIMER+RAM+BATTERY
	rom[0x149] = 0x02
	d, err := New(rom)
	require.NoError(t, err)

	d.cart.Write(0x0000, 0x0A)
	d.cart.Write(0x4000, 0x08)
	require.NoError(t, d.RunCycles(2*machineCyclesPerSecond+10))

	d.cart.Write(0x6000, 0x00)
	d.cart.Write(0x6000, 0x01)
	assert.Equal(t, uint8(2), d.Peek(0xA000), "two seconds of machine time")
}

func TestTimerLockstep(t *testing.T) {
	// DIV reads back 1 exactly 64 machine cycles after it was reset
	tests := []struct {
		nops     int
		expected uint8
	}{
		{60, 0x00},
		{61, 0x01},
	}

	for _, tt := range tests {
		program := []byte{0xE0, 0x04}
		program = append(program, bytes.Repeat([]byte{0x00}, tt.nops)...)
		program = append(program, 0xF0, 0x04)
		program = append(program, spin...)

		d := newTestDMG(t, program)
		for range tt.nops + 2 {
			_, err := d.Step()
			require.NoError(t, err)
		}
		assert.Equal(t, tt.expected, d.Snapshot().Registers.A, "nops %d", tt.nops)
	}
}

func TestRunUntilFrame(t *testing.T) {
	d := newTestDMG(t, spin)

	require.NoError(t, d.RunUntilFrame())
	assert.Equal(t, uint64(1), d.Frames())
	first := d.Cycles()
	assert.InDelta(t, 144*video.DotsPerLine/4, first, 3)
	assert.Equal(t, video.VBlank, d.Snapshot().Mode)

	require.NoError(t, d.RunUntilFrame())
	assert.Equal(t, uint64(2), d.Frames())
	assert.InDelta(t, video.DotsPerFrame/4, d.Cycles()-first, 3)
}

func TestRunUntilFrameLCDOff(t *testing.T) {
	// XOR A; LDH (LCDC),A; JR -2
	d := newTestDMG(t, append([]byte{0xAF, 0xE0, 0x40}, spin...))

	require.NoError(t, d.RunUntilFrame())
	assert.Zero(t, d.Frames())
	assert.False(t, d.Snapshot().LCDOn)
	assert.InDelta(t, lcdOffFrameCycles, d.Cycles(), 4)
}

func TestSerialAndBreakpoint(t *testing.T) {
	program := []byte{
		0x3E, 'H', 0xE0, 0x01, 0x3E, 0x81, 0xE0, 0x02,
		0x3E, 'i', 0xE0, 0x01, 0x3E, 0x81, 0xE0, 0x02,
		0x40, // LD B,B
	}
	d := newTestDMG(t, append(program, spin...))

	var hits []uint16
	d.SetBreakpoint(func(opcode uint8, pc uint16) bool {
		if opcode == 0x40 {
			hits = append(hits, pc)
			return true
		}
		return false
	})

	err := d.RunCycles(1000)
	require.ErrorIs(t, err, ErrBreakpoint)
	assert.Equal(t, []uint16{0x0110}, hits)
	assert.Equal(t, "Hi", string(d.SerialOutput()))
	assert.Equal(t, uint16(0x0111), d.Snapshot().Registers.PC)

	// not sticky
	d.SetBreakpoint(nil)
	require.NoError(t, d.RunCycles(100))
}

func TestTimerInterruptWakesHalt(t *testing.T) {
	program := []byte{
		0x3E, 0x04, 0xE0, 0xFF, // IE = timer
		0xAF, 0xE0, 0x0F, // IF = 0
		0x3E, 0x05, 0xE0, 0x07, // TAC = enabled, 16 clocks
		0xFB, // EI
		0x76, // HALT
		0x18, 0xFE,
	}
	handler := []byte{0x06, 0x42, 0xD9} // LD B,$42; RETI
	d, err := New(buildROM(program, map[uint16][]byte{0x50: handler}))
	require.NoError(t, err)

	require.NoError(t, d.RunCycles(2000))
	s := d.Snapshot()
	assert.Equal(t, uint8(0x42), s.Registers.B)
	assert.False(t, s.Halted)
}

func TestFatalOpcode(t *testing.T) {
	d := newTestDMG(t, []byte{0x00, 0xD3})

	err := d.RunCycles(10)
	var opErr *cpu.UnimplementedOpcodeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, uint16(0x0101), opErr.PC)
	assert.True(t, IsFatal(err))

	cycles := d.Cycles()
	_, again := d.Step()
	assert.Equal(t, err, again)
	assert.Equal(t, cycles, d.Cycles())
	assert.Equal(t, err, d.Err())
}

// busyProgram keeps the CPU, PPU and timer interacting: it enables the
// timer, then loops writing a counter to VRAM and WRAM.
var busyProgram = []byte{
	0x3E, 0x05, 0xE0, 0x07, // TAC
	0x21, 0x00, 0x98, // LD HL,$9800
	0x3C,             // INC A
	0x77,             // LD (HL),A
	0xEA, 0x00, 0xC0, // LD ($C000),A
	0x2C,       // INC L
	0x18, 0xF8, // JR -8
}

func TestDeterminismAndSaveState(t *testing.T) {
	a := newTestDMG(t, busyProgram)
	require.NoError(t, a.RunUntilFrame())
	require.NoError(t, a.RunUntilFrame())

	saved := a.SaveState()

	run := func(d *DMG) (Snapshot, []byte) {
		for range 3 {
			require.NoError(t, d.RunUntilFrame())
		}
		return d.Snapshot(), append([]byte(nil), d.Frame().Bytes()...)
	}
	wantSnap, wantFrame := run(a)

	b := newTestDMG(t, busyProgram)
	require.NoError(t, b.LoadState(saved))
	gotSnap, gotFrame := run(b)
	assert.Equal(t, wantSnap, gotSnap)
	assert.Equal(t, wantFrame, gotFrame)

	require.NoError(t, a.LoadState(saved))
	againSnap, _ := run(a)
	assert.Equal(t, wantSnap, againSnap)
}

func TestLoadStateRejectsBadInput(t *testing.T) {
	d := newTestDMG(t, busyProgram)
	require.NoError(t, d.RunUntilFrame())
	before := d.Snapshot()

	assert.ErrorIs(t, d.LoadState([]byte("garbage")), ErrBadState)

	saved := d.SaveState()
	assert.ErrorIs(t, d.LoadState(saved[:len(saved)/2]), ErrBadState)
	assert.Equal(t, before, d.Snapshot())

	assert.ErrorIs(t, d.LoadState(append(saved, 0x00)), ErrBadState)
	assert.Equal(t, before, d.Snapshot())

	older := bytes.Clone(saved)
	older[len(stateMagic)-1]--
	assert.ErrorIs(t, d.LoadState(older), ErrBadState, "older layouts are refused")
	assert.Equal(t, before, d.Snapshot())
}

func TestEveryComponentIsSaved(t *testing.T) {
	d := newTestDMG(t, spin)
	components := d.components()
	assert.Len(t, components, 9)
	for _, c := range components {
		assert.NotNil(t, c)
	}
}

type stopAfter struct {
	d      *DMG
	frames int
}

func (s *stopAfter) ConsumeFrame(*video.FrameBuffer) error {
	s.frames++
	if s.frames == 2 {
		s.d.Stop()
	}
	return nil
}

type failingConsumer struct{}

func (failingConsumer) ConsumeFrame(*video.FrameBuffer) error {
	return errors.New("display gone")
}

func TestRun(t *testing.T) {
	t.Run("cancelled context", func(t *testing.T) {
		d := newTestDMG(t, spin)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, d.Run(ctx), context.Canceled)
	})

	t.Run("stop", func(t *testing.T) {
		consumer := &stopAfter{}
		d := newTestDMG(t, spin, WithFrameConsumer(consumer))
		consumer.d = d

		assert.ErrorIs(t, d.Run(context.Background()), ErrStopped)
		assert.Equal(t, 2, consumer.frames)
		assert.Equal(t, uint64(2), d.Frames())
	})

	t.Run("consumer error", func(t *testing.T) {
		d := newTestDMG(t, spin, WithFrameConsumer(failingConsumer{}))
		err := d.Run(context.Background())
		assert.ErrorContains(t, err, "display gone")
	})
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDMG(t, []byte{0x00, 0x3E, 0x12}, WithTrace(&buf))

	for range 2 {
		_, err := d.Step()
		require.NoError(t, err)
	}
	require.NoError(t, d.FlushTrace())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A:01 F:B0 B:00 C:13 D:00 E:D8 H:01 L:4D SP:FFFE PC:0100 PCMEM:00,3E,12,00", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "PC:0101 PCMEM:3E,12,00,00"))

	buf.Reset()
	d = newTestDMG(t, []byte{0x00, 0x3E, 0x12}, WithTrace(&buf), WithTraceFormat(debug.TraceMnemonic))
	for range 2 {
		_, err := d.Step()
		require.NoError(t, err)
	}
	require.NoError(t, d.FlushTrace())
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "PC: 00:0101 (3E 12 00 00) LD A,$12"))
}

func TestTestPattern(t *testing.T) {
	e := NewTestPattern()
	assert.Equal(t, video.White, e.Frame().GetPixel(0, 0))
	assert.Equal(t, video.Black, e.Frame().GetPixel(8, 0))

	e.Press(0)
	assert.Equal(t, 0, e.Pattern())
	for range testPatternAnimationFrames {
		require.NoError(t, e.RunUntilFrame())
	}
	assert.Equal(t, video.Black, e.Frame().GetPixel(0, 0))
}
