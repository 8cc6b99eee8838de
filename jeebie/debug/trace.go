package debug

import (
	"bufio"
	"fmt"
	"io"

	"github.com/valerio/go-jeebie-core/jeebie/cpu"
	"github.com/valerio/go-jeebie-core/jeebie/disasm"
)

// TraceFormat selects the layout of a trace line.
type TraceFormat int

const (
	// TraceDoctor is the gameboy-doctor layout:
	//  A:01 F:B0 B:00 C:13 D:00 E:D8 H:01 L:4D SP:FFFE PC:0100 PCMEM:00,C3,13,02
	TraceDoctor TraceFormat = iota
	// TraceMnemonic adds the bank prefix and the disassembled instruction:
	//  A: 01 F: B0 B: 00 C: 13 D: 00 E: D8 H: 01 L: 4D SP: FFFE PC: 00:0100 (00 C3 13 02) NOP
	TraceMnemonic
)

// Tracer writes one line per instruction, with the registers as they are
// before it executes.
type Tracer struct {
	w      *bufio.Writer
	format TraceFormat
	err    error
}

func NewTracer(w io.Writer, format TraceFormat) *Tracer {
	return &Tracer{w: bufio.NewWriter(w), format: format}
}

// Trace records the instruction about to execute at r.PC.
func (t *Tracer) Trace(r cpu.Registers, mem disasm.Reader) {
	if t.err != nil {
		return
	}
	pc := r.PC
	m0, m1, m2, m3 := mem.Peek(pc), mem.Peek(pc+1), mem.Peek(pc+2), mem.Peek(pc+3)

	switch t.format {
	case TraceMnemonic:
		_, t.err = fmt.Fprintf(t.w,
			"A: %02X F: %02X B: %02X C: %02X D: %02X E: %02X H: %02X L: %02X SP: %04X PC: 00:%04X (%02X %02X %02X %02X) %s\n",
			r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, pc, m0, m1, m2, m3,
			disasm.DisassembleAt(pc, mem).Instruction)
	default:
		_, t.err = fmt.Fprintf(t.w,
			"A:%02X F:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X SP:%04X PC:%04X PCMEM:%02X,%02X,%02X,%02X\n",
			r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, pc, m0, m1, m2, m3)
	}
}

// Flush writes any buffered lines and returns the first write error.
func (t *Tracer) Flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}
