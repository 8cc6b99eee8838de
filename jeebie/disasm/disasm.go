package disasm

import (
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/bit"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
)

// Reader is a side-effect-free view of the address space, e.g. Bus.Peek.
type Reader interface {
	Peek(address uint16) uint8
}

// DisassemblyLine represents a single disassembled instruction
type DisassemblyLine struct {
	Address     uint16
	Instruction string
	Length      int
}

// DisassembleAt disassembles the instruction at the given program counter
func DisassembleAt(pc uint16, mem Reader) DisassemblyLine {
	opcode := mem.Peek(pc)

	if opcode == 0xCB {
		in := cpu.LookupCB(mem.Peek(pc + 1))
		return DisassemblyLine{Address: pc, Instruction: in.Mnemonic, Length: in.Length}
	}

	in := cpu.Lookup(opcode)
	var instruction string
	switch in.Length {
	case 2:
		instruction = fmt.Sprintf(in.Mnemonic, mem.Peek(pc+1))
	case 3:
		instruction = fmt.Sprintf(in.Mnemonic, bit.Combine(mem.Peek(pc+2), mem.Peek(pc+1)))
	default:
		instruction = in.Mnemonic
	}
	// STOP carries a padding byte but no operand
	if opcode == 0x10 {
		instruction = in.Mnemonic
	}

	return DisassemblyLine{
		Address:     pc,
		Instruction: instruction,
		Length:      in.Length,
	}
}

// DisassembleRange disassembles count instructions starting from startPC.
func DisassembleRange(startPC uint16, count int, mem Reader) []DisassemblyLine {
	lines := make([]DisassemblyLine, 0, count)
	pc := startPC

	for range count {
		line := DisassembleAt(pc, mem)
		lines = append(lines, line)
		pc += uint16(line.Length)
	}

	return lines
}

// DisassembleAround disassembles up to beforeCount instructions before
// currentPC, the instruction at currentPC and afterCount instructions after.
// Since instructions have variable length, it searches backwards for a start
// address whose decoding lands exactly on currentPC.
func DisassembleAround(currentPC uint16, beforeCount, afterCount int, mem Reader) []DisassemblyLine {
	startPC, found := currentPC, 0

	for offset := beforeCount * 3; offset > 0; offset-- {
		if int(currentPC) < offset {
			continue
		}
		pc := currentPC - uint16(offset)
		count := 0
		for pc < currentPC {
			pc += uint16(DisassembleAt(pc, mem).Length)
			count++
		}
		if pc == currentPC && count >= beforeCount {
			startPC, found = currentPC-uint16(offset), count
			break
		}
	}

	return DisassembleRange(startPC, found+1+afterCount, mem)
}

// FormatDisassemblyLine formats a disassembly line for display
func FormatDisassemblyLine(line DisassemblyLine, isCurrentPC bool) string {
	prefix := " "
	if isCurrentPC {
		prefix = ">"
	}

	return fmt.Sprintf("%s0x%04X: %s", prefix, line.Address, line.Instruction)
}
