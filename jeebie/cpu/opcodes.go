package cpu

import (
	"fmt"

	"github.com/valerio/go-jeebie-core/jeebie/bit"
)

// Instruction describes one opcode. Mnemonic is a fmt template taking the
// immediate operand, if any. Cycles is the machine cycle cost, BranchCycles
// the cost when a conditional branch is taken.
type Instruction struct {
	Mnemonic     string
	Length       int
	Cycles       int
	BranchCycles int

	exec func(*CPU)
}

// Defined reports whether the opcode exists on the DMG.
func (in Instruction) Defined() bool {
	return in.exec != nil
}

// Lookup returns the unprefixed instruction for opcode.
func Lookup(opcode uint8) Instruction {
	return opcodes[opcode]
}

// LookupCB returns the 0xCB-prefixed instruction for opcode.
func LookupCB(opcode uint8) Instruction {
	return opcodesCB[opcode]
}

var (
	regNames  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	rpNames   = [4]string{"BC", "DE", "HL", "SP"}
	rp2Names  = [4]string{"BC", "DE", "HL", "AF"}
	condNames = [4]string{"NZ", "Z", "NC", "C"}
	aluNames  = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
)

var opcodes = buildOpcodes()

func buildOpcodes() [256]Instruction {
	var t [256]Instruction
	set := func(op uint8, mnemonic string, length, cycles int, exec func(*CPU)) {
		t[op] = Instruction{Mnemonic: mnemonic, Length: length, Cycles: cycles, exec: exec}
	}
	branch := func(op uint8, mnemonic string, length, cycles, taken int, exec func(*CPU)) {
		t[op] = Instruction{Mnemonic: mnemonic, Length: length, Cycles: cycles, BranchCycles: taken, exec: exec}
	}
	// (HL) operands add one bus cycle per access
	cost := func(base int, indices ...uint8) int {
		for _, i := range indices {
			if i == 6 {
				base++
			}
		}
		return base
	}

	set(0x00, "NOP", 1, 1, func(*CPU) {})
	set(0x08, "LD ($%04X),SP", 3, 5, func(c *CPU) {
		nn := c.fetchWord()
		c.write(nn, bit.Low(c.sp))
		c.write(nn+1, bit.High(c.sp))
	})
	set(0x10, "STOP", 2, 1, (*CPU).stop)
	set(0x18, "JR $%02X", 2, 3, func(c *CPU) { c.jr(c.fetch()) })

	// 16-bit loads and arithmetic
	for i := range uint8(4) {
		op := i << 4
		set(op|0x01, "LD "+rpNames[i]+",$%04X", 3, 3, func(c *CPU) { c.setRP(i, c.fetchWord()) })
		set(op|0x03, "INC "+rpNames[i], 1, 2, func(c *CPU) {
			c.idle()
			c.setRP(i, c.rp(i)+1)
		})
		set(op|0x0B, "DEC "+rpNames[i], 1, 2, func(c *CPU) {
			c.idle()
			c.setRP(i, c.rp(i)-1)
		})
		set(op|0x09, "ADD HL,"+rpNames[i], 1, 2, func(c *CPU) {
			c.idle()
			c.addToHL(c.rp(i))
		})
	}

	// accumulator loads through BC, DE and HL with post increment/decrement
	indirect := [4]struct {
		name    string
		address func(c *CPU) uint16
	}{
		{"(BC)", (*CPU).getBC},
		{"(DE)", (*CPU).getDE},
		{"(HL+)", func(c *CPU) uint16 {
			hl := c.getHL()
			c.setHL(hl + 1)
			return hl
		}},
		{"(HL-)", func(c *CPU) uint16 {
			hl := c.getHL()
			c.setHL(hl - 1)
			return hl
		}},
	}
	for i, ind := range indirect {
		op := uint8(i) << 4
		set(op|0x02, "LD "+ind.name+",A", 1, 2, func(c *CPU) { c.write(ind.address(c), c.a) })
		set(op|0x0A, "LD A,"+ind.name, 1, 2, func(c *CPU) { c.a = c.read(ind.address(c)) })
	}

	// 8-bit INC, DEC and immediate loads
	for r := range uint8(8) {
		op := r << 3
		set(op|0x04, "INC "+regNames[r], 1, cost(1, r, r), func(c *CPU) { c.setReg8(r, c.inc(c.reg8(r))) })
		set(op|0x05, "DEC "+regNames[r], 1, cost(1, r, r), func(c *CPU) { c.setReg8(r, c.dec(c.reg8(r))) })
		set(op|0x06, "LD "+regNames[r]+",$%02X", 2, cost(2, r), func(c *CPU) { c.setReg8(r, c.fetch()) })
	}

	set(0x07, "RLCA", 1, 1, func(c *CPU) {
		c.a = c.rlc(c.a)
		c.resetFlag(zeroFlag)
	})
	set(0x0F, "RRCA", 1, 1, func(c *CPU) {
		c.a = c.rrc(c.a)
		c.resetFlag(zeroFlag)
	})
	set(0x17, "RLA", 1, 1, func(c *CPU) {
		c.a = c.rl(c.a)
		c.resetFlag(zeroFlag)
	})
	set(0x1F, "RRA", 1, 1, func(c *CPU) {
		c.a = c.rr(c.a)
		c.resetFlag(zeroFlag)
	})
	set(0x27, "DAA", 1, 1, (*CPU).daa)
	set(0x2F, "CPL", 1, 1, func(c *CPU) {
		c.a = ^c.a
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
	})
	set(0x37, "SCF", 1, 1, func(c *CPU) {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
	})
	set(0x3F, "CCF", 1, 1, func(c *CPU) {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
	})

	// register to register loads, with HALT in place of LD (HL),(HL)
	for op := 0x40; op <= 0x7F; op++ {
		dst, src := uint8(op>>3)&7, uint8(op)&7
		set(uint8(op), "LD "+regNames[dst]+","+regNames[src], 1, cost(1, dst, src), func(c *CPU) {
			c.setReg8(dst, c.reg8(src))
		})
	}
	set(0x76, "HALT", 1, 1, (*CPU).halt)

	// accumulator arithmetic
	for op := 0x80; op <= 0xBF; op++ {
		fn, src := uint8(op>>3)&7, uint8(op)&7
		set(uint8(op), aluNames[fn]+regNames[src], 1, cost(1, src), func(c *CPU) { c.alu(fn, c.reg8(src)) })
	}
	for fn := range uint8(8) {
		set(0xC6|fn<<3, aluNames[fn]+"$%02X", 2, 2, func(c *CPU) { c.alu(fn, c.fetch()) })
	}

	// control flow
	for cc := range uint8(4) {
		branch(0x20|cc<<3, "JR "+condNames[cc]+",$%02X", 2, 2, 3, func(c *CPU) {
			e := c.fetch()
			if c.condition(cc) {
				c.jr(e)
			}
		})
		branch(0xC0|cc<<3, "RET "+condNames[cc], 1, 2, 5, func(c *CPU) {
			c.idle()
			if c.condition(cc) {
				c.pc = c.popStack()
				c.idle()
			}
		})
		branch(0xC2|cc<<3, "JP "+condNames[cc]+",$%04X", 3, 3, 4, func(c *CPU) {
			nn := c.fetchWord()
			if c.condition(cc) {
				c.idle()
				c.pc = nn
			}
		})
		branch(0xC4|cc<<3, "CALL "+condNames[cc]+",$%04X", 3, 3, 6, func(c *CPU) {
			nn := c.fetchWord()
			if c.condition(cc) {
				c.pushStack(c.pc)
				c.pc = nn
			}
		})
	}
	for i := range uint8(4) {
		set(0xC1|i<<4, "POP "+rp2Names[i], 1, 3, func(c *CPU) { c.setRP2(i, c.popStack()) })
		set(0xC5|i<<4, "PUSH "+rp2Names[i], 1, 4, func(c *CPU) { c.pushStack(c.rp2(i)) })
	}
	for i := range uint8(8) {
		set(0xC7|i<<3, fmt.Sprintf("RST $%02X", i*8), 1, 4, func(c *CPU) {
			c.pushStack(c.pc)
			c.pc = uint16(i) * 8
		})
	}

	set(0xC3, "JP $%04X", 3, 4, func(c *CPU) {
		nn := c.fetchWord()
		c.idle()
		c.pc = nn
	})
	set(0xC9, "RET", 1, 4, func(c *CPU) {
		c.pc = c.popStack()
		c.idle()
	})
	set(0xD9, "RETI", 1, 4, func(c *CPU) {
		c.pc = c.popStack()
		c.idle()
		c.ime = true
		c.eiDelay = 0
	})
	set(0xCD, "CALL $%04X", 3, 6, func(c *CPU) {
		nn := c.fetchWord()
		c.pushStack(c.pc)
		c.pc = nn
	})
	set(0xE9, "JP HL", 1, 1, func(c *CPU) { c.pc = c.getHL() })

	// high page and absolute loads
	set(0xE0, "LDH ($FF%02X),A", 2, 3, func(c *CPU) { c.write(0xFF00|uint16(c.fetch()), c.a) })
	set(0xF0, "LDH A,($FF%02X)", 2, 3, func(c *CPU) { c.a = c.read(0xFF00 | uint16(c.fetch())) })
	set(0xE2, "LD ($FF00+C),A", 1, 2, func(c *CPU) { c.write(0xFF00|uint16(c.c), c.a) })
	set(0xF2, "LD A,($FF00+C)", 1, 2, func(c *CPU) { c.a = c.read(0xFF00 | uint16(c.c)) })
	set(0xEA, "LD ($%04X),A", 3, 4, func(c *CPU) { c.write(c.fetchWord(), c.a) })
	set(0xFA, "LD A,($%04X)", 3, 4, func(c *CPU) { c.a = c.read(c.fetchWord()) })

	// stack pointer arithmetic
	set(0xE8, "ADD SP,$%02X", 2, 4, func(c *CPU) {
		e := c.fetch()
		c.idle()
		c.idle()
		c.sp = c.addSP(e)
	})
	set(0xF8, "LD HL,SP+$%02X", 2, 3, func(c *CPU) {
		e := c.fetch()
		c.idle()
		c.setHL(c.addSP(e))
	})
	set(0xF9, "LD SP,HL", 1, 2, func(c *CPU) {
		c.idle()
		c.sp = c.getHL()
	})

	set(0xF3, "DI", 1, 1, func(c *CPU) {
		c.ime = false
		c.eiDelay = 0
	})
	set(0xFB, "EI", 1, 1, func(c *CPU) {
		if !c.ime && c.eiDelay == 0 {
			c.eiDelay = eiDelay
		}
	})

	// the prefix is decoded by Step, its cycle is part of every CB entry
	t[0xCB] = Instruction{Mnemonic: "PREFIX CB", Length: 2, Cycles: 2}
	for _, op := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		t[op] = Instruction{Mnemonic: fmt.Sprintf("ILLEGAL_%02X", op), Length: 1, Cycles: 1}
	}
	return t
}
