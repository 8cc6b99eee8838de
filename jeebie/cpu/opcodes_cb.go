package cpu

import "fmt"

var opcodesCB = buildCBOpcodes()

func buildCBOpcodes() [256]Instruction {
	var t [256]Instruction

	shifts := [8]struct {
		name string
		fn   func(*CPU, uint8) uint8
	}{
		{"RLC", (*CPU).rlc},
		{"RRC", (*CPU).rrc},
		{"RL", (*CPU).rl},
		{"RR", (*CPU).rr},
		{"SLA", (*CPU).sla},
		{"SRA", (*CPU).sra},
		{"SWAP", (*CPU).swap},
		{"SRL", (*CPU).srl},
	}

	for op := range 256 {
		group, y, r := uint8(op>>6), uint8(op>>3)&7, uint8(op)&7
		cycles := 2
		if r == 6 {
			cycles = 4
			if group == 1 {
				cycles = 3
			}
		}

		var in Instruction
		switch group {
		case 0:
			shift := shifts[y].fn
			in = Instruction{
				Mnemonic: shifts[y].name + " " + regNames[r],
				exec:     func(c *CPU) { c.setReg8(r, shift(c, c.reg8(r))) },
			}
		case 1:
			in = Instruction{
				Mnemonic: fmt.Sprintf("BIT %d,%s", y, regNames[r]),
				exec:     func(c *CPU) { c.bit(y, c.reg8(r)) },
			}
		case 2:
			in = Instruction{
				Mnemonic: fmt.Sprintf("RES %d,%s", y, regNames[r]),
				exec:     func(c *CPU) { c.setReg8(r, c.reg8(r)&^(1<<y)) },
			}
		default:
			in = Instruction{
				Mnemonic: fmt.Sprintf("SET %d,%s", y, regNames[r]),
				exec:     func(c *CPU) { c.setReg8(r, c.reg8(r)|1<<y) },
			}
		}
		in.Length = 2
		in.Cycles = cycles
		t[op] = in
	}
	return t
}
