package cpu

// reg8 reads the 8-bit operand encoded in the low 3 bits of an opcode:
// B, C, D, E, H, L, (HL), A. The (HL) form costs a bus cycle.
func (c *CPU) reg8(index uint8) uint8 {
	switch index {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.read(c.getHL())
	}
	return c.a
}

func (c *CPU) setReg8(index uint8, value uint8) {
	switch index {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case 6:
		c.write(c.getHL(), value)
	default:
		c.a = value
	}
}

// rp is the 16-bit pair set used by loads and arithmetic: BC, DE, HL, SP.
func (c *CPU) rp(index uint8) uint16 {
	switch index {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	}
	return c.sp
}

func (c *CPU) setRP(index uint8, value uint16) {
	switch index {
	case 0:
		c.setBC(value)
	case 1:
		c.setDE(value)
	case 2:
		c.setHL(value)
	default:
		c.sp = value
	}
}

// rp2 is the pair set used by PUSH and POP: BC, DE, HL, AF.
func (c *CPU) rp2(index uint8) uint16 {
	if index == 3 {
		return c.getAF()
	}
	return c.rp(index)
}

func (c *CPU) setRP2(index uint8, value uint16) {
	if index == 3 {
		c.setAF(value)
		return
	}
	c.setRP(index, value)
}

// condition evaluates NZ, Z, NC, C.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	}
	return c.isSetFlag(carryFlag)
}

func (c *CPU) inc(value uint8) uint8 {
	value++
	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0)
	c.resetFlag(subFlag)
	return value
}

func (c *CPU) dec(value uint8) uint8 {
	value--
	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)
	c.setFlag(subFlag)
	return value
}

// alu dispatches the 8 accumulator operations in opcode order:
// ADD ADC SUB SBC AND XOR OR CP.
func (c *CPU) alu(op uint8, value uint8) {
	switch op {
	case 0:
		c.addToA(value, false)
	case 1:
		c.addToA(value, true)
	case 2:
		c.a = c.sub(value, false)
	case 3:
		c.a = c.sub(value, true)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	default:
		c.sub(value, false)
	}
}

// addToA sets the result of adding value (and optionally the carry) to A,
// while setting all relevant flags.
func (c *CPU) addToA(value uint8, withCarry bool) {
	carry := uint8(0)
	if withCarry {
		carry = c.flagToBit(carryFlag)
	}
	a := c.a
	result := uint16(a) + uint16(value) + uint16(carry)

	c.setFlagToCondition(zeroFlag, uint8(result) == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(carryFlag, result > 0xFF)

	c.a = uint8(result)
}

// sub returns A minus value (and optionally the carry), setting all flags.
// CP is sub with the result discarded.
func (c *CPU) sub(value uint8, withCarry bool) uint8 {
	carry := 0
	if withCarry {
		carry = int(c.flagToBit(carryFlag))
	}
	a := c.a
	result := int(a) - int(value) - carry

	c.setFlagToCondition(zeroFlag, uint8(result) == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, int(a&0xF)-int(value&0xF)-carry < 0)
	c.setFlagToCondition(carryFlag, result < 0)

	return uint8(result)
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.f = uint8(halfCarryFlag)
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.f = 0
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.f = 0
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

// addToHL adds a 16 bit value to HL. Z is untouched, H and C come from
// bits 11 and 15.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, result > 0xFFFF)

	c.setHL(uint16(result))
}

// addSP returns SP plus a signed offset. Flags come from the unsigned add of
// the low bytes, Z and N are cleared.
func (c *CPU) addSP(offset uint8) uint16 {
	sp := c.sp
	result := sp + uint16(int8(offset))

	c.f = 0
	c.setFlagToCondition(halfCarryFlag, (sp&0xF)+uint16(offset&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+uint16(offset) > 0xFF)

	return result
}

func (c *CPU) daa() {
	a := c.a
	carry := c.isSetFlag(carryFlag)

	if !c.isSetFlag(subFlag) {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) shiftFlags(result uint8, carry bool) uint8 {
	c.f = 0
	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlagToCondition(carryFlag, carry)
	return result
}

func (c *CPU) rlc(value uint8) uint8 {
	return c.shiftFlags(value<<1|value>>7, value&0x80 != 0)
}

func (c *CPU) rrc(value uint8) uint8 {
	return c.shiftFlags(value>>1|value<<7, value&0x01 != 0)
}

func (c *CPU) rl(value uint8) uint8 {
	return c.shiftFlags(value<<1|c.flagToBit(carryFlag), value&0x80 != 0)
}

func (c *CPU) rr(value uint8) uint8 {
	return c.shiftFlags(value>>1|c.flagToBit(carryFlag)<<7, value&0x01 != 0)
}

func (c *CPU) sla(value uint8) uint8 {
	return c.shiftFlags(value<<1, value&0x80 != 0)
}

func (c *CPU) sra(value uint8) uint8 {
	return c.shiftFlags(value>>1|value&0x80, value&0x01 != 0)
}

func (c *CPU) swap(value uint8) uint8 {
	return c.shiftFlags(value<<4|value>>4, false)
}

func (c *CPU) srl(value uint8) uint8 {
	return c.shiftFlags(value>>1, value&0x01 != 0)
}

func (c *CPU) bit(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, value&(1<<index) == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) jr(offset uint8) {
	c.idle()
	c.pc += uint16(int8(offset))
}

func (c *CPU) halt() {
	if !c.ime && c.irq.Pending() != 0 {
		c.haltBug = true
		return
	}
	c.halted = true
}

// stop skips the padding byte, resets DIV and stops the clock until a
// joypad line goes low.
func (c *CPU) stop() {
	c.pc++
	if c.resetDivider != nil {
		c.resetDivider()
	}
	if !c.stopWake() {
		c.stopped = true
	}
}
