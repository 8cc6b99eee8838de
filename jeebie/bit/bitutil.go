package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// IsSet will check if the bit at the specified index is Set to 1 or not.
func IsSet(index, value uint8) bool {
	return ((value >> index) & 1) == 1
}

// IsSet16 is IsSet for 16 bit values.
func IsSet16(index uint8, value uint16) bool {
	return ((value >> index) & 1) == 1
}

// Set will return the passed byte with the bit at the specified index Set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Clear will return the passed byte with the bit at the specified index Set to 0.
func Clear(index, value uint8) uint8 {
	return value &^ (1 << index)
}

// SetTo sets or clears the bit at index depending on on.
func SetTo(index, value uint8, on bool) uint8 {
	if on {
		return Set(index, value)
	}
	return Clear(index, value)
}

// Value returns 1 if the bit at index is set, 0 otherwise.
func Value(index, value uint8) uint8 {
	return (value >> index) & 1
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// FromBool converts a condition to 0 or 1.
func FromBool(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
