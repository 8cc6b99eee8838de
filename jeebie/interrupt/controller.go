package interrupt

import (
	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/state"
)

// Source is one of the five interrupt lines, numbered by IF/IE bit position.
// Lower numbers have higher priority.
type Source uint8

const (
	// VBlank is fired when the PPU enters line 144.
	VBlank Source = iota
	// LCDStat is fired on a rising edge of the STAT interrupt line.
	LCDStat
	// Timer is fired when TIMA is reloaded after an overflow.
	Timer
	// Serial is fired when a serial transfer has completed.
	Serial
	// Joypad is fired when any selected input line goes from high to low.
	Joypad
)

const sourceMask = 0x1F

var names = [...]string{"vblank", "stat", "timer", "serial", "joypad"}

func (s Source) String() string {
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Vector is the handler address jumped to when s is dispatched.
func (s Source) Vector() uint16 {
	return 0x40 + 8*uint16(s)
}

// Mask returns the IF/IE bit for s.
func (s Source) Mask() uint8 {
	return 1 << s
}

// Controller holds the requested (IF) and enabled (IE) sets. IME lives in the
// CPU since only instruction execution touches it.
type Controller struct {
	flag   uint8
	enable uint8
}

// New returns a controller with nothing requested or enabled.
func New() *Controller {
	return &Controller{}
}

// Request raises the IF bit for src.
func (c *Controller) Request(src Source) {
	c.flag |= src.Mask()
}

// Pending returns IE & IF restricted to the five real lines.
func (c *Controller) Pending() uint8 {
	return c.flag & c.enable & sourceMask
}

// Highest returns the highest priority pending source without clearing it.
func (c *Controller) Highest() (Source, bool) {
	p := c.Pending()
	if p == 0 {
		return 0, false
	}
	for i := Source(0); i < 5; i++ {
		if p&i.Mask() != 0 {
			return i, true
		}
	}
	return 0, false
}

// Acknowledge clears the IF bit for src.
func (c *Controller) Acknowledge(src Source) {
	c.flag &^= src.Mask()
}

// Dispatch returns the highest priority pending source and clears its IF bit.
// The CPU calls it mid-dispatch, after pushing PCH; false there means the
// push cleared every pending line and execution continues at 0x0000.
func (c *Controller) Dispatch() (Source, bool) {
	src, ok := c.Highest()
	if ok {
		c.Acknowledge(src)
	}
	return src, ok
}

// Read serves the IF and IE registers. The upper 3 bits of IF always read as 1.
func (c *Controller) Read(address uint16) byte {
	switch address {
	case addr.IF:
		return c.flag | 0xE0
	case addr.IE:
		return c.enable
	}
	return 0xFF
}

// Write serves the IF and IE registers. All 8 bits of IE are stored.
func (c *Controller) Write(address uint16, value byte) {
	switch address {
	case addr.IF:
		c.flag = value & sourceMask
	case addr.IE:
		c.enable = value
	}
}

func (c *Controller) Save(s *state.State) {
	s.Write8(c.flag)
	s.Write8(c.enable)
}

func (c *Controller) Load(s *state.State) {
	c.flag = s.Read8()
	c.enable = s.Read8()
}
