package conformance

import (
	"bytes"

	"github.com/valerio/go-jeebie-core/jeebie"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
)

// ldBB is the software breakpoint Mooneye tests execute when done.
const ldBB = 0x40

var (
	mooneyePass = []byte{3, 5, 8, 13, 21, 34}
	mooneyeFail = []byte{0x42, 0x42, 0x42, 0x42, 0x42, 0x42}
)

// RunMooneye runs a Mooneye test ROM. The test ends on LD B,B, with the
// Fibonacci numbers 3 5 8 13 21 34 in B C D E H L on success. The same bytes
// go out over serial, 0x42 six times on failure.
func RunMooneye(d *jeebie.DMG, budget uint64) (Result, error) {
	d.SetBreakpoint(func(opcode uint8, _ uint16) bool { return opcode == ldBB })
	defer d.SetBreakpoint(nil)

	return runChunks(d, budget, func(hit bool) (Verdict, bool) {
		if hit {
			return mooneyeRegisters(d.Snapshot().Registers), true
		}
		out := d.SerialOutput()
		switch {
		case bytes.HasSuffix(out, mooneyePass):
			return Pass, true
		case bytes.HasSuffix(out, mooneyeFail):
			return Fail, true
		}
		return Timeout, false
	})
}

func mooneyeRegisters(r cpu.Registers) Verdict {
	if bytes.Equal([]byte{r.B, r.C, r.D, r.E, r.H, r.L}, mooneyePass) {
		return Pass
	}
	return Fail
}
