package conformance

import (
	"strings"

	"github.com/valerio/go-jeebie-core/jeebie"
)

// RunBlargg runs a Blargg test ROM, which reports over serial and ends its
// output with "Passed" or "Failed".
func RunBlargg(d *jeebie.DMG, budget uint64) (Result, error) {
	return runChunks(d, budget, func(bool) (Verdict, bool) {
		out := string(d.SerialOutput())
		switch {
		case strings.Contains(out, "Passed"):
			return Pass, true
		case strings.Contains(out, "Failed"):
			return Fail, true
		}
		return Timeout, false
	})
}
