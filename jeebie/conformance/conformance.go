// Package conformance detects pass/fail outcomes of the common hardware test
// ROM suites while driving a machine within a cycle budget.
package conformance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valerio/go-jeebie-core/jeebie"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
)

// chunkCycles is how often detectors look at serial output between steps.
const chunkCycles = 4096

// DefaultBudget is roughly two minutes of emulated time.
const DefaultBudget = 120 << 20

type Verdict int

const (
	Timeout Verdict = iota
	Pass
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "timeout"
	}
}

// Result describes how a run ended.
type Result struct {
	Verdict   Verdict
	Cycles    uint64
	Output    string
	Registers cpu.Registers
}

func (r Result) String() string {
	return fmt.Sprintf("%s after %d cycles", r.Verdict, r.Cycles)
}

// Suite selects a detector.
type Suite string

const (
	Mooneye Suite = "mooneye"
	Blargg  Suite = "blargg"
)

// ParseSuite accepts a suite name, case insensitively.
func ParseSuite(s string) (Suite, error) {
	switch Suite(strings.ToLower(s)) {
	case Mooneye:
		return Mooneye, nil
	case Blargg:
		return Blargg, nil
	}
	return "", fmt.Errorf("unknown test suite %q", s)
}

// Run drives d with the detector for suite until a verdict or budget cycles.
func Run(d *jeebie.DMG, suite Suite, budget uint64) (Result, error) {
	switch suite {
	case Mooneye:
		return RunMooneye(d, budget)
	case Blargg:
		return RunBlargg(d, budget)
	}
	return Result{}, fmt.Errorf("unknown test suite %q", suite)
}

// runChunks steps d in chunks until check reports done, the budget runs out
// or the machine fails. A breakpoint hit is passed to check as hit.
func runChunks(d *jeebie.DMG, budget uint64, check func(hit bool) (Verdict, bool)) (Result, error) {
	start := d.Cycles()
	for d.Cycles()-start < budget {
		n := min(chunkCycles, budget-(d.Cycles()-start))
		err := d.RunCycles(n)
		hit := errors.Is(err, jeebie.ErrBreakpoint)
		if err != nil && !hit {
			return result(d, start, Timeout), err
		}
		if v, done := check(hit); done {
			return result(d, start, v), nil
		}
	}
	return result(d, start, Timeout), nil
}

func result(d *jeebie.DMG, start uint64, v Verdict) Result {
	return Result{
		Verdict:   v,
		Cycles:    d.Cycles() - start,
		Output:    string(d.SerialOutput()),
		Registers: d.Snapshot().Registers,
	}
}
