package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"github.com/valerio/go-jeebie-core/jeebie"
	"github.com/valerio/go-jeebie-core/jeebie/cartridge"
	"github.com/valerio/go-jeebie-core/jeebie/conformance"
	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/digest"
	"github.com/valerio/go-jeebie-core/jeebie/render"
	"github.com/valerio/go-jeebie-core/jeebie/timing"
)

var machineFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "boot-rom",
		Usage: "Start from this 256 byte boot ROM instead of the post-boot state",
	},
	cli.StringFlag{
		Name:  "serial",
		Usage: "Serial transfer timing: immediate or fixed",
		Value: "immediate",
	},
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "Run a program in the terminal",
	ArgsUsage: "<ROM file>",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  "pacing",
			Usage: "Frame pacing: adaptive, ticker or none",
			Value: string(timing.PacingAdaptive),
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory for F9 frame snapshots",
			Value: ".",
		},
	}, machineFlags...),
	Action: runTerminal,
}

var headlessCommand = cli.Command{
	Name:      "headless",
	Usage:     "Run a program for a number of frames without a display",
	ArgsUsage: "<ROM file>",
	Flags: append([]cli.Flag{
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run (required)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save a PNG of the frame every N frames (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Enlarge snapshots by this factor",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "memviz",
			Usage: "Write a Graphviz dump of the final machine snapshot to this file",
		},
	}, machineFlags...),
	Action: runHeadless,
}

var testCommand = cli.Command{
	Name:      "test",
	Usage:     "Run a conformance test ROM and report its verdict",
	ArgsUsage: "<ROM file>",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  "suite",
			Usage: "mooneye or blargg",
			Value: string(conformance.Blargg),
		},
		cli.Uint64Flag{
			Name:  "budget",
			Usage: "Machine cycles to run before giving up",
			Value: conformance.DefaultBudget,
		},
	}, machineFlags...),
	Action: runTest,
}

var traceCommand = cli.Command{
	Name:      "trace",
	Usage:     "Write a per-instruction register trace",
	ArgsUsage: "<ROM file>",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  "out",
			Usage: "Trace file (default: stdout)",
		},
		cli.StringFlag{
			Name:  "format",
			Usage: "doctor or mnemonic",
			Value: "doctor",
		},
		cli.Uint64Flag{
			Name:  "cycles",
			Usage: "Machine cycles to trace",
			Value: 1 << 20,
		},
	}, machineFlags...),
	Action: runTrace,
}

// newMachine builds a DMG from the ROM argument and the shared flags.
func newMachine(c *cli.Context, opts ...jeebie.Option) (*jeebie.DMG, string, error) {
	romPath := c.Args().First()
	if romPath == "" {
		cli.ShowCommandHelp(c, c.Command.Name)
		return nil, "", errors.New("no ROM path provided")
	}

	opts = append(opts, jeebie.WithLogger(slog.Default()))

	switch c.String("serial") {
	case "immediate", "":
	case "fixed":
		opts = append(opts, jeebie.WithSerialTiming(jeebie.SerialFixed))
	default:
		return nil, "", fmt.Errorf("unknown serial timing %q", c.String("serial"))
	}

	if path := c.String("boot-rom"); path != "" {
		boot, err := cartridge.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, jeebie.WithBootROM(boot))
	}

	d, err := jeebie.NewWithFile(romPath, opts...)
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
	return d, name, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTerminal(c *cli.Context) error {
	var emu jeebie.Emulator
	if c.Bool("test-pattern") {
		slog.Info("Running in test pattern mode")
		emu = jeebie.NewTestPattern()
	} else {
		d, _, err := newMachine(c)
		if err != nil {
			return err
		}
		emu = d
	}

	limiter, err := timing.New(timing.Pacing(c.String("pacing")))
	if err != nil {
		return err
	}
	if t, ok := limiter.(*timing.TickerLimiter); ok {
		defer t.Stop()
	}

	screen, err := render.NewScreen()
	if err != nil {
		return err
	}
	term := render.NewTerminal(screen, emu, limiter, slog.Default())
	term.SetSnapshotDir(c.String("snapshot-dir"))
	defer term.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := term.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runHeadless(c *cli.Context) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	hashes := digest.NewFrames()
	d, romName, err := newMachine(c, jeebie.WithFrameConsumer(hashes))
	if err != nil {
		return err
	}

	interval := c.Int("snapshot-interval")
	dir := c.String("snapshot-dir")
	if interval > 0 && dir == "" {
		if dir, err = os.MkdirTemp("", "jeebie-snapshots-*"); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	slog.Info("Running headless mode", "frames", frames, "snapshot_interval", interval, "snapshot_dir", dir)

	ctx, cancel := signalContext()
	defer cancel()

	for i := 1; i <= frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.RunUntilFrame(); err != nil {
			return err
		}
		if interval > 0 && i%interval == 0 {
			path, err := debug.SaveScaledFramePNG(d.Frame(), dir, fmt.Sprintf("%s_frame_%d", romName, i), c.Int("snapshot-scale"))
			if err != nil {
				slog.Error("Failed to save snapshot", "frame", i, "error", err)
			} else {
				slog.Debug("Saved frame snapshot", "frame", i, "path", path)
			}
		}
	}

	if path := c.String("memviz"); path != "" {
		if err := writeGraph(path, d.Snapshot()); err != nil {
			return err
		}
	}

	slog.Info("Headless execution completed",
		"frames", d.Frames(),
		"cycles", d.Cycles(),
		"unique_frames", hashes.Unique(),
		"digest", fmt.Sprintf("%016x", hashes.Chain()))
	if out := d.SerialOutput(); len(out) > 0 {
		fmt.Fprintf(c.App.Writer, "%s\n", out)
	}
	return nil
}

func writeGraph(path string, s jeebie.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	debug.DumpGraph(f, &s)
	return nil
}

func runTest(c *cli.Context) error {
	suite, err := conformance.ParseSuite(c.String("suite"))
	if err != nil {
		return err
	}
	d, name, err := newMachine(c)
	if err != nil {
		return err
	}

	res, err := conformance.Run(d, suite, c.Uint64("budget"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %s\n", name, res)
	if res.Verdict != conformance.Pass {
		if res.Output != "" {
			fmt.Fprintf(c.App.Writer, "%s\n", res.Output)
		}
		return cli.NewExitError("", 2)
	}
	return nil
}

func runTrace(c *cli.Context) error {
	var format debug.TraceFormat
	switch c.String("format") {
	case "doctor":
		format = debug.TraceDoctor
	case "mnemonic":
		format = debug.TraceMnemonic
	default:
		return fmt.Errorf("unknown trace format %q", c.String("format"))
	}

	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	d, _, err := newMachine(c, jeebie.WithTrace(w), jeebie.WithTraceFormat(format))
	if err != nil {
		return err
	}

	runErr := d.RunCycles(c.Uint64("cycles"))
	if err := d.FlushTrace(); err != nil {
		return err
	}
	if runErr != nil && !jeebie.IsFatal(runErr) {
		return runErr
	}
	if runErr != nil {
		slog.Warn("trace ended early", "error", runErr, "cycles", d.Cycles())
	}
	return nil
}
