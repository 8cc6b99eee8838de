// Package jeebie wires the DMG components together and drives them in
// lock-step, one machine cycle at a time.
package jeebie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/valerio/go-jeebie-core/jeebie/addr"
	"github.com/valerio/go-jeebie-core/jeebie/audio"
	"github.com/valerio/go-jeebie-core/jeebie/cartridge"
	"github.com/valerio/go-jeebie-core/jeebie/cpu"
	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/interrupt"
	"github.com/valerio/go-jeebie-core/jeebie/joypad"
	"github.com/valerio/go-jeebie-core/jeebie/memory"
	"github.com/valerio/go-jeebie-core/jeebie/serial"
	"github.com/valerio/go-jeebie-core/jeebie/timer"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// lcdOffFrameCycles bounds RunUntilFrame while the LCD is off: one frame
// worth of machine cycles.
const lcdOffFrameCycles = video.DotsPerFrame / 4

const machineCyclesPerSecond = 1 << 20

// DMG is a complete machine.
type DMG struct {
	sched Scheduler

	cpu    *cpu.CPU
	bus    *memory.Bus
	irq    *interrupt.Controller
	timer  *timer.Timer
	ppu    *video.PPU
	cart   *cartridge.Cartridge
	joypad *joypad.Joypad
	serial *serial.LogSink
	apu    *audio.APU

	tracer     *debug.Tracer
	breakpoint func(opcode uint8, pc uint16) bool
	frames     uint64
	logger     *slog.Logger

	err     error
	stopped atomic.Bool
}

// cpuBus is the CPU's view of the machine: memory through the bus, and time
// through the scheduler.
type cpuBus struct {
	*memory.Bus
	sched *Scheduler
}

func (b cpuBus) Tick() {
	b.sched.tick()
}

// New builds a machine from program and options. Without a boot ROM the
// machine starts in the state the DMG boot ROM leaves behind, at 0x0100.
func New(program []byte, opts ...Option) (*DMG, error) {
	cfg := Config{Program: program}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithFile loads a program image, possibly compressed, and builds a
// machine from it.
func NewWithFile(path string, opts ...Option) (*DMG, error) {
	data, err := cartridge.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(data, opts...)
}

func NewWithConfig(cfg Config) (*DMG, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cart, err := cartridge.New(cfg.Program)
	if err != nil {
		return nil, &ConfigError{Field: "program", Reason: "cannot load cartridge", Err: err}
	}

	d := &DMG{cart: cart, logger: cfg.Logger}
	cart.SetClock(cartridge.ClockFunc(d.emulatedTime))
	d.irq = interrupt.New()
	d.timer = timer.New(d.irq)
	d.ppu = video.New(d.irq)
	d.joypad = joypad.New(d.irq)
	d.apu = audio.New()

	serialOpts := []serial.LogSinkOption{serial.WithLogger(cfg.Logger)}
	if cfg.SerialTiming == SerialFixed {
		serialOpts = append(serialOpts, serial.WithFixedTiming())
	}
	d.serial = serial.NewLogSink(d.irq, serialOpts...)

	d.bus = memory.New(cart, d.ppu, d.irq)
	d.bus.MapIO(addr.P1, addr.P1, d.joypad)
	d.bus.MapIO(addr.SB, addr.SC, d.serial)
	d.bus.MapIO(addr.DIV, addr.TAC, d.timer)
	d.bus.MapIO(addr.IF, addr.IF, d.irq)
	d.bus.MapIO(addr.AudioStart, addr.AudioEnd, d.apu)
	d.bus.MapIO(addr.LCDC, addr.LYC, d.ppu)
	d.bus.MapIO(addr.BGP, addr.WX, d.ppu)

	d.sched.Register(d.timer, d.bus, d.ppu, d.serial, d.apu)

	d.cpu = cpu.New(cpuBus{Bus: d.bus, sched: &d.sched}, d.irq)
	d.cpu.SetStopHooks(d.timer.ResetDivider, d.joypad.Low)

	if cfg.BootROM != nil {
		d.bus.SetBootROM(cfg.BootROM)
		d.cpu.ResetForBootROM()
		d.timer.Reset(0)
	} else {
		d.timer.Reset(timer.PostBootCounter)
		d.ppu.SetPostBoot()
		d.irq.Write(addr.IF, 0x01)
	}

	if cfg.FrameConsumer != nil {
		d.ppu.SetFrameConsumer(cfg.FrameConsumer)
	}
	if cfg.Trace != nil {
		d.tracer = debug.NewTracer(cfg.Trace, cfg.TraceFormat)
	}

	d.logger.Info("machine created",
		"title", cart.Header.Title,
		"type", cart.Header.Kind,
		"boot_rom", cfg.BootROM != nil,
		"serial", cfg.SerialTiming)
	return d, nil
}

// emulatedTime is the Unix epoch plus the machine cycles run so far, so the
// cartridge clock advances with the machine and not with the host.
func (d *DMG) emulatedTime() time.Time {
	c := d.sched.Cycles()
	return time.Unix(int64(c/machineCyclesPerSecond), int64(c%machineCyclesPerSecond)*int64(time.Second)/machineCyclesPerSecond)
}

// Step runs one CPU step: an instruction, an interrupt dispatch, or a single
// halted or stopped cycle. It returns the machine cycles consumed.
func (d *DMG) Step() (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	if d.tracer != nil && d.executesNext() {
		d.tracer.Trace(d.cpu.Registers(), d.bus)
	}

	before := d.cpu.Instructions()
	n, err := d.cpu.Step()
	if err != nil {
		d.err = err
		d.logger.Error("cpu halted on fatal error", "error", err, "cycles", d.sched.cycles)
		return n, err
	}

	if d.ppu.FrameReady() {
		d.frames++
	}
	if err := d.ppu.ConsumerErr(); err != nil {
		return n, fmt.Errorf("frame consumer: %w", err)
	}

	if d.breakpoint != nil && d.cpu.Instructions() != before {
		op := d.cpu.CurrentOpcode()
		if op > 0xFF {
			op >>= 8
		}
		if d.breakpoint(uint8(op), d.cpu.CurrentPC()) {
			return n, ErrBreakpoint
		}
	}
	return n, nil
}

// executesNext reports whether the next Step fetches an instruction, as
// opposed to idling or dispatching an interrupt. Instructions run from the
// boot ROM are not traced.
func (d *DMG) executesNext() bool {
	if d.bus.BootROMEnabled() || d.cpu.IsStopped() {
		return false
	}
	pending := d.irq.Pending() != 0
	if d.cpu.IsHalted() && !pending {
		return false
	}
	return !(d.cpu.IME() && pending)
}

// RunCycles runs whole steps until at least n machine cycles have elapsed.
func (d *DMG) RunCycles(n uint64) error {
	target := d.sched.cycles + n
	for d.sched.cycles < target {
		if _, err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilFrame runs until the PPU enters VBlank. With the LCD off no frame
// ever completes, so it returns after one frame's worth of cycles instead.
func (d *DMG) RunUntilFrame() error {
	start := d.sched.cycles
	frames := d.frames
	for d.frames == frames {
		if !d.ppu.LCDEnabled() && d.sched.cycles-start >= lcdOffFrameCycles {
			return nil
		}
		if _, err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Run executes frames until ctx is cancelled, Stop is called or a fatal
// error occurs.
func (d *DMG) Run(ctx context.Context) error {
	d.stopped.Store(false)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.stopped.Load() {
			return ErrStopped
		}
		if err := d.RunUntilFrame(); err != nil {
			return err
		}
	}
}

// Stop asks Run to return at the next frame boundary. Safe to call from any
// goroutine.
func (d *DMG) Stop() {
	d.stopped.Store(true)
}

// Cycles returns the machine cycles elapsed since power on.
func (d *DMG) Cycles() uint64 {
	return d.sched.Cycles()
}

// Err returns the fatal error that halted the machine, if any.
func (d *DMG) Err() error {
	return d.err
}

// Frames counts completed frames.
func (d *DMG) Frames() uint64 {
	return d.frames
}

// Press and Release forward host input to the joypad.
func (d *DMG) Press(k joypad.Key)   { d.joypad.Press(k) }
func (d *DMG) Release(k joypad.Key) { d.joypad.Release(k) }

// FlushTrace writes out buffered trace lines.
func (d *DMG) FlushTrace() error {
	if d.tracer == nil {
		return nil
	}
	return d.tracer.Flush()
}

// IsFatal reports whether err stops the machine for good.
func IsFatal(err error) bool {
	var opErr *cpu.UnimplementedOpcodeError
	return errors.As(err, &opErr)
}
