package jeebie

import (
	"io"
	"log/slog"

	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/memory"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// SerialTiming selects how long a serial transfer takes with no peer.
type SerialTiming int

const (
	// SerialImmediate completes transfers on the write to SC.
	SerialImmediate SerialTiming = iota
	// SerialFixed completes transfers after 1024 machine cycles, like an
	// internally clocked DMG transfer.
	SerialFixed
)

func (t SerialTiming) String() string {
	if t == SerialFixed {
		return "fixed"
	}
	return "immediate"
}

// Config holds everything New needs to build a machine.
type Config struct {
	// Program is the cartridge image. Required.
	Program []byte
	// BootROM, when set, must be 256 bytes. Execution then starts at 0x0000
	// with the hardware in its power-on state instead of the post-boot state.
	BootROM []byte

	SerialTiming SerialTiming

	// Trace receives one line per executed instruction, gameboy-doctor
	// layout unless TraceFormat says otherwise.
	Trace       io.Writer
	TraceFormat debug.TraceFormat

	Logger        *slog.Logger
	FrameConsumer video.FrameConsumer
}

// Option customises a Config.
type Option func(*Config)

func WithBootROM(data []byte) Option {
	return func(c *Config) { c.BootROM = data }
}

func WithSerialTiming(t SerialTiming) Option {
	return func(c *Config) { c.SerialTiming = t }
}

func WithTrace(w io.Writer) Option {
	return func(c *Config) { c.Trace = w }
}

func WithTraceFormat(f debug.TraceFormat) Option {
	return func(c *Config) { c.TraceFormat = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithFrameConsumer registers a consumer called with every completed frame.
func WithFrameConsumer(fc video.FrameConsumer) Option {
	return func(c *Config) { c.FrameConsumer = fc }
}

func (c *Config) validate() error {
	if len(c.Program) == 0 {
		return &ConfigError{Field: "program", Reason: "no program image"}
	}
	if c.BootROM != nil && len(c.BootROM) != memory.BootROMSize {
		return &ConfigError{Field: "boot rom", Reason: "must be 256 bytes"}
	}
	if c.SerialTiming != SerialImmediate && c.SerialTiming != SerialFixed {
		return &ConfigError{Field: "serial timing", Reason: "unknown mode"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
