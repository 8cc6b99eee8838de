// Package render draws emulator frames in a terminal with tcell.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-jeebie-core/jeebie"
	"github.com/valerio/go-jeebie-core/jeebie/debug"
	"github.com/valerio/go-jeebie-core/jeebie/input"
	"github.com/valerio/go-jeebie-core/jeebie/input/action"
	"github.com/valerio/go-jeebie-core/jeebie/input/event"
	"github.com/valerio/go-jeebie-core/jeebie/timing"
	"github.com/valerio/go-jeebie-core/jeebie/video"
)

// Terminals only report key presses, so a pressed button is held for this
// many frames before it is released again.
const holdFrames = 6

var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyUp:         "Up",
	tcell.KeyDown:       "Down",
	tcell.KeyLeft:       "Left",
	tcell.KeyRight:      "Right",
	tcell.KeyEscape:     "Escape",
	tcell.KeyF9:         "F9",
}

// keyName names ev the way input.DefaultKeyMap does.
func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return "Space"
		}
		return string(ev.Rune())
	}
	return keyNames[ev.Key()]
}

// Terminal runs an emulator frame by frame and draws each frame with half
// block characters, two pixels per cell.
type Terminal struct {
	screen  tcell.Screen
	emu     jeebie.Emulator
	limiter timing.Limiter
	logger  *slog.Logger

	input       *input.Manager
	held        map[action.Action]int
	frames      uint64
	paused      bool
	step        bool
	quit        bool
	snapshotDir string
}

// NewScreen creates and initialises the host terminal.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return screen, nil
}

// NewTerminal draws emu on an initialised screen. A nil limiter runs
// unthrottled.
func NewTerminal(screen tcell.Screen, emu jeebie.Emulator, limiter timing.Limiter, logger *slog.Logger) *Terminal {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	t := &Terminal{
		screen:      screen,
		emu:         emu,
		limiter:     limiter,
		logger:      logger,
		input:       input.NewManager(emu),
		held:        make(map[action.Action]int),
		snapshotDir: ".",
	}
	t.input.On(action.EmulatorQuit, event.Press, func() { t.quit = true })
	t.input.On(action.EmulatorPauseToggle, event.Press, func() {
		t.paused = !t.paused
		t.logger.Info("pause toggled", "paused", t.paused, "frame", t.frames)
	})
	t.input.On(action.EmulatorStepFrame, event.Press, func() { t.step = true })
	t.input.On(action.EmulatorSnapshot, event.Press, t.snapshot)
	return t
}

// SetSnapshotDir sets where F9 saves PNG snapshots.
func (t *Terminal) SetSnapshotDir(dir string) {
	t.snapshotDir = dir
}

// Paused reports whether emulation is paused.
func (t *Terminal) Paused() bool {
	return t.paused
}

func (t *Terminal) snapshot() {
	path, err := debug.SaveFramePNG(t.emu.Frame(), t.snapshotDir, fmt.Sprintf("frame_%d", t.frames))
	if err != nil {
		t.logger.Error("Failed to save snapshot", "error", err)
		return
	}
	t.logger.Info("Saved frame snapshot", "frame", t.frames, "path", path)
}

// Run loops until ctx is done, the user quits, or the emulator fails.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 32)
	quit := make(chan struct{})
	go t.screen.ChannelEvents(events, quit)
	defer close(quit)

	t.limiter.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.drain(events) {
			t.logger.Info("terminal closed by user", "frames", t.frames)
			return nil
		}

		if t.paused && !t.step {
			t.limiter.WaitForNextFrame()
			continue
		}
		t.step = false

		if err := t.emu.RunUntilFrame(); err != nil {
			return err
		}
		t.frames++
		t.releaseExpired()
		t.Draw(t.emu.Frame())
		t.screen.Show()
		t.limiter.WaitForNextFrame()
	}
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.screen.Fini()
}

// drain handles pending events and reports whether the user asked to quit.
func (t *Terminal) drain(events <-chan tcell.Event) bool {
	for {
		select {
		case ev := <-events:
			if t.handle(ev) {
				return true
			}
		default:
			return false
		}
	}
}

func (t *Terminal) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return true
		}
		act, ok := input.GetDefaultMapping(keyName(ev))
		if !ok {
			break
		}
		if _, isButton := act.Button(); isButton {
			t.press(act)
		} else {
			t.input.Trigger(act, event.Press)
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return t.quit
}

func (t *Terminal) press(act action.Action) {
	if _, down := t.held[act]; !down {
		t.input.Trigger(act, event.Press)
	}
	t.held[act] = holdFrames
}

func (t *Terminal) releaseExpired() {
	for act, left := range t.held {
		if left <= 1 {
			delete(t.held, act)
			t.input.Trigger(act, event.Release)
			continue
		}
		t.held[act] = left - 1
	}
}

// Draw paints fb clipped to the screen size.
func (t *Terminal) Draw(fb *video.FrameBuffer) {
	w, h := t.screen.Size()
	for row := 0; row < video.FramebufferHeight/2 && row < h; row++ {
		for x := 0; x < video.FramebufferWidth && x < w; x++ {
			r, style := HalfBlock(fb.GetPixel(x, row*2), fb.GetPixel(x, row*2+1))
			t.screen.SetContent(x, row, r, nil, style)
		}
	}
}
