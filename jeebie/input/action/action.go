package action

import "github.com/valerio/go-jeebie-core/jeebie/joypad"

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorQuit
)

var buttons = map[Action]joypad.Key{
	GBButtonA:      joypad.A,
	GBButtonB:      joypad.B,
	GBButtonStart:  joypad.Start,
	GBButtonSelect: joypad.Select,
	GBDPadUp:       joypad.Up,
	GBDPadDown:     joypad.Down,
	GBDPadLeft:     joypad.Left,
	GBDPadRight:    joypad.Right,
}

// Button returns the joypad key behind a Game Boy control.
func (a Action) Button() (joypad.Key, bool) {
	k, ok := buttons[a]
	return k, ok
}
