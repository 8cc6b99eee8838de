package input

import "github.com/valerio/go-jeebie-core/jeebie/input/action"

// DefaultKeyMap provides default key mappings for frontends. Keys are named
// after the host key: a single character, or a name like "Enter".
var DefaultKeyMap = map[string]action.Action{
	// Game Boy controls
	"z":         action.GBButtonA,
	"x":         action.GBButtonB,
	"Enter":     action.GBButtonStart,
	"Backspace": action.GBButtonSelect,
	"Up":        action.GBDPadUp,
	"Down":      action.GBDPadDown,
	"Left":      action.GBDPadLeft,
	"Right":     action.GBDPadRight,

	// Alternative arrow keys (WASD)
	"w": action.GBDPadUp,
	"s": action.GBDPadDown,
	"a": action.GBDPadLeft,
	"d": action.GBDPadRight,

	// Emulator controls
	"Space":  action.EmulatorPauseToggle,
	"p":      action.EmulatorPauseToggle,
	"o":      action.EmulatorStepFrame,
	"f":      action.EmulatorStepFrame,
	"F9":     action.EmulatorSnapshot,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
