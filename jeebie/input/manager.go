// Package input turns host key presses into joypad input and emulator
// commands.
package input

import (
	"time"

	"github.com/valerio/go-jeebie-core/jeebie/input/action"
	"github.com/valerio/go-jeebie-core/jeebie/input/event"
	"github.com/valerio/go-jeebie-core/jeebie/joypad"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// Pad receives Game Boy button input.
type Pad interface {
	Press(k joypad.Key)
	Release(k joypad.Key)
}

// Manager handles input actions and their associated callbacks. Game Boy
// controls go straight to the pad; emulator actions run their callbacks and
// are debounced.
type Manager struct {
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	pad           Pad
	now           func() time.Time
}

func NewManager(pad Pad) *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		pad:           pad,
		now:           time.Now,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type.
func (m *Manager) Trigger(act action.Action, evt event.Type) {
	if key, ok := act.Button(); ok {
		if m.pad == nil {
			return
		}
		switch evt {
		case event.Press:
			m.pad.Press(key)
		case event.Release:
			m.pad.Release(key)
		}
		return
	}

	if m.debounced(act, evt) {
		return
	}
	for _, callback := range m.handlers[act][evt] {
		callback()
	}
}

func (m *Manager) debounced(act action.Action, evt event.Type) bool {
	if evt == event.Hold {
		return false
	}
	now := m.now()
	if m.lastTriggered[act] == nil {
		m.lastTriggered[act] = make(map[event.Type]time.Time)
	}
	if last, ok := m.lastTriggered[act][evt]; ok && now.Sub(last) < debounceDuration {
		return true
	}
	m.lastTriggered[act][evt] = now
	return false
}
