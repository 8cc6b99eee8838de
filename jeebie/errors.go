package jeebie

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every error New returns for a bad Config.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrStopped is returned by Run after Stop was called.
	ErrStopped = errors.New("emulation stopped")
	// ErrBreakpoint is returned when the breakpoint hook asks to pause. It is
	// not sticky: the next Step continues after the instruction that hit it.
	ErrBreakpoint = errors.New("breakpoint hit")
	// ErrBadState is returned by LoadState for a buffer that was not produced
	// by SaveState.
	ErrBadState = errors.New("invalid save state")
)

// ConfigError describes which part of the configuration was rejected.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrConfiguration, e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
