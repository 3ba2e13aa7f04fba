package state

import "errors"

// Errors raised while building or transitioning an ObservingSystemState.
var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMissingVariableValues  = errors.New("missing variable values")
	ErrVariableCountMismatch  = errors.New("variable count mismatch")
	ErrUnknownVariable        = errors.New("unknown variable")
	ErrNoVariablesDefined     = errors.New("no variables defined")

	// ErrInactiveNotSimulated and ErrNoSimulatedChannels describe a bad initial
	// declaration. Both match ErrInvalidStateTransition.
	ErrInactiveNotSimulated = &declarationError{"initial active channels are not simulated"}
	ErrNoSimulatedChannels  = &declarationError{"variables declared without simulated channels"}
)

type declarationError struct{ msg string }

func (e *declarationError) Error() string { return e.msg }

func (e *declarationError) Is(target error) bool { return target == ErrInvalidStateTransition }
