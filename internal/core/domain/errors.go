package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSession       = errors.New("unknown session")
	ErrSessionExists        = errors.New("session already registered")
	ErrScheduleTimeRequired = errors.New("scheduled start time is required")
)

// PlatformError wraps a failed call to the streaming platform.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// ProcessLaunchError wraps an encoder process that failed to start.
type ProcessLaunchError struct {
	Err error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("encoder launch: %v", e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}
