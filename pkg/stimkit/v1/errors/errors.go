package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunInProgress is returned when Run is called on a painter that is
// already running. A painter has a single owner.
var ErrRunInProgress = errors.New("stimulus painter is already running")

// ConfigError is raised while building a sequence or loading a protocol,
// before any run starts: an empty schedule, an unsupported preparation
// object, a missing refresh rate.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that input values (protocol structure, stimulus
// times, schema version) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// PresentationError wraps a failure of the renderer while swapping to the
// stimulus at Index (zero based). It aborts the run.
type PresentationError struct {
	Sequence string
	Index    int
	Cause    error
}

func NewPresentationError(sequence string, index int, cause error) *PresentationError {
	return &PresentationError{Sequence: sequence, Index: index, Cause: cause}
}
func (e *PresentationError) Error() string {
	if e.Sequence == "" {
		return fmt.Sprintf("presenting stimulus %d failed: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("sequence '%s': presenting stimulus %d failed: %v", e.Sequence, e.Index, e.Cause)
}
func (e *PresentationError) Unwrap() error { return e.Cause }

// TimingInterruption reports that a blocking sleep returned early. The engine
// logs it and carries on as if the full duration had elapsed.
type TimingInterruption struct {
	Requested time.Duration
	Cause     error
}

func NewTimingInterruption(requested time.Duration, cause error) *TimingInterruption {
	return &TimingInterruption{Requested: requested, Cause: cause}
}
func (e *TimingInterruption) Error() string {
	return fmt.Sprintf("sleep of %v interrupted: %v", e.Requested, e.Cause)
}
func (e *TimingInterruption) Unwrap() error { return e.Cause }

// IsInterruption checks whether err is a TimingInterruption.
func IsInterruption(err error) bool {
	var ti *TimingInterruption
	return errors.As(err, &ti)
}

// RendererNotFoundError indicates that a protocol names a renderer that has
// not been registered.
type RendererNotFoundError struct {
	RendererName string
}

func NewRendererNotFoundError(name string) *RendererNotFoundError {
	return &RendererNotFoundError{RendererName: name}
}
func (e *RendererNotFoundError) Error() string {
	return fmt.Sprintf("renderer not found: %s", e.RendererName)
}
