package kpisight

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the kpisight package.
var (
	// ErrUnknownMethod is returned when a detection method is not recognized.
	ErrUnknownMethod = errors.New("unknown detection method")

	// ErrUnknownSensitivity is returned when a sensitivity profile is not recognized.
	ErrUnknownSensitivity = errors.New("unknown sensitivity profile")

	// ErrInvalidParameter is returned for malformed detector parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingState is returned when a pipeline stage runs before its
	// prerequisite stage has populated the session state.
	ErrMissingState = errors.New("required pipeline stage has not run")

	// ErrInvalidTransition is returned on a backward or skipped aggregator
	// state transition.
	ErrInvalidTransition = errors.New("invalid aggregator state transition")

	// ErrNoUsableMetrics is returned when an entire dataset contains zero
	// usable metric columns.
	ErrNoUsableMetrics = errors.New("dataset contains no usable metrics")

	// ErrSessionNotFound is returned when a session identifier is unknown.
	ErrSessionNotFound = errors.New("session not found")
)

// ConfigErrorType categorizes configuration errors.
type ConfigErrorType int

const (
	// ConfigErrorTypeUnknown is an unclassified configuration error.
	ConfigErrorTypeUnknown ConfigErrorType = iota
	// ConfigErrorTypeMethod indicates an unrecognized detection method.
	ConfigErrorTypeMethod
	// ConfigErrorTypeSensitivity indicates an unrecognized sensitivity profile.
	ConfigErrorTypeSensitivity
	// ConfigErrorTypeParameter indicates a malformed parameter value.
	ConfigErrorTypeParameter
)

// ConfigError provides detailed information about configuration failures.
// Configuration errors are always surfaced to the caller, never recovered
// silently.
type ConfigError struct {
	Type    ConfigErrorType
	Field   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		if e.Cause != nil {
			return fmt.Sprintf("config %s: %s: %v", e.Field, e.Message, e.Cause)
		}
		return fmt.Sprintf("config %s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ConfigError.
func (e *ConfigError) Is(target error) bool {
	switch e.Type {
	case ConfigErrorTypeMethod:
		return target == ErrUnknownMethod
	case ConfigErrorTypeSensitivity:
		return target == ErrUnknownSensitivity
	case ConfigErrorTypeParameter:
		return target == ErrInvalidParameter
	}
	return false
}

// newConfigError creates a new ConfigError.
func newConfigError(errType ConfigErrorType, field, message string) *ConfigError {
	return &ConfigError{Type: errType, Field: field, Message: message}
}

// StateErrorType categorizes pipeline state errors.
type StateErrorType int

const (
	// StateErrorTypeUnknown is an unclassified state error.
	StateErrorTypeUnknown StateErrorType = iota
	// StateErrorTypeMissing indicates a required prior stage has not run.
	StateErrorTypeMissing
	// StateErrorTypeTransition indicates an out-of-order aggregator transition.
	StateErrorTypeTransition
	// StateErrorTypeNotFound indicates an unknown session identifier.
	StateErrorTypeNotFound
)

// StateError reports a pipeline stage invoked before its prerequisite, or an
// out-of-order aggregator transition. It is fatal for the call and never
// corrupts previously committed state.
type StateError struct {
	Type    StateErrorType
	Stage   string
	Message string
}

func (e *StateError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
	}
	return e.Message
}

// Is implements error matching for StateError.
func (e *StateError) Is(target error) bool {
	switch e.Type {
	case StateErrorTypeMissing:
		return target == ErrMissingState
	case StateErrorTypeTransition:
		return target == ErrInvalidTransition
	case StateErrorTypeNotFound:
		return target == ErrSessionNotFound
	}
	return false
}

// newStateError creates a new StateError.
func newStateError(errType StateErrorType, stage, message string) *StateError {
	return &StateError{Type: errType, Stage: stage, Message: message}
}

// DataErrorType categorizes input data errors.
type DataErrorType int

const (
	// DataErrorTypeUnknown is an unclassified data error.
	DataErrorTypeUnknown DataErrorType = iota
	// DataErrorTypeEmptySeries indicates a series with no observations.
	DataErrorTypeEmptySeries
	// DataErrorTypeShapeMismatch indicates misaligned values and timestamps.
	DataErrorTypeShapeMismatch
	// DataErrorTypeNoUsableMetrics indicates a dataset with zero usable columns.
	DataErrorTypeNoUsableMetrics
)

// DataError reports unusable input data. Individual detectors never raise it
// for short series (they return empty results instead); it is reserved for
// input with zero usable metrics.
type DataError struct {
	Type    DataErrorType
	Message string
}

func (e *DataError) Error() string {
	return e.Message
}

// Is implements error matching for DataError.
func (e *DataError) Is(target error) bool {
	return e.Type == DataErrorTypeNoUsableMetrics && target == ErrNoUsableMetrics
}
