// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidRequest       = errors.New("invalid simulation request")
	ErrEmptyBatch           = errors.New("path batch is empty")
	ErrWeightMismatch       = errors.New("weight array length does not match path count")
	ErrWeightsMissing       = errors.New("engine returned no sensitivity weights")
	ErrTrialAlreadyRecorded = errors.New("trial result already recorded")
	ErrTrialOutOfRange      = errors.New("trial index out of range")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrDataNotFound         = errors.New("data not found")
	ErrDatabaseError        = errors.New("database error")
	ErrPersistFailed        = errors.New("persisting results failed")
)

// SimulationError represents a failure inside one stage of a Greek scheme.
type SimulationError struct {
	Stage string
	Spot  float64
	Err   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation error [%s] spot=%g: %v", e.Stage, e.Spot, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// NewSimulationError creates a new SimulationError.
func NewSimulationError(stage string, spot float64, err error) *SimulationError {
	return &SimulationError{
		Stage: stage,
		Spot:  spot,
		Err:   err,
	}
}

// PersistError represents a failure writing a result artifact.
type PersistError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *PersistError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persist error [%s] %s: %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("persist error [%s]: %v", e.Artifact, e.Err)
}

// Unwrap exposes both the underlying cause and ErrPersistFailed.
func (e *PersistError) Unwrap() []error {
	return []error{ErrPersistFailed, e.Err}
}

// NewPersistError creates a new PersistError.
func NewPersistError(artifact, path string, err error) *PersistError {
	return &PersistError{
		Artifact: artifact,
		Path:     path,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
