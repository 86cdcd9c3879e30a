// Package errors provides standardized error handling for the sensor buffering layer.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across buffers and drivers.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents errors that end the calling operation
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors of the buffering layer
var (
	// Lifecycle
	ErrAlreadyStarted = errors.New("sensor already started")
	ErrNotStarted     = errors.New("sensor not started")
	ErrAlreadyStopped = errors.New("sensor already stopped")

	// Buffer
	ErrBufferOverflow = errors.New("buffer overflow")
	ErrInvalidRange   = errors.New("invalid timestamp range")
	ErrInvalidSlot    = errors.New("invalid slot id")
	ErrRegistryFrozen = errors.New("quantity registry frozen")

	// Readings
	ErrInvalidData   = errors.New("invalid data format")
	ErrParsingFailed = errors.New("parsing failed")

	// Configuration
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
)

// Class of each sentinel when it reaches a caller unwrapped.
var (
	transientErrors = []error{context.DeadlineExceeded, context.Canceled}
	fatalErrors     = []error{ErrBufferOverflow}
	invalidErrors   = []error{
		ErrInvalidData, ErrParsingFailed, ErrInvalidRange, ErrInvalidSlot, ErrRegistryFrozen,
		ErrInvalidConfig, ErrMissingConfig, ErrConfigNotFound,
	}
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried
func IsTransient(err error) bool {
	return hasClass(err, ErrorTransient, transientErrors)
}

// IsFatal checks if an error is fatal to the calling operation
func IsFatal(err error) bool {
	return hasClass(err, ErrorFatal, fatalErrors)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	return hasClass(err, ErrorInvalid, invalidErrors)
}

// hasClass prefers the class recorded by a Wrap helper over the sentinel tables.
func hasClass(err error, class ErrorClass, sentinels []error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}

	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	return ErrorTransient
}

// newClassified creates a new classified error.
// Use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapClass(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapClass(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(class, wrapped, component, method, wrapped.Error())
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
