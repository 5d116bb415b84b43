// Package errs classifies errors so the consumer can decide how loudly
// to report a failed event: transient conditions are expected during
// infrastructure hiccups, invalid ones point at bad data or rules.
package errs

import "errors"

// Class is the handling classification of an error.
type Class int

const (
	// Transient errors are temporary; the same event could succeed
	// later (network failures, backend unavailability).
	Transient Class = iota
	// Invalid errors come from malformed input and will not go away
	// on their own.
	Invalid
	// Fatal errors should stop processing entirely.
	Fatal
)

// String returns the lower-case name of the class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifiedError attaches a Class to an underlying error.
type ClassifiedError struct {
	Class Class
	Err   error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Wrap classifies err. A nil err returns nil.
func Wrap(class Class, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Err: err}
}

// ClassOf returns the classification of err, defaulting to Transient
// for unclassified errors so unknown failures are reported but not
// treated as data problems.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return Transient
}
