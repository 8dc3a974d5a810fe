/*
DESCRIPTION
  errors.go defines the structured error record surfaced by the engine.
  Errors carry a kind so callers can distinguish bad inputs, contradictory
  configuration, numeric degeneracy, exceeded resource budgets and
  cancellation without string matching. All engine errors surface at band
  boundaries; per-stack numeric degeneracy degrades to no rejection and a
  counter instead.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package integrate

import "fmt"

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	// ErrInputInvalid marks missing or unreadable files, incompatible
	// geometry across frames, or absent required headers.
	ErrInputInvalid ErrorKind = iota

	// ErrConfigInvalid marks contradictory option combinations.
	ErrConfigInvalid

	// ErrNumericDegenerate marks runs that cannot proceed numerically,
	// e.g. fewer frames than the selected rejection requires for every
	// stack of the run.
	ErrNumericDegenerate

	// ErrResourceExceeded marks memory budgets that cannot fit a single
	// row band.
	ErrResourceExceeded

	// ErrCancelled marks cooperative cancellation between bands.
	ErrCancelled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInputInvalid:
		return "input-invalid"
	case ErrConfigInvalid:
		return "config-invalid"
	case ErrNumericDegenerate:
		return "numeric-degenerate"
	case ErrResourceExceeded:
		return "resource-exceeded"
	case ErrCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Error is the single error record a run aborts with.
type Error struct {
	Kind ErrorKind
	Op   string // the operation or band that failed
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func wrapErr(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err if it is an engine Error, or ok=false.
func KindOf(err error) (ErrorKind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return 0, false
}
