// Copyright 2025 Certen Protocol
//
// Error-kind taxonomy. Grounded on the teacher's per-package sentinel-error
// files (pkg/batch/errors.go, pkg/execution/errors.go), generalized into a
// single Kind enum because the RPC layer needs to report the kind string
// verbatim in a 503 body (spec.md sec. 6-7).

package types

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy from spec.md sec. 7.
type Kind string

const (
	BadNonce            Kind = "BadNonce"
	BadSignature        Kind = "BadSignature"
	InsufficientFunds   Kind = "InsufficientFunds"
	UnknownAccount      Kind = "UnknownAccount"
	AuthorizationFailed Kind = "AuthorizationFailed"
	InvalidMove         Kind = "InvalidMove"
	UnknownGame         Kind = "UnknownGame"
	NotYourTurn         Kind = "NotYourTurn"
	InvariantViolated   Kind = "InvariantViolated"
	DecodingError       Kind = "DecodingError"
	L1Inconsistency     Kind = "L1Inconsistency"
	ProverUnavailable   Kind = "ProverUnavailable"
)

// Error wraps an underlying cause with the taxonomy kind the RPC layer and
// the operator surface need to report.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fail constructs an *Error of the given kind wrapping err.
func Fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Failf constructs an *Error of the given kind from a format string.
func Failf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, if err (or something it wraps) is an
// *Error. Otherwise it returns "" and false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
