// Copyright 2025 Certen Protocol
//
// Package execution provides sentinel errors for engine operations, in the
// same style as the teacher's pkg/batch/errors.go: small, package-local,
// wrapped by types.Error where a Kind needs to travel to the RPC layer.

package execution

import "errors"

var (
	// ErrNilExtension is returned when a TxExtension transaction arrives
	// but no Extension capability was wired into the engine.
	ErrNilExtension = errors.New("execution: no extension wired")

	// ErrBridgeDispatched guards the impossible branch: BridgeTokens must
	// be handled at step 1 of Execute and never reach the dispatch switch.
	ErrBridgeDispatched = errors.New("execution: bridge transaction reached dispatch")
)
