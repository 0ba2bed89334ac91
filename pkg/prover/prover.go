// Copyright 2025 Certen Protocol
//
// The prover is an out-of-process collaborator (spec.md sec. 6): it
// consumes (program_bytes, stdin) and returns an opaque proof blob. This
// package only owns the adapter boundary -- invoking the external binary,
// building its stdin, and persisting its output -- the same shape as the
// teacher's pkg/execution/proof_generator_adapter.go wrapping an external
// proof generator behind a small interface with a context-bound call.

package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/certen/chess-rollup/pkg/codec"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// Prover is the capability-set this rollup consumes; ExternalProver is the
// only production implementation, but tests and dry-runs can substitute
// their own. Prove writes the proof it obtains to the prover's configured
// output path and returns that path, matching the "opaque proof blob
// persisted to <package>/proofs/proof.json" contract of spec.md sec. 6.
type Prover interface {
	Prove(ctx context.Context, programPath string, stdin []byte) (proofPath string, err error)
}

// BuildStdin serializes sequenced into the length-prefixed sequence of
// canonically-encoded transactions the prover's stdin carries, per
// spec.md sec. 6. priorStateJSON is always appended as a final
// length-prefixed field (zero length when nil) carrying whatever prior
// state the application needs to replay from.
func BuildStdin(sequenced []state.SignedTransaction, priorStateJSON []byte) []byte {
	e := codec.NewEncoder()
	e.PutUint64(uint64(len(sequenced)))
	for _, stx := range sequenced {
		e.PutAddress(stx.PubKey)
		e.PutBytes(stx.Sig.Bytes())
		e.PutBytes(state.EncodeTransaction(stx.Tx))
	}
	e.PutBytes(priorStateJSON)
	return e.Bytes()
}

// ErrProverTimeout wraps a context deadline exceeded error from Prove, so
// callers can translate it to types.ProverUnavailable without inspecting
// the underlying context error directly.
var ErrProverTimeout = fmt.Errorf("prover: timed out")

// ExternalProver shells out to a configured binary, passing the program
// image path as its first argument and the stdin blob on the child's
// stdin, capturing stdout as the proof blob and persisting it to
// OutputPath. Mirrors original_source/prover/prover/src/lib.rs's
// (elf_bytes, SP1Stdin) -> proof contract, generalized to an arbitrary
// external binary since the prover itself is out of scope.
type ExternalProver struct {
	BinaryPath string
	OutputPath string // e.g. "<package>/proofs/proof.json"
}

func (p ExternalProver) Prove(ctx context.Context, programPath string, stdin []byte) (string, error) {
	cmd := exec.CommandContext(ctx, p.BinaryPath, programPath)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrProverTimeout, ctx.Err())
		}
		return "", fmt.Errorf("prover: run %s: %w (stderr: %s)", p.BinaryPath, err, stderr.String())
	}

	if err := saveProof(p.OutputPath, stdout.Bytes(), stdin); err != nil {
		return "", err
	}
	return p.OutputPath, nil
}

// proofFileJSON is the canonical-JSON profile persisted form of a proof,
// per spec.md sec. 6 "<package>/proofs/proof.json".
type proofFileJSON struct {
	Blob      string     `json:"blob"`
	BatchHash types.Hash `json:"batch_hash"`
}

// saveProof persists blob to path using the canonical JSON profile,
// identified by the Keccak256 hash of the stdin that produced it so a
// later reader can confirm which batch it covers without re-running the
// prover.
func saveProof(path string, blob []byte, stdin []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prover: create proof directory: %w", err)
	}
	raw, err := json.Marshal(proofFileJSON{
		Blob:      fmt.Sprintf("0x%x", blob),
		BatchHash: types.Keccak256(stdin),
	})
	if err != nil {
		return err
	}
	canon, err := codec.CanonicalizeJSON(raw)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, canon, 0o644); err != nil {
		return fmt.Errorf("prover: write proof file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadProof reads back the blob a Prove call persisted at path.
func LoadProof(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf proofFileJSON
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, err
	}
	var blob []byte
	if _, err := fmt.Sscanf(pf.Blob, "0x%x", &blob); err != nil {
		return nil, fmt.Errorf("prover: decode blob: %w", err)
	}
	return blob, nil
}

// WithTimeout derives a context bounded by the operator-configured prover
// timeout (spec.md sec. 5 "Prover requests carry an operator-configured
// timeout").
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
