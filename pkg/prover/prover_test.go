package prover

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

func TestBuildStdinIsDeterministic(t *testing.T) {
	sender := types.Address{}
	sender[19] = 7
	txs := []state.SignedTransaction{
		{PubKey: sender, Sig: types.ZeroSignature, Tx: state.Transaction{Nonce: types.ZeroAmount(), Data: state.BridgeTokens(types.NewAmount(10), types.NewAmount(1))}},
	}
	a := BuildStdin(txs, nil)
	b := BuildStdin(txs, nil)
	if string(a) != string(b) {
		t.Fatalf("expected BuildStdin to be deterministic for identical input")
	}
	withPrior := BuildStdin(txs, []byte(`{"balances":{}}`))
	if string(a) == string(withPrior) {
		t.Fatalf("expected prior state bytes to change the stdin encoding")
	}
}

func TestExternalProverRoundTrip(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-prover.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat >/dev/null\nprintf 'fake-proof-bytes'\n"), 0o755); err != nil {
		t.Fatalf("write fixture script: %v", err)
	}
	programPath := filepath.Join(dir, "program.elf")
	if err := os.WriteFile(programPath, []byte("fake-elf"), 0o644); err != nil {
		t.Fatalf("write program fixture: %v", err)
	}

	p := ExternalProver{BinaryPath: script, OutputPath: filepath.Join(dir, "proofs", "proof.json")}
	proofPath, err := p.Prove(context.Background(), programPath, []byte("stdin-bytes"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if proofPath != p.OutputPath {
		t.Fatalf("proofPath = %q, want %q", proofPath, p.OutputPath)
	}

	blob, err := LoadProof(proofPath)
	if err != nil {
		t.Fatalf("load proof: %v", err)
	}
	if string(blob) != "fake-proof-bytes" {
		t.Fatalf("blob = %q", blob)
	}
}
