package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/certen/chess-rollup/pkg/bridge"
	"github.com/certen/chess-rollup/pkg/chess"
	"github.com/certen/chess-rollup/pkg/sequencer"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
	"github.com/certen/chess-rollup/pkg/withdraw"
)

func newTestHandlers(t *testing.T) *RPCHandlers {
	t.Helper()
	ext := chess.Extension{}
	st := state.New(ext.Default())
	ingest := bridge.NewIngestor(st, nil)
	batcher := withdraw.New(withdraw.DefaultConfig(), nil)
	loop := sequencer.New(st, &ext, ingest, batcher, nil, nil, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	return NewRPCHandlers(loop, nil, nil)
}

func TestGetRPCReturnsSnapshot(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	h.HandleRPC(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snapshot map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if _, ok := snapshot["balances"]; !ok {
		t.Fatalf("expected balances field in snapshot, got %v", snapshot)
	}
}

func TestPostRPCRejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.HandleRPC(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostRPCAcceptsBridgeDeposit(t *testing.T) {
	h := newTestHandlers(t)

	sender := types.Address{}
	sender[19] = 5
	stx := state.SignedTransaction{
		PubKey: sender,
		Sig:    types.ZeroSignature,
		Tx:     state.Transaction{Nonce: types.ZeroAmount(), Data: state.BridgeTokens(types.NewAmount(1), types.NewAmount(1))},
	}
	body, err := json.Marshal(stx)
	if err != nil {
		t.Fatalf("marshal tx: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.HandleRPC(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRPCMethodNotAllowed(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodDelete, "/rpc", nil)
	rec := httptest.NewRecorder()
	h.HandleRPC(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
