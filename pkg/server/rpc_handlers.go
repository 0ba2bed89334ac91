// Copyright 2025 Certen Protocol
//
// RPC handlers: GET /rpc returns the advisory canonical-JSON state
// snapshot, POST /rpc submits a signed transaction through the
// sequencer's single-threaded queue. Shape grounded on the teacher's
// pkg/server/ledger_handlers.go (one handler struct, a shared logger,
// encoding/json directly over net/http, query-param driven GET) plus
// pkg/server/proof_handlers.go's writeJSON/writeError helpers.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/certen/chess-rollup/pkg/sequencer"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// RPCHandlers serves the public GET/POST /rpc endpoint.
type RPCHandlers struct {
	loop    *sequencer.Loop
	metrics *Metrics
	logger  *log.Logger
}

// NewRPCHandlers builds RPCHandlers over loop.
func NewRPCHandlers(loop *sequencer.Loop, metrics *Metrics, logger *log.Logger) *RPCHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[RPC] ", log.LstdFlags)
	}
	return &RPCHandlers{loop: loop, metrics: metrics, logger: logger}
}

// HandleRPC dispatches GET vs POST vs anything else per spec.md sec. 6-7.
func (h *RPCHandlers) HandleRPC(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleSnapshot(w, r)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET and POST are supported")
	}
}

func (h *RPCHandlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	raw, err := h.loop.State().ToCanonicalJSON()
	if err != nil {
		h.logger.Printf("snapshot marshal failed: %v", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to serialize state")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *RPCHandlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var stx state.SignedTransaction
	if err := json.NewDecoder(r.Body).Decode(&stx); err != nil {
		h.writeError(w, http.StatusBadRequest, "MALFORMED_TRANSACTION", err.Error())
		return
	}

	result := make(chan error, 1)
	h.loop.Submit(sequencer.SubmitTx{Tx: stx, Result: result})

	var err error
	select {
	case err = <-result:
	case <-time.After(10 * time.Second):
		h.writeError(w, http.StatusServiceUnavailable, "SEQUENCER_TIMEOUT", "sequencer did not respond in time")
		return
	}

	if err != nil {
		if h.metrics != nil {
			h.metrics.TxSubmitted.WithLabelValues("rejected").Inc()
		}
		kind, ok := types.KindOf(err)
		if !ok {
			kind = types.InvariantViolated
		}
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return
	}

	if h.metrics != nil {
		h.metrics.TxSubmitted.WithLabelValues("accepted").Inc()
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "sequenced"})
}

func (h *RPCHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *RPCHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
