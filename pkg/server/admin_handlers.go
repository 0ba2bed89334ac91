// Copyright 2025 Certen Protocol
//
// Admin handlers post Prove and BatchWithdrawals commands onto the
// sequencer's queue (spec.md sec. 6 "over the in-process message bus"),
// each stamped with a google/uuid correlation ID exactly as the teacher's
// pkg/server/proof_handlers.go stamps proof/request IDs.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/certen/chess-rollup/pkg/sequencer"
)

// AdminHandlers serves the operator-facing /admin/* endpoints.
type AdminHandlers struct {
	loop    *sequencer.Loop
	metrics *Metrics
	logger  *log.Logger
}

// NewAdminHandlers builds AdminHandlers over loop.
func NewAdminHandlers(loop *sequencer.Loop, metrics *Metrics, logger *log.Logger) *AdminHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[Admin] ", log.LstdFlags)
	}
	return &AdminHandlers{loop: loop, metrics: metrics, logger: logger}
}

// HandleProve handles POST /admin/prove.
func (h *AdminHandlers) HandleProve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is supported")
		return
	}

	id := uuid.New()
	started := time.Now()
	result := make(chan sequencer.ProveResult, 1)
	h.loop.Submit(sequencer.AdminProve{ID: id, Result: result})

	select {
	case r := <-result:
		if h.metrics != nil {
			h.metrics.ProveDuration.Observe(time.Since(started).Seconds())
		}
		if r.Err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "PROVER_UNAVAILABLE", r.Err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{
			"command_id": id.String(),
			"proof_path": r.ProofPath,
		})
	case <-time.After(5 * time.Minute):
		h.writeError(w, http.StatusServiceUnavailable, "PROVER_TIMEOUT", "prover did not respond in time")
	}
}

// batchWithdrawalsRequest is the optional POST body for /admin/batch-withdrawals.
type batchWithdrawalsRequest struct {
	Force bool `json:"force"`
}

// HandleBatchWithdrawals handles POST /admin/batch-withdrawals.
func (h *AdminHandlers) HandleBatchWithdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is supported")
		return
	}

	var req batchWithdrawalsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "MALFORMED_REQUEST", err.Error())
			return
		}
	}

	id := uuid.New()
	result := make(chan sequencer.BatchResult, 1)
	h.loop.Submit(sequencer.AdminBatchWithdrawals{ID: id, Force: req.Force, Result: result})

	select {
	case r := <-result:
		if r.Err != nil {
			h.writeError(w, http.StatusConflict, "BATCH_NOT_READY", r.Err.Error())
			return
		}
		if h.metrics != nil {
			h.metrics.BatchesClosed.Inc()
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"command_id": id.String(),
			"batch":      r.Batch,
		})
	case <-time.After(10 * time.Second):
		h.writeError(w, http.StatusServiceUnavailable, "SEQUENCER_TIMEOUT", "sequencer did not respond in time")
	}
}

func (h *AdminHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *AdminHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
