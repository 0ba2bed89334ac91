// Copyright 2025 Certen Protocol
//
// Server wires the RPC, admin, and metrics handlers onto an http.Server,
// grounded on the teacher's server-construction style (explicit mux,
// http.Server with timeouts, a single logger passed down to every
// handler set).

package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/chess-rollup/pkg/sequencer"
)

// Server is the rollup's HTTP surface: public RPC, operator admin
// commands, and Prometheus metrics.
type Server struct {
	http    *http.Server
	metrics *http.Server
	logger  *log.Logger
}

// New builds a Server bound to listenAddr (RPC/admin) and metricsAddr
// (Prometheus). loop is the sequencer every handler posts work to.
func New(listenAddr, metricsAddr string, loop *sequencer.Loop, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	mux := http.NewServeMux()
	rpc := NewRPCHandlers(loop, metrics, logger)
	admin := NewAdminHandlers(loop, metrics, logger)
	mux.HandleFunc("/rpc", rpc.HandleRPC)
	mux.HandleFunc("/admin/prove", admin.HandleProve)
	mux.HandleFunc("/admin/batch-withdrawals", admin.HandleBatchWithdrawals)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		http: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		metrics: &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run starts both listeners and blocks until ctx is cancelled, then
// shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		s.logger.Printf("rpc/admin listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		s.logger.Printf("metrics listening on %s", s.metrics.Addr)
		if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Printf("listener failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.http.Shutdown(shutdownCtx)
	s.metrics.Shutdown(shutdownCtx)
	return ctx.Err()
}
