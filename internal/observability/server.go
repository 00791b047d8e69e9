// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability provides verification metrics and the HTTP endpoints
// that expose them alongside health checks.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// Endpoint paths served by Server.
const (
	PathMetrics   = "/metrics"
	PathLiveness  = "/healthz/liveness"
	PathReadiness = "/healthz/readiness"
)

const readHeaderTimeout = 10 * time.Second

// ReadinessChecker reports whether the process is ready to be scraped, for
// a watcher once its first scan has completed. A nil checker is always ready.
type ReadinessChecker func() bool

// Server serves metrics and health probes over HTTP.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	isReady  ReadinessChecker

	running    atomic.Bool
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a server that will listen on addr ("host:port"; port 0
// picks a free port). Metrics are registered on a private registry together
// with the Go and process collectors.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
}

// Metrics returns the verification metrics served by this server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// SetReadinessChecker replaces the readiness checker. Call before Start.
func (s *Server) SetReadinessChecker(check ReadinessChecker) {
	s.isReady = check
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(PathMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc(PathLiveness, func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	mux.HandleFunc(PathReadiness, s.handleReadiness)
	return mux
}

// Start listens on the configured address and serves in the background.
// Serve errors are delivered on the returned channel, which is closed once
// the server has stopped.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrapf(err, "listen")
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go s.serve(s.httpServer, listener, errCh)

	slog.Info("observability server started", "addr", s.Addr())
	return errCh, nil
}

func (s *Server) serve(srv *http.Server, l net.Listener, errCh chan<- error) {
	defer close(errCh)
	err := srv.Serve(l)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	slog.Error("observability server error", "addr", l.Addr().String(), "error", err)
	errCh <- err
}

// Stop shuts the server down, waiting for in-flight scrapes until ctx ends.
// Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("addr", s.Addr()).Wrapf(err, "shutdown observability server")
	}
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.isReady != nil && !s.isReady() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ok")
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body + "\n"))
}
