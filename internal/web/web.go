// Package web is the local HTTP server: the OAuth redirect target plus
// health, metrics and the latest rendered report.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "mileagecal/internal/errors"
	appLog "mileagecal/internal/log"
)

// Server serves /health, /metrics, /report/latest and /oauth2callback.
type Server struct {
	listen string
	mux    *http.ServeMux

	mu      sync.Mutex
	pending *pendingAuth

	lastMu     sync.RWMutex
	lastReport string
}

type pendingAuth struct {
	state  string
	result chan callbackResult
}

type callbackResult struct {
	code string
	err  error
}

// NewServer constructs a Server for listen (host:port).
func NewServer(listen string) *Server {
	s := &Server{
		listen: listen,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/oauth2callback", s.handleCallback)
	s.mux.HandleFunc("/report/latest", s.handleLatestReport)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return apperrors.NewUnexpected("listen on "+s.listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("http server shutdown failed", err)
		}
		return nil
	}
}

// Await waits for /oauth2callback to deliver the code for state. Only one
// authorization can be pending at a time.
func (s *Server) Await(ctx context.Context, state string) (string, error) {
	p := &pendingAuth{state: state, result: make(chan callbackResult, 1)}

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return "", apperrors.NewUnexpected("another authorization is already pending")
	}
	s.pending = p
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.pending == p {
			s.pending = nil
		}
		s.mu.Unlock()
	}()

	select {
	case res := <-p.result:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		http.Error(w, "no authorization in progress", http.StatusConflict)
		return
	}
	if !secureCompare(q.Get("state"), p.state) {
		appLog.Warn("oauth callback with unexpected state")
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	var res callbackResult
	switch {
	case q.Get("error") != "":
		res.err = apperrors.NewValidation("authorization denied: " + q.Get("error"))
	case q.Get("code") == "":
		res.err = apperrors.NewValidation("authorization response has no code")
	default:
		res.code = q.Get("code")
	}

	select {
	case p.result <- res:
	default:
		// Already answered.
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if res.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Authorization failed. You can close this window."))
		return
	}
	_, _ = w.Write([]byte("Authorization successful! You can close this window."))
}

// SetLatestReport points /report/latest at an HTML file on disk.
func (s *Server) SetLatestReport(path string) {
	s.lastMu.Lock()
	s.lastReport = path
	s.lastMu.Unlock()
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	s.lastMu.RLock()
	path := s.lastReport
	s.lastMu.RUnlock()

	if path == "" {
		writeError(w, http.StatusNotFound, "no report rendered yet")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
