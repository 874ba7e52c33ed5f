// Package controllers implements the proof server's HTTP handlers. The job
// endpoints (/check, /prove, /prove-tx, /k) only move bytes between the
// wire and the worker pool, never decoding payload contents themselves
// (that is the prover backend's job, out of scope here); /health and
// /ready answer with plain text, /version and /proof-versions with JSON.
package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"shielded-ledger/cmd/proofserver/services"
	core "shielded-ledger/core"
)

const version = "shielded-ledger-proofserver/0.1"

// Server bundles the dependencies every controller needs.
type Server struct {
	Pool       *services.Pool
	JobTimeout time.Duration
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) Version(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"version": version})
}

// ProofVersions reports the tagged-serialization versions this build
// accepts for proving requests - a static list until proof circuits are
// actually versioned.
func (s *Server) ProofVersions(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string][]string{"versions": {"v1"}})
}

func (s *Server) Check(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, services.JobCheck)
}

func (s *Server) Prove(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, services.JobProve)
}

func (s *Server) ProveTx(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, services.JobProveTx)
}

func (s *Server) K(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, services.JobK)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind services.JobKind) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	body, err := s.Pool.Submit(kind, payload, s.JobTimeout)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(body)
}

func writeLedgerError(w http.ResponseWriter, err error) {
	if err == core.ErrQueueFull {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err == core.ErrJobTimeout {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}
