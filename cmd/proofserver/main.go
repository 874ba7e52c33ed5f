// Command proofserver runs the ledger's proof-generation HTTP
// collaborator: a fixed-size worker pool behind a bounded job queue,
// exposing the endpoints spec'd for check/prove/prove-tx/k requests.
// The actual ZK backend is out of scope (the ledger's own cryptography is
// Schnorr signatures and Poseidon hashing, not a SNARK prover); handle
// below stands in for it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	psconfig "shielded-ledger/cmd/proofserver/config"
	"shielded-ledger/cmd/proofserver/controllers"
	"shielded-ledger/cmd/proofserver/routes"
	"shielded-ledger/cmd/proofserver/services"
	core "shielded-ledger/core"
)

func main() {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})

	cfg, err := psconfig.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	pool := services.NewPool(cfg.NumWorkers, cfg.JobCapacity, handle, logger)
	srv := &controllers.Server{Pool: pool, JobTimeout: cfg.JobTimeout}
	router := routes.New(srv, cfg.APIKey, cfg.DisableAuth, cfg.RateLimitPerSec, cfg.MaxPayloadBytes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.WithField("addr", addr).Info("proof server listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.WithError(err).Error("listener failed")
		os.Exit(1)
	}
}

// handle answers each job kind with a minimal placeholder response. /k
// reports the fixed security parameter as a tagged hash; /check answers
// with the single unframed byte 1, reporting every wire as present (no
// real witness decode); /prove and /prove-tx echo back a deterministic
// tagged placeholder
// proof hash over the submitted payload so callers can exercise the
// wire protocol end to end.
func handle(ctx context.Context, j services.Job) ([]byte, error) {
	switch j.Kind {
	case services.JobK:
		return core.SerializeTxHash(core.PersistentHash([]byte("security-parameter-k"))), nil
	case services.JobCheck:
		return []byte{1}, nil
	case services.JobProve, services.JobProveTx:
		h := core.PersistentHash(j.Payload)
		return core.SerializeTxHash(h), nil
	default:
		return nil, core.ErrInvalidArgs
	}
}
