// Package routes wires the proof server's chi router.
package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"shielded-ledger/cmd/proofserver/controllers"
	"shielded-ledger/cmd/proofserver/middleware"
)

// New builds the full router: public health/version endpoints, then the
// proving endpoints behind API-key auth, a rate limiter, and a body-size
// cap.
func New(srv *controllers.Server, apiKey string, disableAuth bool, ratePerSec float64, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", srv.Health)
	r.Get("/ready", srv.Ready)
	r.Get("/version", srv.Version)
	r.Get("/proof-versions", srv.ProofVersions)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAPIKey(apiKey, disableAuth))
		pr.Use(middleware.RateLimit(ratePerSec))
		pr.Use(middleware.MaxBody(maxBody))
		pr.Post("/check", srv.Check)
		pr.Post("/prove", srv.Prove)
		pr.Post("/prove-tx", srv.ProveTx)
		pr.Post("/k", srv.K)
	})
	return r
}
