// Package services runs the proof server's fixed-size worker pool: a
// bounded job queue where each job has a deadline and is cancellable by
// the caller dropping its result channel.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	core "shielded-ledger/core"
)

// Job is one unit of proving work: an opaque payload (the tagged binary
// request body) and the kind of response it expects.
type Job struct {
	ID      string
	Kind    JobKind
	Payload []byte
	result  chan Result
}

type JobKind uint8

const (
	JobCheck JobKind = iota
	JobProve
	JobProveTx
	JobK
)

// Result is what a worker hands back: either a body to write as the HTTP
// response, or the handler's error. Queue-full and timeout errors come from
// Submit itself, not from a Result.
type Result struct {
	Body []byte
	Err  error
}

// Pool is a fixed-size worker pool draining a bounded channel of Jobs.
// Submit enqueues without blocking and then waits up to its timeout on the
// job's result channel; once Submit has timed out the job still runs, and
// its result goes unclaimed when the worker finishes.
type Pool struct {
	jobs    chan Job
	logger  *log.Logger
	queued  prometheus.Gauge
	handled *prometheus.CounterVec
}

// Handler does the actual proving work for one Job; supplied by main so
// this package stays independent of the ZK backend's concrete shape.
type Handler func(ctx context.Context, j Job) ([]byte, error)

func NewPool(numWorkers, capacity int, handle Handler, lg *log.Logger) *Pool {
	if lg == nil {
		lg = log.New()
	}
	p := &Pool{
		jobs:   make(chan Job, capacity),
		logger: lg,
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proofserver_jobs_queued",
			Help: "Number of jobs currently queued.",
		}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proofserver_jobs_handled_total",
			Help: "Jobs completed, partitioned by outcome.",
		}, []string{"outcome"}),
	}
	prometheus.MustRegister(p.queued, p.handled)
	for i := 0; i < numWorkers; i++ {
		go p.worker(i, handle)
	}
	return p
}

func (p *Pool) worker(id int, handle Handler) {
	for j := range p.jobs {
		p.queued.Dec()
		ctx := context.Background()
		body, err := handle(ctx, j)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		p.handled.WithLabelValues(outcome).Inc()
		select {
		case j.result <- Result{Body: body, Err: err}:
		default:
			p.logger.WithField("job", j.ID).Debug("result dropped, caller no longer listening")
		}
	}
}

// Submit enqueues payload for kind, waiting up to timeout for a result.
// Returns ErrQueueFull immediately if the pool is saturated, or
// ErrJobTimeout if the deadline elapses before a worker finishes it.
func (p *Pool) Submit(kind JobKind, payload []byte, timeout time.Duration) ([]byte, error) {
	j := Job{ID: uuid.NewString(), Kind: kind, Payload: payload, result: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		p.queued.Inc()
	default:
		return nil, core.ErrQueueFull
	}
	select {
	case r := <-j.result:
		return r.Body, r.Err
	case <-time.After(timeout):
		return nil, core.ErrJobTimeout
	}
}

// Shutdown stops accepting new jobs; in-flight jobs drain naturally.
func (p *Pool) Shutdown() { close(p.jobs) }
