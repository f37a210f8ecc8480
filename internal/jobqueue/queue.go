// Package jobqueue runs the engine's background work — cue normalization,
// taxonomy validation, alias discovery, and consolidation sweeps — as
// messages on a bounded channel consumed by a fixed worker pool (§5, §9).
// A job failure logs and is dropped; it never corrupts engine state,
// because every job is either idempotent or a no-op on conflict.
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Kind identifies the job types named in §9.
type Kind string

const (
	KindNormalize       Kind = "normalize"
	KindTaxonomyValidate Kind = "taxonomy_validate"
	KindAliasDiscover   Kind = "alias_discover"
	KindConsolidate     Kind = "consolidate"
)

// Job is one unit of background work.
type Job struct {
	Kind    Kind
	TenantID string
	Run     func(ctx context.Context) error
}

// Logger is the minimal logging surface jobqueue needs, satisfied by
// internal/logging.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Queue is a bounded channel of Jobs drained by a fixed pool of workers.
// Enqueue under saturation blocks briefly; if the queue is still full when
// the short wait expires, the job is dropped and a warning is logged —
// the synchronous write path is never blocked (§5's backpressure rule).
type Queue struct {
	jobs    chan Job
	log     Logger
	group   errgroup.Group
	cancel  context.CancelFunc
	sf      singleflight.Group
}

// Config controls queue depth and worker concurrency.
type Config struct {
	Capacity int
	Workers  int
}

// DefaultConfig matches §5's "bounded (default 1000)" queue depth.
func DefaultConfig() Config {
	return Config{Capacity: 1000, Workers: 4}
}

// New builds and starts a queue with cfg.Workers goroutines draining it.
// ctx governs the worker lifetime; cancel it (or call Stop) to make the
// workers exit. Jobs still queued at that point are not run.
func New(ctx context.Context, cfg Config, log Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		jobs:   make(chan Job, cfg.Capacity),
		log:    log,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.group.Go(func() error {
			q.worker(ctx)
			return nil
		})
	}
	return q
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := job.Run(ctx); err != nil {
				q.log.Error("background job failed", "kind", job.Kind, "tenant", job.TenantID, "error", err)
			} else {
				q.log.Debug("background job completed", "kind", job.Kind, "tenant", job.TenantID)
			}
		}
	}
}

// enqueueWait is how long Enqueue waits for a slot in a full queue.
const enqueueWait = 50 * time.Millisecond

// Enqueue submits job. If the queue is full it waits up to enqueueWait for
// a slot; if none frees up, the job is dropped with a logged warning rather
// than waiting indefinitely.
func (q *Queue) Enqueue(job Job) {
	timer := time.NewTimer(enqueueWait)
	defer timer.Stop()
	select {
	case q.jobs <- job:
	case <-timer.C:
		q.log.Warn("job queue saturated, dropping job", "kind", job.Kind, "tenant", job.TenantID)
	}
}

// EnqueueConsolidation collapses concurrent consolidation requests for the
// same tenant into one in-flight sweep via singleflight, since a sweep
// already walks the entire store and a second concurrent sweep for the
// same tenant would just redo the same Jaccard clustering.
func (q *Queue) EnqueueConsolidation(tenantID string, run func(ctx context.Context) error) {
	q.Enqueue(Job{
		Kind:     KindConsolidate,
		TenantID: tenantID,
		Run: func(ctx context.Context) error {
			_, err, _ := q.sf.Do(fmt.Sprintf("consolidate:%s", tenantID), func() (any, error) {
				return nil, run(ctx)
			})
			return err
		},
	})
}

// Stop cancels all workers and waits for them to exit.
func (q *Queue) Stop() {
	q.cancel()
	_ = q.group.Wait()
}

// Len returns the number of jobs currently queued (approximate, racy by
// design — used only for the /stats endpoint's queue-depth gauge).
func (q *Queue) Len() int {
	return len(q.jobs)
}
